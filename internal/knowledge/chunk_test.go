package knowledge

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatTagged(t *testing.T) {
	meta := Metadata{
		Category:       "רפואה משלימה",
		ServiceName:    "דיקור סיני",
		HMOName:        "מכבי",
		InsuranceLevel: " זהב ",
	}

	got := FormatTagged(meta, " 70% הנחה ")
	assert.Equal(t, "[נושא: רפואה משלימה] [שירות: דיקור סיני] [קופת חולים: מכבי] [רמת ביטוח: זהב] 70% הנחה", got)
}

func TestFormatTagged_NoMetadata(t *testing.T) {
	assert.Equal(t, "plain text", FormatTagged(Metadata{}, "plain text"))
}

func TestNaturalize(t *testing.T) {
	tests := []struct {
		name  string
		chunk string
		want  string
	}{
		{
			name:  "fully tagged benefit",
			chunk: "[נושא: רפואה משלימה] [שירות: דיקור סיני] [קופת חולים: מכבי] [רמת ביטוח: זהב] 70% הנחה עד 20 טיפולים בשנה",
			want:  "עבור טיפול בדיקור סיני: חברי קופת חולים מכבי ברמת ביטוח זהב זכאים ל70% הנחה עד 20 טיפולים בשנה",
		},
		{
			name:  "missing tier tag",
			chunk: "  [שירות: דיקור סיני] [קופת חולים: מכבי] 70% הנחה  ",
			want:  "[שירות: דיקור סיני] [קופת חולים: מכבי] 70% הנחה",
		},
		{
			name:  "no benefit text after tags",
			chunk: "[שירות: דיקור סיני] [קופת חולים: מכבי] [רמת ביטוח: זהב]",
			want:  "[שירות: דיקור סיני] [קופת חולים: מכבי] [רמת ביטוח: זהב]",
		},
		{
			name:  "untagged paragraph",
			chunk: "Dental checkups are free once a year.",
			want:  "Dental checkups are free once a year.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Naturalize(tt.chunk))
		})
	}
}

func TestNaturalize_RoundTripsFormatTagged(t *testing.T) {
	meta := Metadata{ServiceName: "שיננית", HMOName: "כללית", InsuranceLevel: "ארד"}

	got := Naturalize(FormatTagged(meta, "ניקוי שיניים פעמיים בשנה"))
	assert.Equal(t, "עבור טיפול בשיננית: חברי קופת חולים כללית ברמת ביטוח ארד זכאים לניקוי שיניים פעמיים בשנה", got)
}
