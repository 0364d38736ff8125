package knowledge

import (
	"fmt"
	"regexp"
	"strings"
)

// Metadata describes where a chunk came from and which HMO/tier it applies to.
type Metadata struct {
	Category       string `json:"category"`
	Subcategory    string `json:"subcategory"`
	ServiceName    string `json:"service_name"`
	HMOName        string `json:"hmo_name"`
	InsuranceLevel string `json:"insurance_level"`
	SourceFile     string `json:"source_file"`
	ChunkType      string `json:"chunk_type"`
}

// Chunk is one indexed span of knowledge-base text. Chunks are identified by
// their position in the index and never change after load.
type Chunk struct {
	Text      string    `json:"text"`
	Embedding []float32 `json:"embedding"`
	Metadata  Metadata  `json:"metadata"`
}

// Match pairs a chunk with its similarity to a query.
type Match struct {
	Score float64
	Chunk Chunk
}

// Tag labels used in the stored chunk text.
const (
	tagCategory    = "נושא"
	tagSubcategory = "תת-נושא"
	tagService     = "שירות"
	tagHMO         = "קופת חולים"
	tagTier        = "רמת ביטוח"
)

var (
	serviceTagRE = regexp.MustCompile(`\[` + tagService + `: ([^\]]+)\]`)
	hmoTagRE     = regexp.MustCompile(`\[` + tagHMO + `: ([^\]]+)\]`)
	tierTagRE    = regexp.MustCompile(`\[` + tagTier + `: ([^\]]+)\]`)
)

// FormatTagged renders text in the tagged storage form used by the index,
// prefixing every non-empty metadata field as "[label: value]".
func FormatTagged(meta Metadata, text string) string {
	parts := make([]string, 0, 6)
	add := func(label, value string) {
		if value = strings.TrimSpace(value); value != "" {
			parts = append(parts, fmt.Sprintf("[%s: %s]", label, value))
		}
	}
	add(tagCategory, meta.Category)
	add(tagSubcategory, meta.Subcategory)
	add(tagService, meta.ServiceName)
	add(tagHMO, meta.HMOName)
	add(tagTier, meta.InsuranceLevel)
	parts = append(parts, strings.TrimSpace(text))
	return strings.Join(parts, " ")
}

// Naturalize turns a tagged benefit chunk into a plain sentence so the
// completion model never sees the bracket markup. Chunks without all of the
// service, HMO and tier tags are returned trimmed and otherwise unchanged.
func Naturalize(chunk string) string {
	chunk = strings.TrimSpace(chunk)

	service := serviceTagRE.FindStringSubmatch(chunk)
	hmo := hmoTagRE.FindStringSubmatch(chunk)
	tier := tierTagRE.FindStringSubmatch(chunk)
	if service == nil || hmo == nil || tier == nil {
		return chunk
	}

	last := strings.LastIndex(chunk, "]")
	if last == -1 || last >= len(chunk)-1 {
		return chunk
	}
	benefit := strings.TrimSpace(chunk[last+1:])
	if benefit == "" {
		return chunk
	}

	return fmt.Sprintf("עבור טיפול ב%s: חברי קופת חולים %s ברמת ביטוח %s זכאים ל%s",
		service[1], hmo[1], tier[1], benefit)
}
