package conversation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectLocale(t *testing.T) {
	assert.Equal(t, LocaleHebrew, DetectLocale("מה ההטבות שלי?"))
	assert.Equal(t, LocaleHebrew, DetectLocale("What about דיקור?"))
	assert.Equal(t, LocaleEnglish, DetectLocale("What are my dental benefits?"))
	assert.Equal(t, LocaleEnglish, DetectLocale(""))
}

func TestFixedMessagesFollowQuestionLanguage(t *testing.T) {
	assert.Equal(t, "מצטער, אני צריך את פרטי קופת החולים ודרגת הביטוח שלך כדי לתת לך מידע מדויק.", NeedMoreInfoMessage("מה מגיע לי?"))
	assert.Equal(t, "אני מצטער, לא הצלחתי למצוא מידע הקשור לשאלתך.", NotFoundMessage("מה מגיע לי?"))
	assert.Equal(t, "מצטער, אירעה שגיאה בעיבוד השאלה. אנא נסה שוב.", ApologyMessage("מה מגיע לי?"))

	assert.Contains(t, NeedMoreInfoMessage("What do I get?"), "HMO and insurance tier")
	assert.Contains(t, NotFoundMessage("What do I get?"), "couldn't find")
	assert.Contains(t, ApologyMessage("What do I get?"), "Please try again")
}
