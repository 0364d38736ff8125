package conversation

import "unicode"

// Locale selects the language of fixed user-facing messages.
type Locale string

const (
	LocaleHebrew  Locale = "he"
	LocaleEnglish Locale = "en"
)

// DetectLocale returns Hebrew when text contains any Hebrew letter.
func DetectLocale(text string) Locale {
	for _, r := range text {
		if unicode.Is(unicode.Hebrew, r) {
			return LocaleHebrew
		}
	}
	return LocaleEnglish
}

type fixedMessages struct {
	needMoreInfo string
	notFound     string
	apology      string
}

var localeMessages = map[Locale]fixedMessages{
	LocaleHebrew: {
		needMoreInfo: "מצטער, אני צריך את פרטי קופת החולים ודרגת הביטוח שלך כדי לתת לך מידע מדויק.",
		notFound:     "אני מצטער, לא הצלחתי למצוא מידע הקשור לשאלתך.",
		apology:      "מצטער, אירעה שגיאה בעיבוד השאלה. אנא נסה שוב.",
	},
	LocaleEnglish: {
		needMoreInfo: "Sorry, I need your HMO and insurance tier details to give you accurate information.",
		notFound:     "I'm sorry, I couldn't find any information related to your question.",
		apology:      "Sorry, an error occurred while processing your question. Please try again.",
	},
}

func messagesFor(text string) fixedMessages {
	return localeMessages[DetectLocale(text)]
}

// NeedMoreInfoMessage is returned when the HMO or tier is unknown.
func NeedMoreInfoMessage(question string) string { return messagesFor(question).needMoreInfo }

// NotFoundMessage is returned when retrieval yields nothing usable.
func NotFoundMessage(question string) string { return messagesFor(question).notFound }

// ApologyMessage is the user-facing reply for any failed turn.
func ApologyMessage(question string) string { return messagesFor(question).apology }
