package conversation

import (
	"strconv"
	"strings"
	"unicode/utf8"
)

// Profile field names, also the JSON keys used on the wire and in the
// extraction prompt.
const (
	FieldFirstName     = "first_name"
	FieldLastName      = "last_name"
	FieldIDNumber      = "id_number"
	FieldGender        = "gender"
	FieldAge           = "age"
	FieldHMO           = "hmo"
	FieldHMOCard       = "hmo_card"
	FieldInsuranceTier = "insurance_tier"
)

// ProfileFields lists every slot in collection order.
var ProfileFields = []string{
	FieldFirstName, FieldLastName, FieldIDNumber, FieldGender,
	FieldAge, FieldHMO, FieldHMOCard, FieldInsuranceTier,
}

// UserProfile is the registration record. It is rebuilt from history on
// every request.
type UserProfile struct {
	FirstName     string `json:"first_name,omitempty"`
	LastName      string `json:"last_name,omitempty"`
	IDNumber      string `json:"id_number,omitempty"`
	Gender        string `json:"gender,omitempty"`
	Age           *int   `json:"age,omitempty"`
	HMO           string `json:"hmo,omitempty"`
	HMOCard       string `json:"hmo_card,omitempty"`
	InsuranceTier string `json:"insurance_tier,omitempty"`
}

// Filled counts the populated fields.
func (p UserProfile) Filled() int {
	n := 0
	for _, f := range ProfileFields {
		if p.Get(f) != "" {
			n++
		}
	}
	return n
}

// Complete reports whether every field is populated.
func (p UserProfile) Complete() bool {
	return p.Filled() == len(ProfileFields)
}

// Get returns the field as text, or "" when unset.
func (p UserProfile) Get(field string) string {
	switch field {
	case FieldFirstName:
		return p.FirstName
	case FieldLastName:
		return p.LastName
	case FieldIDNumber:
		return p.IDNumber
	case FieldGender:
		return p.Gender
	case FieldAge:
		if p.Age == nil {
			return ""
		}
		return strconv.Itoa(*p.Age)
	case FieldHMO:
		return p.HMO
	case FieldHMOCard:
		return p.HMOCard
	case FieldInsuranceTier:
		return p.InsuranceTier
	}
	return ""
}

// Set validates and normalizes value, then stores it. On error the profile
// is unchanged.
func (p *UserProfile) Set(field, value string) error {
	value = strings.TrimSpace(value)
	var err error
	switch field {
	case FieldFirstName:
		value, err = ValidateName(field, value, 1)
		if err == nil {
			p.FirstName = value
		}
	case FieldLastName:
		value, err = ValidateName(field, value, 2)
		if err == nil {
			p.LastName = value
		}
	case FieldIDNumber:
		value, err = ValidateNineDigits(field, value)
		if err == nil {
			p.IDNumber = value
		}
	case FieldGender:
		value, err = NormalizeGender(value)
		if err == nil {
			p.Gender = value
		}
	case FieldAge:
		var age int
		age, err = ValidateAge(value)
		if err == nil {
			p.Age = &age
		}
	case FieldHMO:
		value, err = NormalizeHMO(value)
		if err == nil {
			p.HMO = value
		}
	case FieldHMOCard:
		value, err = ValidateNineDigits(field, value)
		if err == nil {
			p.HMOCard = value
		}
	case FieldInsuranceTier:
		value, err = NormalizeTier(value)
		if err == nil {
			p.InsuranceTier = value
		}
	default:
		err = &ValidationError{Field: field, Value: value, Reason: "unknown field"}
	}
	return err
}

// ValidateName accepts a non-empty name of at least minRunes letters.
func ValidateName(field, value string, minRunes int) (string, error) {
	value = strings.Join(strings.Fields(value), " ")
	if utf8.RuneCountInString(value) < minRunes {
		return "", &ValidationError{Field: field, Value: value, Reason: "too short"}
	}
	for _, r := range value {
		if r >= '0' && r <= '9' {
			return "", &ValidationError{Field: field, Value: value, Reason: "contains digits"}
		}
	}
	return value, nil
}

// ValidateNineDigits accepts exactly nine ASCII digits, as used by both the
// ID number and the HMO card number.
func ValidateNineDigits(field, value string) (string, error) {
	value = strings.TrimSpace(value)
	if len(value) != 9 {
		return "", &ValidationError{Field: field, Value: value, Reason: "must be 9 digits"}
	}
	for i := 0; i < len(value); i++ {
		if value[i] < '0' || value[i] > '9' {
			return "", &ValidationError{Field: field, Value: value, Reason: "must be 9 digits"}
		}
	}
	return value, nil
}

// ValidateAge accepts a whole number between 0 and 120.
func ValidateAge(value string) (int, error) {
	value = strings.TrimSpace(value)
	age, err := strconv.Atoi(value)
	if err != nil || strings.HasPrefix(value, "+") || strings.HasPrefix(value, "-") {
		return 0, &ValidationError{Field: FieldAge, Value: value, Reason: "not a whole number"}
	}
	if age < 0 || age > 120 {
		return 0, &ValidationError{Field: FieldAge, Value: value, Reason: "out of range 0-120"}
	}
	return age, nil
}

var genderValues = map[string]string{
	"זכר":    "זכר",
	"נקבה":   "נקבה",
	"male":   "male",
	"female": "female",
}

// NormalizeGender folds case, collapses a duplicated trailing letter
// ("נקבהה") and checks the result against the known values.
func NormalizeGender(value string) (string, error) {
	v := collapseTrailingRepeat(strings.ToLower(strings.TrimSpace(value)))
	if g, ok := genderValues[v]; ok {
		return g, nil
	}
	return "", &ValidationError{Field: FieldGender, Value: value, Reason: "unknown gender"}
}

var hmoValues = map[string]string{
	"מכבי":     "מכבי",
	"מאוחדת":   "מאוחדת",
	"כללית":    "כללית",
	"maccabi":  "maccabi",
	"meuhedet": "meuhedet",
	"clalit":   "clalit",
}

// NormalizeHMO folds case, drops a leading "קופת חולים" and collapses a
// duplicated trailing letter ("מכביי").
func NormalizeHMO(value string) (string, error) {
	v := strings.ToLower(strings.TrimSpace(value))
	v = strings.TrimSpace(strings.TrimPrefix(v, "קופת חולים"))
	v = collapseTrailingRepeat(v)
	if h, ok := hmoValues[v]; ok {
		return h, nil
	}
	return "", &ValidationError{Field: FieldHMO, Value: value, Reason: "unknown hmo"}
}

var tierValues = map[string]string{
	"זהב":    "זהב",
	"כסף":    "כסף",
	"ארד":    "ארד",
	"gold":   "gold",
	"silver": "silver",
	"bronze": "bronze",
}

// NormalizeTier folds case and checks the insurance tier.
func NormalizeTier(value string) (string, error) {
	v := strings.ToLower(strings.TrimSpace(value))
	v = strings.TrimSpace(strings.TrimPrefix(v, "מסלול"))
	v = collapseTrailingRepeat(v)
	if t, ok := tierValues[v]; ok {
		return t, nil
	}
	return "", &ValidationError{Field: FieldInsuranceTier, Value: value, Reason: "unknown tier"}
}

// collapseTrailingRepeat removes repeats of the final rune, so "נקבהה"
// becomes "נקבה" while "מכבי" is left alone.
func collapseTrailingRepeat(s string) string {
	last, size := utf8.DecodeLastRuneInString(s)
	if last == utf8.RuneError {
		return s
	}
	for {
		rest := s[:len(s)-size]
		prev, _ := utf8.DecodeLastRuneInString(rest)
		if prev != last || rest == "" {
			return s
		}
		s = rest
	}
}

var (
	canonicalHMOs = map[string]string{
		"מכבי":     "Maccabi",
		"מאוחדת":   "Meuhedet",
		"כללית":    "Clalit",
		"maccabi":  "Maccabi",
		"meuhedet": "Meuhedet",
		"clalit":   "Clalit",
	}
	canonicalTiers = map[string]string{
		"זהב":    "Gold",
		"כסף":    "Silver",
		"ארד":    "Bronze",
		"gold":   "Gold",
		"silver": "Silver",
		"bronze": "Bronze",
	}
)

// CanonicalHMO maps an HMO name in either language to the knowledge base
// spelling, or "" when unknown.
func CanonicalHMO(value string) string {
	v, err := NormalizeHMO(value)
	if err != nil {
		return ""
	}
	return canonicalHMOs[v]
}

// CanonicalTier maps an insurance tier in either language to the knowledge
// base spelling, or "" when unknown.
func CanonicalTier(value string) string {
	v, err := NormalizeTier(value)
	if err != nil {
		return ""
	}
	return canonicalTiers[v]
}
