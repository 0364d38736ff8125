package conversation

import "strings"

// RegistrationState is the position in the registration dialogue.
type RegistrationState int

const (
	StateCollecting RegistrationState = iota
	StateAwaitingConfirmation
	StateConfirmed
)

func (s RegistrationState) String() string {
	switch s {
	case StateCollecting:
		return "collecting"
	case StateAwaitingConfirmation:
		return "awaiting_confirmation"
	case StateConfirmed:
		return "confirmed"
	}
	return "unknown"
}

var confirmationPhrases = []string{
	"are these details correct",
	"האם הפרטים נכונים",
}

var affirmations = map[string]struct{}{
	"yes":     {},
	"correct": {},
	"כן":      {},
	"נכון":    {},
}

// IsConfirmationPrompt reports whether an assistant turn asks the user to
// confirm the collected details.
func IsConfirmationPrompt(text string) bool {
	text = strings.ToLower(text)
	for _, phrase := range confirmationPhrases {
		if strings.Contains(text, phrase) {
			return true
		}
	}
	return false
}

// IsAffirmation reports whether a user reply confirms the details.
func IsAffirmation(text string) bool {
	_, ok := affirmations[strings.ToLower(strings.TrimSpace(text))]
	return ok
}

// ReplayRegistration derives the registration state by replaying history
// once from the start. Each confirmation prompt opens a new cycle and only
// the reply immediately after it decides that cycle, so the latest cycle
// always wins.
func ReplayRegistration(history []ChatMessage) RegistrationState {
	state := StateCollecting
	pending := false
	for _, msg := range history {
		switch msg.Role {
		case ChatRoleAssistant:
			if IsConfirmationPrompt(msg.Content) {
				state = StateAwaitingConfirmation
				pending = true
				continue
			}
		case ChatRoleUser:
			if pending && IsAffirmation(msg.Content) {
				state = StateConfirmed
			}
		}
		pending = false
	}
	return state
}

// IsCollectionComplete reports whether the most recent confirmation prompt
// was answered with an affirmation.
func IsCollectionComplete(history []ChatMessage) bool {
	return ReplayRegistration(history) == StateConfirmed
}
