package conversation

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReplayRegistration(t *testing.T) {
	tests := []struct {
		name    string
		history []ChatMessage
		want    RegistrationState
	}{
		{"empty history", nil, StateCollecting},
		{"still collecting", []ChatMessage{assistant("What is your first name?"), user("Dana")}, StateCollecting},
		{"prompt without reply", []ChatMessage{assistant("Name: Dana. Are these details correct?")}, StateAwaitingConfirmation},
		{"english yes", []ChatMessage{assistant("Are these details correct?"), user("yes")}, StateConfirmed},
		{"case and whitespace folded", []ChatMessage{assistant("ARE THESE DETAILS CORRECT?"), user("  Correct \n")}, StateConfirmed},
		{"hebrew yes", []ChatMessage{assistant("האם הפרטים נכונים?"), user("כן")}, StateConfirmed},
		{"hebrew correct", []ChatMessage{assistant("האם הפרטים נכונים?"), user("נכון")}, StateConfirmed},
		{"rejected", []ChatMessage{assistant("Are these details correct?"), user("no, my age is 40")}, StateAwaitingConfirmation},
		{"affirmation not alone", []ChatMessage{assistant("Are these details correct?"), user("yes but change my age")}, StateAwaitingConfirmation},
		{
			name: "rejected then accepted",
			history: []ChatMessage{
				assistant("Are these details correct?"), user("no"),
				assistant("Fixed. Are these details correct?"), user("yes"),
			},
			want: StateConfirmed,
		},
		{
			name: "accepted then superseded by a new prompt",
			history: []ChatMessage{
				assistant("Are these details correct?"), user("yes"),
				assistant("Updated. Are these details correct?"),
			},
			want: StateAwaitingConfirmation,
		},
		{
			name: "accepted then superseded and rejected",
			history: []ChatMessage{
				assistant("Are these details correct?"), user("yes"),
				assistant("Updated. Are these details correct?"), user("no"),
			},
			want: StateAwaitingConfirmation,
		},
		{
			name: "confirmed stays confirmed through later turns",
			history: []ChatMessage{
				assistant("Are these details correct?"), user("yes"),
				assistant("Great! Now feel free to ask me a question."),
				user("What dental benefits do I have?"),
				assistant("You get two cleanings a year."),
			},
			want: StateConfirmed,
		},
		{"user asking the phrase does not count", []ChatMessage{user("are these details correct?"), user("yes")}, StateCollecting},
		{"only the immediate reply decides", []ChatMessage{assistant("Are these details correct?"), user("hmm"), user("yes")}, StateAwaitingConfirmation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ReplayRegistration(tt.history)
			assert.Equal(t, tt.want, got, "state %s", got)
			assert.Equal(t, tt.want == StateConfirmed, IsCollectionComplete(tt.history))
		})
	}
}

func TestIsCollectionComplete_FullHebrewRegistration(t *testing.T) {
	assert.True(t, IsCollectionComplete(confirmedHebrewHistory()))
}

// backwardScanComplete finds the most recent confirmation prompt and checks
// only the turn right after it.
func backwardScanComplete(history []ChatMessage) bool {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == ChatRoleAssistant && IsConfirmationPrompt(history[i].Content) {
			return i+1 < len(history) && history[i+1].Role == ChatRoleUser && IsAffirmation(history[i+1].Content)
		}
	}
	return false
}

func TestIsCollectionComplete_MatchesBackwardScan(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	assistantTurns := []string{"What is your age?", "Are these details correct?", "האם הפרטים נכונים?", "Thanks!"}
	userTurns := []string{"yes", "no", "כן", "נכון", "34", "Correct", "maybe"}

	for i := 0; i < 2000; i++ {
		n := rng.Intn(10)
		history := make([]ChatMessage, 0, n)
		for j := 0; j < n; j++ {
			if rng.Intn(2) == 0 {
				history = append(history, assistant(assistantTurns[rng.Intn(len(assistantTurns))]))
			} else {
				history = append(history, user(userTurns[rng.Intn(len(userTurns))]))
			}
		}
		assert.Equal(t, backwardScanComplete(history), IsCollectionComplete(history), "history %v", history)
	}
}

func TestIsAffirmation(t *testing.T) {
	for _, yes := range []string{"yes", "YES", " correct ", "כן", "נכון"} {
		assert.True(t, IsAffirmation(yes), yes)
	}
	for _, no := range []string{"", "no", "yes!", "yep", "לא", "כן כן"} {
		assert.False(t, IsAffirmation(no), no)
	}
}

func TestIsConfirmationPrompt(t *testing.T) {
	assert.True(t, IsConfirmationPrompt("Summary... Are these details correct?"))
	assert.True(t, IsConfirmationPrompt("סיכום: ... האם הפרטים נכונים?"))
	assert.False(t, IsConfirmationPrompt("What is your HMO?"))
}

func TestRegistrationStateString(t *testing.T) {
	assert.Equal(t, "collecting", StateCollecting.String())
	assert.Equal(t, "awaiting_confirmation", StateAwaitingConfirmation.String())
	assert.Equal(t, "confirmed", StateConfirmed.String())
	assert.True(t, strings.HasPrefix(RegistrationState(9).String(), "unknown"))
}
