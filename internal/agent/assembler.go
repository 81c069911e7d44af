package agent

import (
	"encoding/json"
	"strings"

	"github.com/openai/openai-go/v3"

	"github.com/activebuddy/activebuddy/internal/models"
)

// HistoryWindow is the number of prior turns carried into each request.
const HistoryWindow = 10

// Assemble builds the full message slice for one model request: the
// persona system message annotated with Strava status and a profile
// snapshot, the trailing history window, and the new user turn.
func Assemble(profile *models.Profile, userText string) []openai.ChatCompletionMessageParamUnion {
	var b strings.Builder
	b.WriteString(SystemPrompt)

	b.WriteString("\n\nSTATUS STRAVA: ")
	if profile.Strava.Connected() {
		b.WriteString("CONNECTED ✅")
	} else {
		b.WriteString("NOT CONNECTED ❌")
	}

	if len(profile.Memory) > 0 {
		if snapshot, err := json.Marshal(profile.Memory); err == nil {
			b.WriteString("\nCURRENT USER PROFILE:\n")
			b.Write(snapshot)
		}
	}

	messages := make([]openai.ChatCompletionMessageParamUnion, 0, HistoryWindow+2)
	messages = append(messages, openai.SystemMessage(b.String()))

	for _, entry := range TrimHistory(profile.History) {
		switch entry.Role {
		case models.RoleUser:
			messages = append(messages, openai.UserMessage(entry.Content))
		case models.RoleAssistant:
			messages = append(messages, openai.AssistantMessage(entry.Content))
		}
	}

	return append(messages, openai.UserMessage(userText))
}

// TrimHistory drops malformed entries and keeps the trailing window.
// Tool-call bookkeeping never reaches storage, only user and assistant
// text turns do.
func TrimHistory(history []models.HistoryEntry) []models.HistoryEntry {
	clean := make([]models.HistoryEntry, 0, len(history))
	for _, entry := range history {
		if entry.Content == "" {
			continue
		}
		if entry.Role != models.RoleUser && entry.Role != models.RoleAssistant {
			continue
		}
		clean = append(clean, entry)
	}
	if len(clean) > HistoryWindow {
		clean = clean[len(clean)-HistoryWindow:]
	}
	return clean
}

// AppendTurn records a completed exchange on top of the cleaned
// history, keeping the window bounded.
func AppendTurn(history []models.HistoryEntry, userText, assistantText string) []models.HistoryEntry {
	updated := append(TrimHistory(history),
		models.HistoryEntry{Role: models.RoleUser, Content: userText},
		models.HistoryEntry{Role: models.RoleAssistant, Content: assistantText},
	)
	if len(updated) > HistoryWindow {
		updated = updated[len(updated)-HistoryWindow:]
	}
	return updated
}
