package agent

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/activebuddy/activebuddy/internal/models"
)

func TestAssemble_SystemMessageReflectsStravaStatus(t *testing.T) {
	t.Parallel()

	profile := &models.Profile{ChatID: 1, Memory: models.Memory{}}
	messages := Assemble(profile, "hi")

	system := messages[0].OfSystem.Content.OfString.Value
	if !strings.Contains(system, "NOT CONNECTED") {
		t.Errorf("Expected not-connected status, got: %s", system)
	}
	if !strings.Contains(system, "ActiveBuddy") {
		t.Error("Expected persona in system message")
	}

	profile.Strava = &models.StravaTokens{
		AccessToken: "tok", RefreshToken: "ref", ExpiresAt: time.Now().Add(time.Hour),
	}
	system = Assemble(profile, "hi")[0].OfSystem.Content.OfString.Value
	if !strings.Contains(system, "CONNECTED ✅") {
		t.Errorf("Expected connected status, got: %s", system)
	}
}

func TestAssemble_IncludesMemorySnapshot(t *testing.T) {
	t.Parallel()

	profile := &models.Profile{ChatID: 1, Memory: models.Memory{"city": "Kyiv", "goal": "marathon"}}
	system := Assemble(profile, "hi")[0].OfSystem.Content.OfString.Value

	if !strings.Contains(system, "CURRENT USER PROFILE") {
		t.Error("Expected profile snapshot header")
	}
	if !strings.Contains(system, `"city":"Kyiv"`) {
		t.Errorf("Expected memory in system message, got: %s", system)
	}
}

func TestAssemble_EmptyMemoryOmitsSnapshot(t *testing.T) {
	t.Parallel()

	profile := &models.Profile{ChatID: 1, Memory: models.Memory{}}
	system := Assemble(profile, "hi")[0].OfSystem.Content.OfString.Value
	if strings.Contains(system, "CURRENT USER PROFILE") {
		t.Error("Expected no snapshot for empty memory")
	}
}

func TestAssemble_OrderAndNewTurn(t *testing.T) {
	t.Parallel()

	profile := &models.Profile{ChatID: 1, Memory: models.Memory{}, History: []models.HistoryEntry{
		{Role: models.RoleUser, Content: "I ran 10k"},
		{Role: models.RoleAssistant, Content: "Nice pace!"},
	}}
	messages := Assemble(profile, "plan for tomorrow?")

	if len(messages) != 4 {
		t.Fatalf("Expected system + 2 history + user, got %d messages", len(messages))
	}
	if messages[0].OfSystem == nil {
		t.Error("Expected system message first")
	}
	if messages[1].OfUser == nil || messages[1].OfUser.Content.OfString.Value != "I ran 10k" {
		t.Error("Expected history user turn second")
	}
	if messages[2].OfAssistant == nil {
		t.Error("Expected history assistant turn third")
	}
	last := messages[len(messages)-1]
	if last.OfUser == nil || last.OfUser.Content.OfString.Value != "plan for tomorrow?" {
		t.Error("Expected new user turn last")
	}
}

func TestTrimHistory_WindowAndFiltering(t *testing.T) {
	t.Parallel()

	var history []models.HistoryEntry
	for i := 0; i < 14; i++ {
		history = append(history, models.HistoryEntry{
			Role:    models.RoleUser,
			Content: fmt.Sprintf("turn %d", i),
		})
	}
	history = append(history,
		models.HistoryEntry{Role: "tool", Content: "internal"},
		models.HistoryEntry{Role: models.RoleAssistant, Content: ""},
	)

	trimmed := TrimHistory(history)
	if len(trimmed) != HistoryWindow {
		t.Fatalf("Expected window of %d, got %d", HistoryWindow, len(trimmed))
	}
	if trimmed[len(trimmed)-1].Content != "turn 13" {
		t.Errorf("Expected newest turns kept, got %s", trimmed[len(trimmed)-1].Content)
	}
	for _, entry := range trimmed {
		if entry.Role != models.RoleUser && entry.Role != models.RoleAssistant {
			t.Errorf("Unexpected role survived trimming: %s", entry.Role)
		}
	}
}

func TestAppendTurn_KeepsWindowBounded(t *testing.T) {
	t.Parallel()

	var history []models.HistoryEntry
	for i := 0; i < HistoryWindow; i++ {
		history = append(history, models.HistoryEntry{Role: models.RoleUser, Content: fmt.Sprintf("old %d", i)})
	}

	updated := AppendTurn(history, "question", "answer")
	if len(updated) != HistoryWindow {
		t.Fatalf("Expected bounded window, got %d", len(updated))
	}
	if updated[len(updated)-2].Content != "question" || updated[len(updated)-1].Content != "answer" {
		t.Error("Expected new exchange at the tail")
	}
	if updated[len(updated)-1].Role != models.RoleAssistant {
		t.Error("Expected assistant role on the answer")
	}
}
