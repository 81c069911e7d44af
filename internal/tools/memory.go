package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/shared"
	"go.uber.org/zap"

	"github.com/activebuddy/activebuddy/internal/database"
	"github.com/activebuddy/activebuddy/internal/models"
)

// MemoryToolName is the tool identifier declared to the model.
const MemoryToolName = "save_profile_info"

// MemoryTool merges facts the model learned about the user into the
// durable profile memory, last-write-wins per attribute key.
type MemoryTool struct {
	profiles database.ProfileStore
	logger   *zap.Logger
}

// NewMemoryTool creates the memory-save adapter.
func NewMemoryTool(profiles database.ProfileStore, logger *zap.Logger) *MemoryTool {
	return &MemoryTool{profiles: profiles, logger: logger}
}

// Name implements Tool.
func (t *MemoryTool) Name() string { return MemoryToolName }

// Definition implements Tool.
func (t *MemoryTool) Definition() openai.ChatCompletionToolUnionParam {
	return openai.ChatCompletionFunctionTool(shared.FunctionDefinitionParam{
		Name:        MemoryToolName,
		Description: openai.String("Save facts about the user (age, weight, injuries, goals, city, equipment, PRs) to their durable profile."),
		Parameters: shared.FunctionParameters{
			"type": "object",
			"properties": map[string]any{
				"info_json": map[string]any{
					"type":        "string",
					"description": "JSON object string mapping attribute names to values.",
				},
			},
			"required": []string{"info_json"},
		},
	})
}

// Execute implements Tool. Accepts either the declared info_json string
// or a direct attribute mapping (some models inline the object).
func (t *MemoryTool) Execute(ctx context.Context, chatID int64, args map[string]any) (string, error) {
	updates, err := parseMemoryArgs(args)
	if err != nil {
		return fmt.Sprintf("Error saving profile: %v", err), nil
	}
	if len(updates) == 0 {
		return "Nothing to save.", nil
	}

	if err := t.profiles.MergeMemory(ctx, chatID, updates); err != nil {
		t.logger.Error("memory_merge_failed", zap.Int64("chat_id", chatID), zap.Error(err))
		return "Error saving profile: storage failure.", nil
	}

	t.logger.Info("profile_memory_saved",
		zap.Int64("chat_id", chatID),
		zap.Strings("keys", memoryKeys(updates)),
	)
	return "Saved to profile: " + strings.Join(memoryKeys(updates), ", "), nil
}

func parseMemoryArgs(args map[string]any) (models.Memory, error) {
	if raw, ok := args["info_json"].(string); ok {
		var updates models.Memory
		if err := json.Unmarshal([]byte(raw), &updates); err != nil {
			return nil, fmt.Errorf("info_json is not a JSON object: %w", err)
		}
		return updates, nil
	}

	// Direct mapping form: treat every argument as an attribute.
	updates := make(models.Memory, len(args))
	for k, v := range args {
		if v != nil {
			updates[k] = v
		}
	}
	return updates, nil
}

func memoryKeys(m models.Memory) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
