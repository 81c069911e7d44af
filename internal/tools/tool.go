package tools

import (
	"context"
	"errors"

	"github.com/openai/openai-go/v3"
)

// Tool is one callable capability exposed to the model. Execute returns
// the normalized result text fed back into the conversation. Upstream
// outages should be reported inside the result text so the model can
// react; a non-nil error is reserved for failures the adapter cannot
// phrase for the model.
type Tool interface {
	Name() string
	Definition() openai.ChatCompletionToolUnionParam
	Execute(ctx context.Context, chatID int64, args map[string]any) (string, error)
}

// ErrUnknownTool is returned when the model requests a tool that is not
// registered. This is a programming error, not a user-recoverable one.
var ErrUnknownTool = errors.New("unknown tool")
