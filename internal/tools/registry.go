package tools

import (
	"fmt"
	"sort"

	"github.com/openai/openai-go/v3"
)

// Registry holds the fixed set of tools offered to the model.
type Registry struct {
	tools map[string]Tool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register adds a tool. Registering the same name twice replaces the
// earlier tool.
func (r *Registry) Register(tool Tool) {
	r.tools[tool.Name()] = tool
}

// Get looks up a tool by name; returns ErrUnknownTool if absent.
func (r *Registry) Get(name string) (Tool, error) {
	tool, ok := r.tools[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}
	return tool, nil
}

// All returns the registered tools sorted by name.
func (r *Registry) All() []Tool {
	out := make([]Tool, 0, len(r.tools))
	for _, t := range r.tools {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// Definitions returns the tool schema for the chat-completions request.
func (r *Registry) Definitions() []openai.ChatCompletionToolUnionParam {
	all := r.All()
	defs := make([]openai.ChatCompletionToolUnionParam, 0, len(all))
	for _, t := range all {
		defs = append(defs, t.Definition())
	}
	return defs
}
