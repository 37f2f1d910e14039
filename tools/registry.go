// Package tools holds the tool schemas advertised to AI providers, the
// converters between schema formats, and the executors that run tool
// calls on the application side.
package tools

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	mcptypes "github.com/mark3labs/mcp-go/mcp"
)

// ErrUnknownTool indicates the model requested a tool that was never
// registered.
var ErrUnknownTool = errors.New("unknown tool")

// Executor runs one tool call and returns its textual result.
type Executor func(ctx context.Context, args map[string]any) (string, error)

// Registry maps tool names to their schemas and executors. Registration
// happens at startup; Execute and Specs are safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]registration
}

type registration struct {
	spec mcptypes.Tool
	exec Executor
}

// NewRegistry creates an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]registration)}
}

// Register adds a tool. Re-registering a name replaces the previous
// entry.
func (r *Registry) Register(spec mcptypes.Tool, exec Executor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[spec.Name] = registration{spec: spec, exec: exec}
}

// Specs returns all registered tool schemas, sorted by name for a
// stable prompt ordering.
func (r *Registry) Specs() []mcptypes.Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	specs := make([]mcptypes.Tool, 0, len(r.tools))
	for _, reg := range r.tools {
		specs = append(specs, reg.spec)
	}
	sort.Slice(specs, func(i, j int) bool { return specs[i].Name < specs[j].Name })
	return specs
}

// Execute runs the named tool with the given arguments.
func (r *Registry) Execute(ctx context.Context, name string, args map[string]any) (string, error) {
	r.mu.RLock()
	reg, ok := r.tools[name]
	r.mu.RUnlock()

	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownTool, name)
	}
	return reg.exec(ctx, args)
}
