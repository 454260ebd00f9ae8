// Package tools defines the Tool capability contract and the Registry that
// maps tool names to implementations.
//
// A Tool is a unit of external capability: it declares a static parameter
// schema (folded into LLM prompts) and executes asynchronously, returning
// text. Expected failure modes — missing or invalid parameters, upstream API
// errors, auth failures — must be absorbed into a returned string prefixed
// with "Error: " so that the agent can forward them verbatim; the Go error
// return is reserved for context cancellation and similarly unrecoverable
// conditions.
//
// The Registry is an explicit value constructed once at process start and
// passed by reference into the router and agent. It is safe for concurrent
// reads; registration during live traffic is not a supported scenario.
package tools

import (
	"context"
	"sort"
	"sync"
)

// Parameter value types accepted in a [Param] schema.
const (
	TypeString  = "string"
	TypeInteger = "integer"
	TypeBoolean = "boolean"
)

// Param describes a single tool parameter.
type Param struct {
	// Type is one of [TypeString], [TypeInteger], [TypeBoolean].
	Type string

	// Description is a human-readable explanation shown to the LLM.
	Description string

	// Required marks the parameter as mandatory. Optional parameters are
	// rendered with an "(optional)" marker in prompts.
	Required bool
}

// Spec is a tool's immutable, statically declared schema.
type Spec struct {
	// Name is the tool's unique registry key (e.g., "TimestampTool").
	Name string

	// Description is a human-readable summary folded into prompts.
	Description string

	// Parameters maps parameter name to its schema.
	Parameters map[string]Param
}

// Tool is the capability contract every tool variant implements.
type Tool interface {
	// Spec returns the tool's static schema. The result must be constant
	// for the lifetime of the tool.
	Spec() Spec

	// Execute runs the tool with the given named arguments. Argument values
	// come from parsed LLM output and may be of any JSON type; use the
	// StringArg/IntArg/BoolArg helpers to coerce them.
	Execute(ctx context.Context, args map[string]any) (string, error)
}

// Registry maps tool names to implementations. The zero value is not usable;
// construct one with [NewRegistry].
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

// NewRegistry returns an empty, ready-to-use [Registry].
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register adds t under its declared spec name. Registering a second tool
// with the same name overwrites the first — last registration wins.
func (r *Registry) Register(t Tool) {
	r.RegisterAs(t.Spec().Name, t)
}

// RegisterAs adds t under an explicit name, overriding the spec name.
func (r *Registry) RegisterAs(name string, t Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[name] = t
}

// Lookup returns the tool registered under name, if any.
func (r *Registry) Lookup(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// Names returns the sorted names of all registered tools.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}

// Specs returns the schema of every registered tool, keyed by name.
func (r *Registry) Specs() map[string]Spec {
	r.mu.RLock()
	defer r.mu.RUnlock()
	specs := make(map[string]Spec, len(r.tools))
	for name, t := range r.tools {
		specs[name] = t.Spec()
	}
	return specs
}

// Reset removes all registrations. Intended for test isolation.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools = make(map[string]Tool)
}

// StringArg coerces args[key] to a string, returning fallback when the key
// is absent or not a string.
func StringArg(args map[string]any, key, fallback string) string {
	if v, ok := args[key].(string); ok {
		return v
	}
	return fallback
}

// IntArg coerces args[key] to an int. JSON decoding produces float64 for all
// numbers, so both int and float64 values are accepted.
func IntArg(args map[string]any, key string, fallback int) int {
	switch v := args[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	}
	return fallback
}

// BoolArg coerces args[key] to a bool, returning fallback when the key is
// absent or not a bool.
func BoolArg(args map[string]any, key string, fallback bool) bool {
	if v, ok := args[key].(bool); ok {
		return v
	}
	return fallback
}
