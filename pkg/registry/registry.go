// Package registry holds the fixed mapping from tool name to argument schema,
// credential class, and handler. The mapping is built once at startup and
// frozen before dispatch begins, so lookups need no synchronization.
package registry

import (
	"context"
	"fmt"

	"github.com/mpopa/slackgate/pkg/envelope"
)

// CredentialClass selects which secret a tool call runs under.
type CredentialClass string

const (
	// CredentialUser resolves a per-identity secret from the external
	// identity store on every call.
	CredentialUser CredentialClass = "user"
	// CredentialService uses the single process-lifetime service secret.
	CredentialService CredentialClass = "service"
)

// FieldType is the wire type of a tool argument.
type FieldType string

const (
	TypeString FieldType = "string"
	TypeInt    FieldType = "int"
	TypeBool   FieldType = "bool"
)

// Field describes one argument in a tool's schema.
type Field struct {
	Name     string    `json:"name"`
	Type     FieldType `json:"type"`
	Required bool      `json:"required"`
}

// Handler executes one remote-platform operation with already-validated
// arguments and the resolved secret.
type Handler func(ctx context.Context, secret string, args map[string]any) (map[string]any, error)

// ToolDefinition binds a tool name to its schema, credential class, and
// handler. Immutable after registration.
type ToolDefinition struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Schema      []Field         `json:"schema"`
	Credential  CredentialClass `json:"credential_class"`
	Handler     Handler         `json:"-"`
}

// Registry is the closed tool table. Register during startup, Freeze, then
// only Lookup and List.
type Registry struct {
	byName map[string]ToolDefinition
	order  []string
	frozen bool
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{byName: make(map[string]ToolDefinition)}
}

// Register adds a tool definition. It fails on a duplicate name or after the
// registry has been frozen.
func (r *Registry) Register(def ToolDefinition) error {
	if r.frozen {
		return fmt.Errorf("registry is frozen, cannot register %q", def.Name)
	}
	if def.Name == "" {
		return fmt.Errorf("tool name must not be empty")
	}
	if def.Handler == nil {
		return fmt.Errorf("tool %q has no handler", def.Name)
	}
	if _, exists := r.byName[def.Name]; exists {
		return envelope.ErrDuplicateTool(def.Name)
	}
	r.byName[def.Name] = def
	r.order = append(r.order, def.Name)
	return nil
}

// Freeze closes the registry for registration. Lookups after Freeze are safe
// for unsynchronized concurrent use.
func (r *Registry) Freeze() {
	r.frozen = true
}

// Lookup returns the definition for name, or an UnknownToolError.
func (r *Registry) Lookup(name string) (ToolDefinition, error) {
	def, ok := r.byName[name]
	if !ok {
		return ToolDefinition{}, envelope.ErrUnknownTool(name)
	}
	return def, nil
}

// List returns all definitions in registration order.
func (r *Registry) List() []ToolDefinition {
	defs := make([]ToolDefinition, 0, len(r.order))
	for _, name := range r.order {
		defs = append(defs, r.byName[name])
	}
	return defs
}
