package tools

import (
	"encoding/json"
	"sort"
	"strings"

	"github.com/termite-dev/termite/internal/llm"
)

// Classification of the built-in catalog. Any registered tool absent from
// both lists is safe by default.
var (
	approvalRequiredTools = map[string]bool{
		"create_file": true,
		"edit_file":   true,
	}
	dangerousTools = map[string]bool{
		"delete_file":     true,
		"execute_command": true,
	}
)

// Registry holds the tools available to the agent and the validators run
// before a call reaches the approval gate.
type Registry struct {
	tools      map[string]Tool
	validators map[string][]Validator
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		tools:      make(map[string]Tool),
		validators: make(map[string][]Validator),
	}
}

// Register adds a tool. A later registration with the same name replaces the
// earlier one.
func (r *Registry) Register(t Tool) {
	r.tools[t.Name()] = t
}

// RegisterValidator attaches a pre-execution validator to the named tool.
func (r *Registry) RegisterValidator(toolName string, v Validator) {
	r.validators[toolName] = append(r.validators[toolName], v)
}

// Validate runs the validators registered for the named tool. The first
// failure wins.
func (r *Registry) Validate(toolName string, session *Session, args json.RawMessage) error {
	for _, v := range r.validators[toolName] {
		if err := v.Validate(session, args); err != nil {
			return err
		}
	}
	return nil
}

// Get looks up a tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// Names returns the registered tool names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Specs returns OpenAI-compatible tool specs in sorted name order.
func (r *Registry) Specs() []llm.ToolSpec {
	specs := make([]llm.ToolSpec, 0, len(r.tools))
	for _, name := range r.Names() {
		t := r.tools[name]
		specs = append(specs, llm.NewToolSpec(t.Name(), t.Description(), t.JSONSchema()))
	}
	return specs
}

// Classify returns the safety class of the named tool.
func (r *Registry) Classify(name string) SafetyClass {
	switch {
	case dangerousTools[name]:
		return Dangerous
	case approvalRequiredTools[name]:
		return ApprovalRequired
	default:
		return Safe
	}
}

// ResolveName strips a provider namespace prefix ("functions.read_file",
// "tools.read_file") from a tool-call name when the remainder is a
// registered tool. Unknown names pass through unchanged so the caller can
// report them as-is.
func (r *Registry) ResolveName(name string) string {
	if _, ok := r.tools[name]; ok {
		return name
	}
	if i := strings.LastIndex(name, "."); i >= 0 {
		bare := name[i+1:]
		if _, ok := r.tools[bare]; ok {
			return bare
		}
	}
	return name
}
