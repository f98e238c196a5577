// Package tools declares the agent's tool catalog and implements the
// executors behind it. Every executor resolves to the same Result envelope so
// the agent loop can serialize outcomes verbatim into tool-role messages.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
)

// SafetyClass determines whether and how strongly a tool call is gated
// before execution.
type SafetyClass int

const (
	// Safe tools are always auto-approved.
	Safe SafetyClass = iota
	// ApprovalRequired tools need a user decision unless session-wide
	// standing approval is active.
	ApprovalRequired
	// Dangerous tools always need an explicit per-call decision, regardless
	// of standing approval.
	Dangerous
)

func (c SafetyClass) String() string {
	switch c {
	case ApprovalRequired:
		return "approval-required"
	case Dangerous:
		return "dangerous"
	default:
		return "safe"
	}
}

// Tool is the interface all agent tools implement.
type Tool interface {
	// Name returns the tool identifier (e.g. "read_file").
	Name() string

	// Description returns a human-readable description for the LLM.
	Description() string

	// JSONSchema returns the OpenAI-compatible parameter schema.
	JSONSchema() map[string]any

	// Call executes the tool. Failures are reported inside the Result, not
	// as Go errors: the model is expected to read them and self-correct.
	Call(ctx context.Context, session *Session, args json.RawMessage) Result
}

// Result is the uniform envelope every executor and every gate decision
// resolves to.
type Result struct {
	Success      bool   `json:"success"`
	Content      any    `json:"content,omitempty"`
	Message      string `json:"message,omitempty"`
	Error        string `json:"error,omitempty"`
	UserRejected bool   `json:"userRejected,omitempty"`
}

// Ok builds a success result with content and a summary message.
func Ok(content any, message string) Result {
	return Result{Success: true, Content: content, Message: message}
}

// Errorf builds a failure result.
func Errorf(format string, args ...any) Result {
	return Result{Success: false, Error: fmt.Sprintf(format, args...)}
}

// Rejected is the result recorded when the user declines a tool call. The
// agent loop treats UserRejected as a hard stop for the current turn.
func Rejected() Result {
	return Result{Success: false, Error: "Tool execution canceled by user", UserRejected: true}
}

// Serialize renders a Result as the JSON carried in a tool-role message.
func (r Result) Serialize() string {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Sprintf(`{"success": false, "error": "serialize result: %v"}`, err)
	}
	return string(data)
}
