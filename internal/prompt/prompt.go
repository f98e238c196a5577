// Package prompt builds the system prompt from the tool catalog and the
// project context.
package prompt

import (
	"fmt"
	"strings"

	"github.com/termite-dev/termite/internal/tools"
)

// Build assembles the system prompt: role, workspace, working rules, the
// tool list with safety classes, and the collected project context.
func Build(workspaceRoot string, registry *tools.Registry, projectContext string) string {
	var b strings.Builder

	b.WriteString("# ROLE\n")
	b.WriteString("You are a coding assistant operating on a local workspace through tools.\n\n")
	fmt.Fprintf(&b, "Working directory: %s\n\n", workspaceRoot)

	b.WriteString("# RULES\n")
	b.WriteString(strings.Join([]string{
		"- Use only the tools listed below.",
		"- Read a file with read_file before editing it; edit_file refuses unread files.",
		"- Make edit_file old_text unique by including surrounding lines.",
		"- Prefer small, verifiable steps; run commands to check your work.",
		"- For multi-step work, track progress with create_tasks and update_tasks.",
		"- When the task is complete, answer in plain text without tool calls.",
	}, "\n"))
	b.WriteString("\n\n")

	b.WriteString("# TOOLS\n")
	for _, name := range registry.Names() {
		tool, _ := registry.Get(name)
		class := registry.Classify(name)
		suffix := ""
		switch class {
		case tools.ApprovalRequired:
			suffix = " (requires approval)"
		case tools.Dangerous:
			suffix = " (requires approval every time)"
		}
		fmt.Fprintf(&b, "- %s%s: %s\n", name, suffix, tool.Description())
	}

	if projectContext != "" {
		b.WriteString("\n# PROJECT CONTEXT\n")
		b.WriteString(projectContext)
	}

	return b.String()
}
