// Package ui renders agent activity to the terminal.
package ui

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/fatih/color"
)

var (
	infoColor      = color.New(color.FgYellow, color.Faint)
	dimColor       = color.New(color.FgWhite, color.Faint)
	errorColor     = color.New(color.FgRed)
	warnColor      = color.New(color.FgYellow)
	assistantColor = color.New(color.FgWhite)

	approvalStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("214")).
			Padding(0, 1)
)

// Writer formats agent output. In headless mode progress goes to stderr and
// only the final answer reaches stdout, so the binary composes in pipelines.
type Writer struct {
	quiet    bool
	headless bool
	stdout   io.Writer
	stderr   io.Writer
}

// NewWriter builds a writer over the process's standard streams.
func NewWriter() *Writer {
	return &Writer{stdout: os.Stdout, stderr: os.Stderr}
}

// SetQuiet suppresses everything except assistant answers and errors.
func (w *Writer) SetQuiet(quiet bool) { w.quiet = quiet }

// SetHeadless routes progress to stderr and the answer to stdout.
func (w *Writer) SetHeadless(headless bool) { w.headless = headless }

// Startup prints launch information.
func (w *Writer) Startup(msg string) {
	if w.quiet {
		return
	}
	if w.headless {
		fmt.Fprintln(w.stderr, msg)
		return
	}
	infoColor.Println(msg)
}

// Info prints a dim informational line.
func (w *Writer) Info(msg string) {
	if w.quiet {
		return
	}
	if w.headless {
		fmt.Fprintf(w.stderr, "[info] %s\n", msg)
		return
	}
	dimColor.Printf("[info] %s\n", msg)
}

// Warn prints a warning.
func (w *Writer) Warn(msg string) {
	if w.quiet {
		return
	}
	if w.headless {
		fmt.Fprintf(w.stderr, "[warn] %s\n", msg)
		return
	}
	warnColor.Printf("[warn] %s\n", msg)
}

// Error prints an error line. Not silenced by quiet mode.
func (w *Writer) Error(msg string) {
	if w.headless || w.quiet {
		fmt.Fprintf(w.stderr, "[error] %s\n", msg)
		return
	}
	errorColor.Printf("[error] %s\n", msg)
}

// Assistant prints the model's final answer.
func (w *Writer) Assistant(msg string) {
	if w.headless {
		fmt.Fprintln(w.stdout, msg)
		return
	}
	assistantColor.Printf("%s\n\n", msg)
}

// Thinking prints reasoning text dimmed.
func (w *Writer) Thinking(msg string) {
	if w.quiet {
		return
	}
	for _, line := range strings.Split(strings.TrimSpace(msg), "\n") {
		if w.headless {
			fmt.Fprintf(w.stderr, "* %s\n", line)
		} else {
			dimColor.Printf("* %s\n", line)
		}
	}
}

// ToolCall prints a compact one-line view of a starting tool call.
func (w *Writer) ToolCall(name, argsDisplay string) {
	if w.quiet {
		return
	}
	line := fmt.Sprintf("  %s[%s]", name, argsDisplay)
	if w.headless {
		fmt.Fprintln(w.stderr, line)
		return
	}
	dimColor.Println(line)
}

// ToolResult prints the outcome summary of a finished tool call.
func (w *Writer) ToolResult(summary string, success bool) {
	if w.quiet {
		return
	}
	if w.headless {
		fmt.Fprintf(w.stderr, "  -> %s\n", summary)
		return
	}
	if success {
		dimColor.Printf("  -> %s\n", summary)
	} else {
		errorColor.Printf("  -> %s\n", summary)
	}
}

// ApprovalPrompt renders the boxed approval request for a gated tool call.
func (w *Writer) ApprovalPrompt(toolName, detail string, dangerous bool) {
	header := fmt.Sprintf("Approve %s?", toolName)
	if dangerous {
		header = fmt.Sprintf("Approve %s? (dangerous, never remembered)", toolName)
	}
	body := header
	if detail != "" {
		body += "\n" + detail
	}
	choices := "[y]es  [a]ll for this session  [N]o"
	if dangerous {
		choices = "[y]es  [N]o"
	}
	box := approvalStyle.Render(body + "\n" + choices)
	out := w.stdout
	if w.headless {
		out = w.stderr
	}
	fmt.Fprintln(out, box)
}
