// Package repl runs the interactive terminal loop and the single-shot exec
// mode around the agent.
package repl

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/eiannone/keyboard"

	"github.com/termite-dev/termite/internal/agent"
	"github.com/termite-dev/termite/internal/config"
	"github.com/termite-dev/termite/internal/session"
	"github.com/termite-dev/termite/internal/stats"
	"github.com/termite-dev/termite/internal/tools"
	"github.com/termite-dev/termite/internal/ui"
)

// REPL drives the interactive session. It implements the agent's Approver,
// ErrorDecider, and ContinueDecider by asking the user at the terminal.
type REPL struct {
	Agent       *agent.Agent
	Emitter     *agent.Emitter
	Writer      *ui.Writer
	Registry    *tools.Registry
	Store       *session.Store
	Stats       *stats.Stats
	Settings    *config.Settings
	SessionName string

	inputHistory []string
	turnDone     chan struct{}

	decisionMu sync.Mutex
	decisionCh chan rune

	keysClosed chan struct{}
}

// Run executes the interactive loop until /quit or Ctrl+C.
func (r *REPL) Run(ctx context.Context) error {
	r.turnDone = make(chan struct{}, 1)
	go r.renderEvents()

	histPath := historyPath()
	if histPath != "" {
		r.inputHistory, _ = ui.LoadHistory(histPath)
	}

	r.Writer.Startup(fmt.Sprintf("termite ready on %s (model %s). /help for commands, ESC interrupts a turn.",
		r.SessionName, r.Agent.Model()))

	for {
		input, ok := r.readInput()
		if !ok {
			break
		}
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}

		if strings.HasPrefix(input, "/") {
			if quit := r.handleCommand(input); quit {
				break
			}
			continue
		}

		r.inputHistory = append(r.inputHistory, input)
		if histPath != "" {
			_ = ui.SaveHistory(histPath, r.inputHistory)
		}

		r.runTurn(ctx, input)
	}

	if histPath != "" {
		_ = ui.SaveHistory(histPath, r.inputHistory)
	}
	return nil
}

func (r *REPL) runTurn(ctx context.Context, input string) {
	r.startTurnKeys()
	_, err := r.Agent.ProcessInput(ctx, input)
	r.stopTurnKeys()
	<-r.turnDone

	if err != nil {
		r.Writer.Error(err.Error())
	}
	if r.Store != nil && r.SessionName != "" {
		if err := r.Store.Save(r.SessionName, r.Agent.History()); err != nil {
			r.Writer.Warn(fmt.Sprintf("save session: %v", err))
		}
	}
}

func (r *REPL) readInput() (string, bool) {
	model := ui.NewInputModel("> ", r.inputHistory)
	prog := tea.NewProgram(model)
	final, err := prog.Run()
	if err != nil {
		r.Writer.Error(fmt.Sprintf("input: %v", err))
		return "", false
	}
	m := final.(ui.InputModel)
	if m.Cancelled() {
		return "", false
	}
	return m.Value(), m.Submitted()
}

// handleCommand processes a slash command and reports whether to quit.
func (r *REPL) handleCommand(input string) bool {
	fields := strings.Fields(input)
	switch fields[0] {
	case "/quit", "/exit":
		return true

	case "/help":
		r.Writer.Info(strings.Join([]string{
			"/clear          drop conversation history (keeps read files and approvals)",
			"/model [name]   show the model, or switch to one and clear history",
			"/tools          list available tools",
			"/sessions       list saved sessions",
			"/stats          show usage counters",
			"/quit           exit",
		}, "\n"))

	case "/clear":
		r.Agent.ClearHistory()
		r.Writer.Info("history cleared; read files and session approvals are kept")

	case "/model":
		if len(fields) > 1 {
			r.Agent.SetModel(fields[1])
			r.Agent.ClearHistory()
			if r.Settings != nil {
				if err := r.Settings.SetDefaultModel(fields[1]); err != nil {
					r.Writer.Warn(fmt.Sprintf("persist model: %v", err))
				}
			}
			r.Writer.Info("model set to " + fields[1] + "; history cleared")
		} else {
			r.Writer.Info("model: " + r.Agent.Model())
		}

	case "/tools":
		var lines []string
		for _, name := range r.Registry.Names() {
			lines = append(lines, fmt.Sprintf("%s (%s)", name, r.Registry.Classify(name)))
		}
		r.Writer.Info(strings.Join(lines, "\n"))

	case "/sessions":
		if r.Store == nil {
			r.Writer.Warn("session persistence is disabled")
			break
		}
		infos, err := r.Store.List()
		if err != nil {
			r.Writer.Error(err.Error())
			break
		}
		var lines []string
		for _, info := range infos {
			lines = append(lines, fmt.Sprintf("%s  %d messages  %s",
				info.Name, info.MessageCount, info.ModTime.Format("2006-01-02 15:04")))
		}
		if len(lines) == 0 {
			lines = []string{"no saved sessions"}
		}
		r.Writer.Info(strings.Join(lines, "\n"))

	case "/stats":
		r.Writer.Info(r.Stats.Summary())

	default:
		r.Writer.Warn("unknown command " + fields[0] + ", try /help")
	}
	return false
}

// renderEvents consumes the agent's event stream for the process lifetime.
func (r *REPL) renderEvents() {
	for ev := range r.Emitter.Events() {
		switch ev.Kind {
		case agent.EventToolStarted:
			r.Writer.ToolCall(ev.ToolName, compactArgs(ev.Args))
		case agent.EventToolFinished:
			if ev.Result == nil {
				continue
			}
			if ev.Result.Success {
				r.Writer.ToolResult(ev.Result.Message, true)
			} else {
				r.Writer.ToolResult(ev.Result.Error, false)
			}
		case agent.EventThinkingEmitted:
			r.Writer.Thinking(ev.Text)
		case agent.EventFinalMessage:
			r.Writer.Assistant(ev.Text)
		case agent.EventErrorRaised:
			r.Writer.Error(ev.Text)
		case agent.EventMaxIterationsHit:
			r.Writer.Warn(fmt.Sprintf("reached %d tool iterations", ev.Iteration))
		case agent.EventInterrupted:
			r.Writer.Warn("interrupted")
		case agent.EventTurnEnded:
			select {
			case r.turnDone <- struct{}{}:
			default:
			}
		}
	}
}

// startTurnKeys opens the raw keyboard for the duration of a turn so ESC can
// interrupt and approval prompts can read a single key.
func (r *REPL) startTurnKeys() {
	if err := keyboard.Open(); err != nil {
		return
	}
	r.keysClosed = make(chan struct{})
	go func() {
		defer close(r.keysClosed)
		for {
			ch, key, err := keyboard.GetKey()
			if err != nil {
				return
			}
			if key == keyboard.KeyEsc {
				r.Agent.Interrupt()
				r.sendDecision(0)
				continue
			}
			if key == keyboard.KeyEnter {
				ch = '\n'
			}
			r.sendDecision(ch)
		}
	}()
}

func (r *REPL) stopTurnKeys() {
	_ = keyboard.Close()
	if r.keysClosed != nil {
		<-r.keysClosed
		r.keysClosed = nil
	}
}

func (r *REPL) setDecisionCh(ch chan rune) {
	r.decisionMu.Lock()
	r.decisionCh = ch
	r.decisionMu.Unlock()
}

func (r *REPL) sendDecision(ch rune) {
	r.decisionMu.Lock()
	target := r.decisionCh
	r.decisionMu.Unlock()
	if target != nil {
		select {
		case target <- ch:
		default:
		}
	}
}

// awaitKey blocks until the turn keyboard delivers a key.
func (r *REPL) awaitKey() rune {
	ch := make(chan rune, 1)
	r.setDecisionCh(ch)
	defer r.setDecisionCh(nil)
	return <-ch
}

// RequestApproval implements agent.Approver with a y/a/N prompt.
func (r *REPL) RequestApproval(req agent.ApprovalRequest) agent.Decision {
	dangerous := req.Class == tools.Dangerous
	r.Writer.ApprovalPrompt(req.ToolName, compactArgs(req.Args), dangerous)

	switch r.awaitKey() {
	case 'y', 'Y':
		return agent.Decision{Approved: true}
	case 'a', 'A':
		if dangerous {
			return agent.Decision{}
		}
		return agent.Decision{Approved: true, GrantSession: true}
	default:
		return agent.Decision{}
	}
}

// ShouldRetry implements agent.ErrorDecider.
func (r *REPL) ShouldRetry(errMsg string) bool {
	r.Writer.Warn(fmt.Sprintf("model call failed: %s", errMsg))
	r.Writer.Info("retry? [y/N]")
	k := r.awaitKey()
	return k == 'y' || k == 'Y'
}

// ContinueAfterLimit implements agent.ContinueDecider.
func (r *REPL) ContinueAfterLimit(limit int) bool {
	r.Writer.Warn(fmt.Sprintf("the agent has run %d tool iterations without finishing", limit))
	r.Writer.Info("keep going? [y/N]")
	k := r.awaitKey()
	return k == 'y' || k == 'Y'
}

// RunExec runs one prompt non-interactively. With no approver wired the
// agent rejects every gated call; pass ApproveAll at construction to opt in.
func RunExec(ctx context.Context, a *agent.Agent, writer *ui.Writer, store *session.Store, st *stats.Stats, sessionName, promptText string) error {
	state, err := a.ProcessInput(ctx, promptText)
	if err != nil {
		return err
	}
	if state != agent.StateDone {
		writer.Warn("turn ended in state " + state.String())
	}

	if store != nil && sessionName != "" {
		if err := store.Save(sessionName, a.History()); err != nil {
			writer.Warn(fmt.Sprintf("save session: %v", err))
		}
		fmt.Fprintf(os.Stderr, "session: %s\n", sessionName)
	}
	fmt.Fprint(os.Stderr, st.Summary())
	return nil
}

// ApproveAll is the exec-mode approver enabled by an explicit flag.
type ApproveAll struct{}

func (ApproveAll) RequestApproval(agent.ApprovalRequest) agent.Decision {
	return agent.Decision{Approved: true}
}

// compactArgs renders tool arguments as a short key=value list.
func compactArgs(raw json.RawMessage) string {
	var args map[string]any
	if err := json.Unmarshal(raw, &args); err != nil || len(args) == 0 {
		return ""
	}
	keys := make([]string, 0, len(args))
	for k := range args {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		v := fmt.Sprintf("%v", args[k])
		v = strings.ReplaceAll(v, "\n", "\\n")
		if len(v) > 60 {
			v = v[:57] + "..."
		}
		parts = append(parts, fmt.Sprintf("%s=%s", k, v))
	}
	return strings.Join(parts, " ")
}

func historyPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	dir := filepath.Join(home, ".termite")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return ""
	}
	return filepath.Join(dir, "history")
}
