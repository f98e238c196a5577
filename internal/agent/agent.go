// Package agent implements the control loop that drives a conversation:
// call the model, execute the tool calls it requests, feed results back, and
// repeat until the model answers in plain text or a stop condition fires.
package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/termite-dev/termite/internal/llm"
	"github.com/termite-dev/termite/internal/stats"
	"github.com/termite-dev/termite/internal/tools"
)

// DefaultMaxIterations is the tool-call ceiling per turn before the loop
// asks whether to keep going.
const DefaultMaxIterations = 50

// State is the terminal condition of a turn.
type State int

const (
	StateIdle State = iota
	StateAwaitingBackend
	StateExecutingTools
	StateDone
	StateError
	StateInterrupted
	StateMaxIterations
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingBackend:
		return "awaiting_backend"
	case StateExecutingTools:
		return "executing_tools"
	case StateDone:
		return "done"
	case StateError:
		return "error"
	case StateInterrupted:
		return "interrupted"
	case StateMaxIterations:
		return "max_iterations"
	default:
		return "unknown"
	}
}

// Decision is the outcome of an approval prompt. GrantSession extends the
// approval to the rest of the session for approval-required tools; dangerous
// tools ignore it and prompt every time.
type Decision struct {
	Approved     bool
	GrantSession bool
}

// ApprovalRequest describes a pending tool call to whoever decides.
type ApprovalRequest struct {
	ToolName string
	Class    tools.SafetyClass
	Args     json.RawMessage
}

// Approver decides whether a gated tool call may run. A nil Approver fails
// closed: every gated call is rejected.
type Approver interface {
	RequestApproval(req ApprovalRequest) Decision
}

// ErrorDecider is consulted after a retryable backend failure.
type ErrorDecider interface {
	ShouldRetry(errMsg string) bool
}

// ContinueDecider is consulted when a turn hits the iteration ceiling.
type ContinueDecider interface {
	ContinueAfterLimit(limit int) bool
}

// Options configures an Agent.
type Options struct {
	Backend         llm.Backend
	Registry        *tools.Registry
	Session         *tools.Session
	Logger          *Logger
	Emitter         *Emitter
	Approver        Approver
	ErrorDecider    ErrorDecider
	ContinueDecider ContinueDecider
	Stats           *stats.Stats
	Model           string
	Temperature     float32
	MaxTokens       int
	MaxIterations   int
	SystemPrompt    string
}

// Agent owns the conversation history and runs the loop. One turn at a time;
// Interrupt may be called concurrently from another goroutine.
type Agent struct {
	backend         llm.Backend
	registry        *tools.Registry
	session         *tools.Session
	logger          *Logger
	emitter         *Emitter
	approver        Approver
	errorDecider    ErrorDecider
	continueDecider ContinueDecider
	stats           *stats.Stats

	model         string
	temperature   float32
	maxTokens     int
	maxIterations int

	histMu   sync.Mutex
	messages []llm.Message

	interrupted atomic.Bool

	cancelMu       sync.Mutex
	cancelInFlight context.CancelFunc

	approvalMu       sync.Mutex
	standingApproval bool
}

// New builds an agent with the system prompt as the permanent first message.
func New(opts Options) *Agent {
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = DefaultMaxIterations
	}
	if opts.Logger == nil {
		opts.Logger, _ = NewLogger("")
	}
	a := &Agent{
		backend:         opts.Backend,
		registry:        opts.Registry,
		session:         opts.Session,
		logger:          opts.Logger,
		emitter:         opts.Emitter,
		approver:        opts.Approver,
		errorDecider:    opts.ErrorDecider,
		continueDecider: opts.ContinueDecider,
		stats:           opts.Stats,
		model:           opts.Model,
		temperature:     opts.Temperature,
		maxTokens:       opts.MaxTokens,
		maxIterations:   opts.MaxIterations,
	}
	a.messages = []llm.Message{{Role: llm.RoleSystem, Content: opts.SystemPrompt}}
	return a
}

// Model returns the model the agent currently targets.
func (a *Agent) Model() string { return a.model }

// SetModel switches the target model for subsequent turns.
func (a *Agent) SetModel(model string) { a.model = model }

// History returns a copy of the conversation.
func (a *Agent) History() []llm.Message {
	a.histMu.Lock()
	defer a.histMu.Unlock()
	out := make([]llm.Message, len(a.messages))
	copy(out, a.messages)
	return out
}

// ReplaceHistory restores a persisted conversation. The first message must
// be the system prompt; anything else is rejected to keep the prefix
// invariant.
func (a *Agent) ReplaceHistory(messages []llm.Message) error {
	if len(messages) == 0 || messages[0].Role != llm.RoleSystem {
		return errors.New("history must start with a system message")
	}
	a.histMu.Lock()
	defer a.histMu.Unlock()
	a.messages = make([]llm.Message, len(messages))
	copy(a.messages, messages)
	return nil
}

// ClearHistory drops everything except the system prompt. The session read
// set and standing approval are process state and survive the clear.
func (a *Agent) ClearHistory() {
	a.histMu.Lock()
	defer a.histMu.Unlock()
	a.messages = a.messages[:1]
}

// HasStandingApproval reports whether session-wide approval is active.
func (a *Agent) HasStandingApproval() bool {
	a.approvalMu.Lock()
	defer a.approvalMu.Unlock()
	return a.standingApproval
}

func (a *Agent) grantStandingApproval() {
	a.approvalMu.Lock()
	a.standingApproval = true
	a.approvalMu.Unlock()
}

func (a *Agent) append(msg llm.Message) {
	a.histMu.Lock()
	a.messages = append(a.messages, msg)
	a.histMu.Unlock()
}

func systemNote(format string, args ...any) llm.Message {
	return llm.Message{Role: llm.RoleSystem, Content: fmt.Sprintf(format, args...)}
}

// Interrupt stops the current turn: it cancels the in-flight backend or tool
// call and records a single system note. Safe to call at any time, from any
// goroutine; repeated calls are no-ops until the next turn starts.
func (a *Agent) Interrupt() {
	if a.interrupted.Swap(true) {
		return
	}
	a.cancelMu.Lock()
	if a.cancelInFlight != nil {
		a.cancelInFlight()
	}
	a.cancelMu.Unlock()
	a.append(systemNote("The user interrupted this turn before it completed."))
	a.logger.Interrupted()
	a.emitter.Emit(Event{Kind: EventInterrupted})
}

func (a *Agent) setCancel(cancel context.CancelFunc) {
	a.cancelMu.Lock()
	a.cancelInFlight = cancel
	a.cancelMu.Unlock()
}

// ProcessInput runs one full turn for the given user input and returns the
// state the turn ended in. The error is non-nil only for fatal conditions
// such as authentication failures.
func (a *Agent) ProcessInput(ctx context.Context, input string) (State, error) {
	a.interrupted.Store(false)
	a.append(llm.Message{Role: llm.RoleUser, Content: input})

	state, err := a.loop(ctx)
	a.emitter.Emit(Event{Kind: EventTurnEnded, State: state})
	return state, err
}

func (a *Agent) loop(ctx context.Context) (State, error) {
	iteration := 0
	for {
		resp, err := a.callBackend(ctx)
		if err != nil {
			if a.interrupted.Load() || errors.Is(err, context.Canceled) {
				a.logger.TurnEnded(StateInterrupted, iteration)
				return StateInterrupted, nil
			}
			var authErr *llm.AuthError
			if errors.As(err, &authErr) {
				a.emitter.Emit(Event{Kind: EventErrorRaised, Text: authErr.Error()})
				return StateError, err
			}
			a.emitter.Emit(Event{Kind: EventErrorRaised, Text: err.Error()})
			if a.errorDecider != nil {
				if a.errorDecider.ShouldRetry(err.Error()) {
					iteration++
					if iteration >= a.maxIterations {
						a.logger.TurnEnded(StateMaxIterations, iteration)
						return StateMaxIterations, nil
					}
					continue
				}
				a.append(systemNote("The model call failed: %v", err))
				return StateError, err
			}
			// No decider: record the failure and let the model see it, up
			// to the iteration ceiling.
			a.append(systemNote("The model call failed: %v", err))
			iteration++
			if iteration >= a.maxIterations {
				a.logger.TurnEnded(StateMaxIterations, iteration)
				return StateMaxIterations, nil
			}
			continue
		}

		if resp.Usage.TotalTokens > 0 {
			a.emitter.Emit(Event{Kind: EventUsageReported, Usage: &resp.Usage})
			if a.stats != nil {
				a.stats.RecordUsage(resp.Usage)
			}
		}
		if len(resp.Choices) == 0 {
			err := errors.New("model returned no choices")
			a.append(systemNote("The model call failed: %v", err))
			a.emitter.Emit(Event{Kind: EventErrorRaised, Text: err.Error()})
			return StateError, err
		}

		msg := resp.Choices[0].Message
		a.append(msg)

		if msg.ReasoningContent != "" {
			a.emitter.Emit(Event{Kind: EventThinkingEmitted, Text: msg.ReasoningContent})
		}

		if len(msg.ToolCalls) == 0 {
			a.emitter.Emit(Event{Kind: EventFinalMessage, Text: msg.Content})
			a.logger.TurnEnded(StateDone, iteration)
			return StateDone, nil
		}

		// Free text accompanying tool calls is commentary, not the answer.
		if msg.Content != "" {
			a.emitter.Emit(Event{Kind: EventThinkingEmitted, Text: msg.Content})
		}

		for _, call := range msg.ToolCalls {
			if a.interrupted.Load() {
				a.logger.TurnEnded(StateInterrupted, iteration)
				return StateInterrupted, nil
			}
			result, outcome := a.executeCall(ctx, call)
			a.append(llm.Message{
				Role:       llm.RoleTool,
				Name:       a.registry.ResolveName(call.Function.Name),
				ToolCallID: call.ID,
				Content:    result.Serialize(),
			})
			switch outcome {
			case callInterrupted:
				// The interrupt note was recorded by Interrupt itself.
				a.logger.TurnEnded(StateInterrupted, iteration)
				return StateInterrupted, nil
			case callRejected:
				a.append(systemNote("The user rejected the %s tool call. Stop and wait for further instructions.", a.registry.ResolveName(call.Function.Name)))
				a.logger.TurnEnded(StateIdle, iteration)
				return StateIdle, nil
			}
		}

		iteration++
		a.logger.Iteration(iteration)
		if iteration >= a.maxIterations {
			a.emitter.Emit(Event{Kind: EventMaxIterationsHit, Iteration: iteration})
			if a.continueDecider != nil && a.continueDecider.ContinueAfterLimit(a.maxIterations) {
				iteration = 0
				continue
			}
			a.append(systemNote("Stopped after %d tool iterations without a final answer.", a.maxIterations))
			a.logger.TurnEnded(StateMaxIterations, iteration)
			return StateMaxIterations, nil
		}
	}
}

func (a *Agent) callBackend(ctx context.Context) (*llm.ChatResponse, error) {
	callCtx, cancel := context.WithCancel(ctx)
	a.setCancel(cancel)
	defer func() {
		a.setCancel(nil)
		cancel()
	}()

	req := llm.ChatRequest{
		Model:       a.model,
		Messages:    a.History(),
		Temperature: a.temperature,
		MaxTokens:   a.maxTokens,
		Tools:       a.registry.Specs(),
		ToolChoice:  "auto",
	}
	start := time.Now()
	resp, err := a.backend.Chat(callCtx, req)
	a.logger.LLMCall(a.model, len(req.Messages), time.Since(start), err)
	if a.stats != nil && err == nil {
		a.stats.RecordCall(time.Since(start))
	}
	return resp, err
}

type callOutcome int

const (
	callCompleted callOutcome = iota
	callRejected
	callInterrupted
)

// executeCall resolves, validates, gates, and runs one tool call. The
// returned result is always appended to history; the outcome tells the loop
// whether to keep processing the batch.
func (a *Agent) executeCall(ctx context.Context, call llm.ToolCall) (tools.Result, callOutcome) {
	name := a.registry.ResolveName(call.Function.Name)
	raw := json.RawMessage(call.Function.Arguments)

	a.emitter.Emit(Event{Kind: EventToolStarted, ToolName: name, ToolCallID: call.ID, Args: raw})

	tool, ok := a.registry.Get(name)
	if !ok {
		return a.finishCall(name, call.ID, tools.Errorf("unknown tool %q", call.Function.Name), callCompleted)
	}

	if len(raw) == 0 {
		raw = json.RawMessage("{}")
	}
	if !json.Valid(raw) {
		return a.finishCall(name, call.ID, tools.Errorf("tool arguments are not valid JSON, resubmit with simpler content"), callCompleted)
	}

	if err := a.registry.Validate(name, a.session, raw); err != nil {
		return a.finishCall(name, call.ID, tools.Errorf("%v", err), callCompleted)
	}

	class := a.registry.Classify(name)
	needsApproval := class == tools.Dangerous ||
		(class == tools.ApprovalRequired && !a.HasStandingApproval())

	if needsApproval {
		if a.interrupted.Load() {
			return a.finishCall(name, call.ID, tools.Rejected(), callInterrupted)
		}
		a.emitter.Emit(Event{Kind: EventApprovalRequested, ToolName: name, ToolCallID: call.ID, Args: raw})
		var decision Decision
		if a.approver != nil {
			decision = a.approver.RequestApproval(ApprovalRequest{ToolName: name, Class: class, Args: raw})
		}
		// An interrupt during the prompt wins over whatever was answered.
		if a.interrupted.Load() {
			return a.finishCall(name, call.ID, tools.Rejected(), callInterrupted)
		}
		if decision.GrantSession && class != tools.Dangerous {
			a.grantStandingApproval()
		}
		if !decision.Approved {
			a.logger.ToolRejected(name, call.ID)
			return a.finishCall(name, call.ID, tools.Rejected(), callRejected)
		}
	}

	execCtx, cancel := context.WithCancel(ctx)
	a.setCancel(cancel)
	defer func() {
		a.setCancel(nil)
		cancel()
	}()

	start := time.Now()
	result := tool.Call(execCtx, a.session, raw)
	a.logger.ToolExecuted(name, call.ID, result.Success, time.Since(start))
	if a.stats != nil {
		a.stats.RecordTool(name, result.Success)
	}
	outcome := callCompleted
	if a.interrupted.Load() {
		outcome = callInterrupted
	}
	return a.finishCall(name, call.ID, result, outcome)
}

func (a *Agent) finishCall(name, callID string, result tools.Result, outcome callOutcome) (tools.Result, callOutcome) {
	a.emitter.Emit(Event{Kind: EventToolFinished, ToolName: name, ToolCallID: callID, Result: &result})
	return result, outcome
}
