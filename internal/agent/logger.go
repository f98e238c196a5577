package agent

import (
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Logger writes structured agent telemetry to a file. With an empty path it
// is a no-op, which keeps the REPL output clean by default.
type Logger struct {
	z *zap.Logger
}

// NewLogger opens a file-backed logger at path.
func NewLogger(path string) (*Logger, error) {
	if path == "" {
		return &Logger{z: zap.NewNop()}, nil
	}
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{path}
	cfg.ErrorOutputPaths = []string{path}
	z, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return &Logger{z: z}, nil
}

// Close flushes buffered entries.
func (l *Logger) Close() {
	if l != nil && l.z != nil {
		_ = l.z.Sync()
	}
}

func (l *Logger) LLMCall(model string, messages int, elapsed time.Duration, err error) {
	if err != nil {
		l.z.Warn("llm call failed",
			zap.String("model", model),
			zap.Int("messages", messages),
			zap.Duration("elapsed", elapsed),
			zap.Error(err))
		return
	}
	l.z.Info("llm call",
		zap.String("model", model),
		zap.Int("messages", messages),
		zap.Duration("elapsed", elapsed))
}

func (l *Logger) ToolExecuted(name, callID string, success bool, elapsed time.Duration) {
	l.z.Info("tool executed",
		zap.String("tool", name),
		zap.String("call_id", callID),
		zap.Bool("success", success),
		zap.Duration("elapsed", elapsed))
}

func (l *Logger) ToolRejected(name, callID string) {
	l.z.Info("tool rejected", zap.String("tool", name), zap.String("call_id", callID))
}

func (l *Logger) Iteration(n int) {
	l.z.Debug("agent iteration", zap.Int("iteration", n))
}

func (l *Logger) Interrupted() {
	l.z.Info("turn interrupted")
}

func (l *Logger) TurnEnded(state State, iterations int) {
	l.z.Info("turn ended",
		zap.String("state", state.String()),
		zap.Int("iterations", iterations))
}
