// Package stats accumulates per-process usage counters for the /stats
// metacommand.
package stats

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/termite-dev/termite/internal/llm"
)

// Stats tracks token usage, model calls, and tool executions across the
// process lifetime.
type Stats struct {
	mu               sync.Mutex
	promptTokens     int
	completionTokens int
	calls            int
	callTime         time.Duration
	toolRuns         map[string]int
	toolFailures     map[string]int
	started          time.Time
}

// New returns zeroed stats anchored at now.
func New() *Stats {
	return &Stats{
		toolRuns:     make(map[string]int),
		toolFailures: make(map[string]int),
		started:      time.Now(),
	}
}

// RecordUsage adds a model response's token counts.
func (s *Stats) RecordUsage(u llm.Usage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.promptTokens += u.PromptTokens
	s.completionTokens += u.CompletionTokens
}

// RecordCall counts one successful model round trip.
func (s *Stats) RecordCall(elapsed time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.callTime += elapsed
}

// RecordTool counts one tool execution.
func (s *Stats) RecordTool(name string, success bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.toolRuns[name]++
	if !success {
		s.toolFailures[name]++
	}
}

// Summary renders a human-readable report.
func (s *Stats) Summary() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var b strings.Builder
	fmt.Fprintf(&b, "Session: %s\n", time.Since(s.started).Round(time.Second))
	fmt.Fprintf(&b, "Model calls: %d (%s total)\n", s.calls, s.callTime.Round(time.Millisecond))
	fmt.Fprintf(&b, "Tokens: %d prompt, %d completion, %d total\n",
		s.promptTokens, s.completionTokens, s.promptTokens+s.completionTokens)

	if len(s.toolRuns) > 0 {
		names := make([]string, 0, len(s.toolRuns))
		for name := range s.toolRuns {
			names = append(names, name)
		}
		sort.Strings(names)
		b.WriteString("Tools:\n")
		for _, name := range names {
			line := fmt.Sprintf("  %s: %d", name, s.toolRuns[name])
			if f := s.toolFailures[name]; f > 0 {
				line += fmt.Sprintf(" (%d failed)", f)
			}
			b.WriteString(line + "\n")
		}
	}
	return b.String()
}
