package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
)

// LocalBackend runs chat completions through a local inference process
// instead of a remote API. The process reads one request JSON from stdin and
// writes one OpenAI-format response JSON to stdout, so the Backend contract
// is identical to the HTTP client's.
type LocalBackend struct {
	command string
	args    []string
}

// NewLocalBackend creates a backend that shells out to the given inference
// command, e.g. "python3 gpt_oss_inference.py".
func NewLocalBackend(command string, args ...string) *LocalBackend {
	return &LocalBackend{command: command, args: args}
}

func (b *LocalBackend) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	cmd := exec.CommandContext(ctx, b.command, b.args...)
	cmd.Stdin = bytes.NewReader(body)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("local inference failed: %w (stderr: %s)", err, strings.TrimSpace(stderr.String()))
	}

	// The runner reports failures as an "error" field alongside the choices.
	var envelope struct {
		Error string `json:"error,omitempty"`
		ChatResponse
	}
	if err := json.Unmarshal(stdout.Bytes(), &envelope); err != nil {
		return nil, fmt.Errorf("decode local inference output: %w", err)
	}
	if envelope.Error != "" {
		return nil, fmt.Errorf("local inference error: %s", envelope.Error)
	}
	return &envelope.ChatResponse, nil
}

// ListLocalModels asks the inference runner for the models it can serve.
// The runner prints one JSON array of model IDs when invoked with --list.
func ListLocalModels(ctx context.Context, command string, args ...string) ([]string, error) {
	cmd := exec.CommandContext(ctx, command, append(args, "--list")...)
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("list local models: %w", err)
	}
	var models []string
	if err := json.Unmarshal(out, &models); err != nil {
		return nil, fmt.Errorf("decode model list: %w", err)
	}
	return models, nil
}
