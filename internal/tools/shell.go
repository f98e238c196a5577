package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
	"syscall"
	"time"
)

const maxCommandOutput = 64 * 1024

// ShellTool runs shell commands inside the workspace. Commands run in their
// own process group so a timeout kills the whole tree, not just the shell.
type ShellTool struct {
	Root              string
	DefaultTimeoutSec int
	MaxTimeoutSec     int
}

type shellArgs struct {
	Command        string `json:"command"`
	Type           string `json:"type"`
	WorkingDir     string `json:"working_dir"`
	TimeoutSeconds int    `json:"timeout_seconds"`
}

type shellOutput struct {
	Stdout   string `json:"stdout"`
	Stderr   string `json:"stderr"`
	ExitCode int    `json:"exit_code"`
}

func (t *ShellTool) Name() string { return "execute_command" }

func (t *ShellTool) Description() string {
	return "Run a shell command in the workspace. type selects how the command is interpreted: bash (default) runs it via the shell, python runs it with python3 -c, setup and run are bash with longer default timeouts for installs and long-lived processes."
}

func (t *ShellTool) JSONSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"command": map[string]any{
				"type":        "string",
				"description": "Command to run",
			},
			"type": map[string]any{
				"type":        "string",
				"enum":        []string{"bash", "python", "setup", "run"},
				"description": "Command interpreter. Defaults to \"bash\".",
			},
			"working_dir": map[string]any{
				"type":        "string",
				"description": "Working directory relative to the workspace root. Defaults to the root.",
			},
			"timeout_seconds": map[string]any{
				"type":        "integer",
				"description": "Timeout before the process group is killed",
			},
		},
		"required": []string{"command"},
	}
}

func (t *ShellTool) Call(ctx context.Context, session *Session, raw json.RawMessage) Result {
	var args shellArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return Errorf("invalid arguments: %v", err)
	}
	if strings.TrimSpace(args.Command) == "" {
		return Errorf("command must not be empty")
	}
	if args.Type == "" {
		args.Type = "bash"
	}

	dir := t.Root
	if args.WorkingDir != "" {
		abs, err := ResolvePath(t.Root, args.WorkingDir)
		if err != nil {
			return Errorf("%v", err)
		}
		dir = abs
	}

	timeout := t.timeoutFor(args)
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var cmd *exec.Cmd
	switch args.Type {
	case "bash", "setup", "run":
		cmd = exec.CommandContext(runCtx, "bash", "-c", args.Command)
	case "python":
		cmd = exec.CommandContext(runCtx, "python3", "-c", args.Command)
	default:
		return Errorf("unknown command type %q", args.Type)
	}
	cmd.Dir = dir
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.Cancel = func() error {
		// Negative pid targets the whole process group.
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}

	start := time.Now()
	err := cmd.Run()
	elapsed := time.Since(start)

	out := shellOutput{
		Stdout: truncateOutput(stdout.String()),
		Stderr: truncateOutput(stderr.String()),
	}

	if runCtx.Err() == context.DeadlineExceeded {
		return Result{
			Success: false,
			Content: out,
			Error:   fmt.Sprintf("command timed out after %s", timeout),
		}
	}
	if ctx.Err() != nil {
		return Errorf("command canceled")
	}

	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			out.ExitCode = exitErr.ExitCode()
			return Result{
				Success: false,
				Content: out,
				Error:   fmt.Sprintf("command exited with code %d", out.ExitCode),
			}
		}
		return Errorf("run command: %v", err)
	}

	return Ok(out, fmt.Sprintf("Command completed in %s", elapsed.Round(time.Millisecond)))
}

func (t *ShellTool) timeoutFor(args shellArgs) time.Duration {
	sec := args.TimeoutSeconds
	if sec <= 0 {
		sec = t.DefaultTimeoutSec
		// Installs and long-lived runs get headroom beyond the bash default.
		if args.Type == "setup" || args.Type == "run" {
			sec = t.DefaultTimeoutSec * 4
		}
	}
	if t.MaxTimeoutSec > 0 && sec > t.MaxTimeoutSec {
		sec = t.MaxTimeoutSec
	}
	return time.Duration(sec) * time.Second
}

func truncateOutput(s string) string {
	if len(s) <= maxCommandOutput {
		return s
	}
	return s[:maxCommandOutput] + "\n... [output truncated]"
}
