package tools

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Validator checks a tool call before the approval gate so the user is never
// prompted to approve a call that is guaranteed to fail.
type Validator interface {
	Validate(session *Session, args json.RawMessage) error
}

// EditValidator re-derives every precondition the edit executor checks:
// argument sanity, read-before-edit, file existence and type, and the
// exact-match count. A call that fails here never reaches the approval gate.
type EditValidator struct {
	Root string
}

func (v *EditValidator) Validate(session *Session, raw json.RawMessage) error {
	var args editArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return fmt.Errorf("invalid arguments: %v", err)
	}
	if args.OldText == "" {
		return fmt.Errorf("old_text must not be empty")
	}
	abs, err := ResolvePath(v.Root, args.Path)
	if err != nil {
		return err
	}
	if !session.WasRead(abs) {
		return fmt.Errorf("file %s has not been read in this session, call read_file first", args.Path)
	}
	info, err := os.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("file not found: %s", args.Path)
		}
		return fmt.Errorf("stat %s: %v", args.Path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory, not a file", args.Path)
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return fmt.Errorf("read %s: %v", args.Path, err)
	}
	count := strings.Count(string(data), args.OldText)
	switch {
	case count == 0:
		return fmt.Errorf("old_text not found in %s; re-read the file and match the exact text", args.Path)
	case count > 1 && !args.ReplaceAll:
		return fmt.Errorf("old_text matches %d locations in %s; make it unique by including surrounding context, or pass replace_all=true", count, args.Path)
	}
	return nil
}

// CatalogConfig carries the workspace settings the built-in tools need.
type CatalogConfig struct {
	Root             string
	MaxFileSizeMB    int
	SearchMaxResults int
	SearchContext    int
	ShellDefaultSec  int
	ShellMaxSec      int
}

// DefaultRegistry returns a registry holding every built-in tool, configured
// for the given workspace.
func DefaultRegistry(cfg CatalogConfig) *Registry {
	r := NewRegistry()
	r.Register(&ReadTool{Root: cfg.Root, MaxFileSizeMB: cfg.MaxFileSizeMB})
	r.Register(&CreateTool{Root: cfg.Root})
	r.Register(&EditTool{Root: cfg.Root})
	r.Register(&DeleteTool{Root: cfg.Root})
	r.Register(&ListTool{Root: cfg.Root})
	r.Register(&SearchTool{Root: cfg.Root, MaxResults: cfg.SearchMaxResults, ContextLines: cfg.SearchContext})
	r.Register(&ShellTool{Root: cfg.Root, DefaultTimeoutSec: cfg.ShellDefaultSec, MaxTimeoutSec: cfg.ShellMaxSec})
	r.Register(&CreateTasksTool{})
	r.Register(&UpdateTasksTool{})
	r.RegisterValidator("edit_file", &EditValidator{Root: cfg.Root})
	return r
}
