package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// DeleteTool removes files and directories. It refuses the workspace root
// itself and anything outside it, and only removes non-empty directories
// when recursive is set.
type DeleteTool struct {
	Root string
}

type deleteArgs struct {
	Path      string `json:"path"`
	Recursive bool   `json:"recursive"`
}

func (t *DeleteTool) Name() string { return "delete_file" }

func (t *DeleteTool) Description() string {
	return "Delete a file or directory. Directories with contents require recursive=true."
}

func (t *DeleteTool) JSONSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"path": map[string]any{
				"type":        "string",
				"description": "Path to delete, relative to the workspace root",
			},
			"recursive": map[string]any{
				"type":        "boolean",
				"description": "Delete directory contents recursively. Defaults to false.",
			},
		},
		"required": []string{"path"},
	}
}

func (t *DeleteTool) Call(ctx context.Context, session *Session, raw json.RawMessage) Result {
	var args deleteArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return Errorf("invalid arguments: %v", err)
	}

	abs, err := ResolvePath(t.Root, args.Path)
	if err != nil {
		return Errorf("%v", err)
	}

	root, err := filepath.Abs(t.Root)
	if err != nil {
		return Errorf("resolve workspace root: %v", err)
	}
	if abs == root {
		return Errorf("refusing to delete the workspace root")
	}

	info, err := os.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return Errorf("path not found: %s", args.Path)
		}
		return Errorf("stat %s: %v", args.Path, err)
	}

	if info.IsDir() {
		if args.Recursive {
			if err := os.RemoveAll(abs); err != nil {
				return Errorf("delete directory %s: %v", args.Path, err)
			}
			return Ok(nil, fmt.Sprintf("Deleted directory %s and its contents", args.Path))
		}
		if err := os.Remove(abs); err != nil {
			return Errorf("delete directory %s: %v (pass recursive=true for non-empty directories)", args.Path, err)
		}
		return Ok(nil, fmt.Sprintf("Deleted empty directory %s", args.Path))
	}

	if err := os.Remove(abs); err != nil {
		return Errorf("delete %s: %v", args.Path, err)
	}
	return Ok(nil, fmt.Sprintf("Deleted %s", args.Path))
}
