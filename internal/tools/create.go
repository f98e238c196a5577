package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// CreateTool creates files and directories inside the workspace. File writes
// are atomic: content goes to a temp file in the target directory which is
// then renamed into place.
type CreateTool struct {
	Root string
}

type createArgs struct {
	Path      string `json:"path"`
	Content   string `json:"content"`
	Kind      string `json:"kind"`
	Overwrite bool   `json:"overwrite"`
}

func (t *CreateTool) Name() string { return "create_file" }

func (t *CreateTool) Description() string {
	return "Create a new file with the given content, or a new directory when kind is \"directory\". Fails if the target exists unless overwrite is true."
}

func (t *CreateTool) JSONSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"path": map[string]any{
				"type":        "string",
				"description": "Path to create, relative to the workspace root",
			},
			"content": map[string]any{
				"type":        "string",
				"description": "File content. Ignored for directories.",
			},
			"kind": map[string]any{
				"type":        "string",
				"enum":        []string{"file", "directory"},
				"description": "What to create. Defaults to \"file\".",
			},
			"overwrite": map[string]any{
				"type":        "boolean",
				"description": "Replace an existing file. Defaults to false.",
			},
		},
		"required": []string{"path"},
	}
}

func (t *CreateTool) Call(ctx context.Context, session *Session, raw json.RawMessage) Result {
	var args createArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return Errorf("invalid arguments: %v", err)
	}
	if args.Kind == "" {
		args.Kind = "file"
	}
	if args.Kind != "file" && args.Kind != "directory" {
		return Errorf("kind must be \"file\" or \"directory\", got %q", args.Kind)
	}

	abs, err := ResolvePath(t.Root, args.Path)
	if err != nil {
		return Errorf("%v", err)
	}

	if args.Kind == "directory" {
		if _, err := os.Stat(abs); err == nil && !args.Overwrite {
			return Errorf("%s already exists, pass overwrite=true to reuse it", args.Path)
		}
		if err := os.MkdirAll(abs, 0o755); err != nil {
			return Errorf("create directory %s: %v", args.Path, err)
		}
		return Ok(nil, fmt.Sprintf("Created directory %s", args.Path))
	}

	if info, err := os.Stat(abs); err == nil {
		if info.IsDir() {
			return Errorf("%s already exists and is a directory", args.Path)
		}
		if !args.Overwrite {
			return Errorf("file %s already exists, pass overwrite=true to replace it", args.Path)
		}
	}

	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return Errorf("create parent directories for %s: %v", args.Path, err)
	}
	if err := writeFileAtomic(abs, []byte(args.Content)); err != nil {
		return Errorf("write %s: %v", args.Path, err)
	}

	// A freshly created file is known content, so it is editable.
	session.MarkRead(abs)

	return Ok(nil, fmt.Sprintf("Created %s (%d bytes)", args.Path, len(args.Content)))
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".termite-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}
