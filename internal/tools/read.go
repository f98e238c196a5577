package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"
)

// ReadTool reads file contents, optionally a line range. A successful read
// records the resolved path in the session read set, which unlocks edits to
// that file.
type ReadTool struct {
	Root          string
	MaxFileSizeMB int
}

type readArgs struct {
	Path      string `json:"path"`
	StartLine int    `json:"start_line"`
	EndLine   int    `json:"end_line"`
}

func (t *ReadTool) Name() string { return "read_file" }

func (t *ReadTool) Description() string {
	return "Read the contents of a file. Optionally pass start_line and end_line (1-based, inclusive) to read a range. Reading a file is required before editing it."
}

func (t *ReadTool) JSONSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"path": map[string]any{
				"type":        "string",
				"description": "Path to the file, relative to the workspace root",
			},
			"start_line": map[string]any{
				"type":        "integer",
				"description": "First line to read (1-based, inclusive)",
			},
			"end_line": map[string]any{
				"type":        "integer",
				"description": "Last line to read (1-based, inclusive)",
			},
		},
		"required": []string{"path"},
	}
}

func (t *ReadTool) Call(ctx context.Context, session *Session, raw json.RawMessage) Result {
	var args readArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return Errorf("invalid arguments: %v", err)
	}

	abs, err := ResolvePath(t.Root, args.Path)
	if err != nil {
		return Errorf("%v", err)
	}

	info, err := os.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return Errorf("file not found: %s", args.Path)
		}
		return Errorf("stat %s: %v", args.Path, err)
	}
	if info.IsDir() {
		return Errorf("%s is a directory, use list_files instead", args.Path)
	}
	maxBytes := int64(t.MaxFileSizeMB) * 1024 * 1024
	if maxBytes > 0 && info.Size() > maxBytes {
		return Errorf("file %s is %d bytes, larger than the %d MB limit", args.Path, info.Size(), t.MaxFileSizeMB)
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		return Errorf("read %s: %v", args.Path, err)
	}
	if !utf8.Valid(data) {
		return Errorf("file %s is not valid UTF-8 text", args.Path)
	}

	content := string(data)
	lines := strings.Split(content, "\n")
	total := len(lines)

	start, end := args.StartLine, args.EndLine
	if start > 0 || end > 0 {
		if start <= 0 {
			start = 1
		}
		if end <= 0 || end > total {
			end = total
		}
		if start > total {
			return Errorf("start_line %d is past the end of the file (%d lines)", start, total)
		}
		if start > end {
			return Errorf("start_line %d is greater than end_line %d", start, end)
		}
		content = strings.Join(lines[start-1:end], "\n")
	}

	session.MarkRead(abs)

	msg := fmt.Sprintf("Read %s (%d lines)", args.Path, total)
	if start > 0 {
		msg = fmt.Sprintf("Read %s lines %d-%d of %d", args.Path, start, end, total)
	}
	return Ok(content, msg)
}
