package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// EditTool performs exact search-and-replace edits on files the model has
// already read. Ambiguous matches fail without touching the file.
type EditTool struct {
	Root string
}

type editArgs struct {
	Path       string `json:"path"`
	OldText    string `json:"old_text"`
	NewText    string `json:"new_text"`
	ReplaceAll bool   `json:"replace_all"`
}

func (t *EditTool) Name() string { return "edit_file" }

func (t *EditTool) Description() string {
	return "Replace an exact occurrence of old_text with new_text in a file. old_text must match exactly once unless replace_all is true. The file must have been read with read_file first."
}

func (t *EditTool) JSONSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"path": map[string]any{
				"type":        "string",
				"description": "Path to the file, relative to the workspace root",
			},
			"old_text": map[string]any{
				"type":        "string",
				"description": "Exact text to replace, including whitespace",
			},
			"new_text": map[string]any{
				"type":        "string",
				"description": "Replacement text",
			},
			"replace_all": map[string]any{
				"type":        "boolean",
				"description": "Replace every occurrence instead of requiring a unique match. Defaults to false.",
			},
		},
		"required": []string{"path", "old_text", "new_text"},
	}
}

func (t *EditTool) Call(ctx context.Context, session *Session, raw json.RawMessage) Result {
	var args editArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return Errorf("invalid arguments: %v", err)
	}
	if args.OldText == "" {
		return Errorf("old_text must not be empty")
	}
	if args.OldText == args.NewText {
		return Errorf("old_text and new_text are identical, nothing to do")
	}

	abs, err := ResolvePath(t.Root, args.Path)
	if err != nil {
		return Errorf("%v", err)
	}
	if !session.WasRead(abs) {
		return Errorf("file %s has not been read in this session, call read_file first", args.Path)
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return Errorf("file not found: %s", args.Path)
		}
		return Errorf("read %s: %v", args.Path, err)
	}
	original := string(data)

	count := strings.Count(original, args.OldText)
	switch {
	case count == 0:
		return Errorf("old_text not found in %s; re-read the file and match the exact text", args.Path)
	case count > 1 && !args.ReplaceAll:
		return Errorf("old_text matches %d locations in %s; make it unique by including surrounding context, or pass replace_all=true", count, args.Path)
	}

	var edited string
	if args.ReplaceAll {
		edited = strings.ReplaceAll(original, args.OldText, args.NewText)
	} else {
		edited = strings.Replace(original, args.OldText, args.NewText, 1)
	}

	if err := writeFileAtomic(abs, []byte(edited)); err != nil {
		return Errorf("write %s: %v", args.Path, err)
	}

	diff := unifiedDiff(args.Path, original, edited)
	replaced := 1
	if args.ReplaceAll {
		replaced = count
	}
	return Ok(diff, fmt.Sprintf("Edited %s (%d replacement(s))", args.Path, replaced))
}

func unifiedDiff(path, before, after string) string {
	ud := difflib.UnifiedDiff{
		A:        difflib.SplitLines(before),
		B:        difflib.SplitLines(after),
		FromFile: path,
		ToFile:   path,
		Context:  3,
	}
	text, err := difflib.GetUnifiedDiffString(ud)
	if err != nil {
		return ""
	}
	return text
}
