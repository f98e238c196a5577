package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ListTool lists directory contents, flat or recursive, with optional glob
// filtering.
type ListTool struct {
	Root string
}

type listArgs struct {
	Directory  string `json:"directory"`
	Pattern    string `json:"pattern"`
	Recursive  bool   `json:"recursive"`
	ShowHidden bool   `json:"show_hidden"`
}

type listEntry struct {
	Path  string `json:"path"`
	IsDir bool   `json:"is_dir"`
	Size  int64  `json:"size"`
}

var skippedDirs = map[string]bool{
	".git":         true,
	"node_modules": true,
	"__pycache__":  true,
	".venv":        true,
	"venv":         true,
	"vendor":       true,
	"dist":         true,
	"build":        true,
	"target":       true,
}

// skippedExtensions holds binary and log extensions content search ignores.
var skippedExtensions = map[string]bool{
	".exe": true, ".dll": true, ".so": true, ".dylib": true,
	".a": true, ".o": true, ".bin": true, ".class": true,
	".pyc": true, ".zip": true, ".tar": true, ".gz": true,
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true,
	".pdf": true, ".log": true,
}

func (t *ListTool) Name() string { return "list_files" }

func (t *ListTool) Description() string {
	return "List files in a directory. Supports glob patterns on file names, recursion, and hidden files. Common build and VCS directories are skipped."
}

func (t *ListTool) JSONSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"directory": map[string]any{
				"type":        "string",
				"description": "Directory to list, relative to the workspace root. Defaults to the root.",
			},
			"pattern": map[string]any{
				"type":        "string",
				"description": "Glob pattern matched against file names, e.g. \"*.go\"",
			},
			"recursive": map[string]any{
				"type":        "boolean",
				"description": "Descend into subdirectories. Defaults to false.",
			},
			"show_hidden": map[string]any{
				"type":        "boolean",
				"description": "Include dotfiles. Defaults to false.",
			},
		},
	}
}

func (t *ListTool) Call(ctx context.Context, session *Session, raw json.RawMessage) Result {
	var args listArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return Errorf("invalid arguments: %v", err)
	}
	if args.Directory == "" {
		args.Directory = "."
	}
	if args.Pattern != "" {
		if _, err := filepath.Match(args.Pattern, "probe"); err != nil {
			return Errorf("invalid pattern %q: %v", args.Pattern, err)
		}
	}

	abs, err := ResolvePath(t.Root, args.Directory)
	if err != nil {
		return Errorf("%v", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return Errorf("directory not found: %s", args.Directory)
		}
		return Errorf("stat %s: %v", args.Directory, err)
	}
	if !info.IsDir() {
		return Errorf("%s is not a directory", args.Directory)
	}

	var entries []listEntry
	collect := func(path string, d fs.DirEntry) error {
		name := d.Name()
		if !args.ShowHidden && strings.HasPrefix(name, ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() && skippedDirs[name] {
			return filepath.SkipDir
		}
		rel, err := filepath.Rel(abs, path)
		if err != nil || rel == "." {
			return nil
		}
		if args.Pattern != "" && !d.IsDir() {
			if ok, _ := filepath.Match(args.Pattern, name); !ok {
				return nil
			}
		}
		fi, err := d.Info()
		if err != nil {
			return nil
		}
		entries = append(entries, listEntry{Path: rel, IsDir: d.IsDir(), Size: fi.Size()})
		return nil
	}

	if args.Recursive {
		err = filepath.WalkDir(abs, func(path string, d fs.DirEntry, walkErr error) error {
			if walkErr != nil {
				return nil
			}
			if path == abs {
				return nil
			}
			return collect(path, d)
		})
		if err != nil {
			return Errorf("walk %s: %v", args.Directory, err)
		}
	} else {
		dirEntries, err := os.ReadDir(abs)
		if err != nil {
			return Errorf("read directory %s: %v", args.Directory, err)
		}
		for _, d := range dirEntries {
			if err := collect(filepath.Join(abs, d.Name()), d); err == filepath.SkipDir {
				continue
			}
		}
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })

	var b strings.Builder
	for _, e := range entries {
		if e.IsDir {
			fmt.Fprintf(&b, "%s/\n", e.Path)
		} else {
			fmt.Fprintf(&b, "%s (%d bytes)\n", e.Path, e.Size)
		}
	}
	return Ok(b.String(), fmt.Sprintf("Listed %d entries in %s", len(entries), args.Directory))
}
