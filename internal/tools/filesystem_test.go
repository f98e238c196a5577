package tools

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func mustArgs(t *testing.T, v any) json.RawMessage {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal args: %v", err)
	}
	return data
}

func TestResolvePathRejectsEscape(t *testing.T) {
	root := t.TempDir()

	cases := []struct {
		name    string
		path    string
		wantErr bool
	}{
		{"relative inside", "sub/file.txt", false},
		{"dot", ".", false},
		{"parent escape", "../outside.txt", true},
		{"nested escape", "sub/../../outside.txt", true},
		{"absolute outside", "/etc/passwd", true},
		{"absolute inside", filepath.Join(root, "ok.txt"), false},
		{"empty", "", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ResolvePath(root, tc.path)
			if (err != nil) != tc.wantErr {
				t.Errorf("ResolvePath(%q) error = %v, wantErr %v", tc.path, err, tc.wantErr)
			}
		})
	}
}

func TestReadFile(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "notes.txt")
	if err := os.WriteFile(path, []byte("one\ntwo\nthree\nfour\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	tool := &ReadTool{Root: root, MaxFileSizeMB: 1}
	session := NewSession()

	res := tool.Call(context.Background(), session, mustArgs(t, readArgs{Path: "notes.txt"}))
	if !res.Success {
		t.Fatalf("read failed: %s", res.Error)
	}
	if got := res.Content.(string); !strings.Contains(got, "three") {
		t.Errorf("content missing line: %q", got)
	}
	if !session.WasRead(path) {
		t.Error("successful read did not record the path in the read set")
	}
}

func TestReadFileRange(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "f.txt"), []byte("a\nb\nc\nd"), 0o644); err != nil {
		t.Fatal(err)
	}

	tool := &ReadTool{Root: root, MaxFileSizeMB: 1}
	res := tool.Call(context.Background(), NewSession(), mustArgs(t, readArgs{Path: "f.txt", StartLine: 2, EndLine: 3}))
	if !res.Success {
		t.Fatalf("read failed: %s", res.Error)
	}
	if got := res.Content.(string); got != "b\nc" {
		t.Errorf("range content = %q, want %q", got, "b\nc")
	}
}

func TestReadFileMissing(t *testing.T) {
	tool := &ReadTool{Root: t.TempDir(), MaxFileSizeMB: 1}
	res := tool.Call(context.Background(), NewSession(), mustArgs(t, readArgs{Path: "nope.txt"}))
	if res.Success {
		t.Fatal("expected failure for missing file")
	}
	if !strings.Contains(res.Error, "not found") {
		t.Errorf("error = %q, want mention of not found", res.Error)
	}
}

func TestCreateFile(t *testing.T) {
	root := t.TempDir()
	tool := &CreateTool{Root: root}
	session := NewSession()

	res := tool.Call(context.Background(), session, mustArgs(t, createArgs{Path: "pkg/main.go", Content: "package main\n"}))
	if !res.Success {
		t.Fatalf("create failed: %s", res.Error)
	}
	data, err := os.ReadFile(filepath.Join(root, "pkg", "main.go"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "package main\n" {
		t.Errorf("file content = %q", data)
	}
	if !session.WasRead(filepath.Join(root, "pkg", "main.go")) {
		t.Error("created file should be editable without a separate read")
	}

	// Existing file without overwrite fails and keeps the original.
	res = tool.Call(context.Background(), session, mustArgs(t, createArgs{Path: "pkg/main.go", Content: "changed"}))
	if res.Success {
		t.Fatal("expected failure without overwrite")
	}
	res = tool.Call(context.Background(), session, mustArgs(t, createArgs{Path: "pkg/main.go", Content: "changed", Overwrite: true}))
	if !res.Success {
		t.Fatalf("overwrite failed: %s", res.Error)
	}
}

func TestCreateDirectory(t *testing.T) {
	root := t.TempDir()
	tool := &CreateTool{Root: root}
	res := tool.Call(context.Background(), NewSession(), mustArgs(t, createArgs{Path: "a/b/c", Kind: "directory"}))
	if !res.Success {
		t.Fatalf("create directory failed: %s", res.Error)
	}
	info, err := os.Stat(filepath.Join(root, "a", "b", "c"))
	if err != nil || !info.IsDir() {
		t.Errorf("directory not created: %v", err)
	}

	// Existing target needs an explicit overwrite.
	res = tool.Call(context.Background(), NewSession(), mustArgs(t, createArgs{Path: "a/b/c", Kind: "directory"}))
	if res.Success {
		t.Error("creating an existing directory without overwrite should fail")
	}
	res = tool.Call(context.Background(), NewSession(), mustArgs(t, createArgs{Path: "a/b/c", Kind: "directory", Overwrite: true}))
	if !res.Success {
		t.Errorf("overwrite=true should allow the existing directory: %s", res.Error)
	}
}

func TestListSkipsDependencyDirs(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"main.go":          "package main\n",
		"vendor/v.go":      "package v\n",
		"dist/bundle.js":   "x\n",
		"target/out.class": "x\n",
		"sub/keep.go":      "package sub\n",
	})
	tool := &ListTool{Root: root}

	res := tool.Call(context.Background(), NewSession(), mustArgs(t, listArgs{Recursive: true}))
	if !res.Success {
		t.Fatalf("list failed: %s", res.Error)
	}
	out := res.Content.(string)
	for _, skipped := range []string{"vendor", "dist", "target"} {
		if strings.Contains(out, skipped) {
			t.Errorf("listing includes %s:\n%s", skipped, out)
		}
	}
	for _, want := range []string{"main.go", "sub/keep.go"} {
		if !strings.Contains(out, want) {
			t.Errorf("listing missing %s:\n%s", want, out)
		}
	}
}

func TestEditRequiresRead(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "f.txt")
	if err := os.WriteFile(path, []byte("hello world"), 0o644); err != nil {
		t.Fatal(err)
	}

	tool := &EditTool{Root: root}
	session := NewSession()

	res := tool.Call(context.Background(), session, mustArgs(t, editArgs{Path: "f.txt", OldText: "hello", NewText: "goodbye"}))
	if res.Success {
		t.Fatal("edit without prior read should fail")
	}
	if !strings.Contains(res.Error, "read_file") {
		t.Errorf("error = %q, want read_file hint", res.Error)
	}

	session.MarkRead(path)
	res = tool.Call(context.Background(), session, mustArgs(t, editArgs{Path: "f.txt", OldText: "hello", NewText: "goodbye"}))
	if !res.Success {
		t.Fatalf("edit failed: %s", res.Error)
	}
	data, _ := os.ReadFile(path)
	if string(data) != "goodbye world" {
		t.Errorf("file content = %q", data)
	}
}

func TestEditAmbiguousMatchLeavesFileUnchanged(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "f.txt")
	original := "x = 1\nx = 1\n"
	if err := os.WriteFile(path, []byte(original), 0o644); err != nil {
		t.Fatal(err)
	}

	tool := &EditTool{Root: root}
	session := NewSession()
	session.MarkRead(path)

	res := tool.Call(context.Background(), session, mustArgs(t, editArgs{Path: "f.txt", OldText: "x = 1", NewText: "x = 2"}))
	if res.Success {
		t.Fatal("ambiguous edit should fail")
	}
	if !strings.Contains(res.Error, "2 locations") {
		t.Errorf("error = %q, want match count", res.Error)
	}
	data, _ := os.ReadFile(path)
	if string(data) != original {
		t.Error("ambiguous edit modified the file")
	}

	res = tool.Call(context.Background(), session, mustArgs(t, editArgs{Path: "f.txt", OldText: "x = 1", NewText: "x = 2", ReplaceAll: true}))
	if !res.Success {
		t.Fatalf("replace_all failed: %s", res.Error)
	}
	data, _ = os.ReadFile(path)
	if string(data) != "x = 2\nx = 2\n" {
		t.Errorf("file content = %q", data)
	}
}

func TestDeleteFile(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "junk.txt")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	tool := &DeleteTool{Root: root}
	res := tool.Call(context.Background(), NewSession(), mustArgs(t, deleteArgs{Path: "junk.txt"}))
	if !res.Success {
		t.Fatalf("delete failed: %s", res.Error)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("file still exists after delete")
	}
}

func TestDeleteRefusesRootAndEscape(t *testing.T) {
	root := t.TempDir()
	tool := &DeleteTool{Root: root}

	res := tool.Call(context.Background(), NewSession(), mustArgs(t, deleteArgs{Path: "."}))
	if res.Success {
		t.Fatal("deleting the workspace root should fail")
	}

	res = tool.Call(context.Background(), NewSession(), mustArgs(t, deleteArgs{Path: "../other"}))
	if res.Success {
		t.Fatal("deleting outside the workspace should fail")
	}
}

func TestDeleteDirectoryNeedsRecursive(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "sub")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "f.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	tool := &DeleteTool{Root: root}
	res := tool.Call(context.Background(), NewSession(), mustArgs(t, deleteArgs{Path: "sub"}))
	if res.Success {
		t.Fatal("non-empty directory without recursive should fail")
	}

	res = tool.Call(context.Background(), NewSession(), mustArgs(t, deleteArgs{Path: "sub", Recursive: true}))
	if !res.Success {
		t.Fatalf("recursive delete failed: %s", res.Error)
	}
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Error("directory still exists after recursive delete")
	}
}
