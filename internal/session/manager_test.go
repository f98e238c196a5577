package session

import (
	"strings"
	"testing"

	"github.com/termite-dev/termite/internal/llm"
)

func TestSaveAndLoadRoundTrip(t *testing.T) {
	store, err := NewStoreAt(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: "prompt"},
		{Role: llm.RoleUser, Content: "multi\nline\ninput"},
		{Role: llm.RoleAssistant, ToolCalls: []llm.ToolCall{{
			ID:       "c1",
			Type:     "function",
			Function: llm.ToolCallFunction{Name: "read_file", Arguments: `{"path":"f.txt"}`},
		}}},
		{Role: llm.RoleTool, Name: "read_file", ToolCallID: "c1", Content: `{"success":true}`},
	}
	if err := store.Save("alpha", messages); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if !store.Exists("alpha") {
		t.Error("saved session does not exist")
	}

	loaded, err := store.Load("alpha")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(loaded) != len(messages) {
		t.Fatalf("loaded %d messages, want %d", len(loaded), len(messages))
	}
	if loaded[1].Content != "multi\nline\ninput" {
		t.Errorf("multi-line content = %q", loaded[1].Content)
	}
	if loaded[2].ToolCalls[0].Function.Name != "read_file" {
		t.Errorf("tool call lost: %+v", loaded[2])
	}
	if loaded[3].ToolCallID != "c1" {
		t.Errorf("tool result id = %q", loaded[3].ToolCallID)
	}
}

func TestListNewestFirstAndDelete(t *testing.T) {
	store, err := NewStoreAt(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	msgs := []llm.Message{{Role: llm.RoleSystem, Content: "p"}}
	if err := store.Save("one", msgs); err != nil {
		t.Fatal(err)
	}
	if err := store.Save("two", msgs); err != nil {
		t.Fatal(err)
	}

	infos, err := store.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(infos) != 2 {
		t.Fatalf("got %d sessions", len(infos))
	}
	if infos[0].MessageCount != 1 {
		t.Errorf("message count = %d", infos[0].MessageCount)
	}

	if err := store.Delete("one"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if store.Exists("one") {
		t.Error("deleted session still exists")
	}
}

func TestGenerateNameIsUnique(t *testing.T) {
	store, err := NewStoreAt(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	a, b := store.GenerateName(), store.GenerateName()
	if a == b {
		t.Errorf("generated names collide: %s", a)
	}
	if !strings.Contains(a, "-") {
		t.Errorf("name %q missing date prefix", a)
	}
}

func TestLockIsExclusive(t *testing.T) {
	store, err := NewStoreAt(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	unlock, err := store.Lock("busy")
	if err != nil {
		t.Fatalf("first lock: %v", err)
	}
	defer unlock()

	// flock is per file descriptor, so a second store in the same process
	// contends the same way another process would.
	other, err := NewStoreAt(store.baseDir)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := other.Lock("busy"); err == nil {
		t.Error("second lock on the same session should fail")
	}
}
