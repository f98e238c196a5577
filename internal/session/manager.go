// Package session persists conversation history as JSONL files under the
// user's home directory so turns can be resumed across processes.
package session

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/termite-dev/termite/internal/llm"
)

// Store reads and writes session files in ~/.termite/sessions/.
type Store struct {
	baseDir string
}

// Info is session metadata for listings.
type Info struct {
	Name         string
	ModTime      time.Time
	MessageCount int
}

// NewStore opens (creating if needed) the session directory.
func NewStore() (*Store, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolve home directory: %w", err)
	}
	baseDir := filepath.Join(home, ".termite", "sessions")
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create sessions directory: %w", err)
	}
	return &Store{baseDir: baseDir}, nil
}

// NewStoreAt opens a store rooted at dir. Used by tests.
func NewStoreAt(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create sessions directory: %w", err)
	}
	return &Store{baseDir: dir}, nil
}

// Exists reports whether a session with the given name is on disk.
func (s *Store) Exists(name string) bool {
	_, err := os.Stat(s.path(name))
	return err == nil
}

// Load reads a session's messages, one JSON object per line.
func (s *Store) Load(name string) ([]llm.Message, error) {
	file, err := os.Open(s.path(name))
	if err != nil {
		return nil, fmt.Errorf("open session %q: %w", name, err)
	}
	defer file.Close()

	var messages []llm.Message
	scanner := bufio.NewScanner(file)
	// Tool results can carry whole files.
	scanner.Buffer(make([]byte, 0, 64*1024), 10*1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var msg llm.Message
		if err := json.Unmarshal([]byte(line), &msg); err != nil {
			return nil, fmt.Errorf("parse session %q: %w", name, err)
		}
		messages = append(messages, msg)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read session %q: %w", name, err)
	}
	return messages, nil
}

// Save replaces the session's content with the given messages.
func (s *Store) Save(name string, messages []llm.Message) error {
	file, err := os.Create(s.path(name))
	if err != nil {
		return fmt.Errorf("create session %q: %w", name, err)
	}
	defer file.Close()

	w := bufio.NewWriter(file)
	for _, msg := range messages {
		data, err := json.Marshal(msg)
		if err != nil {
			return fmt.Errorf("marshal message: %w", err)
		}
		if _, err := w.Write(append(data, '\n')); err != nil {
			return fmt.Errorf("write session %q: %w", name, err)
		}
	}
	return w.Flush()
}

// GenerateName returns a fresh session name: date plus a short unique
// suffix.
func (s *Store) GenerateName() string {
	suffix := strings.SplitN(uuid.NewString(), "-", 2)[0]
	return fmt.Sprintf("%s-%s", time.Now().Format("2006-01-02"), suffix)
}

// List returns all sessions, newest first.
func (s *Store) List() ([]Info, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read sessions directory: %w", err)
	}

	var sessions []Info
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".jsonl") {
			continue
		}
		name := strings.TrimSuffix(entry.Name(), ".jsonl")
		fi, err := entry.Info()
		if err != nil {
			continue
		}
		count := 0
		if messages, err := s.Load(name); err == nil {
			count = len(messages)
		}
		sessions = append(sessions, Info{Name: name, ModTime: fi.ModTime(), MessageCount: count})
	}
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].ModTime.After(sessions[j].ModTime)
	})
	return sessions, nil
}

// Delete removes a session file.
func (s *Store) Delete(name string) error {
	if err := os.Remove(s.path(name)); err != nil {
		return fmt.Errorf("delete session %q: %w", name, err)
	}
	return nil
}

// Lock takes an exclusive flock on the session so two processes cannot
// write it at once. The returned function releases the lock.
func (s *Store) Lock(name string) (func(), error) {
	lockPath := filepath.Join(s.baseDir, "."+name+".lock")
	lockFile, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("create lock file: %w", err)
	}
	if err := syscall.Flock(int(lockFile.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		lockFile.Close()
		return nil, fmt.Errorf("session %q is in use by another process", name)
	}
	lockFile.Truncate(0)
	lockFile.Seek(0, 0)
	fmt.Fprintf(lockFile, "%d\n", os.Getpid())

	return func() {
		syscall.Flock(int(lockFile.Fd()), syscall.LOCK_UN)
		lockFile.Close()
		os.Remove(lockPath)
	}, nil
}

func (s *Store) path(name string) string {
	return filepath.Join(s.baseDir, name+".jsonl")
}
