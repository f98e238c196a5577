package tools

import (
	"sort"
	"sync"
	"time"
)

// TaskStatus is the lifecycle state of a planned task.
type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskInProgress TaskStatus = "in_progress"
	TaskCompleted  TaskStatus = "completed"
)

var validTaskStatuses = map[TaskStatus]bool{
	TaskPending:    true,
	TaskInProgress: true,
	TaskCompleted:  true,
}

// Task is one entry in the session task list.
type Task struct {
	ID          int        `json:"id"`
	Description string     `json:"description"`
	Status      TaskStatus `json:"status"`
	Notes       string     `json:"notes,omitempty"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`
}

// TaskList is the single model-driven plan for the session.
type TaskList struct {
	UserQuery string    `json:"user_query"`
	Tasks     []Task    `json:"tasks"`
	CreatedAt time.Time `json:"created_at"`
}

// Session carries the per-process state tools share: the set of files the
// model has read (gating edits) and the task list. It lives for the whole
// process and deliberately survives history clears, so that a file read
// before /clear remains editable after it.
type Session struct {
	mu       sync.Mutex
	readSet  map[string]bool
	taskList TaskList
	nextTask int
}

// NewSession returns an empty session.
func NewSession() *Session {
	return &Session{
		readSet:  make(map[string]bool),
		nextTask: 1,
	}
}

// MarkRead records that the given resolved absolute path has been read.
func (s *Session) MarkRead(absPath string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.readSet[absPath] = true
}

// WasRead reports whether the given resolved absolute path was read earlier
// in this process.
func (s *Session) WasRead(absPath string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readSet[absPath]
}

// ReadPaths returns the recorded read paths in sorted order.
func (s *Session) ReadPaths() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	paths := make([]string, 0, len(s.readSet))
	for p := range s.readSet {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// AddTasks appends new pending tasks and returns copies of the created
// entries. The first call stamps the list's creation time; a non-empty
// userQuery replaces the recorded one.
func (s *Session) AddTasks(userQuery string, descriptions []string) []Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.taskList.CreatedAt.IsZero() {
		s.taskList.CreatedAt = time.Now()
	}
	if userQuery != "" {
		s.taskList.UserQuery = userQuery
	}
	created := make([]Task, 0, len(descriptions))
	for _, desc := range descriptions {
		task := Task{ID: s.nextTask, Description: desc, Status: TaskPending}
		s.nextTask++
		s.taskList.Tasks = append(s.taskList.Tasks, task)
		created = append(created, task)
	}
	return created
}

// UpdateTask changes the status of an existing task, optionally attaching
// notes, and stamps the update time. It returns false when no task has the
// given id.
func (s *Session) UpdateTask(id int, status TaskStatus, notes string) (Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.taskList.Tasks {
		if s.taskList.Tasks[i].ID == id {
			s.taskList.Tasks[i].Status = status
			if notes != "" {
				s.taskList.Tasks[i].Notes = notes
			}
			now := time.Now()
			s.taskList.Tasks[i].UpdatedAt = &now
			return cloneTask(s.taskList.Tasks[i]), true
		}
	}
	return Task{}, false
}

// Tasks returns a deep copy of the current tasks.
func (s *Session) Tasks() []Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneTasks(s.taskList.Tasks)
}

// TaskListSnapshot returns a deep copy of the whole task list, so callers can
// hold it without seeing later mutations.
func (s *Session) TaskListSnapshot() TaskList {
	s.mu.Lock()
	defer s.mu.Unlock()
	return TaskList{
		UserQuery: s.taskList.UserQuery,
		Tasks:     cloneTasks(s.taskList.Tasks),
		CreatedAt: s.taskList.CreatedAt,
	}
}

func cloneTask(t Task) Task {
	if t.UpdatedAt != nil {
		at := *t.UpdatedAt
		t.UpdatedAt = &at
	}
	return t
}

func cloneTasks(tasks []Task) []Task {
	out := make([]Task, len(tasks))
	for i, t := range tasks {
		out[i] = cloneTask(t)
	}
	return out
}
