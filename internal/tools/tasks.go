package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// CreateTasksTool appends entries to the session task list.
type CreateTasksTool struct{}

type createTasksArgs struct {
	UserQuery string   `json:"user_query"`
	Tasks     []string `json:"tasks"`
}

func (t *CreateTasksTool) Name() string { return "create_tasks" }

func (t *CreateTasksTool) Description() string {
	return "Add tasks to the session task list. Each task starts as pending."
}

func (t *CreateTasksTool) JSONSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"user_query": map[string]any{
				"type":        "string",
				"description": "The user request this plan addresses",
			},
			"tasks": map[string]any{
				"type":        "array",
				"items":       map[string]any{"type": "string"},
				"description": "Task descriptions to add",
			},
		},
		"required": []string{"tasks"},
	}
}

func (t *CreateTasksTool) Call(ctx context.Context, session *Session, raw json.RawMessage) Result {
	var args createTasksArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return Errorf("invalid arguments: %v", err)
	}
	if len(args.Tasks) == 0 {
		return Errorf("tasks must not be empty")
	}
	for _, desc := range args.Tasks {
		if strings.TrimSpace(desc) == "" {
			return Errorf("task descriptions must not be blank")
		}
	}

	created := session.AddTasks(args.UserQuery, args.Tasks)
	return Ok(renderTasks(session.TaskListSnapshot()), fmt.Sprintf("Added %d task(s)", len(created)))
}

// UpdateTasksTool changes the status of existing tasks.
type UpdateTasksTool struct{}

type taskUpdate struct {
	ID     int    `json:"id"`
	Status string `json:"status"`
	Notes  string `json:"notes,omitempty"`
}

type updateTasksArgs struct {
	Updates []taskUpdate `json:"updates"`
}

func (t *UpdateTasksTool) Name() string { return "update_tasks" }

func (t *UpdateTasksTool) Description() string {
	return "Update task statuses. Valid statuses: pending, in_progress, completed. Notes may be attached to an update."
}

func (t *UpdateTasksTool) JSONSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"updates": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"id":     map[string]any{"type": "integer"},
						"status": map[string]any{"type": "string", "enum": []string{"pending", "in_progress", "completed"}},
						"notes":  map[string]any{"type": "string"},
					},
					"required": []string{"id", "status"},
				},
				"description": "Task id and new status pairs, with optional notes",
			},
		},
		"required": []string{"updates"},
	}
}

func (t *UpdateTasksTool) Call(ctx context.Context, session *Session, raw json.RawMessage) Result {
	var args updateTasksArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return Errorf("invalid arguments: %v", err)
	}
	if len(args.Updates) == 0 {
		return Errorf("updates must not be empty")
	}

	for _, u := range args.Updates {
		status := TaskStatus(u.Status)
		if !validTaskStatuses[status] {
			return Errorf("invalid status %q for task %d", u.Status, u.ID)
		}
		if _, ok := session.UpdateTask(u.ID, status, u.Notes); !ok {
			return Errorf("no task with id %d", u.ID)
		}
	}

	return Ok(renderTasks(session.TaskListSnapshot()), fmt.Sprintf("Updated %d task(s)", len(args.Updates)))
}

func renderTasks(list TaskList) string {
	if len(list.Tasks) == 0 {
		return "No tasks."
	}
	var b strings.Builder
	if list.UserQuery != "" {
		fmt.Fprintf(&b, "Plan for: %s\n", list.UserQuery)
	}
	for _, task := range list.Tasks {
		marker := " "
		switch task.Status {
		case TaskInProgress:
			marker = ">"
		case TaskCompleted:
			marker = "x"
		}
		fmt.Fprintf(&b, "[%s] %d. %s", marker, task.ID, task.Description)
		if task.Notes != "" {
			fmt.Fprintf(&b, " (%s)", task.Notes)
		}
		b.WriteString("\n")
	}
	return b.String()
}
