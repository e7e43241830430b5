package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"teamwear/internal/model"
	"teamwear/internal/repository"

	"github.com/google/uuid"
)

// --- DTOs ---

type CreateTaskRequest struct {
	Title      string         `json:"title" binding:"required"`
	Priority   model.Priority `json:"priority"`
	OrderID    *string        `json:"order_id"`
	LeadID     *string        `json:"lead_id"`
	AssignedTo *string        `json:"assigned_to"`
}

type UpdateTaskStatusRequest struct {
	Status model.TaskStatus `json:"status" binding:"required"`
	Notes  string           `json:"notes"`
}

type TaskListFilter struct {
	Status     string
	Priority   string
	AssignedTo string
	Page       int
	Limit      int
}

type TaskResponse struct {
	ID         string           `json:"id"`
	Title      string           `json:"title"`
	Status     model.TaskStatus `json:"status"`
	Priority   model.Priority   `json:"priority"`
	OrderID    *string          `json:"order_id"`
	LeadID     *string          `json:"lead_id"`
	AssignedTo *string          `json:"assigned_to"`
	CreatedBy  *string          `json:"created_by"`
	CreatedAt  string           `json:"created_at"`
	UpdatedAt  string           `json:"updated_at"`
}

type HistoryResponse struct {
	ID        string  `json:"id"`
	Action    string  `json:"action"`
	OldStatus string  `json:"old_status,omitempty"`
	NewStatus string  `json:"new_status,omitempty"`
	Notes     string  `json:"notes"`
	UserID    *string `json:"user_id"`
	UserName  string  `json:"user_name,omitempty"`
	CreatedAt string  `json:"created_at"`
}

// --- Interface ---

type TaskService interface {
	CreateTask(ctx context.Context, creatorID string, req CreateTaskRequest) (*TaskResponse, error)
	GetTask(ctx context.Context, id string) (*TaskResponse, error)
	ListTasks(ctx context.Context, filter TaskListFilter) ([]TaskResponse, int64, error)
	UpdateStatus(ctx context.Context, id, userID string, req UpdateTaskStatusRequest) (*TaskResponse, error)
	History(ctx context.Context, id string) ([]HistoryResponse, error)
}

type taskService struct {
	repos  *repository.Repositories
	events EventPublisher
}

func NewTaskService(repos *repository.Repositories, events EventPublisher) TaskService {
	return &taskService{repos: repos, events: publisherOrNoop(events)}
}

// --- Implementation ---

func (s *taskService) CreateTask(ctx context.Context, creatorID string, req CreateTaskRequest) (*TaskResponse, error) {
	creator, err := parseUserID(creatorID)
	if err != nil {
		return nil, err
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	if req.Priority == "" {
		req.Priority = model.PriorityNormal
	}
	if !req.Priority.Valid() {
		return nil, ErrInvalidPriority
	}

	task := model.DesignTask{
		Title:     title,
		Status:    model.TaskStatusPending,
		Priority:  req.Priority,
		CreatedBy: &creator,
	}
	if task.OrderID, err = parseOptionalID(req.OrderID, "order_id"); err != nil {
		return nil, err
	}
	if task.LeadID, err = parseOptionalID(req.LeadID, "lead_id"); err != nil {
		return nil, err
	}
	if task.AssignedTo, err = parseOptionalID(req.AssignedTo, "assigned_to"); err != nil {
		return nil, err
	}

	err = s.repos.Tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.repos.Tasks.Create(txCtx, &task); err != nil {
			return fmt.Errorf("failed to create task: %w", err)
		}
		if err := appendHistory(txCtx, s.repos.History, model.DesignTaskHistory{
			TaskID:    task.ID,
			UserID:    &creator,
			Action:    model.HistoryActionCreated,
			NewStatus: string(task.Status),
		}); err != nil {
			return err
		}
		details, _ := json.Marshal(map[string]interface{}{
			"title":    task.Title,
			"priority": task.Priority,
		})
		return s.repos.Audit.Log(txCtx, &model.AuditLog{
			UserID:     &creator,
			Action:     model.ActionCreateTask,
			EntityID:   task.ID.String(),
			EntityName: task.Title,
			Details:    string(details),
		})
	})
	if err != nil {
		return nil, err
	}

	resp := toTaskResponse(task)
	s.events.Broadcast(EventTaskUpdated, resp)
	return &resp, nil
}

func (s *taskService) GetTask(ctx context.Context, id string) (*TaskResponse, error) {
	taskID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid task id", ErrInvalidInput)
	}
	task, err := loadLiveTask(ctx, s.repos.Tasks, taskID)
	if err != nil {
		return nil, err
	}
	resp := toTaskResponse(*task)
	return &resp, nil
}

func (s *taskService) ListTasks(ctx context.Context, filter TaskListFilter) ([]TaskResponse, int64, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.Limit <= 0 {
		filter.Limit = 20
	}

	repoFilter := repository.TaskFilter{
		Status:   model.TaskStatus(filter.Status),
		Priority: model.Priority(filter.Priority),
	}
	if filter.Status != "" && !repoFilter.Status.Valid() {
		return nil, 0, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, filter.Status)
	}
	if filter.Priority != "" && !repoFilter.Priority.Valid() {
		return nil, 0, ErrInvalidPriority
	}
	if filter.AssignedTo != "" {
		assignee, err := uuid.Parse(filter.AssignedTo)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: invalid assigned_to", ErrInvalidInput)
		}
		repoFilter.AssignedTo = &assignee
	}

	tasks, total, err := s.repos.Tasks.List(ctx, repoFilter, filter.Page, filter.Limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch tasks: %w", err)
	}

	result := make([]TaskResponse, 0, len(tasks))
	for _, t := range tasks {
		result = append(result, toTaskResponse(t))
	}
	return result, total, nil
}

// UpdateStatus moves a task along the board. Only the moves listed in the
// status transition table are accepted.
func (s *taskService) UpdateStatus(ctx context.Context, id, userID string, req UpdateTaskStatusRequest) (*TaskResponse, error) {
	taskID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid task id", ErrInvalidInput)
	}
	actor, err := parseUserID(userID)
	if err != nil {
		return nil, err
	}
	if !req.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, req.Status)
	}

	var task *model.DesignTask
	err = s.repos.Tx.RunInTx(ctx, func(txCtx context.Context) error {
		found, err := loadLiveTask(txCtx, s.repos.Tasks, taskID)
		if err != nil {
			return err
		}
		task = found
		if !task.Status.CanTransitionTo(req.Status) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, task.Status, req.Status)
		}

		old := task.Status
		if err := s.repos.Tasks.UpdateFields(txCtx, task.ID, map[string]interface{}{
			"status": req.Status,
		}); err != nil {
			return fmt.Errorf("failed to update task status: %w", err)
		}
		task.Status = req.Status
		task.UpdatedAt = time.Now()

		if err := appendHistory(txCtx, s.repos.History, model.DesignTaskHistory{
			TaskID:    task.ID,
			UserID:    &actor,
			Action:    model.HistoryActionStatusChanged,
			OldStatus: string(old),
			NewStatus: string(req.Status),
			Notes:     strings.TrimSpace(req.Notes),
		}); err != nil {
			return err
		}

		details, _ := json.Marshal(map[string]interface{}{
			"old_status": old,
			"new_status": req.Status,
		})
		return s.repos.Audit.Log(txCtx, &model.AuditLog{
			UserID:     &actor,
			Action:     model.ActionUpdateTaskStatus,
			EntityID:   task.ID.String(),
			EntityName: task.Title,
			Details:    string(details),
		})
	})
	if err != nil {
		return nil, err
	}

	resp := toTaskResponse(*task)
	s.events.Broadcast(EventTaskUpdated, resp)
	return &resp, nil
}

// History returns every entry of a task, oldest first. Entries of deleted
// tasks stay readable.
func (s *taskService) History(ctx context.Context, id string) ([]HistoryResponse, error) {
	taskID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid task id", ErrInvalidInput)
	}

	entries, err := s.repos.History.ListByTask(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch task history: %w", err)
	}

	userIDs := newIDSet()
	for _, e := range entries {
		userIDs.add(e.UserID)
	}
	users, err := s.repos.Users.FindByIDs(ctx, userIDs.list())
	if err != nil {
		return nil, fmt.Errorf("failed to load users: %w", err)
	}
	names := make(map[uuid.UUID]string, len(users))
	for _, u := range users {
		names[u.ID] = u.DisplayName()
	}

	result := make([]HistoryResponse, 0, len(entries))
	for _, e := range entries {
		item := HistoryResponse{
			ID:        e.ID.String(),
			Action:    e.Action,
			OldStatus: e.OldStatus,
			NewStatus: e.NewStatus,
			Notes:     e.Notes,
			CreatedAt: e.CreatedAt.Format(time.RFC3339),
		}
		if e.UserID != nil {
			uid := e.UserID.String()
			item.UserID = &uid
			item.UserName = names[*e.UserID]
		}
		result = append(result, item)
	}
	return result, nil
}

// --- Helpers ---

func parseOptionalID(raw *string, field string) (*uuid.UUID, error) {
	if raw == nil || *raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(*raw)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid %s", ErrInvalidInput, field)
	}
	return &id, nil
}

func optionalString(id *uuid.UUID) *string {
	if id == nil {
		return nil
	}
	s := id.String()
	return &s
}

func toTaskResponse(t model.DesignTask) TaskResponse {
	return TaskResponse{
		ID:         t.ID.String(),
		Title:      t.Title,
		Status:     t.Status,
		Priority:   t.Priority,
		OrderID:    optionalString(t.OrderID),
		LeadID:     optionalString(t.LeadID),
		AssignedTo: optionalString(t.AssignedTo),
		CreatedBy:  optionalString(t.CreatedBy),
		CreatedAt:  t.CreatedAt.Format(time.RFC3339),
		UpdatedAt:  t.UpdatedAt.Format(time.RFC3339),
	}
}
