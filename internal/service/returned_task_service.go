package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"teamwear/internal/logger"
	"teamwear/internal/model"
	"teamwear/internal/repository"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Viewer identifies the authenticated caller of a scoped operation.
type Viewer struct {
	ID   string
	Role string
}

type ReturnedTaskResponse struct {
	RejectionID    string         `json:"rejection_id"`
	TaskID         string         `json:"task_id"`
	TaskTitle      string         `json:"task_title"`
	Priority       model.Priority `json:"priority"`
	CustomerName   string         `json:"customer_name,omitempty"`
	OrderCode      string         `json:"order_code,omitempty"`
	Reason         string         `json:"reason"`
	RejectedBy     string         `json:"rejected_by"`
	RejectedByName string         `json:"rejected_by_name"`
	RejectedAt     string         `json:"rejected_at"`
}

type RejectTaskRequest struct {
	Reason string `json:"reason" binding:"required"`
}

type ReturnedTaskService interface {
	ListReturned(ctx context.Context, viewer Viewer) ([]ReturnedTaskResponse, error)
	Resend(ctx context.Context, rejectionID string, operator Viewer) error
	Reject(ctx context.Context, taskID, designerID, reason string) (*ReturnedTaskResponse, error)
}

type returnedTaskService struct {
	repos  *repository.Repositories
	events EventPublisher
	now    func() time.Time
}

func NewReturnedTaskService(repos *repository.Repositories, events EventPublisher) ReturnedTaskService {
	return &returnedTaskService{repos: repos, events: publisherOrNoop(events), now: time.Now}
}

// ListReturned lists the tasks designers sent back. Salespeople only see the
// tasks they created; admins and managers see all of them.
func (s *returnedTaskService) ListReturned(ctx context.Context, viewer Viewer) ([]ReturnedTaskResponse, error) {
	var createdBy *uuid.UUID
	if !model.IsElevatedRole(viewer.Role) {
		id, err := parseUserID(viewer.ID)
		if err != nil {
			return nil, err
		}
		createdBy = &id
	}

	rejections, err := s.repos.Rejections.ListUnresolved(ctx, createdBy)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch returned tasks: %w", err)
	}

	designers := newIDSet()
	for _, r := range rejections {
		designers.add(&r.RejectedBy)
	}
	users, err := s.repos.Users.FindByIDs(ctx, designers.list())
	if err != nil {
		return nil, fmt.Errorf("failed to load designers: %w", err)
	}
	names := make(map[uuid.UUID]string, len(users))
	for _, u := range users {
		names[u.ID] = u.DisplayName()
	}

	result := make([]ReturnedTaskResponse, 0, len(rejections))
	for _, r := range rejections {
		item := toReturnedTaskResponse(r)
		item.RejectedByName = names[r.RejectedBy]
		result = append(result, item)
	}
	return result, nil
}

// Resend hands a returned task back to the design queue. The rejection is
// resolved, the lead is flagged sent_to_designer again and the task history
// records the resend, all in one transaction.
func (s *returnedTaskService) Resend(ctx context.Context, rejectionID string, operator Viewer) error {
	id, err := uuid.Parse(rejectionID)
	if err != nil {
		return fmt.Errorf("%w: invalid rejection id", ErrInvalidInput)
	}
	operatorID, err := parseUserID(operator.ID)
	if err != nil {
		return err
	}

	var taskID uuid.UUID
	err = s.repos.Tx.RunInTx(ctx, func(txCtx context.Context) error {
		rejection, err := s.repos.Rejections.FindByID(txCtx, id)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrRejectionNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to load rejection: %w", err)
		}
		if rejection.Resolved {
			return ErrAlreadyProcessed
		}

		task, err := loadLiveTask(txCtx, s.repos.Tasks, rejection.TaskID)
		if err != nil {
			return err
		}
		if !model.IsElevatedRole(operator.Role) && (task.CreatedBy == nil || *task.CreatedBy != operatorID) {
			return ErrForbidden
		}
		taskID = task.ID

		resolved, err := s.repos.Rejections.Resolve(txCtx, rejection.ID, operatorID, s.now())
		if err != nil {
			return fmt.Errorf("failed to resolve rejection: %w", err)
		}
		if !resolved {
			return ErrAlreadyProcessed
		}

		leadID := rejection.LeadID
		if leadID == nil {
			leadID = task.LeadID
		}
		if leadID != nil {
			if err := s.repos.Leads.UpdateFields(txCtx, *leadID, map[string]interface{}{
				"salesperson_status": model.LeadStatusSentToDesigner,
				"needs_logo":         false,
			}); err != nil {
				return fmt.Errorf("failed to update lead: %w", err)
			}
		}

		if err := appendHistory(txCtx, s.repos.History, model.DesignTaskHistory{
			TaskID: task.ID,
			UserID: &operatorID,
			Action: model.HistoryActionResentToDesigner,
			Notes:  "Task resent to designer",
		}); err != nil {
			return err
		}

		details, _ := json.Marshal(map[string]interface{}{
			"rejection_id": rejection.ID,
			"lead_id":      leadID,
		})
		return s.repos.Audit.Log(txCtx, &model.AuditLog{
			UserID:     &operatorID,
			Action:     model.ActionResendTask,
			EntityID:   task.ID.String(),
			EntityName: task.Title,
			Details:    string(details),
		})
	})
	if err != nil {
		return err
	}

	logger.Get().WithFields(logrus.Fields{
		"rejection_id": id,
		"task_id":      taskID,
		"operator":     operatorID,
	}).Info("returned task resent to designer")
	s.events.Broadcast(EventTaskUpdated, map[string]interface{}{
		"id":     taskID,
		"action": model.HistoryActionResentToDesigner,
	})
	return nil
}

// Reject records a designer sending a task back to its salesperson.
func (s *returnedTaskService) Reject(ctx context.Context, taskID, designerID, reason string) (*ReturnedTaskResponse, error) {
	id, err := uuid.Parse(taskID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid task id", ErrInvalidInput)
	}
	designer, err := parseUserID(designerID)
	if err != nil {
		return nil, err
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, ErrRejectionReasonRequired
	}

	var rejection model.TaskRejection
	err = s.repos.Tx.RunInTx(ctx, func(txCtx context.Context) error {
		task, err := loadLiveTask(txCtx, s.repos.Tasks, id)
		if err != nil {
			return err
		}

		rejection = model.TaskRejection{
			TaskID:     task.ID,
			LeadID:     task.LeadID,
			RejectedBy: designer,
			Reason:     reason,
		}
		if err := s.repos.Rejections.Create(txCtx, &rejection); err != nil {
			return fmt.Errorf("failed to create rejection: %w", err)
		}
		rejection.Task = task

		if task.LeadID != nil {
			if err := s.repos.Leads.UpdateFields(txCtx, *task.LeadID, map[string]interface{}{
				"salesperson_status": model.LeadStatusRejectedByDesigner,
			}); err != nil {
				return fmt.Errorf("failed to update lead: %w", err)
			}
		}

		return appendHistory(txCtx, s.repos.History, model.DesignTaskHistory{
			TaskID: task.ID,
			UserID: &designer,
			Action: model.HistoryActionRejectedByDesigner,
			Notes:  reason,
		})
	})
	if err != nil {
		return nil, err
	}

	resp := toReturnedTaskResponse(rejection)
	s.events.Broadcast(EventTaskUpdated, map[string]interface{}{
		"id":     rejection.TaskID,
		"action": model.HistoryActionRejectedByDesigner,
	})
	return &resp, nil
}

func toReturnedTaskResponse(r model.TaskRejection) ReturnedTaskResponse {
	resp := ReturnedTaskResponse{
		RejectionID: r.ID.String(),
		TaskID:      r.TaskID.String(),
		Reason:      r.Reason,
		RejectedBy:  r.RejectedBy.String(),
		RejectedAt:  r.CreatedAt.Format(time.RFC3339),
	}
	if r.Task != nil {
		resp.TaskTitle = r.Task.Title
		resp.Priority = r.Task.Priority
		if r.Task.Order != nil {
			resp.CustomerName = r.Task.Order.CustomerName
			resp.OrderCode = r.Task.Order.OrderCode
		}
	}
	return resp
}
