package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"teamwear/internal/logger"
	"teamwear/internal/metrics"
	"teamwear/internal/model"
	"teamwear/internal/repository"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// --- DTOs ---

type UrgentRequestInput struct {
	TaskID            *string                 `json:"task_id"`
	RequestData       model.UrgentRequestData `json:"request_data" binding:"required"`
	RequestedPriority model.Priority          `json:"requested_priority"`
	UrgentReasonID    *string                 `json:"urgent_reason_id"`
	UrgentReasonText  string                  `json:"urgent_reason_text"`
}

type DeleteRequestInput struct {
	TaskID string `json:"task_id" binding:"required"`
	Reason string `json:"reason" binding:"required"`
}

type ModificationRequestInput struct {
	TaskID      string             `json:"task_id" binding:"required"`
	Description string             `json:"description" binding:"required"`
	Attachments []model.Attachment `json:"attachments"`
}

type PriorityChangeInput struct {
	TaskID            string         `json:"task_id" binding:"required"`
	RequestedPriority model.Priority `json:"requested_priority" binding:"required"`
	UrgentReasonID    *string        `json:"urgent_reason_id"`
	UrgentReasonText  string         `json:"urgent_reason_text"`
}

// --- Interface ---

type RequestService interface {
	SubmitUrgent(ctx context.Context, requesterID string, in UrgentRequestInput) (model.PendingRequest, error)
	SubmitDelete(ctx context.Context, requesterID string, in DeleteRequestInput) (model.PendingRequest, error)
	SubmitModification(ctx context.Context, requesterID string, in ModificationRequestInput) (model.PendingRequest, error)
	SubmitPriorityChange(ctx context.Context, requesterID string, in PriorityChangeInput) (model.PendingRequest, error)
	ListUrgentReasons(ctx context.Context) ([]model.UrgentReason, error)
}

type requestService struct {
	repos  *repository.Repositories
	events EventPublisher
}

func NewRequestService(repos *repository.Repositories, events EventPublisher) RequestService {
	return &requestService{repos: repos, events: publisherOrNoop(events)}
}

// --- Implementation ---

func (s *requestService) SubmitUrgent(ctx context.Context, requesterID string, in UrgentRequestInput) (model.PendingRequest, error) {
	requester, err := parseUserID(requesterID)
	if err != nil {
		return nil, err
	}
	if in.RequestedPriority == "" {
		in.RequestedPriority = model.PriorityUrgent
	}
	if !in.RequestedPriority.Valid() {
		return nil, ErrInvalidPriority
	}
	in.RequestData.Customer.Name = strings.TrimSpace(in.RequestData.Customer.Name)
	if err := ValidateUrgentRequestData(in.RequestData); err != nil {
		return nil, err
	}

	req := &model.PendingUrgentRequest{
		RequestData:       datatypes.NewJSONType(in.RequestData),
		RequestedPriority: in.RequestedPriority,
		UrgentReasonText:  strings.TrimSpace(in.UrgentReasonText),
	}
	if in.TaskID != nil && *in.TaskID != "" {
		taskID, parseErr := uuid.Parse(*in.TaskID)
		if parseErr != nil {
			return nil, fmt.Errorf("%w: invalid task_id", ErrInvalidInput)
		}
		req.TaskID = &taskID
	}

	err = s.submit(ctx, requester, req, func(txCtx context.Context, _ *model.DesignTask) error {
		reasonID, reasonErr := s.resolveReason(txCtx, in.RequestedPriority, in.UrgentReasonID, req.UrgentReasonText)
		if reasonErr != nil {
			return reasonErr
		}
		req.UrgentReasonID = reasonID
		return nil
	})
	if err != nil {
		return nil, err
	}
	return req, nil
}

func (s *requestService) SubmitDelete(ctx context.Context, requesterID string, in DeleteRequestInput) (model.PendingRequest, error) {
	requester, err := parseUserID(requesterID)
	if err != nil {
		return nil, err
	}
	taskID, err := uuid.Parse(in.TaskID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid task_id", ErrInvalidInput)
	}
	reason := strings.TrimSpace(in.Reason)
	if reason == "" {
		return nil, fmt.Errorf("%w: reason is required", ErrInvalidInput)
	}

	req := &model.PendingDeleteRequest{TaskID: taskID, Reason: reason}
	if err := s.submit(ctx, requester, req, nil); err != nil {
		return nil, err
	}
	return req, nil
}

func (s *requestService) SubmitModification(ctx context.Context, requesterID string, in ModificationRequestInput) (model.PendingRequest, error) {
	requester, err := parseUserID(requesterID)
	if err != nil {
		return nil, err
	}
	taskID, err := uuid.Parse(in.TaskID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid task_id", ErrInvalidInput)
	}
	description := strings.TrimSpace(in.Description)
	if description == "" {
		return nil, fmt.Errorf("%w: description is required", ErrInvalidInput)
	}
	attachments := make([]model.Attachment, 0, len(in.Attachments))
	for i, a := range in.Attachments {
		if strings.TrimSpace(a.URL) == "" {
			return nil, fmt.Errorf("%w: attachment %d has no url", ErrInvalidInput, i)
		}
		if a.Name == "" {
			a.Name = fmt.Sprintf("attachment-%d", i+1)
		}
		attachments = append(attachments, a)
	}

	req := &model.PendingModificationRequest{
		TaskID:      taskID,
		Description: description,
		Attachments: datatypes.NewJSONSlice(attachments),
	}
	if err := s.submit(ctx, requester, req, nil); err != nil {
		return nil, err
	}
	return req, nil
}

func (s *requestService) SubmitPriorityChange(ctx context.Context, requesterID string, in PriorityChangeInput) (model.PendingRequest, error) {
	requester, err := parseUserID(requesterID)
	if err != nil {
		return nil, err
	}
	taskID, err := uuid.Parse(in.TaskID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid task_id", ErrInvalidInput)
	}
	if !in.RequestedPriority.Valid() {
		return nil, ErrInvalidPriority
	}

	req := &model.PendingPriorityChangeRequest{
		TaskID:            taskID,
		RequestedPriority: in.RequestedPriority,
		UrgentReasonText:  strings.TrimSpace(in.UrgentReasonText),
	}
	err = s.submit(ctx, requester, req, func(txCtx context.Context, task *model.DesignTask) error {
		if task.Priority == in.RequestedPriority {
			return ErrPriorityUnchanged
		}
		req.CurrentPriority = task.Priority
		reasonID, reasonErr := s.resolveReason(txCtx, in.RequestedPriority, in.UrgentReasonID, req.UrgentReasonText)
		if reasonErr != nil {
			return reasonErr
		}
		req.UrgentReasonID = reasonID
		return nil
	})
	if err != nil {
		return nil, err
	}
	return req, nil
}

func (s *requestService) ListUrgentReasons(ctx context.Context) ([]model.UrgentReason, error) {
	reasons, err := s.repos.UrgentReasons.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list urgent reasons: %w", err)
	}
	return reasons, nil
}

// submit stores req as a fresh pending row. When the request targets a task,
// the task must be live and must not already have an open request of the same
// kind. prepare runs after those checks with the locked task, if any.
func (s *requestService) submit(ctx context.Context, requester uuid.UUID, req model.PendingRequest, prepare func(txCtx context.Context, task *model.DesignTask) error) error {
	state := req.State()
	state.RequestedBy = requester
	state.Status = model.RequestPending
	state.Version = 1
	kind := req.Kind()

	err := s.repos.Tx.RunInTx(ctx, func(txCtx context.Context) error {
		var task *model.DesignTask
		if taskID := req.TargetTaskID(); taskID != nil {
			found, err := loadLiveTask(txCtx, s.repos.Tasks, *taskID)
			if err != nil {
				return err
			}
			task = found

			open, err := s.repos.Requests.HasOpenRequestForTask(txCtx, kind, *taskID)
			if err != nil {
				return fmt.Errorf("failed to check open requests: %w", err)
			}
			if open {
				return ErrDuplicatePending
			}
		}

		if prepare != nil {
			if err := prepare(txCtx, task); err != nil {
				return err
			}
		}

		if err := s.repos.Requests.Create(txCtx, req); err != nil {
			return fmt.Errorf("failed to create %s request: %w", kind, err)
		}

		details, err := json.Marshal(map[string]interface{}{
			"kind":    kind,
			"task_id": req.TargetTaskID(),
		})
		if err != nil {
			return fmt.Errorf("failed to encode audit details: %w", err)
		}
		audit := model.AuditLog{
			UserID:     &requester,
			Action:     model.ActionSubmitRequest,
			EntityID:   state.ID.String(),
			EntityName: string(kind),
			Details:    string(details),
		}
		if err := s.repos.Audit.Log(txCtx, &audit); err != nil {
			return fmt.Errorf("failed to write audit log: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	metrics.RecordSubmission(string(kind))
	logger.Get().WithFields(logrus.Fields{
		"kind":       kind,
		"request_id": state.ID,
		"requester":  requester,
	}).Info("pending request submitted")
	s.events.Broadcast(EventRequestCreated, map[string]interface{}{
		"kind":    kind,
		"id":      state.ID,
		"task_id": req.TargetTaskID(),
	})
	return nil
}

// resolveReason checks the urgency justification. Raising a priority to urgent
// needs a catalogue reason or free text; a given catalogue id must be active.
func (s *requestService) resolveReason(ctx context.Context, priority model.Priority, rawID *string, text string) (*uuid.UUID, error) {
	if rawID == nil || *rawID == "" {
		if priority == model.PriorityUrgent && text == "" {
			return nil, ErrUrgentReasonRequired
		}
		return nil, nil
	}

	id, err := uuid.Parse(*rawID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid urgent_reason_id", ErrInvalidInput)
	}
	reason, err := s.repos.UrgentReasons.FindByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUrgentReasonNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load urgent reason: %w", err)
	}
	if !reason.Active {
		return nil, ErrUrgentReasonNotFound
	}
	return &reason.ID, nil
}

func parseUserID(id string) (uuid.UUID, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: invalid user id", ErrInvalidInput)
	}
	return parsed, nil
}
