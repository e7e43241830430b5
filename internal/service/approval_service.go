package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"teamwear/internal/logger"
	"teamwear/internal/metrics"
	"teamwear/internal/model"
	"teamwear/internal/repository"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// --- DTOs ---

type Outcome string

const (
	OutcomeApprove Outcome = "approve"
	OutcomeReject  Outcome = "reject"
)

// Decision is what a reviewer submits for one pending request.
type Decision struct {
	Outcome       Outcome        `json:"-"`
	Reason        string         `json:"reason"`
	FinalPriority model.Priority `json:"final_priority"`
}

func (d Decision) validate() error {
	switch d.Outcome {
	case OutcomeApprove:
		return nil
	case OutcomeReject:
		if strings.TrimSpace(d.Reason) == "" {
			return ErrRejectionReasonRequired
		}
		return nil
	default:
		return ErrInvalidOutcome
	}
}

// RequestResponse is the enriched view of a pending request of any kind.
type RequestResponse struct {
	ID              string               `json:"id"`
	Kind            model.RequestKind    `json:"kind"`
	Status          model.RequestStatus  `json:"status"`
	Version         int                  `json:"version"`
	TaskID          *string              `json:"task_id"`
	TaskTitle       string               `json:"task_title,omitempty"`
	CustomerName    string               `json:"customer_name,omitempty"`
	RequestedBy     string               `json:"requested_by"`
	RequesterName   string               `json:"requester_name"`
	RequestedAt     string               `json:"requested_at"`
	ReviewedBy      *string              `json:"reviewed_by"`
	ReviewerName    string               `json:"reviewer_name,omitempty"`
	ReviewedAt      *string              `json:"reviewed_at"`
	RejectionReason *string              `json:"rejection_reason"`
	UrgentReason    string               `json:"urgent_reason,omitempty"`
	Details         model.PendingRequest `json:"details"`
}

// PendingSummary holds the badge counts of the approval dashboard.
type PendingSummary struct {
	Counts map[model.RequestKind]int64 `json:"counts"`
	Total  int64                       `json:"total"`
}

// --- Interface ---

type ApprovalService interface {
	Resolve(ctx context.Context, kind model.RequestKind, requestID, reviewerID string, decision Decision) (*RequestResponse, error)
	ListPending(ctx context.Context, kind model.RequestKind, page, limit int) ([]RequestResponse, int64, error)
	GetRequest(ctx context.Context, kind model.RequestKind, id string) (*RequestResponse, error)
	Summary(ctx context.Context) (*PendingSummary, error)
}

// resolution carries one approve/reject through the variant handler. The
// handler fills stamp with extra request columns and notice with the
// requester notification.
type resolution struct {
	request  model.PendingRequest
	reviewer uuid.UUID
	decision Decision
	at       time.Time
	stamp    map[string]interface{}
	notice   model.Notification
}

func (r *resolution) notify(kind, title, message string, taskID *uuid.UUID) {
	r.notice = model.Notification{
		UserID:        r.request.State().RequestedBy,
		Type:          kind,
		Title:         title,
		Message:       message,
		RelatedTaskID: taskID,
	}
}

// markResolved mirrors the committed terminal update onto the loaded row.
// readVersion is the version the row had when it was loaded.
func (r *resolution) markResolved(readVersion int) {
	st := r.request.State()
	if r.decision.Outcome == OutcomeApprove {
		st.Status = model.RequestApproved
	} else {
		reason := r.decision.Reason
		st.Status = model.RequestRejected
		st.RejectionReason = &reason
	}
	reviewer, at := r.reviewer, r.at
	st.ReviewedBy = &reviewer
	st.ReviewedAt = &at
	st.Version = readVersion + 1
}

// variantHandler holds the side effects specific to one request kind. Both
// hooks run inside the resolving transaction.
type variantHandler interface {
	validate(d Decision) error
	approve(ctx context.Context, r *resolution) error
	reject(ctx context.Context, r *resolution) error
}

type approvalService struct {
	repos    *repository.Repositories
	events   EventPublisher
	handlers map[model.RequestKind]variantHandler
	now      func() time.Time
}

func NewApprovalService(repos *repository.Repositories, events EventPublisher) ApprovalService {
	return &approvalService{
		repos:  repos,
		events: publisherOrNoop(events),
		handlers: map[model.RequestKind]variantHandler{
			model.KindUrgent:         &urgentHandler{repos: repos},
			model.KindDelete:         &deleteHandler{repos: repos},
			model.KindModification:   &modificationHandler{repos: repos},
			model.KindPriorityChange: &priorityChangeHandler{repos: repos},
		},
		now: time.Now,
	}
}

// --- Implementation ---

// Resolve approves or rejects one pending request. Every write (variant side
// effects, the request row, the notification and the audit entry) commits in a
// single transaction. A request that is no longer pending yields
// ErrAlreadyProcessed and nothing is written.
func (s *approvalService) Resolve(ctx context.Context, kind model.RequestKind, requestID, reviewerID string, decision Decision) (*RequestResponse, error) {
	handler, ok := s.handlers[kind]
	if !ok {
		return nil, ErrUnknownRequestKind
	}
	if err := decision.validate(); err != nil {
		return nil, err
	}
	if err := handler.validate(decision); err != nil {
		return nil, err
	}
	decision.Reason = strings.TrimSpace(decision.Reason)

	id, err := uuid.Parse(requestID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid request id", ErrInvalidInput)
	}
	reviewer, err := uuid.Parse(reviewerID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid reviewer id", ErrInvalidInput)
	}

	var res *resolution
	err = s.repos.Tx.RunInTx(ctx, func(txCtx context.Context) error {
		req, findErr := s.repos.Requests.FindByID(txCtx, kind, id)
		if errors.Is(findErr, gorm.ErrRecordNotFound) {
			return ErrRequestNotFound
		}
		if findErr != nil {
			return fmt.Errorf("failed to load request: %w", findErr)
		}
		if req.State().Status != model.RequestPending {
			return ErrAlreadyProcessed
		}

		res = &resolution{
			request:  req,
			reviewer: reviewer,
			decision: decision,
			at:       s.now(),
			stamp:    map[string]interface{}{},
		}

		fields := res.stamp
		if decision.Outcome == OutcomeApprove {
			if applyErr := handler.approve(txCtx, res); applyErr != nil {
				return applyErr
			}
			fields["status"] = model.RequestApproved
		} else {
			if applyErr := handler.reject(txCtx, res); applyErr != nil {
				return applyErr
			}
			fields["status"] = model.RequestRejected
			fields["rejection_reason"] = decision.Reason
		}
		fields["reviewed_by"] = reviewer
		fields["reviewed_at"] = res.at

		readVersion := req.State().Version
		updated, updErr := s.repos.Requests.Finalize(txCtx, req, fields)
		if updErr != nil {
			return fmt.Errorf("failed to update request: %w", updErr)
		}
		if !updated {
			return ErrAlreadyProcessed
		}
		res.markResolved(readVersion)

		if notifErr := s.repos.Notifications.Create(txCtx, &res.notice); notifErr != nil {
			return fmt.Errorf("failed to create notification: %w", notifErr)
		}

		action := model.ActionApproveRequest
		if decision.Outcome == OutcomeReject {
			action = model.ActionRejectRequest
		}
		details, marshalErr := json.Marshal(map[string]interface{}{
			"kind":    kind,
			"outcome": decision.Outcome,
			"reason":  decision.Reason,
			"task_id": req.TargetTaskID(),
		})
		if marshalErr != nil {
			return fmt.Errorf("failed to encode audit details: %w", marshalErr)
		}
		audit := model.AuditLog{
			UserID:     &reviewer,
			Action:     action,
			EntityID:   id.String(),
			EntityName: string(kind),
			Details:    string(details),
		}
		if auditErr := s.repos.Audit.Log(txCtx, &audit); auditErr != nil {
			return fmt.Errorf("failed to write audit log: %w", auditErr)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrAlreadyProcessed) {
			metrics.RecordConflict(string(kind))
		}
		return nil, err
	}

	metrics.RecordResolution(string(kind), string(decision.Outcome))
	logger.Get().WithFields(logrus.Fields{
		"kind":       kind,
		"request_id": id,
		"outcome":    decision.Outcome,
		"reviewer":   reviewer,
	}).Info("pending request resolved")

	s.events.Broadcast(EventRequestResolved, map[string]interface{}{
		"kind":    kind,
		"id":      id,
		"outcome": decision.Outcome,
	})
	s.events.SendToUser(res.notice.UserID.String(), EventNotificationCreated, res.notice)

	// The decision is committed from here on; a failed lookup only costs the
	// display names.
	result, err := s.enrich(ctx, []model.PendingRequest{res.request})
	if err != nil {
		logger.Get().WithFields(logrus.Fields{
			"kind":       kind,
			"request_id": id,
		}).WithError(err).Warn("failed to enrich resolved request")
		resp := toRequestResponse(res.request)
		return &resp, nil
	}
	return &result[0], nil
}

// loadLiveTask returns the target task, mapping a missing or soft-deleted row
// to ErrTaskNotFound.
func loadLiveTask(ctx context.Context, tasks repository.TaskRepository, id uuid.UUID) (*model.DesignTask, error) {
	task, err := tasks.FindByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTaskNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load task: %w", err)
	}
	return task, nil
}

func appendHistory(ctx context.Context, history repository.HistoryRepository, entry model.DesignTaskHistory) error {
	if err := history.Append(ctx, &entry); err != nil {
		return fmt.Errorf("failed to append task history: %w", err)
	}
	return nil
}

func rejectionMessage(what, reason string) string {
	return fmt.Sprintf("Your %s was rejected. Reason: %s", what, reason)
}
