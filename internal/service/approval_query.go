package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"teamwear/internal/metrics"
	"teamwear/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

func (s *approvalService) ListPending(ctx context.Context, kind model.RequestKind, page, limit int) ([]RequestResponse, int64, error) {
	if !kind.Valid() {
		return nil, 0, ErrUnknownRequestKind
	}
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}

	rows, total, err := s.repos.Requests.ListPending(ctx, kind, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch %s requests: %w", kind, err)
	}

	result, err := s.enrich(ctx, rows)
	if err != nil {
		return nil, 0, err
	}
	return result, total, nil
}

func (s *approvalService) GetRequest(ctx context.Context, kind model.RequestKind, id string) (*RequestResponse, error) {
	if !kind.Valid() {
		return nil, ErrUnknownRequestKind
	}
	requestID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid request id", ErrInvalidInput)
	}

	req, err := s.repos.Requests.FindByID(ctx, kind, requestID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRequestNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load request: %w", err)
	}

	result, err := s.enrich(ctx, []model.PendingRequest{req})
	if err != nil {
		return nil, err
	}
	return &result[0], nil
}

func (s *approvalService) Summary(ctx context.Context) (*PendingSummary, error) {
	summary := &PendingSummary{Counts: make(map[model.RequestKind]int64, len(model.RequestKinds))}
	for _, kind := range model.RequestKinds {
		count, err := s.repos.Requests.CountPending(ctx, kind)
		if err != nil {
			return nil, fmt.Errorf("failed to count %s requests: %w", kind, err)
		}
		summary.Counts[kind] = count
		summary.Total += count
		metrics.SetPending(string(kind), count)
	}
	return summary, nil
}

// enrich attaches display data to rows with one IN query per related table,
// whatever the number of rows.
func (s *approvalService) enrich(ctx context.Context, rows []model.PendingRequest) ([]RequestResponse, error) {
	userIDs := newIDSet()
	taskIDs := newIDSet()
	reasonIDs := newIDSet()
	for _, row := range rows {
		st := row.State()
		userIDs.add(&st.RequestedBy)
		userIDs.add(st.ReviewedBy)
		taskIDs.add(row.TargetTaskID())
		reasonIDs.add(urgentReasonID(row))
	}

	users, err := s.repos.Users.FindByIDs(ctx, userIDs.list())
	if err != nil {
		return nil, fmt.Errorf("failed to load requesters: %w", err)
	}
	names := make(map[uuid.UUID]string, len(users))
	for _, u := range users {
		names[u.ID] = u.DisplayName()
	}

	tasks, err := s.repos.Tasks.FindByIDs(ctx, taskIDs.list())
	if err != nil {
		return nil, fmt.Errorf("failed to load tasks: %w", err)
	}
	taskByID := make(map[uuid.UUID]model.DesignTask, len(tasks))
	orderIDs := newIDSet()
	for _, t := range tasks {
		taskByID[t.ID] = t
		orderIDs.add(t.OrderID)
	}

	orders, err := s.repos.Orders.FindByIDs(ctx, orderIDs.list())
	if err != nil {
		return nil, fmt.Errorf("failed to load orders: %w", err)
	}
	customerByOrder := make(map[uuid.UUID]string, len(orders))
	for _, o := range orders {
		customerByOrder[o.ID] = o.CustomerName
	}

	reasons, err := s.repos.UrgentReasons.FindByIDs(ctx, reasonIDs.list())
	if err != nil {
		return nil, fmt.Errorf("failed to load urgent reasons: %w", err)
	}
	reasonLabels := make(map[uuid.UUID]string, len(reasons))
	for _, r := range reasons {
		reasonLabels[r.ID] = r.Label
	}

	result := make([]RequestResponse, 0, len(rows))
	for _, row := range rows {
		st := row.State()
		resp := toRequestResponse(row)
		resp.RequesterName = names[st.RequestedBy]
		if st.ReviewedBy != nil {
			resp.ReviewerName = names[*st.ReviewedBy]
		}
		if taskID := row.TargetTaskID(); taskID != nil {
			if t, ok := taskByID[*taskID]; ok {
				resp.TaskTitle = t.Title
				if t.OrderID != nil {
					resp.CustomerName = customerByOrder[*t.OrderID]
				}
			}
		}

		switch r := row.(type) {
		case *model.PendingUrgentRequest:
			if resp.CustomerName == "" {
				resp.CustomerName = r.RequestData.Data().Customer.Name
			}
			resp.UrgentReason = reasonLabel(reasonLabels, r.UrgentReasonID, r.UrgentReasonText)
		case *model.PendingPriorityChangeRequest:
			resp.UrgentReason = reasonLabel(reasonLabels, r.UrgentReasonID, r.UrgentReasonText)
		}

		result = append(result, resp)
	}
	return result, nil
}

// toRequestResponse maps the row itself, without any display lookups.
func toRequestResponse(row model.PendingRequest) RequestResponse {
	st := row.State()
	resp := RequestResponse{
		ID:              st.ID.String(),
		Kind:            row.Kind(),
		Status:          st.Status,
		Version:         st.Version,
		RequestedBy:     st.RequestedBy.String(),
		RequestedAt:     st.RequestedAt.Format(time.RFC3339),
		RejectionReason: st.RejectionReason,
		Details:         row,
	}
	if st.ReviewedBy != nil {
		id := st.ReviewedBy.String()
		resp.ReviewedBy = &id
	}
	if st.ReviewedAt != nil {
		at := st.ReviewedAt.Format(time.RFC3339)
		resp.ReviewedAt = &at
	}
	if taskID := row.TargetTaskID(); taskID != nil {
		id := taskID.String()
		resp.TaskID = &id
	}
	return resp
}

func urgentReasonID(row model.PendingRequest) *uuid.UUID {
	switch r := row.(type) {
	case *model.PendingUrgentRequest:
		return r.UrgentReasonID
	case *model.PendingPriorityChangeRequest:
		return r.UrgentReasonID
	}
	return nil
}

func reasonLabel(labels map[uuid.UUID]string, id *uuid.UUID, text string) string {
	if id != nil {
		if label, ok := labels[*id]; ok {
			if text != "" {
				return label + ": " + text
			}
			return label
		}
	}
	return text
}

// idSet collects distinct non-nil ids for an IN lookup.
type idSet struct {
	seen map[uuid.UUID]struct{}
	ids  []uuid.UUID
}

func newIDSet() *idSet {
	return &idSet{seen: map[uuid.UUID]struct{}{}}
}

func (s *idSet) add(id *uuid.UUID) {
	if id == nil || *id == uuid.Nil {
		return
	}
	if _, ok := s.seen[*id]; ok {
		return
	}
	s.seen[*id] = struct{}{}
	s.ids = append(s.ids, *id)
}

func (s *idSet) list() []uuid.UUID {
	return s.ids
}
