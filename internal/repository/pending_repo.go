package repository

import (
	"context"
	"fmt"

	"teamwear/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PendingRequestRepository reads and writes the four pending_*_requests tables.
type PendingRequestRepository interface {
	Create(ctx context.Context, req model.PendingRequest) error
	FindByID(ctx context.Context, kind model.RequestKind, id uuid.UUID) (model.PendingRequest, error)
	ListPending(ctx context.Context, kind model.RequestKind, page, limit int) ([]model.PendingRequest, int64, error)
	CountPending(ctx context.Context, kind model.RequestKind) (int64, error)
	HasOpenRequestForTask(ctx context.Context, kind model.RequestKind, taskID uuid.UUID) (bool, error)
	// Finalize moves a pending row to a terminal state. It only matches the row
	// while it is still pending at the version that was read, and reports
	// false when another reviewer got there first.
	Finalize(ctx context.Context, req model.PendingRequest, fields map[string]interface{}) (bool, error)
}

type pendingRequestRepository struct {
	db *gorm.DB
}

func NewPendingRequestRepository(db *gorm.DB) PendingRequestRepository {
	return &pendingRequestRepository{db: db}
}

func (r *pendingRequestRepository) Create(ctx context.Context, req model.PendingRequest) error {
	return GetDB(ctx, r.db).Create(req).Error
}

func (r *pendingRequestRepository) FindByID(ctx context.Context, kind model.RequestKind, id uuid.UUID) (model.PendingRequest, error) {
	req, ok := model.NewPendingRequest(kind)
	if !ok {
		return nil, fmt.Errorf("unknown request kind %q", kind)
	}
	db := forUpdate(ctx, GetDB(ctx, r.db))
	if err := db.First(req, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return req, nil
}

func (r *pendingRequestRepository) ListPending(ctx context.Context, kind model.RequestKind, page, limit int) ([]model.PendingRequest, int64, error) {
	total, err := r.CountPending(ctx, kind)
	if err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	query := GetDB(ctx, r.db).
		Where("status = ?", model.RequestPending).
		Order("requested_at DESC").
		Offset(offset).
		Limit(limit)

	var rows []model.PendingRequest
	switch kind {
	case model.KindUrgent:
		rows, err = findAs[model.PendingUrgentRequest](query)
	case model.KindDelete:
		rows, err = findAs[model.PendingDeleteRequest](query)
	case model.KindModification:
		rows, err = findAs[model.PendingModificationRequest](query)
	case model.KindPriorityChange:
		rows, err = findAs[model.PendingPriorityChangeRequest](query)
	default:
		return nil, 0, fmt.Errorf("unknown request kind %q", kind)
	}
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// findAs runs query into a slice of T and exposes the rows through the
// PendingRequest interface.
func findAs[T any, P interface {
	*T
	model.PendingRequest
}](query *gorm.DB) ([]model.PendingRequest, error) {
	var found []T
	if err := query.Find(&found).Error; err != nil {
		return nil, err
	}
	out := make([]model.PendingRequest, 0, len(found))
	for i := range found {
		out = append(out, P(&found[i]))
	}
	return out, nil
}

func (r *pendingRequestRepository) CountPending(ctx context.Context, kind model.RequestKind) (int64, error) {
	req, ok := model.NewPendingRequest(kind)
	if !ok {
		return 0, fmt.Errorf("unknown request kind %q", kind)
	}
	var total int64
	err := GetDB(ctx, r.db).Model(req).Where("status = ?", model.RequestPending).Count(&total).Error
	return total, err
}

func (r *pendingRequestRepository) HasOpenRequestForTask(ctx context.Context, kind model.RequestKind, taskID uuid.UUID) (bool, error) {
	req, ok := model.NewPendingRequest(kind)
	if !ok {
		return false, fmt.Errorf("unknown request kind %q", kind)
	}
	var total int64
	err := GetDB(ctx, r.db).Model(req).
		Where("task_id = ? AND status = ?", taskID, model.RequestPending).
		Count(&total).Error
	return total > 0, err
}

func (r *pendingRequestRepository) Finalize(ctx context.Context, req model.PendingRequest, fields map[string]interface{}) (bool, error) {
	state := req.State()
	fields["version"] = state.Version + 1

	res := GetDB(ctx, r.db).Model(req).
		Where("status = ? AND version = ?", model.RequestPending, state.Version).
		Updates(fields)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
