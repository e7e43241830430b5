package repository

import (
	"context"
	"time"

	"teamwear/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type RejectionRepository interface {
	Create(ctx context.Context, rejection *model.TaskRejection) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.TaskRejection, error)
	ListUnresolved(ctx context.Context, createdBy *uuid.UUID) ([]model.TaskRejection, error)
	Resolve(ctx context.Context, id, resolvedBy uuid.UUID, at time.Time) (bool, error)
}

type rejectionRepository struct {
	db *gorm.DB
}

func NewRejectionRepository(db *gorm.DB) RejectionRepository {
	return &rejectionRepository{db: db}
}

func (r *rejectionRepository) Create(ctx context.Context, rejection *model.TaskRejection) error {
	return GetDB(ctx, r.db).Create(rejection).Error
}

func (r *rejectionRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.TaskRejection, error) {
	var rejection model.TaskRejection
	db := forUpdate(ctx, GetDB(ctx, r.db))
	if err := db.First(&rejection, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &rejection, nil
}

// ListUnresolved returns open rejections of live tasks whose lead is still
// flagged rejected_by_designer. createdBy restricts them to one salesperson.
func (r *rejectionRepository) ListUnresolved(ctx context.Context, createdBy *uuid.UUID) ([]model.TaskRejection, error) {
	var rejections []model.TaskRejection

	query := GetDB(ctx, r.db).
		Joins("JOIN design_tasks ON design_tasks.id = task_rejections.task_id AND design_tasks.deleted_at IS NULL").
		Joins("JOIN leads ON leads.id = COALESCE(task_rejections.lead_id, design_tasks.lead_id)").
		Where("task_rejections.resolved = ?", false).
		Where("leads.salesperson_status = ?", model.LeadStatusRejectedByDesigner)
	if createdBy != nil {
		query = query.Where("design_tasks.created_by = ?", *createdBy)
	}

	if err := query.
		Preload("Task").
		Preload("Task.Order").
		Order("task_rejections.created_at DESC").
		Find(&rejections).Error; err != nil {
		return nil, err
	}
	return rejections, nil
}

func (r *rejectionRepository) Resolve(ctx context.Context, id, resolvedBy uuid.UUID, at time.Time) (bool, error) {
	res := GetDB(ctx, r.db).Model(&model.TaskRejection{}).
		Where("id = ? AND resolved = ?", id, false).
		Updates(map[string]interface{}{
			"resolved":    true,
			"resolved_by": resolvedBy,
			"resolved_at": at,
		})
	return res.RowsAffected == 1, res.Error
}
