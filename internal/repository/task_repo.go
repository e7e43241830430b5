package repository

import (
	"context"

	"teamwear/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TaskFilter narrows the design-task listing. Zero values mean "any".
type TaskFilter struct {
	Status     model.TaskStatus
	Priority   model.Priority
	AssignedTo *uuid.UUID
	CreatedBy  *uuid.UUID
}

type TaskRepository interface {
	Create(ctx context.Context, task *model.DesignTask) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.DesignTask, error)
	FindByOrderID(ctx context.Context, orderID uuid.UUID) (*model.DesignTask, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]model.DesignTask, error)
	List(ctx context.Context, filter TaskFilter, page, limit int) ([]model.DesignTask, int64, error)
	UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error
	SoftDelete(ctx context.Context, task *model.DesignTask) error
}

type taskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) TaskRepository {
	return &taskRepository{db: db}
}

func (r *taskRepository) Create(ctx context.Context, task *model.DesignTask) error {
	return GetDB(ctx, r.db).Create(task).Error
}

// FindByID returns a live task; soft-deleted rows are reported as not found.
func (r *taskRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.DesignTask, error) {
	var task model.DesignTask
	db := forUpdate(ctx, GetDB(ctx, r.db))
	if err := db.First(&task, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &task, nil
}

func (r *taskRepository) FindByOrderID(ctx context.Context, orderID uuid.UUID) (*model.DesignTask, error) {
	var task model.DesignTask
	if err := GetDB(ctx, r.db).Where("order_id = ?", orderID).Order("created_at ASC").First(&task).Error; err != nil {
		return nil, err
	}
	return &task, nil
}

func (r *taskRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]model.DesignTask, error) {
	var tasks []model.DesignTask
	if len(ids) == 0 {
		return tasks, nil
	}
	// Unscoped: a request list may still reference a task deleted by another flow.
	if err := GetDB(ctx, r.db).Unscoped().Where("id IN ?", ids).Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

func (r *taskRepository) List(ctx context.Context, filter TaskFilter, page, limit int) ([]model.DesignTask, int64, error) {
	var tasks []model.DesignTask
	var total int64

	db := GetDB(ctx, r.db)
	scope := func(q *gorm.DB) *gorm.DB {
		if filter.Status != "" {
			q = q.Where("status = ?", filter.Status)
		}
		if filter.Priority != "" {
			q = q.Where("priority = ?", filter.Priority)
		}
		if filter.AssignedTo != nil {
			q = q.Where("assigned_to = ?", *filter.AssignedTo)
		}
		if filter.CreatedBy != nil {
			q = q.Where("created_by = ?", *filter.CreatedBy)
		}
		return q
	}

	if err := db.Model(&model.DesignTask{}).Scopes(scope).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.Scopes(scope).
		Order("CASE WHEN priority = 'urgent' THEN 0 ELSE 1 END").
		Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&tasks).Error; err != nil {
		return nil, 0, err
	}

	return tasks, total, nil
}

func (r *taskRepository) UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error {
	res := GetDB(ctx, r.db).Model(&model.DesignTask{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *taskRepository) SoftDelete(ctx context.Context, task *model.DesignTask) error {
	return GetDB(ctx, r.db).Delete(task).Error
}
