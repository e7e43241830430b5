package repository

import (
	"context"

	"teamwear/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// HistoryRepository only appends; design_task_history rows are never updated or deleted.
type HistoryRepository interface {
	Append(ctx context.Context, entry *model.DesignTaskHistory) error
	ListByTask(ctx context.Context, taskID uuid.UUID) ([]model.DesignTaskHistory, error)
}

type historyRepository struct {
	db *gorm.DB
}

func NewHistoryRepository(db *gorm.DB) HistoryRepository {
	return &historyRepository{db: db}
}

func (r *historyRepository) Append(ctx context.Context, entry *model.DesignTaskHistory) error {
	return GetDB(ctx, r.db).Create(entry).Error
}

func (r *historyRepository) ListByTask(ctx context.Context, taskID uuid.UUID) ([]model.DesignTaskHistory, error) {
	var entries []model.DesignTaskHistory
	if err := GetDB(ctx, r.db).Where("task_id = ?", taskID).Order("created_at ASC").Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}
