package repository

import (
	"context"

	"teamwear/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UrgentReasonRepository reads the urgent-reason catalogue.
type UrgentReasonRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*model.UrgentReason, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]model.UrgentReason, error)
	ListActive(ctx context.Context) ([]model.UrgentReason, error)
}

type urgentReasonRepository struct {
	db *gorm.DB
}

func NewUrgentReasonRepository(db *gorm.DB) UrgentReasonRepository {
	return &urgentReasonRepository{db: db}
}

func (r *urgentReasonRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.UrgentReason, error) {
	var reason model.UrgentReason
	if err := GetDB(ctx, r.db).First(&reason, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &reason, nil
}

func (r *urgentReasonRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]model.UrgentReason, error) {
	var reasons []model.UrgentReason
	if len(ids) == 0 {
		return reasons, nil
	}
	if err := GetDB(ctx, r.db).Where("id IN ?", ids).Find(&reasons).Error; err != nil {
		return nil, err
	}
	return reasons, nil
}

func (r *urgentReasonRepository) ListActive(ctx context.Context) ([]model.UrgentReason, error) {
	var reasons []model.UrgentReason
	if err := GetDB(ctx, r.db).Where("active = ?", true).Order("label ASC").Find(&reasons).Error; err != nil {
		return nil, err
	}
	return reasons, nil
}
