package repository

import (
	"context"
	"errors"

	"teamwear/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type OrderRepository interface {
	Create(ctx context.Context, order *model.Order) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Order, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Order, error)
	FindOrCreateCustomer(ctx context.Context, customer *model.Customer) error
}

type orderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepository{db: db}
}

func (r *orderRepository) Create(ctx context.Context, order *model.Order) error {
	return GetDB(ctx, r.db).Create(order).Error
}

func (r *orderRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	var order model.Order
	if err := GetDB(ctx, r.db).Preload("Customer").First(&order, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Order, error) {
	var orders []model.Order
	if len(ids) == 0 {
		return orders, nil
	}
	if err := GetDB(ctx, r.db).Where("id IN ?", ids).Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

// FindOrCreateCustomer resolves the customer by id when one is given, then by
// email, and inserts it otherwise. An id that matches no row is dropped so the
// new customer gets a fresh one. The argument is filled with the stored row.
func (r *orderRepository) FindOrCreateCustomer(ctx context.Context, customer *model.Customer) error {
	db := GetDB(ctx, r.db)
	if customer.ID != uuid.Nil {
		var existing model.Customer
		err := db.First(&existing, "id = ?", customer.ID).Error
		if err == nil {
			*customer = existing
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		customer.ID = uuid.Nil
	}
	if customer.Email != "" {
		var existing model.Customer
		err := db.Where("email = ?", customer.Email).First(&existing).Error
		if err == nil {
			*customer = existing
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
	}
	return db.Create(customer).Error
}
