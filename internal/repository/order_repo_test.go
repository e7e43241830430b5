package repository

import (
	"context"
	"testing"

	"teamwear/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindOrCreateCustomer(t *testing.T) {
	db := newSQLiteDB(t)
	repo := NewOrderRepository(db)
	ctx := context.Background()

	ghost := uuid.New()
	created := model.Customer{ID: ghost, Name: "Jane Doe", Email: "jane@example.com"}
	require.NoError(t, repo.FindOrCreateCustomer(ctx, &created))
	assert.NotEqual(t, uuid.Nil, created.ID)
	assert.NotEqual(t, ghost, created.ID)

	byID := model.Customer{ID: created.ID, Name: "ignored"}
	require.NoError(t, repo.FindOrCreateCustomer(ctx, &byID))
	assert.Equal(t, created.ID, byID.ID)
	assert.Equal(t, "Jane Doe", byID.Name)

	byEmail := model.Customer{ID: uuid.New(), Name: "Jane D.", Email: "jane@example.com"}
	require.NoError(t, repo.FindOrCreateCustomer(ctx, &byEmail))
	assert.Equal(t, created.ID, byEmail.ID)

	var count int64
	require.NoError(t, db.Model(&model.Customer{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}
