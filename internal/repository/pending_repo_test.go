package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"teamwear/internal/database"
	"teamwear/internal/model"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newSQLiteDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB, PreferSimpleProtocol: true}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	return db, mock
}

func TestFinalizeRefusesStaleVersion(t *testing.T) {
	db := newSQLiteDB(t)
	repo := NewPendingRequestRepository(db)
	ctx := context.Background()

	req := &model.PendingDeleteRequest{TaskID: uuid.New(), Reason: "cleanup"}
	req.RequestedBy = uuid.New()
	require.NoError(t, repo.Create(ctx, req))

	first, err := repo.FindByID(ctx, model.KindDelete, req.ID)
	require.NoError(t, err)
	second, err := repo.FindByID(ctx, model.KindDelete, req.ID)
	require.NoError(t, err)

	reviewer := uuid.New()
	ok, err := repo.Finalize(ctx, first, map[string]interface{}{
		"status":      model.RequestApproved,
		"reviewed_by": reviewer,
		"reviewed_at": time.Now(),
	})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.Finalize(ctx, second, map[string]interface{}{
		"status":           model.RequestRejected,
		"reviewed_by":      reviewer,
		"reviewed_at":      time.Now(),
		"rejection_reason": "too late",
	})
	require.NoError(t, err)
	assert.False(t, ok)

	stored, err := repo.FindByID(ctx, model.KindDelete, req.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RequestApproved, stored.State().Status)
	assert.Equal(t, 2, stored.State().Version)
	assert.Nil(t, stored.State().RejectionReason)
}

func TestListPendingReturnsOnlyPendingNewestFirst(t *testing.T) {
	db := newSQLiteDB(t)
	repo := NewPendingRequestRepository(db)
	ctx := context.Background()
	requester := uuid.New()

	base := time.Now().Add(-time.Hour)
	var ids []uuid.UUID
	for i := 0; i < 3; i++ {
		req := &model.PendingDeleteRequest{TaskID: uuid.New(), Reason: "r"}
		req.RequestedBy = requester
		req.RequestedAt = base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, repo.Create(ctx, req))
		ids = append(ids, req.ID)
	}
	require.NoError(t, db.Model(&model.PendingDeleteRequest{}).Where("id = ?", ids[1]).Update("status", model.RequestRejected).Error)

	rows, total, err := repo.ListPending(ctx, model.KindDelete, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, rows, 2)
	assert.Equal(t, ids[2], rows[0].State().ID)
	assert.Equal(t, ids[0], rows[1].State().ID)

	open, err := repo.HasOpenRequestForTask(ctx, model.KindDelete, rows[0].(*model.PendingDeleteRequest).TaskID)
	require.NoError(t, err)
	assert.True(t, open)
}

func TestRunInTxJoinsOuterTransaction(t *testing.T) {
	db := newSQLiteDB(t)
	tm := NewTransactionManager(db)
	notifications := NewNotificationRepository(db)
	ctx := context.Background()
	user := uuid.New()

	err := tm.RunInTx(ctx, func(outer context.Context) error {
		inner := tm.RunInTx(outer, func(txCtx context.Context) error {
			return notifications.Create(txCtx, &model.Notification{UserID: user, Type: "t", Title: "t", Message: "m"})
		})
		require.NoError(t, inner)
		return errors.New("abort")
	})
	require.EqualError(t, err, "abort")

	count, err := notifications.CountUnread(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}

func TestCountPendingPropagatesStoreErrors(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPendingRequestRepository(db)

	mock.ExpectQuery(`SELECT count\(\*\) FROM "pending_delete_requests"`).
		WillReturnError(errors.New("connection reset by peer"))

	_, err := repo.CountPending(context.Background(), model.KindDelete)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset by peer")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFinalizeReportsLostRace(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPendingRequestRepository(db)

	req := &model.PendingDeleteRequest{TaskID: uuid.New(), Reason: "r"}
	req.ID = uuid.New()
	req.Status = model.RequestPending
	req.Version = 3

	mock.ExpectExec(`UPDATE "pending_delete_requests" SET .*"version"=.* WHERE \(status = .* AND version = .*\)`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := repo.Finalize(context.Background(), req, map[string]interface{}{"status": model.RequestApproved})
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}
