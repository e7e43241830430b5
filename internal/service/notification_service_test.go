package service

import (
	"teamwear/internal/model"

	"github.com/google/uuid"
)

func (s *ServiceSuite) TestNotificationsAreScopedToOwner() {
	svc := NewNotificationService(s.repos.Notifications)
	for _, title := range []string{"one", "two"} {
		s.Require().NoError(s.db.Create(&model.Notification{
			UserID:  s.salesperson.ID,
			Type:    model.NotificationDeleteApproved,
			Title:   title,
			Message: title,
		}).Error)
	}
	foreign := model.Notification{UserID: s.otherSales.ID, Type: model.NotificationDeleteRejected, Title: "x", Message: "x"}
	s.Require().NoError(s.db.Create(&foreign).Error)

	items, total, err := svc.List(s.ctx, s.salesperson.ID.String(), true, 1, 20)
	s.Require().NoError(err)
	s.Equal(int64(2), total)
	s.Len(items, 2)

	err = svc.MarkRead(s.ctx, foreign.ID.String(), s.salesperson.ID.String())
	s.ErrorIs(err, ErrNotificationNotFound)
	err = svc.MarkRead(s.ctx, uuid.NewString(), s.salesperson.ID.String())
	s.ErrorIs(err, ErrNotificationNotFound)

	s.Require().NoError(svc.MarkRead(s.ctx, items[0].ID, s.salesperson.ID.String()))
	unread, err := svc.UnreadCount(s.ctx, s.salesperson.ID.String())
	s.Require().NoError(err)
	s.Equal(int64(1), unread)

	n, err := svc.MarkAllRead(s.ctx, s.salesperson.ID.String())
	s.Require().NoError(err)
	s.Equal(int64(1), n)

	unread, err = svc.UnreadCount(s.ctx, s.otherSales.ID.String())
	s.Require().NoError(err)
	s.Equal(int64(1), unread)
}

func (s *ServiceSuite) TestAuditLogsFilterByEntity() {
	task := s.createTask("Audited", taskOpts{})
	req := s.submitDelete(task, "bye")
	_, err := s.approvals.Resolve(s.ctx, model.KindDelete, req.ID.String(), s.manager.ID.String(), Decision{Outcome: OutcomeApprove})
	s.Require().NoError(err)

	svc := NewAuditService(s.repos.Audit)
	logs, total, err := svc.GetAuditLogs(s.ctx, req.ID.String(), 1, 20)
	s.Require().NoError(err)
	s.Equal(int64(2), total)
	actions := []string{logs[0].Action, logs[1].Action}
	s.ElementsMatch([]string{model.ActionSubmitRequest, model.ActionApproveRequest}, actions)
}
