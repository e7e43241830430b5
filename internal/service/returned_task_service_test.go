package service

import (
	"teamwear/internal/model"

	"github.com/google/uuid"
)

// returnedTask builds a task of creator that a designer sent back.
func (s *ServiceSuite) returnedTask(title string, creator uuid.UUID) (model.DesignTask, model.Lead, *ReturnedTaskResponse) {
	order := s.createOrder("Hawks " + title)
	lead := s.createLead(&order.ID, model.LeadStatusSentToDesigner, creator)
	task := s.createTask(title, taskOpts{orderID: &order.ID, leadID: &lead.ID, creator: &creator})

	rejection, err := s.returned.Reject(s.ctx, task.ID.String(), s.designer.ID.String(), "Logo file is blurry")
	s.Require().NoError(err)
	return task, lead, rejection
}

func (s *ServiceSuite) TestDesignerRejectFlagsLead() {
	task, lead, rejection := s.returnedTask("Hawks home", s.salesperson.ID)

	s.Equal(task.ID.String(), rejection.TaskID)
	s.Equal("Hawks home", rejection.TaskTitle)
	s.Equal("Logo file is blurry", rejection.Reason)

	var stored model.Lead
	s.Require().NoError(s.db.First(&stored, "id = ?", lead.ID).Error)
	s.Equal(model.LeadStatusRejectedByDesigner, stored.SalespersonStatus)
	s.Len(s.historyFor(task.ID, model.HistoryActionRejectedByDesigner), 1)

	_, err := s.returned.Reject(s.ctx, task.ID.String(), s.designer.ID.String(), "  ")
	s.ErrorIs(err, ErrRejectionReasonRequired)
}

func (s *ServiceSuite) TestListReturnedIsScopedToCreator() {
	s.returnedTask("Mine", s.salesperson.ID)
	s.returnedTask("Theirs", s.otherSales.ID)

	mine, err := s.returned.ListReturned(s.ctx, Viewer{ID: s.salesperson.ID.String(), Role: model.RoleSalesperson})
	s.Require().NoError(err)
	s.Require().Len(mine, 1)
	s.Equal("Mine", mine[0].TaskTitle)
	s.Equal("Dan Designer", mine[0].RejectedByName)
	s.Equal("Hawks Mine", mine[0].CustomerName)

	all, err := s.returned.ListReturned(s.ctx, Viewer{ID: s.manager.ID.String(), Role: model.RoleManager})
	s.Require().NoError(err)
	s.Len(all, 2)
}

func (s *ServiceSuite) TestListReturnedSkipsDeletedTasks() {
	task, _, _ := s.returnedTask("Deleted", s.salesperson.ID)
	s.Require().NoError(s.db.Delete(&model.DesignTask{}, "id = ?", task.ID).Error)

	items, err := s.returned.ListReturned(s.ctx, Viewer{ID: s.manager.ID.String(), Role: model.RoleAdmin})
	s.Require().NoError(err)
	s.Empty(items)
}

func (s *ServiceSuite) TestResendReturnsTaskToDesigner() {
	task, lead, rejection := s.returnedTask("Resend", s.salesperson.ID)
	viewer := Viewer{ID: s.salesperson.ID.String(), Role: model.RoleSalesperson}

	s.Require().NoError(s.returned.Resend(s.ctx, rejection.RejectionID, viewer))

	var stored model.TaskRejection
	s.Require().NoError(s.db.First(&stored, "id = ?", rejection.RejectionID).Error)
	s.True(stored.Resolved)
	s.Require().NotNil(stored.ResolvedBy)
	s.Equal(s.salesperson.ID, *stored.ResolvedBy)
	s.NotNil(stored.ResolvedAt)

	var storedLead model.Lead
	s.Require().NoError(s.db.First(&storedLead, "id = ?", lead.ID).Error)
	s.Equal(model.LeadStatusSentToDesigner, storedLead.SalespersonStatus)
	s.False(storedLead.NeedsLogo)

	s.Len(s.historyFor(task.ID, model.HistoryActionResentToDesigner), 1)
	s.Empty(s.notificationsFor(s.designer.ID))

	items, err := s.returned.ListReturned(s.ctx, viewer)
	s.Require().NoError(err)
	s.Empty(items)

	err = s.returned.Resend(s.ctx, rejection.RejectionID, viewer)
	s.ErrorIs(err, ErrAlreadyProcessed)
	s.Len(s.historyFor(task.ID, model.HistoryActionResentToDesigner), 1)
}

func (s *ServiceSuite) TestResendByAnotherSalespersonIsForbidden() {
	task, lead, rejection := s.returnedTask("Guarded", s.salesperson.ID)

	err := s.returned.Resend(s.ctx, rejection.RejectionID, Viewer{ID: s.otherSales.ID.String(), Role: model.RoleSalesperson})
	s.ErrorIs(err, ErrForbidden)

	var storedLead model.Lead
	s.Require().NoError(s.db.First(&storedLead, "id = ?", lead.ID).Error)
	s.Equal(model.LeadStatusRejectedByDesigner, storedLead.SalespersonStatus)
	s.Empty(s.historyFor(task.ID, model.HistoryActionResentToDesigner))

	// managers may resend on anyone's behalf
	s.NoError(s.returned.Resend(s.ctx, rejection.RejectionID, Viewer{ID: s.manager.ID.String(), Role: model.RoleManager}))
}

func (s *ServiceSuite) TestResendUnknownRejection() {
	err := s.returned.Resend(s.ctx, uuid.NewString(), Viewer{ID: s.manager.ID.String(), Role: model.RoleManager})
	s.ErrorIs(err, ErrRejectionNotFound)
}
