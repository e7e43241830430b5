package service

import (
	"errors"
	"strings"

	"teamwear/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func (s *ServiceSuite) submitUrgentForJane() *model.PendingUrgentRequest {
	price := decimal.RequireFromString("12.50")
	req, err := s.requests.SubmitUrgent(s.ctx, s.salesperson.ID.String(), UrgentRequestInput{
		RequestData: model.UrgentRequestData{
			Customer: model.UrgentCustomer{Name: "Jane Doe", Email: "jane@example.com"},
			Quantity: 25,
			Model:    "Pro Jersey",
			Customization: map[string]interface{}{
				"color": "navy",
			},
			UnitPrice: &price,
		},
		RequestedPriority: model.PriorityUrgent,
		UrgentReasonText:  "Tournament on Saturday",
	})
	s.Require().NoError(err)
	return req.(*model.PendingUrgentRequest)
}

func (s *ServiceSuite) TestUrgentApprovalCreatesOrderLeadAndTask() {
	req := s.submitUrgentForJane()

	resp, err := s.approvals.Resolve(s.ctx, model.KindUrgent, req.ID.String(), s.manager.ID.String(), Decision{
		Outcome:       OutcomeApprove,
		FinalPriority: model.PriorityNormal,
	})
	s.Require().NoError(err)
	s.Equal(model.RequestApproved, resp.Status)
	s.Equal(2, resp.Version)
	s.Require().NotNil(resp.ReviewedBy)
	s.Equal(s.manager.ID.String(), *resp.ReviewedBy)
	s.Equal("Mia Manager", resp.ReviewerName)
	s.NotNil(resp.ReviewedAt)
	s.Nil(resp.RejectionReason)

	var order model.Order
	s.Require().NoError(s.db.First(&order).Error)
	s.Equal("Jane Doe", order.CustomerName)
	s.Equal(25, order.Quantity)
	s.Equal("Pro Jersey", order.Model)
	s.True(order.TotalAmount.Equal(decimal.RequireFromString("312.5")), order.TotalAmount.String())
	s.Require().NotNil(order.CustomerID)

	var lead model.Lead
	s.Require().NoError(s.db.First(&lead, "order_id = ?", order.ID).Error)
	s.True(lead.Completed)
	s.True(lead.CreatedBySalesperson)
	s.Equal(model.LeadStatusSentToDesigner, lead.SalespersonStatus)

	var task model.DesignTask
	s.Require().NoError(s.db.First(&task, "order_id = ?", order.ID).Error)
	s.Equal(model.PriorityNormal, task.Priority)
	s.Require().NotNil(task.LeadID)
	s.Equal(lead.ID, *task.LeadID)
	s.Len(s.historyFor(task.ID, model.HistoryActionUrgentApproved), 1)

	var stored model.PendingUrgentRequest
	s.Require().NoError(s.db.First(&stored, "id = ?", req.ID).Error)
	s.Require().NotNil(stored.FinalPriority)
	s.Equal(model.PriorityNormal, *stored.FinalPriority)
	s.Require().NotNil(stored.CreatedOrderID)
	s.Equal(order.ID, *stored.CreatedOrderID)
	s.Require().NotNil(stored.CreatedTaskID)
	s.Equal(task.ID, *stored.CreatedTaskID)

	notes := s.notificationsFor(s.salesperson.ID)
	s.Require().Len(notes, 1)
	s.Equal(model.NotificationUrgentApproved, notes[0].Type)
	s.Contains(notes[0].Message, "Jane Doe")
	s.Contains(notes[0].Message, "Normal")
	s.False(notes[0].Read)

	resolved := s.events.named(EventRequestResolved)
	s.Len(resolved, 1)
	direct := s.events.named(EventNotificationCreated)
	s.Require().Len(direct, 1)
	s.Equal(s.salesperson.ID.String(), direct[0].UserID)
}

func (s *ServiceSuite) TestUrgentApprovalUsesReferencedTask() {
	existing := s.createTask("Jane Doe jerseys", taskOpts{priority: model.PriorityNormal})
	taskID := existing.ID.String()
	req, err := s.requests.SubmitUrgent(s.ctx, s.salesperson.ID.String(), UrgentRequestInput{
		TaskID: &taskID,
		RequestData: model.UrgentRequestData{
			Customer: model.UrgentCustomer{Name: "Jane Doe"},
			Quantity: 5,
		},
		UrgentReasonText: "Replacement",
	})
	s.Require().NoError(err)

	_, err = s.approvals.Resolve(s.ctx, model.KindUrgent, req.State().ID.String(), s.manager.ID.String(), Decision{
		Outcome:       OutcomeApprove,
		FinalPriority: model.PriorityUrgent,
	})
	s.Require().NoError(err)

	task := s.reloadTask(existing.ID)
	s.Equal(model.PriorityUrgent, task.Priority)
	s.NotNil(task.OrderID)
	s.Equal(int64(1), s.count(&model.DesignTask{}))
}

func (s *ServiceSuite) TestUrgentApprovalKeepsLinksOfReferencedTask() {
	order := s.createOrder("Jane Doe")
	lead := s.createLead(&order.ID, model.LeadStatusSentToDesigner, s.salesperson.ID)
	existing := s.createTask("Jane Doe jerseys", taskOpts{orderID: &order.ID, leadID: &lead.ID})
	taskID := existing.ID.String()

	req, err := s.requests.SubmitUrgent(s.ctx, s.salesperson.ID.String(), UrgentRequestInput{
		TaskID: &taskID,
		RequestData: model.UrgentRequestData{
			Customer: model.UrgentCustomer{Name: "Jane Doe"},
			Quantity: 5,
		},
		UrgentReasonText: "Tournament moved up",
	})
	s.Require().NoError(err)

	resp, err := s.approvals.Resolve(s.ctx, model.KindUrgent, req.State().ID.String(), s.manager.ID.String(), Decision{
		Outcome:       OutcomeApprove,
		FinalPriority: model.PriorityUrgent,
	})
	s.Require().NoError(err)
	s.Equal(model.RequestApproved, resp.Status)

	task := s.reloadTask(existing.ID)
	s.Equal(model.PriorityUrgent, task.Priority)
	s.Require().NotNil(task.OrderID)
	s.Equal(order.ID, *task.OrderID)
	s.Require().NotNil(task.LeadID)
	s.Equal(lead.ID, *task.LeadID)
	s.Equal(int64(1), s.count(&model.Order{}))
	s.Equal(int64(1), s.count(&model.Lead{}))
	s.Len(s.historyFor(task.ID, model.HistoryActionUrgentApproved), 1)

	var stored model.PendingUrgentRequest
	s.Require().NoError(s.db.First(&stored, "id = ?", req.State().ID).Error)
	s.Nil(stored.CreatedOrderID)
	s.Require().NotNil(stored.CreatedTaskID)
	s.Equal(existing.ID, *stored.CreatedTaskID)
	s.Require().NotNil(stored.FinalPriority)
	s.Equal(model.PriorityUrgent, *stored.FinalPriority)
}

func (s *ServiceSuite) TestUrgentApprovalIgnoresUnknownCustomerID() {
	ghost := uuid.New()
	price := decimal.RequireFromString("10")
	req, err := s.requests.SubmitUrgent(s.ctx, s.salesperson.ID.String(), UrgentRequestInput{
		RequestData: model.UrgentRequestData{
			Customer:  model.UrgentCustomer{ID: ghost.String(), Name: "Jane Doe"},
			Quantity:  3,
			UnitPrice: &price,
		},
		RequestedPriority: model.PriorityNormal,
	})
	s.Require().NoError(err)

	_, err = s.approvals.Resolve(s.ctx, model.KindUrgent, req.State().ID.String(), s.manager.ID.String(), Decision{
		Outcome:       OutcomeApprove,
		FinalPriority: model.PriorityNormal,
	})
	s.Require().NoError(err)

	var customer model.Customer
	s.Require().NoError(s.db.First(&customer).Error)
	s.NotEqual(ghost, customer.ID)
	s.Equal("Jane Doe", customer.Name)

	var order model.Order
	s.Require().NoError(s.db.First(&order).Error)
	s.Require().NotNil(order.CustomerID)
	s.Equal(customer.ID, *order.CustomerID)
}

func (s *ServiceSuite) TestResolveReturnsCommittedStateWhenLookupFails() {
	task := s.createTask("Club crest", taskOpts{})
	req := s.submitDelete(task, "Duplicate")

	s.Require().NoError(s.db.Callback().Query().Before("gorm:query").Register("test:fail_users", func(tx *gorm.DB) {
		if tx.Statement.Table == "users" {
			_ = tx.AddError(errors.New("replica unavailable"))
		}
	}))

	resp, err := s.approvals.Resolve(s.ctx, model.KindDelete, req.ID.String(), s.manager.ID.String(), Decision{
		Outcome: OutcomeApprove,
	})
	s.Require().NoError(err)
	s.Equal(model.RequestApproved, resp.Status)
	s.Equal(2, resp.Version)
	s.Require().NotNil(resp.ReviewedBy)
	s.Equal(s.manager.ID.String(), *resp.ReviewedBy)
	s.NotNil(resp.ReviewedAt)
	s.Empty(resp.ReviewerName)

	var stored model.PendingDeleteRequest
	s.Require().NoError(s.db.First(&stored, "id = ?", req.ID).Error)
	s.Equal(model.RequestApproved, stored.Status)
	s.Len(s.events.named(EventRequestResolved), 1)
}

func (s *ServiceSuite) TestUrgentApprovalRequiresFinalPriority() {
	req := s.submitUrgentForJane()

	for _, p := range []model.Priority{"", "critical"} {
		_, err := s.approvals.Resolve(s.ctx, model.KindUrgent, req.ID.String(), s.manager.ID.String(), Decision{
			Outcome:       OutcomeApprove,
			FinalPriority: p,
		})
		s.ErrorIs(err, ErrInvalidPriority)
	}

	var stored model.PendingUrgentRequest
	s.Require().NoError(s.db.First(&stored, "id = ?", req.ID).Error)
	s.Equal(model.RequestPending, stored.Status)
	s.Equal(1, stored.Version)
	s.Equal(int64(0), s.count(&model.Order{}))
}

func (s *ServiceSuite) TestUrgentRejectionNotifiesWithReason() {
	req := s.submitUrgentForJane()

	resp, err := s.approvals.Resolve(s.ctx, model.KindUrgent, req.ID.String(), s.manager.ID.String(), Decision{
		Outcome: OutcomeReject,
		Reason:  "  No capacity this week  ",
	})
	s.Require().NoError(err)
	s.Equal(model.RequestRejected, resp.Status)
	s.Require().NotNil(resp.RejectionReason)
	s.Equal("No capacity this week", *resp.RejectionReason)

	s.Equal(int64(0), s.count(&model.Order{}))
	s.Equal(int64(0), s.count(&model.Lead{}))
	notes := s.notificationsFor(s.salesperson.ID)
	s.Require().Len(notes, 1)
	s.Equal(model.NotificationUrgentRejected, notes[0].Type)
	s.Contains(notes[0].Message, "No capacity this week")
}

func (s *ServiceSuite) TestDeleteApprovalSoftDeletesTask() {
	task := s.createTask("Old mockup", taskOpts{status: model.TaskStatusInProgress})
	req := s.submitDelete(task, "Customer cancelled")

	_, err := s.approvals.Resolve(s.ctx, model.KindDelete, req.ID.String(), s.manager.ID.String(), Decision{Outcome: OutcomeApprove})
	s.Require().NoError(err)

	stored := s.reloadTask(task.ID)
	s.True(stored.DeletedAt.Valid)

	_, err = s.tasks.GetTask(s.ctx, task.ID.String())
	s.ErrorIs(err, ErrTaskNotFound)
	listed, total, err := s.tasks.ListTasks(s.ctx, TaskListFilter{})
	s.Require().NoError(err)
	s.Equal(int64(0), total)
	s.Empty(listed)

	history := s.historyFor(task.ID, model.HistoryActionDeleted)
	s.Require().Len(history, 1)
	s.Equal("Customer cancelled", history[0].Notes)

	notes := s.notificationsFor(s.salesperson.ID)
	s.Require().Len(notes, 1)
	s.Equal(model.NotificationDeleteApproved, notes[0].Type)
}

func (s *ServiceSuite) TestDeleteRejectionLeavesTaskUntouched() {
	task := s.createTask("Keep me", taskOpts{status: model.TaskStatusAwaitingApproval})
	req := s.submitDelete(task, "Duplicate")

	_, err := s.approvals.Resolve(s.ctx, model.KindDelete, req.ID.String(), s.manager.ID.String(), Decision{
		Outcome: OutcomeReject,
		Reason:  "Task is still needed",
	})
	s.Require().NoError(err)

	stored := s.reloadTask(task.ID)
	s.False(stored.DeletedAt.Valid)
	s.Equal(model.TaskStatusAwaitingApproval, stored.Status)
	s.Empty(s.historyFor(task.ID, model.HistoryActionDeleted))

	notes := s.notificationsFor(s.salesperson.ID)
	s.Require().Len(notes, 1)
	s.Equal(model.NotificationDeleteRejected, notes[0].Type)
	s.Contains(notes[0].Message, "Task is still needed")
}

func (s *ServiceSuite) TestDeleteApprovalOfVanishedTaskCommitsNothing() {
	task := s.createTask("Gone", taskOpts{})
	req := s.submitDelete(task, "Obsolete")
	s.Require().NoError(s.db.Delete(&model.DesignTask{}, "id = ?", task.ID).Error)

	_, err := s.approvals.Resolve(s.ctx, model.KindDelete, req.ID.String(), s.manager.ID.String(), Decision{Outcome: OutcomeApprove})
	s.ErrorIs(err, ErrTaskNotFound)

	var stored model.PendingDeleteRequest
	s.Require().NoError(s.db.First(&stored, "id = ?", req.ID).Error)
	s.Equal(model.RequestPending, stored.Status)
	s.Empty(s.notificationsFor(s.salesperson.ID))
}

func (s *ServiceSuite) TestModificationApprovalReopensFromAnyStatus() {
	for _, status := range []model.TaskStatus{model.TaskStatusCompleted, model.TaskStatusPending, model.TaskStatusApproved} {
		task := s.createTask("Logo placement "+string(status), taskOpts{status: status})
		req, err := s.requests.SubmitModification(s.ctx, s.salesperson.ID.String(), ModificationRequestInput{
			TaskID:      task.ID.String(),
			Description: "Move the logo to the left sleeve",
			Attachments: []model.Attachment{{Name: "sketch.png", URL: "https://files.example.com/sketch.png"}},
		})
		s.Require().NoError(err)

		_, err = s.approvals.Resolve(s.ctx, model.KindModification, req.State().ID.String(), s.manager.ID.String(), Decision{Outcome: OutcomeApprove})
		s.Require().NoError(err)

		s.Equal(model.TaskStatusChangesRequested, s.reloadTask(task.ID).Status)
		history := s.historyFor(task.ID, model.HistoryActionModificationApproved)
		s.Require().Len(history, 1)
		s.Equal(string(status), history[0].OldStatus)
		s.Equal("Move the logo to the left sleeve", history[0].Notes)
	}
}

func (s *ServiceSuite) TestPriorityChangeApprovalRecordsBothLabels() {
	task := s.createTask("Club kit", taskOpts{priority: model.PriorityNormal})
	req, err := s.requests.SubmitPriorityChange(s.ctx, s.salesperson.ID.String(), PriorityChangeInput{
		TaskID:            task.ID.String(),
		RequestedPriority: model.PriorityUrgent,
		UrgentReasonText:  "Match moved forward",
	})
	s.Require().NoError(err)
	s.Equal(model.PriorityNormal, req.(*model.PendingPriorityChangeRequest).CurrentPriority)

	_, err = s.approvals.Resolve(s.ctx, model.KindPriorityChange, req.State().ID.String(), s.manager.ID.String(), Decision{Outcome: OutcomeApprove})
	s.Require().NoError(err)

	s.Equal(model.PriorityUrgent, s.reloadTask(task.ID).Priority)
	history := s.historyFor(task.ID, model.HistoryActionPriorityChanged)
	s.Require().Len(history, 1)
	s.Contains(history[0].Notes, "Normal")
	s.Contains(history[0].Notes, "Urgent")

	notes := s.notificationsFor(s.salesperson.ID)
	s.Require().Len(notes, 1)
	s.Equal(model.NotificationPriorityChangeApproved, notes[0].Type)
	s.Contains(notes[0].Message, "Normal")
	s.Contains(notes[0].Message, "Urgent")
}

func (s *ServiceSuite) TestResolveTwiceReturnsAlreadyProcessed() {
	task := s.createTask("Twice", taskOpts{})
	req := s.submitDelete(task, "Not needed")

	_, err := s.approvals.Resolve(s.ctx, model.KindDelete, req.ID.String(), s.manager.ID.String(), Decision{Outcome: OutcomeApprove})
	s.Require().NoError(err)

	_, err = s.approvals.Resolve(s.ctx, model.KindDelete, req.ID.String(), s.manager.ID.String(), Decision{Outcome: OutcomeApprove})
	s.ErrorIs(err, ErrAlreadyProcessed)
	_, err = s.approvals.Resolve(s.ctx, model.KindDelete, req.ID.String(), s.manager.ID.String(), Decision{Outcome: OutcomeReject, Reason: "late"})
	s.ErrorIs(err, ErrAlreadyProcessed)

	s.Len(s.historyFor(task.ID, model.HistoryActionDeleted), 1)
	s.Len(s.notificationsFor(s.salesperson.ID), 1)

	var stored model.PendingDeleteRequest
	s.Require().NoError(s.db.First(&stored, "id = ?", req.ID).Error)
	s.Equal(model.RequestApproved, stored.Status)
	s.Nil(stored.RejectionReason)
}

func (s *ServiceSuite) TestRejectRequiresReasonBeforeTouchingStore() {
	task := s.createTask("Reasonless", taskOpts{})
	req := s.submitDelete(task, "Cleanup")

	_, err := s.approvals.Resolve(s.ctx, model.KindDelete, req.ID.String(), s.manager.ID.String(), Decision{Outcome: OutcomeReject, Reason: "   "})
	s.ErrorIs(err, ErrRejectionReasonRequired)

	_, err = s.approvals.Resolve(s.ctx, model.KindDelete, req.ID.String(), s.manager.ID.String(), Decision{Outcome: "maybe"})
	s.ErrorIs(err, ErrInvalidOutcome)

	var stored model.PendingDeleteRequest
	s.Require().NoError(s.db.First(&stored, "id = ?", req.ID).Error)
	s.Equal(model.RequestPending, stored.Status)
	s.Nil(stored.ReviewedBy)
	s.Nil(stored.ReviewedAt)
}

func (s *ServiceSuite) TestResolveUnknownRequest() {
	_, err := s.approvals.Resolve(s.ctx, model.KindDelete, s.manager.ID.String(), s.manager.ID.String(), Decision{Outcome: OutcomeApprove})
	s.ErrorIs(err, ErrRequestNotFound)

	_, err = s.approvals.Resolve(s.ctx, model.RequestKind("refund"), s.manager.ID.String(), s.manager.ID.String(), Decision{Outcome: OutcomeApprove})
	s.ErrorIs(err, ErrUnknownRequestKind)

	_, err = s.approvals.Resolve(s.ctx, model.KindDelete, "not-a-uuid", s.manager.ID.String(), Decision{Outcome: OutcomeApprove})
	s.ErrorIs(err, ErrInvalidInput)
}

func (s *ServiceSuite) TestUrgentApprovalRollsBackWhenAnyWriteFails() {
	req := s.submitUrgentForJane()

	s.Require().NoError(s.db.Callback().Create().Before("gorm:create").Register("test:fail_leads", func(tx *gorm.DB) {
		if tx.Statement.Table == "leads" {
			_ = tx.AddError(errors.New("lead insert failed"))
		}
	}))

	_, err := s.approvals.Resolve(s.ctx, model.KindUrgent, req.ID.String(), s.manager.ID.String(), Decision{
		Outcome:       OutcomeApprove,
		FinalPriority: model.PriorityUrgent,
	})
	s.Require().Error(err)
	s.Contains(err.Error(), "lead insert failed")

	var stored model.PendingUrgentRequest
	s.Require().NoError(s.db.First(&stored, "id = ?", req.ID).Error)
	s.Equal(model.RequestPending, stored.Status)
	s.Equal(1, stored.Version)
	s.Nil(stored.CreatedOrderID)

	s.Equal(int64(0), s.count(&model.Order{}))
	s.Equal(int64(0), s.count(&model.Customer{}))
	s.Equal(int64(0), s.count(&model.DesignTask{}))
	s.Empty(s.notificationsFor(s.salesperson.ID))

	var approvals int64
	s.Require().NoError(s.db.Model(&model.AuditLog{}).Where("action = ?", model.ActionApproveRequest).Count(&approvals).Error)
	s.Equal(int64(0), approvals)
	s.Empty(s.events.named(EventRequestResolved))
}

func (s *ServiceSuite) TestListPendingEnrichesRows() {
	order := s.createOrder("Acme FC")
	task := s.createTask("Acme home kit", taskOpts{orderID: &order.ID})
	other := s.createTask("Acme away kit", taskOpts{orderID: &order.ID})
	pending := s.submitDelete(task, "Wrong size chart")
	done := s.submitDelete(other, "Merged")

	_, err := s.approvals.Resolve(s.ctx, model.KindDelete, done.ID.String(), s.manager.ID.String(), Decision{Outcome: OutcomeApprove})
	s.Require().NoError(err)

	items, total, err := s.approvals.ListPending(s.ctx, model.KindDelete, 1, 20)
	s.Require().NoError(err)
	s.Equal(int64(1), total)
	s.Require().Len(items, 1)
	s.Equal(pending.ID.String(), items[0].ID)
	s.Equal(model.RequestPending, items[0].Status)
	s.Equal("Sam Seller", items[0].RequesterName)
	s.Equal("Acme FC", items[0].CustomerName)
	s.Equal("Acme home kit", items[0].TaskTitle)
	s.Nil(items[0].ReviewedBy)
}

func (s *ServiceSuite) TestListPendingShowsUrgentReasonLabel() {
	reason := s.createUrgentReason("VIP customer", true)
	reasonID := reason.ID.String()
	_, err := s.requests.SubmitUrgent(s.ctx, s.salesperson.ID.String(), UrgentRequestInput{
		RequestData: model.UrgentRequestData{
			Customer: model.UrgentCustomer{Name: "Rita Runner"},
			Quantity: 3,
		},
		UrgentReasonID: &reasonID,
	})
	s.Require().NoError(err)

	items, _, err := s.approvals.ListPending(s.ctx, model.KindUrgent, 1, 20)
	s.Require().NoError(err)
	s.Require().Len(items, 1)
	s.Equal("VIP customer", items[0].UrgentReason)
	s.Equal("Rita Runner", items[0].CustomerName)
	s.Nil(items[0].TaskID)
}

func (s *ServiceSuite) TestSummaryCountsPendingPerKind() {
	a := s.createTask("A", taskOpts{})
	b := s.createTask("B", taskOpts{})
	s.submitDelete(a, "x")
	s.submitDelete(b, "y")
	_, err := s.requests.SubmitModification(s.ctx, s.salesperson.ID.String(), ModificationRequestInput{
		TaskID:      a.ID.String(),
		Description: "Bigger numbers",
	})
	s.Require().NoError(err)

	summary, err := s.approvals.Summary(s.ctx)
	s.Require().NoError(err)
	s.Equal(int64(2), summary.Counts[model.KindDelete])
	s.Equal(int64(1), summary.Counts[model.KindModification])
	s.Equal(int64(0), summary.Counts[model.KindUrgent])
	s.Equal(int64(3), summary.Total)
}

func (s *ServiceSuite) TestGetRequestReturnsResolvedRows() {
	task := s.createTask("History", taskOpts{})
	req := s.submitDelete(task, "Done")
	_, err := s.approvals.Resolve(s.ctx, model.KindDelete, req.ID.String(), s.manager.ID.String(), Decision{
		Outcome: OutcomeReject,
		Reason:  "Keep for records",
	})
	s.Require().NoError(err)

	got, err := s.approvals.GetRequest(s.ctx, model.KindDelete, req.ID.String())
	s.Require().NoError(err)
	s.Equal(model.RequestRejected, got.Status)
	s.Require().NotNil(got.RejectionReason)
	s.True(strings.HasPrefix(*got.RejectionReason, "Keep"))

	_, err = s.approvals.GetRequest(s.ctx, model.KindUrgent, req.ID.String())
	s.ErrorIs(err, ErrRequestNotFound)
}
