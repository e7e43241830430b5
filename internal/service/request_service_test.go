package service

import (
	"teamwear/internal/model"
)

func (s *ServiceSuite) TestSubmitDeleteStoresPendingRow() {
	task := s.createTask("Spring kit", taskOpts{})

	req := s.submitDelete(task, "  Customer went elsewhere ")
	s.Equal(model.RequestPending, req.Status)
	s.Equal(1, req.Version)
	s.Equal(s.salesperson.ID, req.RequestedBy)
	s.Equal("Customer went elsewhere", req.Reason)
	s.False(req.RequestedAt.IsZero())

	var audits []model.AuditLog
	s.Require().NoError(s.db.Where("entity_id = ?", req.ID.String()).Find(&audits).Error)
	s.Require().Len(audits, 1)
	s.Equal(model.ActionSubmitRequest, audits[0].Action)

	created := s.events.named(EventRequestCreated)
	s.Len(created, 1)
}

func (s *ServiceSuite) TestSubmitRejectsSecondOpenRequestForTask() {
	task := s.createTask("Dup", taskOpts{})
	s.submitDelete(task, "first")

	_, err := s.requests.SubmitDelete(s.ctx, s.salesperson.ID.String(), DeleteRequestInput{
		TaskID: task.ID.String(),
		Reason: "second",
	})
	s.ErrorIs(err, ErrDuplicatePending)

	// a different kind on the same task is fine
	_, err = s.requests.SubmitModification(s.ctx, s.salesperson.ID.String(), ModificationRequestInput{
		TaskID:      task.ID.String(),
		Description: "Change font",
	})
	s.NoError(err)
}

func (s *ServiceSuite) TestSubmitAllowsNewRequestAfterResolution() {
	task := s.createTask("Again", taskOpts{})
	first := s.submitDelete(task, "first")
	_, err := s.approvals.Resolve(s.ctx, model.KindDelete, first.ID.String(), s.manager.ID.String(), Decision{
		Outcome: OutcomeReject,
		Reason:  "no",
	})
	s.Require().NoError(err)

	_, err = s.requests.SubmitDelete(s.ctx, s.salesperson.ID.String(), DeleteRequestInput{
		TaskID: task.ID.String(),
		Reason: "please",
	})
	s.NoError(err)
}

func (s *ServiceSuite) TestSubmitAgainstDeletedTask() {
	task := s.createTask("Removed", taskOpts{})
	s.Require().NoError(s.db.Delete(&task).Error)

	_, err := s.requests.SubmitModification(s.ctx, s.salesperson.ID.String(), ModificationRequestInput{
		TaskID:      task.ID.String(),
		Description: "Anything",
	})
	s.ErrorIs(err, ErrTaskNotFound)
	s.Equal(int64(0), s.count(&model.PendingModificationRequest{}))
}

func (s *ServiceSuite) TestSubmitPriorityChangeValidation() {
	task := s.createTask("Prio", taskOpts{priority: model.PriorityUrgent})

	_, err := s.requests.SubmitPriorityChange(s.ctx, s.salesperson.ID.String(), PriorityChangeInput{
		TaskID:            task.ID.String(),
		RequestedPriority: model.PriorityUrgent,
		UrgentReasonText:  "still urgent",
	})
	s.ErrorIs(err, ErrPriorityUnchanged)

	_, err = s.requests.SubmitPriorityChange(s.ctx, s.salesperson.ID.String(), PriorityChangeInput{
		TaskID:            task.ID.String(),
		RequestedPriority: "asap",
	})
	s.ErrorIs(err, ErrInvalidPriority)

	// lowering the priority needs no justification
	req, err := s.requests.SubmitPriorityChange(s.ctx, s.salesperson.ID.String(), PriorityChangeInput{
		TaskID:            task.ID.String(),
		RequestedPriority: model.PriorityNormal,
	})
	s.Require().NoError(err)
	s.Equal(model.PriorityUrgent, req.(*model.PendingPriorityChangeRequest).CurrentPriority)
}

func (s *ServiceSuite) TestSubmitUrgentReasonRules() {
	data := model.UrgentRequestData{
		Customer: model.UrgentCustomer{Name: "Leo"},
		Quantity: 12,
	}

	_, err := s.requests.SubmitUrgent(s.ctx, s.salesperson.ID.String(), UrgentRequestInput{RequestData: data})
	s.ErrorIs(err, ErrUrgentReasonRequired)

	inactive := s.createUrgentReason("Retired reason", false)
	inactiveID := inactive.ID.String()
	_, err = s.requests.SubmitUrgent(s.ctx, s.salesperson.ID.String(), UrgentRequestInput{
		RequestData:    data,
		UrgentReasonID: &inactiveID,
	})
	s.ErrorIs(err, ErrUrgentReasonNotFound)

	active := s.createUrgentReason("Event date moved forward", true)
	activeID := active.ID.String()
	req, err := s.requests.SubmitUrgent(s.ctx, s.salesperson.ID.String(), UrgentRequestInput{
		RequestData:    data,
		UrgentReasonID: &activeID,
	})
	s.Require().NoError(err)
	urgent := req.(*model.PendingUrgentRequest)
	s.Require().NotNil(urgent.UrgentReasonID)
	s.Equal(active.ID, *urgent.UrgentReasonID)
	s.Equal(model.PriorityUrgent, urgent.RequestedPriority)

	reasons, err := s.requests.ListUrgentReasons(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(reasons, 1)
	s.Equal("Event date moved forward", reasons[0].Label)
}

func (s *ServiceSuite) TestSubmitUrgentValidatesRequestData() {
	cases := []model.UrgentRequestData{
		{Customer: model.UrgentCustomer{Name: "Zero"}, Quantity: 0},
		{Customer: model.UrgentCustomer{Name: "   "}, Quantity: 4},
	}
	for _, data := range cases {
		_, err := s.requests.SubmitUrgent(s.ctx, s.salesperson.ID.String(), UrgentRequestInput{
			RequestData:      data,
			UrgentReasonText: "rush",
		})
		s.ErrorIs(err, ErrInvalidRequestData)
	}
	s.Equal(int64(0), s.count(&model.PendingUrgentRequest{}))
}

func (s *ServiceSuite) TestSubmitModificationAttachments() {
	task := s.createTask("Files", taskOpts{})

	_, err := s.requests.SubmitModification(s.ctx, s.salesperson.ID.String(), ModificationRequestInput{
		TaskID:      task.ID.String(),
		Description: "See file",
		Attachments: []model.Attachment{{Name: "a.pdf"}},
	})
	s.ErrorIs(err, ErrInvalidInput)

	req, err := s.requests.SubmitModification(s.ctx, s.salesperson.ID.String(), ModificationRequestInput{
		TaskID:      task.ID.String(),
		Description: "See file",
		Attachments: []model.Attachment{{URL: "https://files.example.com/brief.pdf"}},
	})
	s.Require().NoError(err)

	var stored model.PendingModificationRequest
	s.Require().NoError(s.db.First(&stored, "id = ?", req.State().ID).Error)
	s.Require().Len(stored.Attachments, 1)
	s.Equal("attachment-1", stored.Attachments[0].Name)
	s.Equal("https://files.example.com/brief.pdf", stored.Attachments[0].URL)
}
