package service

import (
	"teamwear/internal/model"
)

func (s *ServiceSuite) TestCreateTaskWritesHistory() {
	resp, err := s.tasks.CreateTask(s.ctx, s.salesperson.ID.String(), CreateTaskRequest{Title: "  Away kit  "})
	s.Require().NoError(err)
	s.Equal("Away kit", resp.Title)
	s.Equal(model.TaskStatusPending, resp.Status)
	s.Equal(model.PriorityNormal, resp.Priority)

	history, err := s.tasks.History(s.ctx, resp.ID)
	s.Require().NoError(err)
	s.Require().Len(history, 1)
	s.Equal(model.HistoryActionCreated, history[0].Action)
	s.Equal("Sam Seller", history[0].UserName)

	_, err = s.tasks.CreateTask(s.ctx, s.salesperson.ID.String(), CreateTaskRequest{Title: "x", Priority: "high"})
	s.ErrorIs(err, ErrInvalidPriority)
}

func (s *ServiceSuite) TestUpdateStatusFollowsTransitionTable() {
	task := s.createTask("Board", taskOpts{})

	_, err := s.tasks.UpdateStatus(s.ctx, task.ID.String(), s.designer.ID.String(), UpdateTaskStatusRequest{Status: model.TaskStatusCompleted})
	s.ErrorIs(err, ErrInvalidTransition)

	resp, err := s.tasks.UpdateStatus(s.ctx, task.ID.String(), s.designer.ID.String(), UpdateTaskStatusRequest{
		Status: model.TaskStatusInProgress,
		Notes:  "Starting",
	})
	s.Require().NoError(err)
	s.Equal(model.TaskStatusInProgress, resp.Status)

	history := s.historyFor(task.ID, model.HistoryActionStatusChanged)
	s.Require().Len(history, 1)
	s.Equal(string(model.TaskStatusPending), history[0].OldStatus)
	s.Equal(string(model.TaskStatusInProgress), history[0].NewStatus)

	_, err = s.tasks.UpdateStatus(s.ctx, task.ID.String(), s.designer.ID.String(), UpdateTaskStatusRequest{Status: "archived"})
	s.ErrorIs(err, ErrInvalidInput)
}

func (s *ServiceSuite) TestListTasksPutsUrgentFirst() {
	s.createTask("Normal one", taskOpts{})
	s.createTask("Urgent one", taskOpts{priority: model.PriorityUrgent})
	s.createTask("Done", taskOpts{status: model.TaskStatusCompleted})

	tasks, total, err := s.tasks.ListTasks(s.ctx, TaskListFilter{})
	s.Require().NoError(err)
	s.Equal(int64(3), total)
	s.Equal("Urgent one", tasks[0].Title)

	completed, total, err := s.tasks.ListTasks(s.ctx, TaskListFilter{Status: string(model.TaskStatusCompleted)})
	s.Require().NoError(err)
	s.Equal(int64(1), total)
	s.Equal("Done", completed[0].Title)

	_, _, err = s.tasks.ListTasks(s.ctx, TaskListFilter{Priority: "high"})
	s.ErrorIs(err, ErrInvalidPriority)
}

func (s *ServiceSuite) TestHistoryOfDeletedTaskStaysReadable() {
	task := s.createTask("Archived", taskOpts{})
	req := s.submitDelete(task, "Season over")
	_, err := s.approvals.Resolve(s.ctx, model.KindDelete, req.ID.String(), s.manager.ID.String(), Decision{Outcome: OutcomeApprove})
	s.Require().NoError(err)

	history, err := s.tasks.History(s.ctx, task.ID.String())
	s.Require().NoError(err)
	s.Require().Len(history, 1)
	s.Equal(model.HistoryActionDeleted, history[0].Action)
	s.Equal("Mia Manager", history[0].UserName)
}
