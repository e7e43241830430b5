package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"teamwear/internal/model"
	"teamwear/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// --- Urgent ---

type urgentHandler struct {
	repos *repository.Repositories
}

func (h *urgentHandler) validate(d Decision) error {
	if d.Outcome == OutcomeApprove && !d.FinalPriority.Valid() {
		return ErrInvalidPriority
	}
	return nil
}

// approve materializes the order snapshot: customer, order, lead and the
// design task that carries the final priority.
func (h *urgentHandler) approve(ctx context.Context, r *resolution) error {
	req := r.request.(*model.PendingUrgentRequest)
	data := req.RequestData.Data()
	if err := ValidateUrgentRequestData(data); err != nil {
		return err
	}
	final := r.decision.FinalPriority
	requester := req.RequestedBy

	if req.TaskID != nil {
		task, err := loadLiveTask(ctx, h.repos.Tasks, *req.TaskID)
		if err != nil {
			return err
		}
		if task.OrderID != nil || task.LeadID != nil {
			return h.reprioritize(ctx, r, task, data.Customer.Name)
		}
	}

	customer := model.Customer{
		Name:  strings.TrimSpace(data.Customer.Name),
		Email: data.Customer.Email,
		Phone: data.Customer.Phone,
	}
	if data.Customer.ID != "" {
		if parsed, err := uuid.Parse(data.Customer.ID); err == nil {
			customer.ID = parsed
		}
	}
	// FindOrCreateCustomer drops an id that matches no row.
	if err := h.repos.Orders.FindOrCreateCustomer(ctx, &customer); err != nil {
		return fmt.Errorf("failed to resolve customer: %w", err)
	}

	var customization datatypes.JSON
	if len(data.Customization) > 0 {
		raw, err := json.Marshal(data.Customization)
		if err != nil {
			return fmt.Errorf("%w: customization: %v", ErrInvalidRequestData, err)
		}
		customization = raw
	}

	order := model.Order{
		OrderCode:     newOrderCode(r.at),
		CustomerID:    &customer.ID,
		CustomerName:  data.Customer.Name,
		CustomerEmail: data.Customer.Email,
		CustomerPhone: data.Customer.Phone,
		Quantity:      data.Quantity,
		Model:         data.Model,
		Customization: customization,
		UnitPrice:     decimal.Zero,
		TotalAmount:   decimal.Zero,
		CreatedBy:     &requester,
	}
	if data.UnitPrice != nil {
		order.UnitPrice = *data.UnitPrice
		order.TotalAmount = data.UnitPrice.Mul(decimal.NewFromInt(int64(data.Quantity)))
	}
	if err := h.repos.Orders.Create(ctx, &order); err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}

	lead := model.Lead{
		OrderID:              &order.ID,
		CustomerName:         data.Customer.Name,
		Completed:            true,
		CreatedBySalesperson: true,
		SalespersonStatus:    model.LeadStatusSentToDesigner,
		CreatedBy:            &requester,
	}
	if err := h.repos.Leads.Create(ctx, &lead); err != nil {
		return fmt.Errorf("failed to create lead: %w", err)
	}

	task, err := h.taskFor(ctx, req, &order, &lead, final)
	if err != nil {
		return err
	}

	if err := h.repos.Tasks.UpdateFields(ctx, task.ID, map[string]interface{}{
		"priority": final,
		"order_id": order.ID,
		"lead_id":  lead.ID,
	}); err != nil {
		return fmt.Errorf("failed to set task priority: %w", err)
	}
	if err := appendHistory(ctx, h.repos.History, model.DesignTaskHistory{
		TaskID: task.ID,
		UserID: &r.reviewer,
		Action: model.HistoryActionUrgentApproved,
		Notes:  fmt.Sprintf("Urgent request approved with %s priority", final.Label()),
	}); err != nil {
		return err
	}

	orderID, taskID := order.ID, task.ID
	req.FinalPriority = &final
	req.CreatedOrderID = &orderID
	req.CreatedTaskID = &taskID
	r.stamp["final_priority"] = final
	r.stamp["created_order_id"] = orderID
	r.stamp["created_task_id"] = taskID
	r.notify(model.NotificationUrgentApproved,
		"Urgent request approved",
		fmt.Sprintf("Your urgent request for %s was approved with %s priority. Order %s has been created.",
			data.Customer.Name, final.Label(), order.OrderCode),
		&task.ID)
	return nil
}

// reprioritize handles an urgent request for a task that already belongs to
// an order or lead. Those links stay as they are and no order is created.
func (h *urgentHandler) reprioritize(ctx context.Context, r *resolution, task *model.DesignTask, customerName string) error {
	final := r.decision.FinalPriority
	if err := h.repos.Tasks.UpdateFields(ctx, task.ID, map[string]interface{}{
		"priority": final,
	}); err != nil {
		return fmt.Errorf("failed to set task priority: %w", err)
	}
	if err := appendHistory(ctx, h.repos.History, model.DesignTaskHistory{
		TaskID: task.ID,
		UserID: &r.reviewer,
		Action: model.HistoryActionUrgentApproved,
		Notes:  fmt.Sprintf("Urgent request approved with %s priority", final.Label()),
	}); err != nil {
		return err
	}

	taskID := task.ID
	req := r.request.(*model.PendingUrgentRequest)
	req.FinalPriority = &final
	req.CreatedTaskID = &taskID
	r.stamp["final_priority"] = final
	r.stamp["created_task_id"] = taskID
	r.notify(model.NotificationUrgentApproved,
		"Urgent request approved",
		fmt.Sprintf("Your urgent request for %s was approved with %s priority.", customerName, final.Label()),
		&task.ID)
	return nil
}

// taskFor returns the design task that receives the urgent order. A task the
// request points at, still unlinked, wins; otherwise the task created for the order is
// looked up, and created when none exists yet.
func (h *urgentHandler) taskFor(ctx context.Context, req *model.PendingUrgentRequest, order *model.Order, lead *model.Lead, final model.Priority) (*model.DesignTask, error) {
	if req.TaskID != nil {
		return loadLiveTask(ctx, h.repos.Tasks, *req.TaskID)
	}

	task, err := h.repos.Tasks.FindByOrderID(ctx, order.ID)
	if err == nil {
		return task, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to look up task for order: %w", err)
	}

	requester := req.RequestedBy
	task = &model.DesignTask{
		Title:     urgentTaskTitle(order),
		Status:    model.TaskStatusPending,
		Priority:  final,
		OrderID:   &order.ID,
		LeadID:    &lead.ID,
		CreatedBy: &requester,
	}
	if err := h.repos.Tasks.Create(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to create design task: %w", err)
	}
	if err := appendHistory(ctx, h.repos.History, model.DesignTaskHistory{
		TaskID:    task.ID,
		UserID:    &requester,
		Action:    model.HistoryActionCreated,
		NewStatus: string(model.TaskStatusPending),
		Notes:     "Created from urgent request",
	}); err != nil {
		return nil, err
	}
	return task, nil
}

func (h *urgentHandler) reject(ctx context.Context, r *resolution) error {
	req := r.request.(*model.PendingUrgentRequest)
	data := req.RequestData.Data()
	r.notify(model.NotificationUrgentRejected,
		"Urgent request rejected",
		rejectionMessage(fmt.Sprintf("urgent request for %s", data.Customer.Name), r.decision.Reason),
		req.TaskID)
	return nil
}

func urgentTaskTitle(order *model.Order) string {
	if order.Model != "" {
		return fmt.Sprintf("%s - %s", order.CustomerName, order.Model)
	}
	return order.CustomerName
}

func newOrderCode(at time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("ORD-%s-%s", at.Format("20060102"), suffix)
}

// --- Delete ---

type deleteHandler struct {
	repos *repository.Repositories
}

func (h *deleteHandler) validate(Decision) error { return nil }

func (h *deleteHandler) approve(ctx context.Context, r *resolution) error {
	req := r.request.(*model.PendingDeleteRequest)
	task, err := loadLiveTask(ctx, h.repos.Tasks, req.TaskID)
	if err != nil {
		return err
	}
	if err := h.repos.Tasks.SoftDelete(ctx, task); err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	if err := appendHistory(ctx, h.repos.History, model.DesignTaskHistory{
		TaskID:    task.ID,
		UserID:    &r.reviewer,
		Action:    model.HistoryActionDeleted,
		OldStatus: string(task.Status),
		Notes:     req.Reason,
	}); err != nil {
		return err
	}
	r.notify(model.NotificationDeleteApproved,
		"Delete request approved",
		fmt.Sprintf("Task %q was deleted as you requested.", task.Title),
		&task.ID)
	return nil
}

func (h *deleteHandler) reject(ctx context.Context, r *resolution) error {
	req := r.request.(*model.PendingDeleteRequest)
	r.notify(model.NotificationDeleteRejected,
		"Delete request rejected",
		rejectionMessage("delete request", r.decision.Reason),
		&req.TaskID)
	return nil
}

// --- Modification ---

type modificationHandler struct {
	repos *repository.Repositories
}

func (h *modificationHandler) validate(Decision) error { return nil }

// approve reopens the task for rework whatever its current status is.
func (h *modificationHandler) approve(ctx context.Context, r *resolution) error {
	req := r.request.(*model.PendingModificationRequest)
	task, err := loadLiveTask(ctx, h.repos.Tasks, req.TaskID)
	if err != nil {
		return err
	}
	if err := h.repos.Tasks.UpdateFields(ctx, task.ID, map[string]interface{}{
		"status": model.TaskStatusChangesRequested,
	}); err != nil {
		return fmt.Errorf("failed to update task status: %w", err)
	}
	if err := appendHistory(ctx, h.repos.History, model.DesignTaskHistory{
		TaskID:    task.ID,
		UserID:    &r.reviewer,
		Action:    model.HistoryActionModificationApproved,
		OldStatus: string(task.Status),
		NewStatus: string(model.TaskStatusChangesRequested),
		Notes:     req.Description,
	}); err != nil {
		return err
	}
	r.notify(model.NotificationModificationApproved,
		"Modification request approved",
		fmt.Sprintf("Your modification request for %q was approved and sent back to the designer.", task.Title),
		&task.ID)
	return nil
}

func (h *modificationHandler) reject(ctx context.Context, r *resolution) error {
	req := r.request.(*model.PendingModificationRequest)
	r.notify(model.NotificationModificationRejected,
		"Modification request rejected",
		rejectionMessage("modification request", r.decision.Reason),
		&req.TaskID)
	return nil
}

// --- Priority change ---

type priorityChangeHandler struct {
	repos *repository.Repositories
}

func (h *priorityChangeHandler) validate(Decision) error { return nil }

func (h *priorityChangeHandler) approve(ctx context.Context, r *resolution) error {
	req := r.request.(*model.PendingPriorityChangeRequest)
	if !req.RequestedPriority.Valid() {
		return ErrInvalidPriority
	}
	task, err := loadLiveTask(ctx, h.repos.Tasks, req.TaskID)
	if err != nil {
		return err
	}
	from := task.Priority
	to := req.RequestedPriority

	if err := h.repos.Tasks.UpdateFields(ctx, task.ID, map[string]interface{}{
		"priority": to,
	}); err != nil {
		return fmt.Errorf("failed to update task priority: %w", err)
	}
	if err := appendHistory(ctx, h.repos.History, model.DesignTaskHistory{
		TaskID: task.ID,
		UserID: &r.reviewer,
		Action: model.HistoryActionPriorityChanged,
		Notes:  fmt.Sprintf("Priority changed from %s to %s", from.Label(), to.Label()),
	}); err != nil {
		return err
	}
	r.notify(model.NotificationPriorityChangeApproved,
		"Priority change approved",
		fmt.Sprintf("The priority of %q was changed from %s to %s.", task.Title, from.Label(), to.Label()),
		&task.ID)
	return nil
}

func (h *priorityChangeHandler) reject(ctx context.Context, r *resolution) error {
	req := r.request.(*model.PendingPriorityChangeRequest)
	r.notify(model.NotificationPriorityChangeRejected,
		"Priority change rejected",
		rejectionMessage(fmt.Sprintf("priority change from %s to %s",
			req.CurrentPriority.Label(), req.RequestedPriority.Label()), r.decision.Reason),
		&req.TaskID)
	return nil
}
