package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type TaskStatus string

const (
	TaskStatusPending          TaskStatus = "pending"
	TaskStatusInProgress       TaskStatus = "in_progress"
	TaskStatusAwaitingApproval TaskStatus = "awaiting_approval"
	TaskStatusApproved         TaskStatus = "approved"
	TaskStatusChangesRequested TaskStatus = "changes_requested"
	TaskStatusCompleted        TaskStatus = "completed"
)

// taskTransitions lists the moves the Kanban board may make. Approval of a
// modification request bypasses this table and reopens the task from any status.
var taskTransitions = map[TaskStatus][]TaskStatus{
	TaskStatusPending:          {TaskStatusInProgress},
	TaskStatusInProgress:       {TaskStatusAwaitingApproval, TaskStatusPending},
	TaskStatusAwaitingApproval: {TaskStatusApproved, TaskStatusChangesRequested},
	TaskStatusChangesRequested: {TaskStatusInProgress},
	TaskStatusApproved:         {TaskStatusCompleted, TaskStatusChangesRequested},
	TaskStatusCompleted:        {},
}

func (s TaskStatus) Valid() bool {
	_, ok := taskTransitions[s]
	return ok
}

// CanTransitionTo reports whether the board may move a task from s to next.
func (s TaskStatus) CanTransitionTo(next TaskStatus) bool {
	for _, allowed := range taskTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

type Priority string

const (
	PriorityNormal Priority = "normal"
	PriorityUrgent Priority = "urgent"
)

func (p Priority) Valid() bool {
	return p == PriorityNormal || p == PriorityUrgent
}

// Label is the human readable name used in history notes and notifications.
func (p Priority) Label() string {
	switch p {
	case PriorityNormal:
		return "Normal"
	case PriorityUrgent:
		return "Urgent"
	default:
		return string(p)
	}
}

// DesignTask is the unit of design work. DeletedAt is the tombstone: GORM
// filters deleted_at IS NULL on every default-scoped query.
type DesignTask struct {
	ID         uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Title      string         `gorm:"type:varchar(255);not null" json:"title"`
	Status     TaskStatus     `gorm:"type:varchar(30);not null;default:'pending';index" json:"status"`
	Priority   Priority       `gorm:"type:varchar(20);not null;default:'normal';index" json:"priority"`
	OrderID    *uuid.UUID     `gorm:"type:uuid;index" json:"order_id"`
	Order      *Order         `gorm:"foreignKey:OrderID" json:"order,omitempty"`
	LeadID     *uuid.UUID     `gorm:"type:uuid;index" json:"lead_id"`
	Lead       *Lead          `gorm:"foreignKey:LeadID" json:"lead,omitempty"`
	AssignedTo *uuid.UUID     `gorm:"type:uuid;index" json:"assigned_to"`
	CreatedBy  *uuid.UUID     `gorm:"type:uuid;index" json:"created_by"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (t *DesignTask) BeforeCreate(tx *gorm.DB) error {
	assignID(&t.ID)
	return nil
}

// History actions
const (
	HistoryActionCreated              = "created"
	HistoryActionStatusChanged        = "status_changed"
	HistoryActionDeleted              = "deleted"
	HistoryActionModificationApproved = "modification_approved"
	HistoryActionPriorityChanged      = "priority_changed"
	HistoryActionUrgentApproved       = "urgent_approved"
	HistoryActionRejectedByDesigner   = "rejected_by_designer"
	HistoryActionResentToDesigner     = "resent_to_designer"
)

// DesignTaskHistory is an append-only audit row keyed by task.
type DesignTaskHistory struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	TaskID    uuid.UUID  `gorm:"type:uuid;not null;index" json:"task_id"`
	UserID    *uuid.UUID `gorm:"type:uuid" json:"user_id"`
	Action    string     `gorm:"type:varchar(40);not null;index" json:"action"`
	OldStatus string     `gorm:"type:varchar(30)" json:"old_status,omitempty"`
	NewStatus string     `gorm:"type:varchar(30)" json:"new_status,omitempty"`
	Notes     string     `gorm:"type:text" json:"notes"`
	CreatedAt time.Time  `gorm:"index" json:"created_at"`
}

func (DesignTaskHistory) TableName() string {
	return "design_task_history"
}

func (h *DesignTaskHistory) BeforeCreate(tx *gorm.DB) error {
	assignID(&h.ID)
	return nil
}

// TaskRejection is a designer's refusal of a task, surfaced to the salesperson
// who created it until they resend it.
type TaskRejection struct {
	ID         uuid.UUID   `gorm:"type:uuid;primaryKey" json:"id"`
	TaskID     uuid.UUID   `gorm:"type:uuid;not null;index" json:"task_id"`
	Task       *DesignTask `gorm:"foreignKey:TaskID" json:"task,omitempty"`
	LeadID     *uuid.UUID  `gorm:"type:uuid;index" json:"lead_id"`
	RejectedBy uuid.UUID   `gorm:"type:uuid;not null" json:"rejected_by"`
	Reason     string      `gorm:"type:text;not null" json:"reason"`
	Resolved   bool        `gorm:"not null;default:false;index" json:"resolved"`
	ResolvedBy *uuid.UUID  `gorm:"type:uuid" json:"resolved_by"`
	ResolvedAt *time.Time  `json:"resolved_at"`
	CreatedAt  time.Time   `json:"created_at"`
}

func (r *TaskRejection) BeforeCreate(tx *gorm.DB) error {
	assignID(&r.ID)
	return nil
}
