package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type RequestStatus string

const (
	RequestPending  RequestStatus = "pending"
	RequestApproved RequestStatus = "approved"
	RequestRejected RequestStatus = "rejected"
)

// RequestKind tags the four pending-request variants.
type RequestKind string

const (
	KindUrgent         RequestKind = "urgent"
	KindDelete         RequestKind = "delete"
	KindModification   RequestKind = "modification"
	KindPriorityChange RequestKind = "priority_change"
)

var RequestKinds = []RequestKind{KindUrgent, KindDelete, KindModification, KindPriorityChange}

func (k RequestKind) Valid() bool {
	for _, known := range RequestKinds {
		if k == known {
			return true
		}
	}
	return false
}

// ReviewState is shared by every pending-request table. Version is bumped on
// each write and the terminal update is conditioned on it, so two reviewers
// racing on the same row cannot both succeed.
type ReviewState struct {
	ID              uuid.UUID     `gorm:"type:uuid;primaryKey" json:"id"`
	RequestedBy     uuid.UUID     `gorm:"type:uuid;not null;index" json:"requested_by"`
	RequestedAt     time.Time     `gorm:"not null;index" json:"requested_at"`
	Status          RequestStatus `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	ReviewedBy      *uuid.UUID    `gorm:"type:uuid" json:"reviewed_by"`
	ReviewedAt      *time.Time    `json:"reviewed_at"`
	RejectionReason *string       `gorm:"type:text" json:"rejection_reason"`
	Version         int           `gorm:"not null;default:1" json:"version"`
}

func (s *ReviewState) State() *ReviewState {
	return s
}

func (s *ReviewState) prepare() {
	assignID(&s.ID)
	if s.Status == "" {
		s.Status = RequestPending
	}
	if s.RequestedAt.IsZero() {
		s.RequestedAt = time.Now()
	}
	if s.Version == 0 {
		s.Version = 1
	}
}

// PendingRequest is implemented by the four request tables.
type PendingRequest interface {
	Kind() RequestKind
	State() *ReviewState
	TargetTaskID() *uuid.UUID
}

// UrgentCustomer is the customer block of an urgent request payload.
type UrgentCustomer struct {
	ID    string `json:"id,omitempty"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

// UrgentRequestData is the denormalized order snapshot an urgent request
// carries until it is approved.
type UrgentRequestData struct {
	Customer      UrgentCustomer         `json:"customer"`
	Quantity      int                    `json:"quantity"`
	Model         string                 `json:"model"`
	Customization map[string]interface{} `json:"customization,omitempty"`
	UnitPrice     *decimal.Decimal       `json:"unit_price,omitempty"`
}

type PendingUrgentRequest struct {
	ReviewState
	TaskID            *uuid.UUID                            `gorm:"type:uuid;index" json:"task_id"`
	RequestData       datatypes.JSONType[UrgentRequestData] `json:"request_data"`
	RequestedPriority Priority                              `gorm:"type:varchar(20);not null" json:"requested_priority"`
	FinalPriority     *Priority                             `gorm:"type:varchar(20)" json:"final_priority"`
	UrgentReasonID    *uuid.UUID                            `gorm:"type:uuid" json:"urgent_reason_id"`
	UrgentReasonText  string                                `gorm:"type:text" json:"urgent_reason_text"`
	CreatedOrderID    *uuid.UUID                            `gorm:"type:uuid" json:"created_order_id"`
	CreatedTaskID     *uuid.UUID                            `gorm:"type:uuid" json:"created_task_id"`
}

func (PendingUrgentRequest) TableName() string { return "pending_urgent_requests" }

func (r *PendingUrgentRequest) Kind() RequestKind        { return KindUrgent }
func (r *PendingUrgentRequest) TargetTaskID() *uuid.UUID { return r.TaskID }

func (r *PendingUrgentRequest) BeforeCreate(tx *gorm.DB) error {
	r.prepare()
	return nil
}

type PendingDeleteRequest struct {
	ReviewState
	TaskID uuid.UUID `gorm:"type:uuid;not null;index" json:"task_id"`
	Reason string    `gorm:"type:text;not null" json:"reason"`
}

func (PendingDeleteRequest) TableName() string { return "pending_delete_requests" }

func (r *PendingDeleteRequest) Kind() RequestKind        { return KindDelete }
func (r *PendingDeleteRequest) TargetTaskID() *uuid.UUID { return &r.TaskID }

func (r *PendingDeleteRequest) BeforeCreate(tx *gorm.DB) error {
	r.prepare()
	return nil
}

// Attachment is a file the client sent along with a modification request.
type Attachment struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

type PendingModificationRequest struct {
	ReviewState
	TaskID      uuid.UUID                       `gorm:"type:uuid;not null;index" json:"task_id"`
	Description string                          `gorm:"type:text;not null" json:"description"`
	Attachments datatypes.JSONSlice[Attachment] `json:"attachments"`
}

func (PendingModificationRequest) TableName() string { return "pending_modification_requests" }

func (r *PendingModificationRequest) Kind() RequestKind        { return KindModification }
func (r *PendingModificationRequest) TargetTaskID() *uuid.UUID { return &r.TaskID }

func (r *PendingModificationRequest) BeforeCreate(tx *gorm.DB) error {
	r.prepare()
	return nil
}

type PendingPriorityChangeRequest struct {
	ReviewState
	TaskID            uuid.UUID  `gorm:"type:uuid;not null;index" json:"task_id"`
	CurrentPriority   Priority   `gorm:"type:varchar(20);not null" json:"current_priority"`
	RequestedPriority Priority   `gorm:"type:varchar(20);not null" json:"requested_priority"`
	UrgentReasonID    *uuid.UUID `gorm:"type:uuid" json:"urgent_reason_id"`
	UrgentReasonText  string     `gorm:"type:text" json:"urgent_reason_text"`
}

func (PendingPriorityChangeRequest) TableName() string { return "pending_priority_change_requests" }

func (r *PendingPriorityChangeRequest) Kind() RequestKind        { return KindPriorityChange }
func (r *PendingPriorityChangeRequest) TargetTaskID() *uuid.UUID { return &r.TaskID }

func (r *PendingPriorityChangeRequest) BeforeCreate(tx *gorm.DB) error {
	r.prepare()
	return nil
}

// NewPendingRequest returns an empty row of the table backing kind.
func NewPendingRequest(kind RequestKind) (PendingRequest, bool) {
	switch kind {
	case KindUrgent:
		return &PendingUrgentRequest{}, true
	case KindDelete:
		return &PendingDeleteRequest{}, true
	case KindModification:
		return &PendingModificationRequest{}, true
	case KindPriorityChange:
		return &PendingPriorityChangeRequest{}, true
	}
	return nil, false
}
