package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Notification types written when a request reaches a terminal state
const (
	NotificationUrgentApproved         = "urgent_approved"
	NotificationUrgentRejected         = "urgent_rejected"
	NotificationDeleteApproved         = "delete_approved"
	NotificationDeleteRejected         = "delete_rejected"
	NotificationModificationApproved   = "modification_approved"
	NotificationModificationRejected   = "modification_rejected"
	NotificationPriorityChangeApproved = "priority_change_approved"
	NotificationPriorityChangeRejected = "priority_change_rejected"
)

// Notification is a one-way message to the user who submitted a request.
type Notification struct {
	ID            uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID        uuid.UUID  `gorm:"type:uuid;not null;index" json:"user_id"`
	Type          string     `gorm:"type:varchar(40);not null;index" json:"type"`
	Title         string     `gorm:"type:varchar(255);not null" json:"title"`
	Message       string     `gorm:"type:text;not null" json:"message"`
	RelatedTaskID *uuid.UUID `gorm:"type:uuid" json:"related_task_id"`
	Read          bool       `gorm:"not null;default:false;index" json:"read"`
	CreatedAt     time.Time  `gorm:"index" json:"created_at"`
}

func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	assignID(&n.ID)
	return nil
}

// UrgentReason is an entry of the catalogue shown when asking for urgency.
type UrgentReason struct {
	ID     uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Label  string    `gorm:"type:varchar(255);not null" json:"label"`
	Active bool      `gorm:"not null;default:true" json:"active"`
}

func (r *UrgentReason) BeforeCreate(tx *gorm.DB) error {
	assignID(&r.ID)
	return nil
}
