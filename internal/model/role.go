package model

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Permission codes checked by middleware.RequirePermission
const (
	PermApprovalsRead    = "approvals.read"
	PermApprovalsResolve = "approvals.resolve"
	PermRequestsSubmit   = "requests.submit"
	PermTasksRead        = "tasks.read"
	PermTasksWrite       = "tasks.write"
	PermTasksReject      = "tasks.reject"
	PermAuditRead        = "audit.read"
	PermUsersManage      = "users.manage"
)

// Role groups permission codes under the role name carried in the token
type Role struct {
	ID          uuid.UUID    `gorm:"type:uuid;primaryKey" json:"id"`
	Name        string       `gorm:"type:varchar(50);uniqueIndex;not null" json:"name"`
	Description string       `gorm:"type:text" json:"description"`
	IsSystem    bool         `gorm:"default:false" json:"is_system"`
	Permissions []Permission `gorm:"many2many:role_permissions;" json:"permissions"`
}

func (r *Role) BeforeCreate(tx *gorm.DB) error {
	assignID(&r.ID)
	return nil
}

// Permission is a single grantable capability
type Permission struct {
	ID    uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Code  string    `gorm:"type:varchar(100);uniqueIndex;not null" json:"code"`
	Name  string    `gorm:"type:varchar(255);not null" json:"name"`
	Group string    `gorm:"type:varchar(50);not null;index" json:"group"`
}

func (p *Permission) BeforeCreate(tx *gorm.DB) error {
	assignID(&p.ID)
	return nil
}
