package database

import (
	"context"
	"errors"
	"fmt"

	"teamwear/internal/model"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// SeedOptions controls the bootstrap admin account. An empty email skips it.
type SeedOptions struct {
	AdminEmail    string
	AdminPassword string
}

var defaultPermissions = []model.Permission{
	{Code: model.PermApprovalsRead, Name: "View pending requests", Group: "approvals"},
	{Code: model.PermApprovalsResolve, Name: "Approve or reject requests", Group: "approvals"},
	{Code: model.PermRequestsSubmit, Name: "Submit requests", Group: "requests"},
	{Code: model.PermTasksRead, Name: "View design tasks", Group: "tasks"},
	{Code: model.PermTasksWrite, Name: "Manage design tasks", Group: "tasks"},
	{Code: model.PermTasksReject, Name: "Return tasks to sales", Group: "tasks"},
	{Code: model.PermAuditRead, Name: "View activity log", Group: "audit"},
	{Code: model.PermUsersManage, Name: "Manage users", Group: "users"},
}

var roleDefinitions = map[string]struct {
	Description string
	PermCodes   []string
}{
	model.RoleAdmin: {
		Description: "Full access",
		PermCodes: []string{
			model.PermApprovalsRead, model.PermApprovalsResolve, model.PermRequestsSubmit,
			model.PermTasksRead, model.PermTasksWrite, model.PermTasksReject,
			model.PermAuditRead, model.PermUsersManage,
		},
	},
	model.RoleManager: {
		Description: "Reviews requests and oversees the design board",
		PermCodes: []string{
			model.PermApprovalsRead, model.PermApprovalsResolve, model.PermRequestsSubmit,
			model.PermTasksRead, model.PermTasksWrite, model.PermAuditRead,
		},
	},
	model.RoleSalesperson: {
		Description: "Submits requests and resends returned tasks",
		PermCodes:   []string{model.PermRequestsSubmit, model.PermTasksRead},
	},
	model.RoleDesigner: {
		Description: "Works the design board",
		PermCodes:   []string{model.PermTasksRead, model.PermTasksWrite, model.PermTasksReject},
	},
}

var defaultUrgentReasons = []string{
	"Event date moved forward",
	"VIP customer",
	"Replacement for a defective order",
	"Tournament registration deadline",
}

// Seed upserts permissions, roles, the urgent reason catalogue and the
// bootstrap admin. It is safe to run repeatedly.
func Seed(ctx context.Context, db *gorm.DB, opts SeedOptions) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		permByCode, err := seedPermissions(tx)
		if err != nil {
			return err
		}
		if err := seedRoles(tx, permByCode); err != nil {
			return err
		}
		if err := seedUrgentReasons(tx); err != nil {
			return err
		}
		return seedAdmin(tx, opts)
	})
}

func seedPermissions(tx *gorm.DB) (map[string]model.Permission, error) {
	permByCode := make(map[string]model.Permission, len(defaultPermissions))
	for _, def := range defaultPermissions {
		p := def
		var existing model.Permission
		err := tx.Where("code = ?", p.Code).First(&existing).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			if err := tx.Create(&p).Error; err != nil {
				return nil, fmt.Errorf("failed to seed permission '%s': %w", p.Code, err)
			}
		case err != nil:
			return nil, fmt.Errorf("failed to load permission '%s': %w", p.Code, err)
		default:
			p.ID = existing.ID
			if err := tx.Model(&existing).Updates(map[string]interface{}{"name": p.Name, "group": p.Group}).Error; err != nil {
				return nil, fmt.Errorf("failed to update permission '%s': %w", p.Code, err)
			}
		}
		permByCode[p.Code] = p
	}
	return permByCode, nil
}

func seedRoles(tx *gorm.DB, permByCode map[string]model.Permission) error {
	for roleName, def := range roleDefinitions {
		var role model.Role
		err := tx.Where("name = ?", roleName).First(&role).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			role = model.Role{Name: roleName, Description: def.Description, IsSystem: true}
			if err := tx.Create(&role).Error; err != nil {
				return fmt.Errorf("failed to seed role '%s': %w", roleName, err)
			}
		} else if err != nil {
			return fmt.Errorf("failed to load role '%s': %w", roleName, err)
		}

		perms := make([]model.Permission, 0, len(def.PermCodes))
		for _, code := range def.PermCodes {
			if p, ok := permByCode[code]; ok {
				perms = append(perms, p)
			}
		}
		if err := tx.Model(&role).Association("Permissions").Replace(perms); err != nil {
			return fmt.Errorf("failed to assign permissions to role '%s': %w", roleName, err)
		}
	}
	return nil
}

func seedUrgentReasons(tx *gorm.DB) error {
	for _, label := range defaultUrgentReasons {
		var count int64
		if err := tx.Model(&model.UrgentReason{}).Where("label = ?", label).Count(&count).Error; err != nil {
			return fmt.Errorf("failed to check urgent reason: %w", err)
		}
		if count > 0 {
			continue
		}
		if err := tx.Create(&model.UrgentReason{Label: label, Active: true}).Error; err != nil {
			return fmt.Errorf("failed to seed urgent reason '%s': %w", label, err)
		}
	}
	return nil
}

func seedAdmin(tx *gorm.DB, opts SeedOptions) error {
	if opts.AdminEmail == "" {
		return nil
	}
	var count int64
	if err := tx.Model(&model.User{}).Where("email = ?", opts.AdminEmail).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check admin user: %w", err)
	}
	if count > 0 {
		return nil
	}
	if len(opts.AdminPassword) < 6 {
		return fmt.Errorf("admin password must be at least 6 characters")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(opts.AdminPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash admin password: %w", err)
	}
	admin := &model.User{
		Username: "admin",
		FullName: "Administrator",
		Email:    opts.AdminEmail,
		Password: string(hash),
		Role:     model.RoleAdmin,
	}
	if err := tx.Create(admin).Error; err != nil {
		return fmt.Errorf("failed to seed admin user: %w", err)
	}
	return nil
}
