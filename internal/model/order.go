package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Customer is the buyer of a uniform order
type Customer struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name      string    `gorm:"type:varchar(255);not null;index" json:"name"`
	Email     string    `gorm:"type:varchar(255)" json:"email"`
	Phone     string    `gorm:"type:varchar(30)" json:"phone"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (c *Customer) BeforeCreate(tx *gorm.DB) error {
	assignID(&c.ID)
	return nil
}

// Order captures the customer and customization snapshot of a uniform order.
type Order struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	OrderCode     string          `gorm:"type:varchar(40);uniqueIndex;not null" json:"order_code"`
	CustomerID    *uuid.UUID      `gorm:"type:uuid;index" json:"customer_id"`
	Customer      *Customer       `gorm:"foreignKey:CustomerID" json:"customer,omitempty"`
	CustomerName  string          `gorm:"type:varchar(255);not null" json:"customer_name"`
	CustomerEmail string          `gorm:"type:varchar(255)" json:"customer_email"`
	CustomerPhone string          `gorm:"type:varchar(30)" json:"customer_phone"`
	Quantity      int             `gorm:"not null" json:"quantity"`
	Model         string          `gorm:"type:varchar(100)" json:"model"`
	Customization datatypes.JSON  `json:"customization"`
	UnitPrice     decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"unit_price"`
	TotalAmount   decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"total_amount"`
	CreatedBy     *uuid.UUID      `gorm:"type:uuid;index" json:"created_by"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

func (o *Order) BeforeCreate(tx *gorm.DB) error {
	assignID(&o.ID)
	return nil
}

// Lead salesperson statuses
const (
	LeadStatusDraft              = "draft"
	LeadStatusSentToDesigner     = "sent_to_designer"
	LeadStatusRejectedByDesigner = "rejected_by_designer"
	LeadStatusApproved           = "approved"
)

// Lead links a funnel session to the order it produced
type Lead struct {
	ID                   uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	OrderID              *uuid.UUID `gorm:"type:uuid;index" json:"order_id"`
	Order                *Order     `gorm:"foreignKey:OrderID" json:"order,omitempty"`
	CustomerName         string     `gorm:"type:varchar(255)" json:"customer_name"`
	Completed            bool       `gorm:"not null;default:false" json:"completed"`
	CreatedBySalesperson bool       `gorm:"not null;default:false" json:"created_by_salesperson"`
	SalespersonStatus    string     `gorm:"type:varchar(40);not null;default:'draft';index" json:"salesperson_status"`
	NeedsLogo            bool       `gorm:"not null;default:false" json:"needs_logo"`
	CreatedBy            *uuid.UUID `gorm:"type:uuid;index" json:"created_by"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
}

func (l *Lead) BeforeCreate(tx *gorm.DB) error {
	assignID(&l.ID)
	return nil
}
