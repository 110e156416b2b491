package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type CommissionStatus string

const (
	CommissionPending  CommissionStatus = "PENDING"
	CommissionApproved CommissionStatus = "APPROVED"
	CommissionPaid     CommissionStatus = "PAID"
)

// ParseCommissionStatus accepts a status in upper case only, as stored.
func ParseCommissionStatus(s string) (CommissionStatus, bool) {
	switch CommissionStatus(s) {
	case CommissionPending, CommissionApproved, CommissionPaid:
		return CommissionStatus(s), true
	}
	return "", false
}

// Previous returns the only status a commission may move to s from.
// PENDING has no predecessor.
func (s CommissionStatus) Previous() (CommissionStatus, bool) {
	switch s {
	case CommissionApproved:
		return CommissionPending, true
	case CommissionPaid:
		return CommissionApproved, true
	}
	return "", false
}

type CommissionType string

const (
	CommissionTypeSale             CommissionType = "SALE"
	CommissionTypeAffiliationBonus CommissionType = "AFFILIATION_BONUS"
)

// Commission is one ledger row for a team member. Only Status changes after creation.
type Commission struct {
	ID           uuid.UUID        `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	TeamMemberID uuid.UUID        `gorm:"column:team_member_id;type:uuid;not null;index" json:"team_member_id"`
	OrderID      uuid.UUID        `gorm:"column:order_id;type:uuid;not null;index" json:"order_id"`
	Amount       decimal.Decimal  `gorm:"column:amount;type:decimal(12,2);not null;default:0" json:"amount"`
	Percentage   decimal.Decimal  `gorm:"column:percentage;type:decimal(5,2);not null;default:0" json:"percentage"`
	Status       CommissionStatus `gorm:"column:status;type:varchar(16);not null;default:'PENDING';index" json:"status"`
	Type         CommissionType   `gorm:"column:type;type:varchar(32);not null;default:'SALE'" json:"type"`
	Metadata     datatypes.JSON   `gorm:"column:metadata;type:jsonb" json:"metadata,omitempty"`
	CreatedAt    time.Time        `gorm:"column:created_at;index" json:"created_at"`
	UpdatedAt    time.Time        `gorm:"column:updated_at" json:"updated_at"`

	Order *Order `gorm:"foreignKey:OrderID" json:"order,omitempty"`
}

func (Commission) TableName() string {
	return "commissions"
}

func (c *Commission) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
