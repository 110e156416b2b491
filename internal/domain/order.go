package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Order is owned by the storefront checkout; this service only reads it to
// annotate commissions.
type Order struct {
	ID          uuid.UUID       `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	OrderNumber string          `gorm:"column:order_number;not null" json:"order_number"`
	TotalAmount decimal.Decimal `gorm:"column:total_amount;type:decimal(12,2);not null;default:0" json:"total_amount"`
	OrderStatus string          `gorm:"column:order_status;type:varchar(32)" json:"order_status"`
	CreatedAt   time.Time       `gorm:"column:created_at" json:"created_at"`
}

func (Order) TableName() string {
	return "orders"
}
