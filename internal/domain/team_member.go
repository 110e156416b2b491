package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// TeamMember is an affiliate of the Team program. PromoCode is a standing TEAM code
// that can be redeemed any number of times while the member is active. Rank is a
// cache of RankForSales(TotalSales).
type TeamMember struct {
	ID         uuid.UUID       `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	UserID     uuid.UUID       `gorm:"column:user_id;type:uuid;not null;uniqueIndex" json:"user_id"`
	PromoCode  string          `gorm:"column:promo_code;type:varchar(32);not null;uniqueIndex" json:"promo_code"`
	IsActive   bool            `gorm:"column:is_active;not null;default:true" json:"is_active"`
	TotalSales decimal.Decimal `gorm:"column:total_sales;type:decimal(12,2);not null;default:0" json:"total_sales"`
	Rank       Rank            `gorm:"column:rank;not null;default:1" json:"rank"`
	CreatedAt  time.Time       `gorm:"column:created_at" json:"created_at"`
	UpdatedAt  time.Time       `gorm:"column:updated_at" json:"updated_at"`
}

func (TeamMember) TableName() string {
	return "team_members"
}

func (m *TeamMember) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	m.PromoCode = NormalizeCode(m.PromoCode)
	if m.Rank == 0 {
		m.Rank = RankAmbassador
	}
	return nil
}
