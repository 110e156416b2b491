package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CodeType is the program a code grants access to.
type CodeType string

const (
	CodeTypeTeam   CodeType = "TEAM"
	CodeTypeSeller CodeType = "SELLER"
)

// ParseCodeType accepts the type in any case.
func ParseCodeType(s string) (CodeType, bool) {
	switch CodeType(strings.ToUpper(strings.TrimSpace(s))) {
	case CodeTypeTeam:
		return CodeTypeTeam, true
	case CodeTypeSeller:
		return CodeTypeSeller, true
	}
	return "", false
}

// NormalizeCode is applied to every code before it is compared or stored.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// InvitationCode is a single-use code provisioned by an admin. IsUsed only ever
// goes from false to true.
type InvitationCode struct {
	ID        uuid.UUID  `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Code      string     `gorm:"column:code;type:varchar(64);not null;uniqueIndex:idx_invitation_code_type" json:"code"`
	Type      CodeType   `gorm:"column:type;type:varchar(16);not null;uniqueIndex:idx_invitation_code_type" json:"type"`
	IsUsed    bool       `gorm:"column:is_used;not null;default:false" json:"is_used"`
	UsedAt    *time.Time `gorm:"column:used_at" json:"used_at"`
	UsedBy    *uuid.UUID `gorm:"column:used_by;type:uuid" json:"used_by"`
	CreatedAt time.Time  `gorm:"column:created_at" json:"created_at"`
	UpdatedAt time.Time  `gorm:"column:updated_at" json:"updated_at"`
}

func (InvitationCode) TableName() string {
	return "invitation_codes"
}

func (c *InvitationCode) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	c.Code = NormalizeCode(c.Code)
	return nil
}
