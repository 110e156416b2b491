package commissions

import (
	"context"
	"errors"
	"fmt"

	"lion-backend/internal/domain"
	"lion-backend/internal/infrastructure/realtime"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Service reads a team member's commission ledger.
type Service struct {
	DB   *gorm.DB
	Feed realtime.Feed
}

// Summary is the dashboard view of a member's commissions. A user who is not a
// team member gets an empty Summary with a nil TeamMember.
type Summary struct {
	TeamMember      *domain.TeamMember  `json:"team_member"`
	Commissions     []domain.Commission `json:"commissions"`
	PendingAmount   decimal.Decimal     `json:"pending_amount"`
	AvailableAmount decimal.Decimal     `json:"available_amount"`
}

// Aggregate sums PENDING rows into pending and APPROVED rows into available.
// PAID rows count in neither.
func Aggregate(rows []domain.Commission) (pending, available decimal.Decimal) {
	pending, available = decimal.Zero, decimal.Zero
	for _, c := range rows {
		switch c.Status {
		case domain.CommissionPending:
			pending = pending.Add(c.Amount)
		case domain.CommissionApproved:
			available = available.Add(c.Amount)
		}
	}
	return pending, available
}

// Summary resolves the user's team member and loads its commissions, newest first,
// with the order each one came from.
func (s *Service) Summary(ctx context.Context, userID uuid.UUID) (*Summary, error) {
	out := &Summary{
		Commissions:     []domain.Commission{},
		PendingAmount:   decimal.Zero,
		AvailableAmount: decimal.Zero,
	}

	var member domain.TeamMember
	err := s.DB.WithContext(ctx).Where("user_id = ?", userID).First(&member).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return out, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup team member: %w: %w", domain.ErrBackend, err)
	}
	out.TeamMember = &member

	var rows []domain.Commission
	if err := s.DB.WithContext(ctx).
		Preload("Order").
		Where("team_member_id = ?", member.ID).
		Order("created_at DESC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load commissions: %w: %w", domain.ErrBackend, err)
	}

	out.Commissions = rows
	out.PendingAmount, out.AvailableAmount = Aggregate(rows)
	return out, nil
}

// UpdateStatus moves a commission one step forward (PENDING -> APPROVED -> PAID).
// The update is guarded on the previous status so racing admins cannot skip or
// reverse a step. The change event goes out once the update has committed.
func (s *Service) UpdateStatus(ctx context.Context, commissionID uuid.UUID, next domain.CommissionStatus) (*domain.Commission, error) {
	prev, ok := next.Previous()
	if !ok {
		return nil, domain.ErrInvalidTransition
	}

	var c domain.Commission
	err := realtime.Transaction(ctx, s.DB, func(tx *gorm.DB) error {
		res := tx.Model(&domain.Commission{}).
			Where("id = ? AND status = ?", commissionID, prev).
			Update("status", next)
		if res.Error != nil {
			return fmt.Errorf("update commission status: %w: %w", domain.ErrBackend, res.Error)
		}
		if err := tx.Where("id = ?", commissionID).First(&c).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrNotFound
			}
			return fmt.Errorf("load commission: %w: %w", domain.ErrBackend, err)
		}
		if res.RowsAffected == 0 {
			return domain.ErrInvalidTransition
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().Str("commission_id", c.ID.String()).Str("status", string(next)).
		Msg("commissions: status updated")
	return &c, nil
}
