package ranks

import (
	"context"
	"errors"

	"lion-backend/internal/domain"
	"lion-backend/internal/pkg/metrics"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

type Service struct {
	DB *gorm.DB
}

// Promote recomputes a member's rank from total sales and stores it when it
// differs. It reports whether a write happened. Lookup and write failures are
// logged and leave the member untouched.
func (s *Service) Promote(ctx context.Context, memberID uuid.UUID) bool {
	logger := log.With().Str("team_member_id", memberID.String()).Logger()

	var member domain.TeamMember
	err := s.DB.WithContext(ctx).
		Select("id", "total_sales", "rank").
		Where("id = ?", memberID).
		First(&member).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Warn().Msg("ranks: team member not found")
		} else {
			logger.Error().Err(err).Msg("ranks: loading team member failed")
		}
		metrics.RankPromotions.WithLabelValues(metrics.OutcomeError).Inc()
		return false
	}

	if !member.Rank.Valid() {
		logger.Warn().Int("rank", int(member.Rank)).Msg("ranks: stored rank out of range, recomputing")
	}
	target := domain.RankForSales(member.TotalSales)
	if target == member.Rank {
		metrics.RankPromotions.WithLabelValues(metrics.OutcomeUnchanged).Inc()
		return false
	}

	if err := s.DB.WithContext(ctx).Model(&domain.TeamMember{}).
		Where("id = ?", memberID).
		Update("rank", target).Error; err != nil {
		logger.Error().Err(err).Msg("ranks: updating rank failed")
		metrics.RankPromotions.WithLabelValues(metrics.OutcomeError).Inc()
		return false
	}

	metrics.RankPromotions.WithLabelValues(metrics.OutcomeUpdated).Inc()
	logger.Info().
		Int("from", int(member.Rank)).
		Int("to", int(target)).
		Str("title", target.Title()).
		Msg("ranks: rank changed")
	return true
}
