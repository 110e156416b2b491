package redemption

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"lion-backend/internal/domain"
	"lion-backend/internal/pkg/metrics"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	SourcePromoCode      = "promo_code"
	SourceInvitationCode = "invitation_code"

	promoCodePrefix   = "LION"
	promoCodeAttempts = 5
)

// Service validates and consumes TEAM and SELLER codes.
type Service struct {
	DB *gorm.DB
}

// RedeemResult describes which code family accepted the code.
type RedeemResult struct {
	Code         string          `json:"code"`
	Type         domain.CodeType `json:"type"`
	Source       string          `json:"source"`
	TeamMemberID *uuid.UUID      `json:"team_member_id,omitempty"`
}

// Redeem accepts a standing promo code of an active team member (TEAM only, never
// consumed) or claims an unused invitation code of the given type. The claim is a
// single conditional update, so two concurrent redemptions of the same code cannot
// both succeed.
func (s *Service) Redeem(ctx context.Context, actor domain.Actor, rawCode string, codeType domain.CodeType) (*RedeemResult, error) {
	res, err := s.redeem(ctx, s.DB, actor, rawCode, codeType)
	recordOutcome(codeType, err)
	return res, err
}

func (s *Service) redeem(ctx context.Context, db *gorm.DB, actor domain.Actor, rawCode string, codeType domain.CodeType) (*RedeemResult, error) {
	code := domain.NormalizeCode(rawCode)
	if code == "" || !validType(codeType) {
		return nil, domain.ErrInvalidCode
	}

	if codeType == domain.CodeTypeTeam {
		member, err := findActivePromoCode(ctx, db, code)
		if err != nil {
			return nil, err
		}
		if member != nil {
			log.Info().Str("code_type", string(codeType)).Str("team_member_id", member.ID.String()).
				Msg("redemption: accepted team promo code")
			return &RedeemResult{Code: code, Type: codeType, Source: SourcePromoCode, TeamMemberID: &member.ID}, nil
		}
	}

	var usedBy interface{}
	if actor.Authenticated() {
		usedBy = *actor.UserID
	}
	tx := db.WithContext(ctx).Model(&domain.InvitationCode{}).
		Where("code = ? AND type = ? AND is_used = ?", code, codeType, false).
		Updates(map[string]interface{}{
			"is_used": true,
			"used_at": time.Now().UTC(),
			"used_by": usedBy,
		})
	if tx.Error != nil {
		log.Error().Err(tx.Error).Str("code_type", string(codeType)).Msg("redemption: marking invitation code used failed")
		return nil, fmt.Errorf("claim invitation code: %w: %w", domain.ErrBackend, tx.Error)
	}
	if tx.RowsAffected == 0 {
		return nil, domain.ErrInvalidCode
	}

	log.Info().Str("code_type", string(codeType)).Bool("anonymous", usedBy == nil).
		Msg("redemption: invitation code consumed")
	return &RedeemResult{Code: code, Type: codeType, Source: SourceInvitationCode}, nil
}

// Check reports whether a code would be accepted right now, without consuming it.
func (s *Service) Check(ctx context.Context, rawCode string, codeType domain.CodeType) (*RedeemResult, error) {
	code := domain.NormalizeCode(rawCode)
	if code == "" || !validType(codeType) {
		return nil, domain.ErrInvalidCode
	}

	if codeType == domain.CodeTypeTeam {
		member, err := findActivePromoCode(ctx, s.DB, code)
		if err != nil {
			return nil, err
		}
		if member != nil {
			return &RedeemResult{Code: code, Type: codeType, Source: SourcePromoCode, TeamMemberID: &member.ID}, nil
		}
	}

	var inv domain.InvitationCode
	err := s.DB.WithContext(ctx).
		Where("code = ? AND type = ? AND is_used = ?", code, codeType, false).
		First(&inv).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrInvalidCode
	}
	if err != nil {
		return nil, fmt.Errorf("lookup invitation code: %w: %w", domain.ErrBackend, err)
	}
	return &RedeemResult{Code: code, Type: codeType, Source: SourceInvitationCode}, nil
}

// JoinTeam redeems a TEAM code for the actor and enrols them as a team member with
// their own promo code. The redemption and the enrolment commit together.
func (s *Service) JoinTeam(ctx context.Context, actor domain.Actor, rawCode string) (*domain.TeamMember, error) {
	if !actor.Authenticated() {
		return nil, domain.ErrUnauthenticated
	}

	var member *domain.TeamMember
	createFailed := false
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureNotMember(ctx, tx, *actor.UserID); err != nil {
			return err
		}
		if _, err := s.redeem(ctx, tx, actor, rawCode, domain.CodeTypeTeam); err != nil {
			return err
		}
		promo, err := uniquePromoCode(ctx, tx)
		if err != nil {
			return err
		}
		member = &domain.TeamMember{
			UserID:     *actor.UserID,
			PromoCode:  promo,
			IsActive:   true,
			TotalSales: decimal.Zero,
			Rank:       domain.RankAmbassador,
		}
		if err := tx.Create(member).Error; err != nil {
			createFailed = true
			return fmt.Errorf("create team member: %w: %w", domain.ErrBackend, err)
		}
		return nil
	})
	// A concurrent join for the same user loses on the user_id unique index.
	if createFailed && errors.Is(ensureNotMember(ctx, s.DB, *actor.UserID), domain.ErrAlreadyMember) {
		err = domain.ErrAlreadyMember
	}
	recordOutcome(domain.CodeTypeTeam, err)
	if err != nil {
		return nil, err
	}

	log.Info().Str("team_member_id", member.ID.String()).Str("user_id", member.UserID.String()).
		Msg("redemption: user joined the team")
	return member, nil
}

func ensureNotMember(ctx context.Context, db *gorm.DB, userID uuid.UUID) error {
	var existing int64
	if err := db.WithContext(ctx).Model(&domain.TeamMember{}).
		Where("user_id = ?", userID).Count(&existing).Error; err != nil {
		return fmt.Errorf("lookup team member: %w: %w", domain.ErrBackend, err)
	}
	if existing > 0 {
		return domain.ErrAlreadyMember
	}
	return nil
}

func findActivePromoCode(ctx context.Context, db *gorm.DB, code string) (*domain.TeamMember, error) {
	var member domain.TeamMember
	err := db.WithContext(ctx).
		Where("promo_code = ? AND is_active = ?", code, true).
		First(&member).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		log.Error().Err(err).Msg("redemption: promo code lookup failed")
		return nil, fmt.Errorf("lookup promo code: %w: %w", domain.ErrBackend, err)
	}
	return &member, nil
}

// uniquePromoCode picks a code that collides with neither a promo code nor an
// invitation code, since both are redeemable under TEAM.
func uniquePromoCode(ctx context.Context, db *gorm.DB) (string, error) {
	for i := 0; i < promoCodeAttempts; i++ {
		code, err := generatePromoCode()
		if err != nil {
			return "", fmt.Errorf("generate promo code: %w: %w", domain.ErrBackend, err)
		}
		var taken int64
		if err := db.WithContext(ctx).Model(&domain.TeamMember{}).Where("promo_code = ?", code).Count(&taken).Error; err != nil {
			return "", fmt.Errorf("check promo code: %w: %w", domain.ErrBackend, err)
		}
		if taken > 0 {
			continue
		}
		if err := db.WithContext(ctx).Model(&domain.InvitationCode{}).Where("code = ?", code).Count(&taken).Error; err != nil {
			return "", fmt.Errorf("check promo code: %w: %w", domain.ErrBackend, err)
		}
		if taken == 0 {
			return code, nil
		}
	}
	return "", fmt.Errorf("allocate promo code after %d attempts: %w", promoCodeAttempts, domain.ErrBackend)
}

var generatePromoCode = newPromoCode

func newPromoCode() (string, error) {
	b := make([]byte, 3)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return promoCodePrefix + strings.ToUpper(hex.EncodeToString(b)), nil
}

func validType(t domain.CodeType) bool {
	return t == domain.CodeTypeTeam || t == domain.CodeTypeSeller
}

func recordOutcome(codeType domain.CodeType, err error) {
	outcome := metrics.OutcomeSuccess
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrInvalidCode):
		outcome = metrics.OutcomeInvalid
	default:
		outcome = metrics.OutcomeError
	}
	metrics.CodeRedemptions.WithLabelValues(string(codeType), outcome).Inc()
}
