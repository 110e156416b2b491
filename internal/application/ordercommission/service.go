package ordercommission

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"lion-backend/internal/domain"
	"lion-backend/internal/infrastructure/realtime"
	"lion-backend/internal/pkg/metrics"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ProcedureCaller runs the database-owned commission computation for an order.
type ProcedureCaller interface {
	ProcessTeamCommission(ctx context.Context, orderID uuid.UUID) (datatypes.JSON, error)
}

// GormProcedureCaller calls process_team_commission(order_id_param) on Postgres.
type GormProcedureCaller struct {
	DB *gorm.DB
}

func (p *GormProcedureCaller) ProcessTeamCommission(ctx context.Context, orderID uuid.UUID) (datatypes.JSON, error) {
	var raw sql.NullString
	if err := p.DB.WithContext(ctx).
		Raw("SELECT process_team_commission(?)::text", orderID).
		Row().Scan(&raw); err != nil {
		return nil, err
	}
	if !raw.Valid || raw.String == "" {
		return nil, nil
	}
	if json.Valid([]byte(raw.String)) {
		return datatypes.JSON(raw.String), nil
	}
	b, err := json.Marshal(raw.String)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(b), nil
}

// Result is the outcome of one trigger. Failures are reported here, never returned
// as an error or panic.
type Result struct {
	Success bool           `json:"success"`
	Data    datatypes.JSON `json:"data,omitempty"`
	Error   string         `json:"error,omitempty"`
}

type Service struct {
	DB         *gorm.DB
	Procedures ProcedureCaller
	// Publisher is optional. Rows written by the procedure bypass GORM callbacks,
	// so a commissions event is published here instead.
	Publisher realtime.Publisher
}

func NewService(db *gorm.DB, pub realtime.Publisher) *Service {
	return &Service{DB: db, Procedures: &GormProcedureCaller{DB: db}, Publisher: pub}
}

// Process invokes process_team_commission for the order once, with no retry. The
// commissions written for the order are read back for the log only.
func (s *Service) Process(ctx context.Context, orderID uuid.UUID) (res Result) {
	logger := log.With().Str("order_id", orderID.String()).Logger()

	defer func() {
		if r := recover(); r != nil {
			logger.Error().Interface("panic", r).Msg("ordercommission: procedure panicked")
			metrics.CommissionTriggers.WithLabelValues(metrics.OutcomeError).Inc()
			res = Result{Success: false, Error: fmt.Sprint(r)}
		}
	}()

	if s.Procedures == nil {
		metrics.CommissionTriggers.WithLabelValues(metrics.OutcomeError).Inc()
		return Result{Success: false, Error: "commission procedure not configured"}
	}

	data, err := s.Procedures.ProcessTeamCommission(ctx, orderID)
	if err != nil {
		logger.Error().Err(err).Msg("ordercommission: process_team_commission failed")
		metrics.CommissionTriggers.WithLabelValues(metrics.OutcomeError).Inc()
		return Result{Success: false, Error: err.Error()}
	}
	metrics.CommissionTriggers.WithLabelValues(metrics.OutcomeSuccess).Inc()

	s.logReadBack(ctx, orderID)
	s.publish(ctx, orderID)

	logger.Info().Msg("ordercommission: commission processed")
	return Result{Success: true, Data: data}
}

func (s *Service) logReadBack(ctx context.Context, orderID uuid.UUID) {
	if s.DB == nil {
		return
	}
	var rows []domain.Commission
	if err := s.DB.WithContext(ctx).Where("order_id = ?", orderID).Find(&rows).Error; err != nil {
		log.Warn().Err(err).Str("order_id", orderID.String()).Msg("ordercommission: read-back failed")
		return
	}
	members := make([]string, 0, len(rows))
	for _, c := range rows {
		members = append(members, c.TeamMemberID.String())
	}
	log.Info().Str("order_id", orderID.String()).
		Int("commissions", len(rows)).
		Strs("team_member_ids", members).
		Msg("ordercommission: read-back")
}

func (s *Service) publish(ctx context.Context, orderID uuid.UUID) {
	if s.Publisher == nil {
		return
	}
	err := s.Publisher.Publish(ctx, realtime.ChangeEvent{
		Schema: realtime.DefaultSchema,
		Table:  domain.Commission{}.TableName(),
		Type:   realtime.EventInsert,
	})
	if err != nil {
		log.Warn().Err(err).Str("order_id", orderID.String()).Msg("ordercommission: change event not published")
	}
}
