package realtime

import (
	"context"
	"errors"
	"sync"
	"testing"

	"lion-backend/internal/domain"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []ChangeEvent
}

func (p *recordingPublisher) Publish(ctx context.Context, ev ChangeEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) all() []ChangeEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]ChangeEvent(nil), p.events...)
}

func setupCallbacks(t *testing.T) (*gorm.DB, *recordingPublisher) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{DisableForeignKeyConstraintWhenMigrating: true})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&domain.Commission{}, &domain.TeamMember{}))

	pub := &recordingPublisher{}
	require.NoError(t, RegisterCallbacks(db, pub, "commissions"))
	return db, pub
}

func TestRegisterCallbacks_InsertUpdateDelete(t *testing.T) {
	db, pub := setupCallbacks(t)

	c := &domain.Commission{
		TeamMemberID: uuid.New(),
		OrderID:      uuid.New(),
		Amount:       decimal.NewFromInt(100),
		Status:       domain.CommissionPending,
		Type:         domain.CommissionTypeSale,
	}
	require.NoError(t, db.Create(c).Error)
	require.NoError(t, db.Model(&domain.Commission{}).Where("id = ?", c.ID).Update("status", domain.CommissionApproved).Error)
	require.NoError(t, db.Delete(&domain.Commission{}, "id = ?", c.ID).Error)

	events := pub.all()
	require.Len(t, events, 3)
	assert.Equal(t, EventInsert, events[0].Type)
	assert.Equal(t, c.ID.String(), events[0].RecordID)
	assert.Equal(t, "commissions", events[0].Table)
	assert.Equal(t, DefaultSchema, events[0].Schema)
	assert.Equal(t, EventUpdate, events[1].Type)
	assert.Equal(t, EventDelete, events[2].Type)
}

func TestRegisterCallbacks_IgnoresOtherTablesAndNoops(t *testing.T) {
	db, pub := setupCallbacks(t)

	require.NoError(t, db.Create(&domain.TeamMember{UserID: uuid.New(), PromoCode: "LIONX1"}).Error)
	require.NoError(t, db.Model(&domain.Commission{}).Where("id = ?", uuid.New()).Update("status", domain.CommissionPaid).Error)

	assert.Empty(t, pub.all())
}

func newCommission() *domain.Commission {
	return &domain.Commission{
		TeamMemberID: uuid.New(),
		OrderID:      uuid.New(),
		Amount:       decimal.NewFromInt(25),
		Status:       domain.CommissionPending,
		Type:         domain.CommissionTypeSale,
	}
}

func TestTransaction_PublishesAfterCommit(t *testing.T) {
	db, pub := setupCallbacks(t)
	c := newCommission()

	err := Transaction(context.Background(), db, func(tx *gorm.DB) error {
		if err := tx.Create(c).Error; err != nil {
			return err
		}
		assert.Empty(t, pub.all(), "nothing is published before commit")
		return tx.Model(&domain.Commission{}).Where("id = ?", c.ID).Update("status", domain.CommissionApproved).Error
	})
	require.NoError(t, err)

	events := pub.all()
	require.Len(t, events, 2)
	assert.Equal(t, EventInsert, events[0].Type)
	assert.Equal(t, c.ID.String(), events[0].RecordID)
	assert.Equal(t, EventUpdate, events[1].Type)
}

func TestTransaction_RollbackPublishesNothing(t *testing.T) {
	db, pub := setupCallbacks(t)
	boom := errors.New("boom")

	err := Transaction(context.Background(), db, func(tx *gorm.DB) error {
		if err := tx.Create(newCommission()).Error; err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, pub.all())

	var count int64
	require.NoError(t, db.Model(&domain.Commission{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestRegisterCallbacks_UntrackedTransactionDoesNotPublishEarly(t *testing.T) {
	db, pub := setupCallbacks(t)

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(newCommission()).Error; err != nil {
			return err
		}
		return errors.New("rolled back")
	})
	require.Error(t, err)
	assert.Empty(t, pub.all())
}
