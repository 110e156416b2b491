package database

import (
	"lion-backend/internal/domain"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open opens a GORM DB from DSN (Supabase/Postgres pooler URL).
// PreferSimpleProtocol disables prepared statement caching to avoid 42P05
// ("prepared statement already exists") when using connection poolers (e.g. PgBouncer, Supabase).
// Orders are owned by the storefront, so no foreign keys are created towards them.
func Open(dsn string) (*gorm.DB, error) {
	return gorm.Open(postgres.New(postgres.Config{
		DSN:                  dsn,
		PreferSimpleProtocol: true,
	}), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Error),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
}

// Models lists every table this service maps, in migration order.
func Models() []interface{} {
	return []interface{}{
		&domain.User{},
		&domain.Order{},
		&domain.TeamMember{},
		&domain.InvitationCode{},
		&domain.Commission{},
	}
}

// AutoMigrate creates or updates the Team program tables.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(Models()...)
}
