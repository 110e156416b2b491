package router

import (
	"net/http"

	authsvc "lion-backend/internal/application/auth"
	commsvc "lion-backend/internal/application/commissions"
	ocsvc "lion-backend/internal/application/ordercommission"
	ranksvc "lion-backend/internal/application/ranks"
	redeemsvc "lion-backend/internal/application/redemption"
	"lion-backend/internal/config"
	"lion-backend/internal/domain"
	"lion-backend/internal/infrastructure/database"
	"lion-backend/internal/infrastructure/realtime"
	adminhandler "lion-backend/internal/interfaces/handlers/admin"
	authhandler "lion-backend/internal/interfaces/handlers/auth"
	codeshandler "lion-backend/internal/interfaces/handlers/codes"
	healthhandler "lion-backend/internal/interfaces/handlers/health"
	teamhandler "lion-backend/internal/interfaces/handlers/team"
	"lion-backend/internal/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

type gormDBPinger struct {
	db *gorm.DB
}

func (g *gormDBPinger) Ping() error {
	if g == nil || g.db == nil {
		return nil
	}
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

func sessionConfig(cfg *config.Config) middleware.SessionConfig {
	return middleware.SessionConfig{
		Secret:            cfg.SessionSecret,
		RedisURL:          cfg.RedisURL,
		AllowCrossSiteDev: cfg.AllowCrossSiteDev,
		IsProduction:      cfg.IsProduction(),
		CookieDomain:      cfg.CookieDomain,
	}
}

// CreateApp opens Postgres (when DATABASE_URL is set) and Redis and mounts every route.
func CreateApp(cfg *config.Config) (*fiber.App, *gorm.DB, *redis.Client, error) {
	var db *gorm.DB
	if cfg.DatabaseURL != "" {
		var err error
		db, err = database.Open(cfg.DatabaseURL)
		if err != nil {
			return nil, nil, nil, err
		}
		if cfg.AutoMigrate {
			if err := database.AutoMigrate(db); err != nil {
				return nil, nil, nil, err
			}
			log.Info().Msg("database: schema migrated")
		}
	}

	sessionHandler, rdb, err := middleware.Session(sessionConfig(cfg))
	if err != nil {
		return nil, nil, nil, err
	}

	app, err := NewApp(cfg, db, rdb, sessionHandler)
	if err != nil {
		return nil, nil, nil, err
	}
	return app, db, rdb, nil
}

// NewApp wires handlers onto already-open connections. db may be nil, in which case
// only auth-less infrastructure routes are mounted.
func NewApp(cfg *config.Config, db *gorm.DB, rdb *redis.Client, sessionHandler fiber.Handler) (*fiber.App, error) {
	app := fiber.New(fiber.Config{
		DisableStartupMessage:   true,
		ErrorHandler:            middleware.ErrorHandler,
		EnableTrustedProxyCheck: true,
	})

	app.Use(middleware.CORS(middleware.CORSConfig{
		AllowedSuffix: cfg.FrontendURLEndsWith,
		DevPassword:   cfg.DevPassword,
	}))
	if sessionHandler != nil {
		app.Use(sessionHandler)
	}
	app.Use(middleware.Tracing())
	app.Use(middleware.HealthMarker(rdb))
	app.Use(middleware.RouteLogger())

	hh := &healthhandler.Handlers{
		Rdb:            rdb,
		HealthAdminKey: cfg.HealthAdminKey,
		StrictStatus:   cfg.IsProduction(),
	}
	if db != nil {
		hh.DB = &gormDBPinger{db: db}
	}
	app.Get("/health/json", hh.JSON)
	app.Get("/health/errors", hh.Errors)
	app.Get("/reset", hh.Reset)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	var userFinder authsvc.UserFinder
	if db != nil {
		userFinder = &authsvc.GormUserFinder{DB: db}
	}
	ah := &authhandler.Handlers{
		UserFinder: userFinder,
		Rdb:        rdb,
		Config:     sessionConfig(cfg),
	}
	authGroup := app.Group("/api/v1/auth")
	authGroup.Post("/login", ah.Login)
	authGroup.Get("/me", ah.Me)
	authGroup.Delete("/logout", ah.Logout)

	if db == nil {
		log.Warn().Msg("router: no database configured, team routes disabled")
		return app, nil
	}

	var (
		changeFeed realtime.Feed
		publisher  realtime.Publisher
	)
	if rdb != nil {
		feed := realtime.NewRedisFeed(rdb)
		if err := realtime.RegisterCallbacks(db, feed, domain.Commission{}.TableName()); err != nil {
			return nil, err
		}
		changeFeed, publisher = feed, feed
	}

	redemption := &redeemsvc.Service{DB: db}
	commissions := &commsvc.Service{DB: db, Feed: changeFeed}
	orderCommission := ocsvc.NewService(db, publisher)

	// Codes: redeem is open to anonymous shoppers; used_by is set when signed in.
	ch := &codeshandler.Handlers{Service: redemption}
	cg := app.Group("/api/v1/codes")
	cg.Post("/check", ch.Check)
	cg.Post("/redeem", ch.Redeem)

	th := &teamhandler.Handlers{Redemption: redemption, Commissions: commissions}
	tg := app.Group("/api/v1/team", middleware.RequireAuth())
	tg.Post("/join", th.Join)
	tg.Get("/commissions", th.GetCommissions)
	tg.Get("/commissions/stream", th.StreamCommissions)

	adh := &adminhandler.Handlers{
		Commissions:     commissions,
		OrderCommission: orderCommission,
		Ranks:           &ranksvc.Service{DB: db},
	}
	ag := app.Group("/api/v1/admin", middleware.RequireAdmin())
	ag.Patch("/commissions/:id/status", adh.UpdateCommissionStatus)
	ag.Post("/orders/:id/process-commission", adh.ProcessOrderCommission)
	ag.Post("/team-members/:id/promote-rank", adh.PromoteRank)

	return app, nil
}

func Handler(app *fiber.App) http.Handler {
	return adaptor.FiberApp(app)
}
