package main

import (
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"

	"github.com/sumire/pouchlog/internal/cache"
	"github.com/sumire/pouchlog/internal/config"
	"github.com/sumire/pouchlog/internal/notify"
	"github.com/sumire/pouchlog/internal/repository"
	"github.com/sumire/pouchlog/internal/service"
)

var rootCmd = &cobra.Command{
	Use:           "pouchlog",
	Short:         "Nicotine pouch consumption tracker",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(serveCmd, workerCmd, seedCmd)
}

// app bundles the wired application graph shared by the serve and worker
// commands.
type app struct {
	cfg config.Config
	db  *sqlx.DB

	users         *repository.UserRepository
	notifications *repository.NotificationRepository
	verifications *repository.VerificationRepository
	goalRepo      *repository.GoalRepository

	auth          *service.AuthService
	catalog       *service.CatalogService
	logbook       *service.LogbookService
	goals         *service.GoalService
	prefs         *service.PreferenceService
	notifySvc     *service.NotificationService
	stats         *service.StatsService
}

func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	db, err := sqlx.Connect("pgx", cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	userRepo := repository.NewUserRepository(db)
	pouchRepo := repository.NewPouchRepository(db)
	logRepo := repository.NewLogRepository(db)
	goalRepo := repository.NewGoalRepository(db)
	prefRepo := repository.NewPreferenceRepository(db)
	notifRepo := repository.NewNotificationRepository(db)
	verifRepo := repository.NewVerificationRepository(db)

	charts := cache.New(cfg.RedisAddr)
	mailer := notify.NewMailer(cfg.Mail)
	discord := notify.NewDiscordClient()

	prefSvc := service.NewPreferenceService(prefRepo)
	notifSvc := service.NewNotificationService(notifRepo, userRepo, prefSvc, mailer, discord, cfg.Worker.MaxAttempts)
	logbookSvc := service.NewLogbookService(logRepo, pouchRepo, charts)
	goalSvc := service.NewGoalService(goalRepo, logRepo, notifSvc)
	statsSvc := service.NewStatsService(logRepo, goalSvc, charts)
	authSvc := service.NewAuthService(userRepo, verifRepo, mailer, service.AuthConfig{
		GoogleClientID:     cfg.GoogleClientID,
		GoogleClientSecret: cfg.GoogleClientSecret,
		JWTSecret:          cfg.JWTSecret,
		BaseURL:            cfg.BaseURL,
	})

	return &app{
		cfg:           cfg,
		db:            db,
		users:         userRepo,
		notifications: notifRepo,
		verifications: verifRepo,
		goalRepo:      goalRepo,
		auth:          authSvc,
		catalog:       service.NewCatalogService(pouchRepo),
		logbook:       logbookSvc,
		goals:         goalSvc,
		prefs:         prefSvc,
		notifySvc:     notifSvc,
		stats:         statsSvc,
	}, nil
}

func (a *app) Close() {
	if a.db != nil {
		a.db.Close()
	}
}
