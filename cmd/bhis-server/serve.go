package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/bhis/bhis/internal/config"
	"github.com/bhis/bhis/internal/domain/account"
	"github.com/bhis/bhis/internal/domain/patient"
	"github.com/bhis/bhis/internal/domain/queue"
	"github.com/bhis/bhis/internal/domain/riskassessment"
	"github.com/bhis/bhis/internal/platform/auth"
	"github.com/bhis/bhis/internal/platform/db"
	"github.com/bhis/bhis/internal/platform/export"
	"github.com/bhis/bhis/internal/platform/metrics"
	"github.com/bhis/bhis/internal/platform/middleware"
	"github.com/bhis/bhis/internal/platform/websocket"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the BHIS API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func newLogger(cfg *config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	if cfg.IsDev() {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).Level(level).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).Level(level).With().Timestamp().Logger()
}

func runServer() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)
	if err := cfg.Validate(); err != nil {
		logger.Error().Err(err).Msg("invalid configuration")
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, db.PoolConfig{
		URL:      cfg.DatabaseURL,
		MaxConns: cfg.DBMaxConns,
		MinConns: cfg.DBMinConns,
	})
	if err != nil {
		logger.Error().Err(err).Msg("failed to connect to database")
		return err
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	revocations := auth.NewTokenRevocationStore(auth.NewRevocationRepoPG(pool))
	if err := revocations.Load(ctx); err != nil {
		return err
	}
	logger.Info().Int("revoked_tokens", revocations.Count()).Msg("loaded token revocations")
	go revocations.Run(ctx, auth.DefaultCleanupInterval)

	e, err := newServer(cfg, logger, pool, revocations)
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("version", version).Msg("starting server")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		logger.Error().Err(err).Msg("server error")
		return err
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server shutdown failed")
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}

// newServer wires every handler onto a fresh echo instance.
func newServer(cfg *config.Config, logger zerolog.Logger, pool *pgxpool.Pool, revocations *auth.TokenRevocationStore) (*echo.Echo, error) {
	tokens, err := auth.NewTokenManager(auth.TokenConfig{
		Secret: []byte(cfg.JWTSecret),
		Issuer: cfg.JWTIssuer,
		TTL:    cfg.TokenTTL(),
	})
	if err != nil {
		return nil, err
	}

	collector := metrics.NewCollector()
	collector.RegisterPool(func() (int32, int32, int32) {
		s := db.GetPoolStats(pool)
		return s.TotalConns, s.IdleConns, s.AcquiredConns
	})

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(collector.Middleware())
	e.Use(middleware.SecurityHeaders())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:  cfg.CORSOrigins,
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders:  []string{"Authorization", "Content-Type", middleware.RequestIDHeader},
		ExposeHeaders: []string{"Content-Disposition", "X-Page-Count", middleware.RequestIDHeader},
	}))
	e.Use(middleware.BodyLimit(cfg.BodyLimit))
	e.Use(middleware.RequestTimeout(cfg.RequestTimeout()))

	e.GET("/health", db.HealthHandler(pool, version))
	e.GET("/metrics", echo.WrapHandler(collector.Handler()))

	api := e.Group("/api")
	api.Use(middleware.RateLimit(middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
		IdleTTL:           10 * time.Minute,
	}))
	api.Use(auth.JWTMiddleware(auth.JWTConfig{
		Tokens:      tokens,
		Revocations: revocations,
		Skipper:     auth.AuthSkipper,
	}))

	// Patients
	patientSvc := patient.NewService(patient.NewRepo(pool), logger)
	patient.NewHandler(patientSvc).RegisterRoutes(api)

	// Queue
	classifier := queue.DefaultClassifier()
	classifier.ElderlyMinAge = cfg.QueueElderlyMinAge
	classifier.ChildUnderAge = cfg.QueueChildUnderAge
	queueHandler := queue.NewHandler(queue.NewStore(classifier), logger)
	queueHandler.SetPatientDirectory(patientSvc)
	queueHandler.SetCountsGauge(collector)
	hub := websocket.NewHub(logger)
	stream := websocket.NewHandler(hub, cfg.CORSOrigins, queue.Topic)
	stream.OnConnect = func() *websocket.Event {
		data, err := json.Marshal(queueHandler.Snapshot())
		if err != nil {
			return nil
		}
		return &websocket.Event{Type: queue.EventSnapshot, Topic: queue.Topic, Data: data}
	}
	queueHandler.SetNotifier(hub, stream.HandleConnect)
	queueHandler.RegisterRoutes(api)
	// hijacked connections are not closed by http.Server.Shutdown
	e.Server.RegisterOnShutdown(func() { hub.Shutdown(context.Background()) })

	// Risk assessments
	exporter := export.NewExporter(export.Options{
		PDF: export.PDFOptions{FontPath: cfg.ExportFontPath, Creator: "bhis " + version},
	})
	exporter.SetObserver(collector)
	renderOpts := riskassessment.DefaultRenderOptions()
	renderOpts.DocumentType = cfg.ExportDocumentType
	raSvc := riskassessment.NewService(riskassessment.NewRepo(pool), exporter, renderOpts, logger)
	raSvc.SetPatientProfiles(newPatientProfiles(patientSvc))
	riskassessment.NewHandler(raSvc).RegisterRoutes(api)

	// Accounts
	accountSvc := account.NewService(account.NewRepo(pool), tokens, revocations, logger)
	account.NewHandler(accountSvc).RegisterRoutes(api)

	return e, nil
}
