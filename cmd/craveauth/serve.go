package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	craveAuth "github.com/CraveEvents/craveAuth"
	"github.com/CraveEvents/craveAuth/googleauth"
	"github.com/CraveEvents/craveAuth/internal/config"
	"github.com/CraveEvents/craveAuth/internal/httpapi"
	"github.com/CraveEvents/craveAuth/mailer"
	otelexport "github.com/CraveEvents/craveAuth/metrics/export/otel"
	promexport "github.com/CraveEvents/craveAuth/metrics/export/prometheus"
	"github.com/CraveEvents/craveAuth/mongostore"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

const shutdownTimeout = 15 * time.Second

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			envFile, _ := cmd.Flags().GetString("env-file")
			cfg, err := config.Load(envFile)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config) error {
	logger, err := newLogger(cfg.LogFormat, cfg.LogLevel)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	mongoClient, db, err := mongostore.Connect(connectCtx, cfg.MongoURI, cfg.MongoDatabase)
	if err != nil {
		return err
	}
	defer func() {
		if err := mongoClient.Disconnect(context.Background()); err != nil {
			logger.Warn("mongo disconnect", zap.Error(err))
		}
	}()
	if err := mongostore.EnsureIndexes(connectCtx, db); err != nil {
		return err
	}
	logger.Info("connected to mongodb", zap.String("database", cfg.MongoDatabase))

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("REDIS_URL: %w", err)
	}
	rdb := redis.NewClient(redisOpts)
	defer func() { _ = rdb.Close() }()
	if err := rdb.Ping(connectCtx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}

	var mail craveAuth.Mailer
	if cfg.SMTP != nil {
		m, err := mailer.NewSMTPMailer(*cfg.SMTP)
		if err != nil {
			return err
		}
		mail = m
	} else {
		logger.Warn("SMTP_HOST not set, mail is logged instead of sent")
		mail = mailer.NewLogMailer(logger)
	}

	users, refreshTokens := mongostore.Repositories(db)
	builder := craveAuth.New().
		WithConfig(cfg.Auth).
		WithRedis(rdb).
		WithUserRepositories(users).
		WithRefreshTokenRepository(refreshTokens).
		WithMailer(mail).
		WithLogger(logger)
	if len(cfg.Auth.Google.ClientIDs) > 0 {
		builder = builder.WithGoogleVerifier(googleauth.NewVerifier())
	}
	if cfg.Auth.Audit.Enabled {
		builder = builder.WithAuditSink(craveAuth.NewZapAuditSink(logger))
	}
	engine, err := builder.Build()
	if err != nil {
		return err
	}
	defer engine.Close()

	report := engine.SecurityReport()
	for _, w := range report.Warnings {
		logger.Warn("insecure setting", zap.String("detail", w))
	}
	logger.Info("auth engine ready",
		zap.Duration("access_ttl", report.AccessTTL),
		zap.Duration("refresh_ttl", report.RefreshTTL),
		zap.Bool("google_sign_in", report.GoogleSignInActive),
		zap.Bool("audit", report.AuditActive),
	)

	opts := httpapi.Options{AllowOrigins: cfg.AllowedOrigins, Logger: logger}
	if cfg.MetricsEnabled {
		opts.Metrics = promexport.NewExporter(engine).Handler()
	}
	if cfg.OTelEnabled {
		exp, err := otelexport.NewExporter(otel.Meter("github.com/CraveEvents/craveAuth"), engine)
		if err != nil {
			return err
		}
		defer func() { _ = exp.Close() }()
	}

	gin.SetMode(gin.ReleaseMode)
	srv := &http.Server{
		Addr:              net.JoinHostPort("", cfg.Port),
		Handler:           httpapi.NewRouter(engine, opts),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()
	return srv.Shutdown(shutdownCtx)
}
