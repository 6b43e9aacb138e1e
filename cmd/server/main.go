package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/Skotchmaster/research_repository/internal/config"
	"github.com/Skotchmaster/research_repository/internal/es"
	"github.com/Skotchmaster/research_repository/internal/handlers"
	"github.com/Skotchmaster/research_repository/internal/logging"
	"github.com/Skotchmaster/research_repository/internal/mailer"
	"github.com/Skotchmaster/research_repository/internal/middleware/csrf"
	"github.com/Skotchmaster/research_repository/internal/middleware/throttle"
	"github.com/Skotchmaster/research_repository/internal/mykafka"
	"github.com/Skotchmaster/research_repository/internal/otp"
	"github.com/Skotchmaster/research_repository/internal/ratelimit"
	"github.com/Skotchmaster/research_repository/internal/repo"
	"github.com/Skotchmaster/research_repository/internal/search"
	"github.com/Skotchmaster/research_repository/internal/service"
	"github.com/Skotchmaster/research_repository/internal/session"
	"github.com/Skotchmaster/research_repository/internal/storage"
	httpserver "github.com/Skotchmaster/research_repository/internal/transport/http"
	"github.com/Skotchmaster/research_repository/pkg/db"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	logger := logging.New(cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	gdb, err := db.Open(ctx, cfg.DBDriver, cfg.DatabaseURL)
	if err != nil {
		logger.Error("db_open_failed", "error", err)
		os.Exit(1)
	}
	if err := db.Migrate(gdb); err != nil {
		logger.Error("db_migrate_failed", "error", err)
		os.Exit(1)
	}

	var (
		events service.EventPublisher
		mail   mailer.Mailer
		prod   *mykafka.Producer
	)
	if len(cfg.KafkaBrokers) > 0 {
		prod, err = mykafka.NewProducer(cfg.KafkaBrokers)
		if err != nil {
			logger.Error("kafka_producer_failed", "error", err)
			os.Exit(1)
		}
		events = prod
		mail = &mailer.KafkaMailer{Producer: prod, Topic: cfg.MailTopic}
	} else {
		logger.Warn("kafka_disabled", "reason", "KAFKA_BROKERS is empty, mailing over SMTP directly")
		mail = &mailer.SMTPSender{Addr: cfg.SMTPAddr, Username: cfg.SMTPUser, Password: cfg.SMTPPassword, From: cfg.MailFrom}
	}

	var index service.Indexer
	if cfg.ESURL != "" {
		esClient, err := es.NewClient(ctx, es.Options{URL: cfg.ESURL, User: cfg.ESUser, Password: cfg.ESPassword}, logger)
		if err != nil {
			logger.Error("es_connect_failed", "error", err)
			os.Exit(1)
		}
		idx := search.New(esClient, cfg.ESIndex)
		if err := idx.EnsureIndex(ctx); err != nil {
			logger.Error("es_index_failed", "index", cfg.ESIndex, "error", err)
			os.Exit(1)
		}
		index = idx
	}

	var files service.Presigner
	if cfg.S3Endpoint != "" || cfg.S3AccessKey != "" {
		p, err := storage.NewS3Presigner(ctx, storage.Options{
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			Bucket:    cfg.S3Bucket,
		})
		if err != nil {
			logger.Error("s3_config_failed", "error", err)
			os.Exit(1)
		}
		files = p
	}

	r := repo.New(gdb)
	otps := otp.New(gdb, mail)
	sessions := &session.Manager{Repo: r, Secret: cfg.SessionSecret, TTL: cfg.SessionTTL, RememberTTL: cfg.RememberTTL}
	assets := &service.AssetService{Repo: r, Index: index, Files: files, Events: events}
	perIP := throttle.New(cfg.AuthThrottleRPS, cfg.AuthThrottleBurst)

	csrfCfg := csrf.DefaultConfig()
	csrfCfg.Secure = cfg.SecureCookies

	e := echo.New()
	e.HideBanner = true
	e.Pre(middleware.RemoveTrailingSlash())

	httpserver.Register(e, &httpserver.Deps{
		DB:       gdb,
		Logger:   logger,
		Sessions: sessions,
		Throttle: perIP,
		CSRF:     csrfCfg,
		AuthHandler: &handlers.AuthHandler{
			Auth: &service.AuthService{
				Repo:     r,
				OTP:      otps,
				Limiter:  ratelimit.New(&ratelimit.GormStore{DB: gdb}),
				Sessions: sessions,
				Events:   events,
			},
			HomeRoute:    cfg.HomeRoute,
			SecureCookie: cfg.SecureCookies,
		},
		RBACHandler:       &handlers.RBACHandler{RBAC: &service.RBACService{Repo: r, Events: events}},
		UserHandler:       &handlers.UserHandler{Users: &service.UserService{Repo: r, Events: events}},
		AssetHandler:      &handlers.AssetHandler{Assets: assets},
		ClientHandler:     &handlers.ClientHandler{Clients: &service.ClientService{Repo: r, Events: events}},
		RepositoryHandler: &handlers.RepositoryHandler{Assets: assets},
	})

	go otps.RunSweeper(ctx, cfg.OTPSweepInterval, logger.With("worker", "otp_sweeper"))
	go func() {
		t := time.NewTicker(time.Minute)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				perIP.Cleanup()
			}
		}
	}()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      e,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		logger.Info("http_server_started", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http_server_failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting_down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server_shutdown_failed", "error", err)
	}

	if sqlDB, err := gdb.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			logger.Error("db_close_failed", "error", err)
		}
	}

	if prod != nil {
		if err := prod.Close(); err != nil {
			logger.Error("kafka_close_failed", "error", err)
		}
	}

	logger.Info("shutdown_complete")
}
