package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/luxspa/giftspa/internal/catalog"
	"github.com/luxspa/giftspa/internal/checkout"
	"github.com/luxspa/giftspa/internal/config"
	"github.com/luxspa/giftspa/internal/db"
	"github.com/luxspa/giftspa/internal/document"
	"github.com/luxspa/giftspa/internal/events"
	relayhttp "github.com/luxspa/giftspa/internal/http"
	"github.com/luxspa/giftspa/internal/http/api/admin"
	"github.com/luxspa/giftspa/internal/http/api/admin/handlers"
	"github.com/luxspa/giftspa/internal/http/api/front"
	"github.com/luxspa/giftspa/internal/ledger"
	"github.com/luxspa/giftspa/internal/logging"
	"github.com/luxspa/giftspa/internal/metrics"
	"github.com/luxspa/giftspa/internal/notify"
	"github.com/luxspa/giftspa/internal/payment"
	"github.com/luxspa/giftspa/internal/session"
	"github.com/luxspa/giftspa/internal/settings"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const shutdownTimeout = 10 * time.Second

// Migrate opens the database and runs migrations.
func Migrate(ctx context.Context, cfg config.AppConfig) error {
	conn, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	return db.Migrate(conn)
}

// Seed migrates the database and installs the default catalog when it is empty.
func Seed(ctx context.Context, cfg config.AppConfig) error {
	conn, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		return errMigrate
	}
	return catalog.SeedDefaults(ctx, conn)
}

// RunServer boots the storefront and admin API and blocks until ctx is done.
func RunServer(ctx context.Context, cfg config.AppConfig) error {
	configPath := config.ResolveConfigPath(cfg.ConfigPath)
	fileCfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logCloser := logging.Setup(fileCfg.Log)
	if logCloser != nil {
		defer func() { _ = logCloser.Close() }()
	}

	conn, err := db.Open(fileCfg.Database.DSN)
	if err != nil {
		return err
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		return errMigrate
	}
	if errRefresh := settings.Refresh(ctx, conn); errRefresh != nil {
		return errRefresh
	}
	if errSeed := catalog.SeedDefaults(ctx, conn); errSeed != nil {
		return errSeed
	}

	healthChecks := map[string]handlers.HealthCheck{}
	var (
		sessions session.Store
		limiter  relayhttp.Limiter
	)
	if addr := strings.TrimSpace(fileCfg.Redis.Addr); addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: fileCfg.Redis.Password,
			DB:       fileCfg.Redis.DB,
		})
		defer func() { _ = client.Close() }()
		if errPing := client.Ping(ctx).Err(); errPing != nil {
			return fmt.Errorf("redis ping %s: %w", addr, errPing)
		}
		sessions = session.NewRedisStore(client, session.DefaultTTL)
		limiter = relayhttp.NewRedisLimiter(client)
		healthChecks["redis"] = func(ctx context.Context) error { return client.Ping(ctx).Err() }
		log.Infof("sessions and rate limits backed by redis at %s", addr)
	} else {
		sessions = session.NewMemoryStore(session.DefaultTTL)
		limiter = relayhttp.NewMemoryLimiter()
		log.Warn("redis not configured, sessions and rate limits are process-local")
	}

	var publisher events.Publisher = events.Nop{}
	if url := strings.TrimSpace(fileCfg.NATS.URL); url != "" {
		natsPublisher, errConnect := events.ConnectNATS(url, fileCfg.NATS.Subject)
		if errConnect != nil {
			return errConnect
		}
		defer natsPublisher.Close()
		publisher = natsPublisher
	}

	m := metrics.New()
	cat := catalog.NewStore(conn)
	repo := ledger.NewStore(conn, fileCfg.Security.LookupSecret)
	links := checkout.Links{BaseURL: fileCfg.Server.PublicURL, Secret: fileCfg.Security.ArtifactSecret}
	fulfiller := checkout.NewFulfiller(checkout.FulfillerDeps{
		DB:        conn,
		Ledger:    repo,
		Catalog:   cat,
		Renderer:  document.NewPDFRenderer(),
		Documents: document.NewStore(conn),
		Notifier:  notify.New(fileCfg.SMTP),
		Publisher: publisher,
		Links:     links,
		Metrics:   m,
	})
	service := checkout.NewService(checkout.Deps{
		Sessions:  sessions,
		Catalog:   cat,
		Gateway:   payment.NewMockGateway(fileCfg.Payment.DeclineTokens),
		Fulfiller: fulfiller,
		Metrics:   m,
	})
	checkout.NewRetryWorker(fulfiller).Start(ctx)

	engine := gin.New()
	engine.Use(gin.Recovery(), logging.GinLogger())
	engine.GET("/metrics", gin.WrapH(m.Handler()))
	front.RegisterFrontRoutes(engine, front.Deps{
		Sessions:       sessions,
		Catalog:        cat,
		Checkout:       service,
		Fulfiller:      fulfiller,
		Ledger:         repo,
		Links:          links,
		Metrics:        m,
		Limiter:        limiter,
		RetrievalLimit: fileCfg.Server.RetrievalRateLimit,
	})
	admin.RegisterAdminRoutes(engine, admin.Deps{
		DB:           conn,
		Ledger:       repo,
		Fulfiller:    fulfiller,
		AdminKey:     fileCfg.Security.AdminKey,
		HealthChecks: healthChecks,
	})
	if strings.TrimSpace(fileCfg.Security.AdminKey) == "" {
		log.Warn("security.admin-key is empty, admin routes are unauthenticated")
	}

	srv := &http.Server{
		Addr:              fileCfg.Server.Addr,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Infof("giftspa listening on %s (config=%s)", fileCfg.Server.Addr, configPath)
		if errServe := srv.ListenAndServe(); errServe != nil && !errors.Is(errServe, http.ErrServerClosed) {
			errCh <- errServe
		}
		close(errCh)
	}()

	select {
	case errServe := <-errCh:
		return errServe
	case <-ctx.Done():
	}
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if errShutdown := srv.Shutdown(shutdownCtx); errShutdown != nil {
		return fmt.Errorf("shutdown: %w", errShutdown)
	}
	return nil
}

func openDatabase(cfg config.AppConfig) (*gorm.DB, error) {
	dsn, err := config.LoadDatabaseDSN(config.ResolveConfigPath(cfg.ConfigPath))
	if err != nil {
		return nil, err
	}
	return db.Open(dsn)
}
