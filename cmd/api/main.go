package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"storefront/internal/clock"
	"storefront/internal/config"
	"storefront/internal/handler"
	"storefront/internal/logger"
	"storefront/internal/notify"
	"storefront/internal/pricing"
	"storefront/internal/service"
	"storefront/internal/store"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type application struct {
	config        *config.Config
	logger        *zap.Logger
	store         store.Store
	saleService   *service.SaleService
	clock         clock.Clock
	server        *http.Server
	shutdownChan  chan struct{}
	announcerDone chan struct{}
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if cfg.JWTSecret == "" {
		log.Fatal("STOREFRONT_JWT_SECRET must be set")
	}

	st, err := store.NewStore(cfg.StoreKind, cfg.DBDriver, cfg.DBDataSourceName)
	if err != nil {
		log.Fatal("Failed to open store", zap.String("kind", cfg.StoreKind), zap.Error(err))
	}
	defer func() {
		if err := st.Close(); err != nil {
			log.Warn("Error closing store", zap.Error(err))
		}
	}()

	if db, ok := st.(*store.DBStore); ok {
		if err := store.RunMigrations(db.DB, cfg.MigrationsDir, log); err != nil {
			log.Fatal("Failed to run migrations", zap.Error(err))
		}
	}

	var publisher notify.Publisher = notify.LogPublisher{Logger: log}
	if cfg.RedisEnabled {
		redisClient, err := store.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			log.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		redisStore := store.NewRedisStore(redisClient)
		defer func() {
			if err := redisStore.Close(); err != nil {
				log.Warn("Error closing Redis client", zap.Error(err))
			}
		}()
		publisher = redisStore
	}

	clk := clock.System{}
	deps := service.Deps{
		Logger:    log,
		Store:     st,
		Resolver:  pricing.NewResolver(clk),
		Publisher: publisher,
	}
	catalogService := service.NewCatalogService(deps)
	saleService := service.NewSaleService(deps)
	cartService := service.NewCartService(deps)

	gin.SetMode(gin.ReleaseMode)
	router := handler.NewRouter(handler.New(log, catalogService, saleService, cartService), cfg.JWTSecret)

	app := &application{
		config:        cfg,
		logger:        log,
		store:         st,
		saleService:   saleService,
		clock:         clk,
		shutdownChan:  make(chan struct{}),
		announcerDone: make(chan struct{}),
	}

	go app.runSaleAnnouncer()

	app.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      http.TimeoutHandler(router, cfg.RequestTimeout, `{"error":"request timed out"}`),
		IdleTimeout:  time.Minute,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		ErrorLog:     zap.NewStdLog(log),
	}

	app.serve()
}

func (app *application) serve() {
	app.logger.Info("Starting server", zap.String("addr", app.server.Addr))

	errChan := make(chan error, 1)
	go func() {
		if err := app.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		app.logger.Fatal("Server error", zap.Error(err))
	case sig := <-quit:
		app.logger.Info("Shutting down server", zap.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	close(app.shutdownChan)
	select {
	case <-app.announcerDone:
		app.logger.Info("Sale announcer stopped")
	case <-time.After(10 * time.Second):
		app.logger.Warn("Sale announcer did not stop in time")
	}

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("Graceful server shutdown failed", zap.Error(err))
	} else {
		app.logger.Info("Server gracefully stopped")
	}
}

// runSaleAnnouncer tells wishlist owners about sale events as they start.
// Each tick covers the interval since the previous one, so no start is
// announced twice while the process runs.
func (app *application) runSaleAnnouncer() {
	defer close(app.announcerDone)

	ticker := time.NewTicker(app.config.AnnounceInterval)
	defer ticker.Stop()

	app.logger.Info("Sale announcer started", zap.Duration("interval", app.config.AnnounceInterval))

	last := app.clock.Now()
	for {
		select {
		case <-ticker.C:
			now := app.clock.Now()
			ctx, cancel := context.WithTimeout(context.Background(), app.config.RequestTimeout)
			n, err := app.saleService.AnnounceStartedSales(ctx, last, now)
			cancel()
			if err != nil {
				// keep last so the window is retried on the next tick
				app.logger.Error("Failed to announce started sales", zap.Error(err))
				continue
			}
			if n > 0 {
				app.logger.Info("Announced started sales", zap.Int("notifications", n))
			}
			last = now
		case <-app.shutdownChan:
			return
		}
	}
}
