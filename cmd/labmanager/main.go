package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"lab-manager/internal/backend"
	"lab-manager/internal/config"
	"lab-manager/internal/database"
	"lab-manager/internal/handler"
	"lab-manager/internal/metrics"
	"lab-manager/internal/middleware"
	"lab-manager/internal/notification"
	"lab-manager/internal/repository"
	"lab-manager/internal/router"
	"lab-manager/internal/service"
	notificationadapter "lab-manager/internal/service/notification"
	"lab-manager/internal/view"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

func main() {
	// A missing .env file is fine; the environment may already be set.
	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}
	setupLogging(cfg)
	logger := logrus.StandardLogger()

	var m *metrics.Metrics
	if cfg.Server.EnableMetrics {
		m = metrics.New()
	}

	client, closeBackend, err := openBackend(cfg, logger)
	if err != nil {
		logger.Fatalf("Failed to initialize backend: %v", err)
	}
	defer closeBackend()
	if m != nil {
		client = m.InstrumentBackend(client)
	}

	notifier := notification.NewNotifierWithConfig(notification.NotificationConfig{
		URL:            cfg.NotificationService.URL,
		Timeout:        cfg.NotificationService.Timeout,
		RetryAttempts:  cfg.NotificationService.RetryAttempts,
		RetryDelay:     cfg.NotificationService.RetryDelay,
		MaxPayloadSize: cfg.NotificationService.MaxPayloadSize,
	}, logger)

	svc := service.NewLabService(
		repository.NewComputerRepository(client),
		repository.NewComponentRepository(client),
		repository.NewIncidentRepository(client),
		notificationadapter.NewServiceAdapter(notifier),
		logger,
	)

	renderer, err := view.NewRenderer(cfg.Location())
	if err != nil {
		logger.Fatalf("Failed to parse templates: %v", err)
	}

	var notifierCheck handler.NotifierChecker
	if cfg.NotificationService.URL != "" {
		notifierCheck = notifier
	}
	h := handler.NewLabHandler(svc, client, notifierCheck, renderer, logger)

	securityMW := middleware.NewSecurityMiddleware(&cfg.Security)
	r := router.NewRouter(h, securityMW, cfg, m)

	loggingMW := middleware.NewLoggingMiddleware(logger)
	finalHandler := loggingMW.RequestID(loggingMW.LogRequests(r))

	server := &http.Server{
		Addr:           fmt.Sprintf(":%d", cfg.Port),
		Handler:        finalHandler,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go securityMW.RunCleanup(ctx, time.Minute)

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.WithFields(logrus.Fields{
			"port":          cfg.Port,
			"backend":       cfg.Backend,
			"rate_limit":    cfg.Security.RateLimitRPS,
			"burst":         cfg.Security.RateLimitBurst,
			"cors":          cfg.Security.EnableCORS,
			"timeout":       cfg.Security.RequestTimeout,
			"metrics":       cfg.Server.EnableMetrics,
			"notifications": cfg.NotificationService.URL != "",
		}).Info("Starting server")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-done
	logger.Info("Server is shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Security.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Warn("Server forced to shutdown")
	}

	// Let queued notifications finish, bounded by the same deadline.
	flushed := make(chan struct{})
	go func() {
		svc.Wait()
		close(flushed)
	}()
	select {
	case <-flushed:
		logger.Info("Server exited gracefully")
	case <-shutdownCtx.Done():
		logger.Warn("Gave up waiting for pending notifications")
	}
}

// openBackend builds the table client selected by BACKEND. The returned
// func releases the database pool, if any.
func openBackend(cfg *config.Config, logger logrus.FieldLogger) (backend.Client, func(), error) {
	switch cfg.Backend {
	case config.BackendREST:
		logger.WithField("url", cfg.REST.URL).Info("Using REST backend")
		client := backend.NewRESTClient(backend.RESTConfig{
			URL:     cfg.REST.URL,
			APIKey:  cfg.REST.APIKey,
			Timeout: cfg.REST.Timeout,
		})
		return client, func() {}, nil

	default:
		db, err := database.InitDB(cfg)
		if err != nil {
			return nil, nil, err
		}
		if cfg.Database.AutoMigrate {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := database.Migrate(ctx, db); err != nil {
				db.Close()
				return nil, nil, err
			}
			logger.Info("Database schema is up to date")
		}
		logger.WithFields(logrus.Fields{
			"driver": cfg.Database.Driver,
			"host":   cfg.Database.Host,
			"name":   cfg.Database.Name,
		}).Info("Using postgres backend")
		return backend.NewSQLClient(db), func() { db.Close() }, nil
	}
}

func setupLogging(cfg *config.Config) {
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)

	if cfg.LogFormat == "json" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	}
}
