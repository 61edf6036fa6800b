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

	"github.com/gin-gonic/gin"
	"github.com/rossigee/job-application-tracker/internal/api"
	"github.com/rossigee/job-application-tracker/internal/auth"
	"github.com/rossigee/job-application-tracker/internal/config"
	"github.com/rossigee/job-application-tracker/internal/form"
	"github.com/rossigee/job-application-tracker/internal/metrics"
	"github.com/rossigee/job-application-tracker/internal/minio"
	"github.com/rossigee/job-application-tracker/internal/records"
	"github.com/rossigee/job-application-tracker/internal/storage"
	"github.com/rossigee/job-application-tracker/internal/tracker"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}
	logrus.SetLevel(cfg.LogLevel)

	ctx := context.Background()

	slot, closeSlot, err := openSlot(ctx, cfg)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to initialize storage slot")
	}
	defer closeSlot()

	store, err := records.NewStore(ctx, slot, records.WithKey(cfg.SlotKey))
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load applications")
	}

	authValidator, err := auth.NewValidator(cfg.APITokensFile, cfg.ClientCACert)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to initialize auth validator")
	}

	recorder := metrics.NewRecorder()
	session := tracker.NewSession(store, form.NewMachine(time.Now), recorder)

	// Initialize Gin router
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	api.SetupRoutes(router, api.NewHandler(session), recorder.Handler(), authValidator.Middleware())

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		TLSConfig:         authValidator.TLSConfig(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logrus.WithFields(logrus.Fields{
			"addr":         cfg.Addr(),
			"slot":         cfg.Slot,
			"tls":          cfg.TLSEnabled(),
			"client_ca":    authValidator.IsClientCALoaded(),
			"applications": store.Len(),
		}).Info("Starting job application tracker")

		var err error
		if cfg.TLSEnabled() {
			err = srv.ListenAndServeTLS(cfg.TLSCertFile, cfg.TLSKeyFile)
		} else {
			err = srv.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.WithError(err).Fatal("Failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logrus.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Error("Server forced to shutdown")
	}

	logrus.Info("Server exited")
}

// openSlot builds the configured slot and returns a func releasing it
func openSlot(ctx context.Context, cfg config.Config) (records.Slot, func(), error) {
	switch cfg.Slot {
	case config.SlotMemory:
		logrus.Warn("Using in-memory slot, applications are lost on exit")
		return storage.NewMemorySlot(nil), func() {}, nil

	case config.SlotMinIO:
		slot, err := minio.NewSlot(cfg.MinIO)
		if err != nil {
			return nil, nil, err
		}
		if err := slot.EnsureBucket(ctx); err != nil {
			return nil, nil, err
		}
		return slot, func() {}, nil

	case config.SlotSQLite:
		slot, err := storage.NewSQLiteSlot(cfg.DBPath)
		if err != nil {
			return nil, nil, err
		}
		return slot, func() {
			if err := slot.Close(); err != nil {
				logrus.WithError(err).Warn("Failed to close database")
			}
		}, nil
	}

	return nil, nil, fmt.Errorf("unsupported slot %q", cfg.Slot)
}
