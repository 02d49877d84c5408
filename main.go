package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"merch-studio/app"
	"merch-studio/config"
)

func main() {
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	// .env overrides system variables in development; production sets them directly
	config.LoadEnvFile(".env")

	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Invalid configuration")
	}
	logrus.SetLevel(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.Initialize(ctx, cfg, app.Repositories{})
	if err != nil {
		logrus.WithError(err).Fatal("Failed to initialize application")
	}
	defer application.Close()

	// Listen on 0.0.0.0 to accept connections from all interfaces (required for Docker/Render)
	addr := "0.0.0.0:" + cfg.Port
	server := &http.Server{
		Addr:              addr,
		Handler:           application.Handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logrus.Infof("🚀 Server starting on %s", addr)
		logrus.Infof("Products endpoint: GET http://localhost:%s/api/products", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.WithError(err).Fatal("Server failed to start")
		}
	}()

	<-ctx.Done()
	logrus.Info("🛑 Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Error("Server shutdown failed")
	}
}
