// cmd/server/main.go
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/eventra/eventra-backend/internal/broker"
	"github.com/eventra/eventra-backend/internal/cache"
	"github.com/eventra/eventra-backend/internal/config"
	"github.com/eventra/eventra-backend/internal/database"
	"github.com/eventra/eventra-backend/internal/router"
	"github.com/eventra/eventra-backend/internal/services"
	"github.com/eventra/eventra-backend/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatal("Failed to load configuration: ", err)
	}

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
		logrus.SetFormatter(&logrus.JSONFormatter{})
	}

	db, err := database.Initialize(cfg.Database)
	if err != nil {
		logrus.Fatal("Failed to initialize database: ", err)
	}
	defer database.Close(db)

	if err := database.RunMigrations(db); err != nil {
		logrus.Fatal("Failed to run migrations: ", err)
	}

	redisCache := cache.New(cfg.Redis)
	defer redisCache.Close()

	publisher := broker.NewPublisher(cfg.Kafka)
	defer publisher.Close()

	httpClient := &http.Client{Timeout: cfg.Payment.GatewayTimeout}
	templates := services.DefaultTemplateSet()
	deliveryService := services.NewDeliveryService(db, cfg.Delivery,
		services.NewEmailSender(cfg.Email, templates),
		services.NewWhatsAppSender(cfg.WhatsApp, httpClient, templates),
		services.NewSMSSender(cfg.SMS, httpClient, templates),
	)

	sweeper := worker.NewSweeper(deliveryService, cfg.Delivery)
	sweeper.Start()

	r := router.Initialize(&router.Dependencies{
		DB:        db,
		Cache:     redisCache,
		Publisher: publisher,
		Delivery:  deliveryService,
	}, cfg)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	go func() {
		logrus.WithField("port", cfg.Server.Port).Info("Server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatal("Failed to start server: ", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logrus.Info("Shutting down")

	sweeper.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logrus.Fatal("Forced shutdown: ", err)
	}

	logrus.Info("Server stopped")
}
