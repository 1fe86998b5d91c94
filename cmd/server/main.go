package main

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/netbill/netbill/internal/api"
	v1 "github.com/netbill/netbill/internal/api/v1"
	"github.com/netbill/netbill/internal/config"
	"github.com/netbill/netbill/internal/logger"
	"github.com/netbill/netbill/internal/postgres"
	"github.com/netbill/netbill/internal/repository"
	"github.com/netbill/netbill/internal/service"
	"github.com/netbill/netbill/internal/validator"
	"go.uber.org/fx"
)

func init() {
	// Set UTC timezone for the entire application
	time.Local = time.UTC
}

func main() {
	var opts []fx.Option

	// Core dependencies
	opts = append(opts,
		fx.Provide(
			validator.NewValidator,
			config.NewConfig,
			logger.NewLogger,
		),
		postgres.Module(),
		repository.Module(),
	)

	// Service layer
	opts = append(opts, service.Module())

	// API layer
	opts = append(opts,
		fx.Provide(
			v1.NewPlanHandler,
			v1.NewInvoiceHandler,
			v1.NewPaymentHandler,
			v1.NewBillingRunHandler,
			api.NewHandlers,
			api.NewRouter,
		),
		fx.Invoke(startServer),
	)

	app := fx.New(opts...)
	app.Run()
}

func startServer(
	lc fx.Lifecycle,
	cfg *config.Configuration,
	r *gin.Engine,
	log *logger.Logger,
) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Infow("Starting API server", "address", cfg.Server.Address)
			go func() {
				if err := r.Run(cfg.Server.Address); err != nil {
					log.Fatalf("Failed to start server: %v", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("Shutting down server...")
			return nil
		},
	})
}
