package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Erikli15/hamburger-machine/internal/config"
	"github.com/Erikli15/hamburger-machine/internal/discovery"
	"github.com/Erikli15/hamburger-machine/internal/handlers"
	"github.com/Erikli15/hamburger-machine/internal/messaging"
	"github.com/Erikli15/hamburger-machine/internal/middleware"
	"github.com/Erikli15/hamburger-machine/internal/repository"
	"github.com/Erikli15/hamburger-machine/internal/service"
	"github.com/gorilla/mux"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/rs/cors"
	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Application failed: %v", err)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer logger.Sync()

	// Connect to PostgreSQL
	db, err := sqlx.Connect("postgres", cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}
	logger.Info("connected to PostgreSQL")

	// Run migrations and install the default catalog
	if err := repository.Migrate(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	if err := repository.Seed(db); err != nil {
		return fmt.Errorf("failed to seed catalog: %w", err)
	}

	// Kafka producer and station-event consumer
	producer := messaging.NewKafkaProducer(cfg.KafkaBrokers, cfg.StockTopic, cfg.OrderTopic)
	defer producer.Close()
	logger.Info("kafka producer initialized")

	consumer := messaging.NewStationConsumer(cfg.KafkaBrokers, cfg.StationTopic, "hamburger-machine-group", logger)
	defer consumer.Close()
	logger.Info("kafka consumer initialized")

	// Repositories
	ledgerRepo := repository.NewLedgerRepository(db, cfg.LockTimeout)
	orderRepo := repository.NewOrderRepository(db)
	queueRepo := repository.NewQueueRepository(db)
	recipeRepo := repository.NewRecipeRepository(db)
	autoOrderRepo := repository.NewAutoOrderRepository(db)

	// Services. The reorder monitor is built first so the ledger can notify
	// it after every mutation.
	reorderService := service.NewReorderService(ledgerRepo, autoOrderRepo, producer, logger, cfg.UsageLookbackDays, cfg.ReorderLeadDays, cfg.CriticalRatio)
	ledgerService := service.NewLedgerService(ledgerRepo, reorderService, producer, logger, cfg.UsageLookbackDays, cfg.CriticalRatio)
	orderService := service.NewOrderService(orderRepo, queueRepo, recipeRepo, service.NoopAuthorizer{}, producer, logger, cfg.TaxRate)
	fulfillmentService := service.NewFulfillmentService(orderRepo, queueRepo, recipeRepo, ledgerService, producer, logger, cfg.StationGroups, cfg.DebitMaxRetries, cfg.DebitRetryBackoff)

	// Background work: fulfillment workers, station-event stream, expiry
	// sweep and retention pruning.
	bgCtx, stopBackground := context.WithCancel(context.Background())
	defer stopBackground()

	go fulfillmentService.Run(bgCtx)

	go func() {
		if err := consumer.ConsumeStationEvents(bgCtx, fulfillmentService); err != nil {
			logger.Error("station consumer stopped", zap.Error(err))
		}
	}()

	go runHousekeeping(bgCtx, cfg, ledgerService, ledgerRepo, orderRepo, logger)

	// HTTP surface
	orderHandler := handlers.NewOrderHandler(orderService, fulfillmentService)
	dashboardHandler := handlers.NewDashboardHandler(orderService, ledgerService, reorderService)
	adminHandler := handlers.NewAdminHandler(ledgerService, reorderService)

	router := mux.NewRouter()
	router.Use(middleware.RequestLogger(logger))
	orderHandler.RegisterRoutes(router)
	dashboardHandler.RegisterRoutes(router)

	adminRouter := router.PathPrefix("/admin").Subrouter()
	adminRouter.Use(middleware.RequireOperator(cfg.JWTSecret))
	adminHandler.RegisterRoutes(adminRouter)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
	}).Handler(router)

	// Register with Consul
	consulClient, err := discovery.NewConsulClient(cfg.ConsulAddr)
	if err != nil {
		return fmt.Errorf("failed to create consul client: %w", err)
	}

	serviceID := fmt.Sprintf("hamburger-machine-%s", cfg.ServiceID)
	stationTags := make([]string, cfg.StationGroups)
	for i := range stationTags {
		stationTags[i] = fmt.Sprintf("station-%d", i+1)
	}
	if err := consulClient.RegisterService(serviceID, "hamburger-machine", cfg.ServerPort, stationTags); err != nil {
		return fmt.Errorf("failed to register service with consul: %w", err)
	}
	logger.Info("registered with consul", zap.String("service_id", serviceID))

	defer func() {
		if err := consulClient.DeregisterService(serviceID); err != nil {
			logger.Error("failed to deregister service", zap.Error(err))
		}
	}()

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      corsHandler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("starting hamburger-machine", zap.String("port", cfg.ServerPort))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	stopBackground()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info("server exited gracefully")
	return nil
}

// runHousekeeping periodically writes off expired stock as waste and prunes
// audit rows past the retention window.
func runHousekeeping(ctx context.Context, cfg *config.Config, ledger service.LedgerService, ledgerRepo repository.LedgerRepository, orderRepo repository.OrderRepository, logger *zap.Logger) {
	ticker := time.NewTicker(cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if swept, err := ledger.SweepExpired(ctx); err != nil {
			logger.Error("expiry sweep failed", zap.Error(err))
		} else if swept > 0 {
			logger.Info("expired stock written off", zap.Int("ingredients", swept))
		}

		cutoff := time.Now().AddDate(0, 0, -cfg.RetentionDays)
		if pruned, err := ledgerRepo.PruneTransactions(ctx, cutoff); err != nil {
			logger.Error("transaction pruning failed", zap.Error(err))
		} else if pruned > 0 {
			logger.Info("pruned inventory transactions", zap.Int64("rows", pruned))
		}
		if pruned, err := orderRepo.PruneEvents(ctx, cutoff); err != nil {
			logger.Error("order event pruning failed", zap.Error(err))
		} else if pruned > 0 {
			logger.Info("pruned order events", zap.Int64("rows", pruned))
		}
	}
}
