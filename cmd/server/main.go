package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"google.golang.org/grpc"

	"github.com/rl1809/shop-orders/internal/adapter/handler"
	"github.com/rl1809/shop-orders/internal/adapter/messaging"
	"github.com/rl1809/shop-orders/internal/adapter/storage"
	"github.com/rl1809/shop-orders/internal/config"
	"github.com/rl1809/shop-orders/internal/core/service"
	"github.com/rl1809/shop-orders/internal/logging"
	"github.com/rl1809/shop-orders/internal/port"
	"github.com/rl1809/shop-orders/internal/seed"
)

func main() {
	configPath := flag.String("config", os.Getenv("SHOP_CONFIG"), "path to a config file (yaml, json, toml or env)")
	flag.Parse()

	bootLog := zerolog.New(os.Stderr).With().Timestamp().Logger()
	cfg, err := config.Load(*configPath)
	if err != nil {
		bootLog.Fatal().Err(err).Msg("failed to load config")
	}
	logger, err := logging.New(cfg.LogLevel, cfg.LogPretty)
	if err != nil {
		bootLog.Fatal().Err(err).Msg("invalid log level")
	}

	decimal.MarshalJSONWithoutQuotes = true

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize store
	var store port.Store
	var db *sql.DB
	switch cfg.StoreDriver {
	case config.StoreMySQL:
		db, err = sql.Open("mysql", cfg.MySQLDSN)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect mysql")
		}
		db.SetMaxOpenConns(50)
		db.SetMaxIdleConns(25)
		db.SetConnMaxLifetime(5 * time.Minute)

		if err := db.PingContext(ctx); err != nil {
			logger.Fatal().Err(err).Msg("failed to ping mysql")
		}
		if err := storage.MigrateMySQL(db); err != nil {
			logger.Fatal().Err(err).Msg("failed to migrate mysql")
		}
		store = storage.NewMySQLAdapter(db)
		logger.Info().Msg("connected to mysql")
	default:
		store = storage.NewMemoryAdapter()
		logger.Info().Msg("using in-memory store")
	}

	// Initialize idempotency cache
	var cache port.CacheRepository = storage.NewMemoryCache()
	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			PoolSize: 100,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Fatal().Err(err).Msg("failed to connect redis")
		}
		cache = storage.NewRedisAdapter(rdb)
		logger.Info().Str("addr", cfg.RedisAddr).Msg("connected to redis")
	}

	// Initialize event publishing
	var sink port.EventPublisher = messaging.NewLogPublisher(logger)
	var kafkaPublisher *messaging.KafkaPublisher
	if len(cfg.KafkaBroker) > 0 {
		kafkaPublisher = messaging.NewKafkaPublisher(cfg.KafkaBroker, cfg.KafkaTopic, logger)
		sink = kafkaPublisher
		logger.Info().Strs("brokers", cfg.KafkaBroker).Str("topic", cfg.KafkaTopic).Msg("publishing order events to kafka")
	}
	events := messaging.NewAsyncPublisher(sink, cfg.WorkerCount, cfg.QueueSize, logger)

	// Initialize services
	ledger := service.NewInventoryLedger(store, logger)
	services := handler.Services{
		Orders:     service.NewOrderService(store, ledger, cache, events, logger),
		Customers:  service.NewCustomerService(store, logger),
		Categories: service.NewCategoryService(store, logger),
		ShopItems:  service.NewShopItemService(store, ledger, logger),
	}

	if cfg.Seed {
		err := seed.Run(ctx, seed.Services{
			Customers:  services.Customers,
			Categories: services.Categories,
			ShopItems:  services.ShopItems,
			Orders:     services.Orders,
		}, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to seed store")
		}
	}

	// Initialize gRPC server
	grpcServer := grpc.NewServer(grpc.UnaryInterceptor(handler.UnaryLoggingInterceptor(logger)))
	handler.RegisterOrderService(grpcServer, handler.NewGRPCHandler(services.Orders))

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		logger.Fatal().Err(err).Str("addr", cfg.GRPCAddr).Msg("failed to listen")
	}

	go func() {
		logger.Info().Str("addr", cfg.GRPCAddr).Msg("gRPC server listening")
		if err := grpcServer.Serve(lis); err != nil {
			logger.Error().Err(err).Msg("gRPC server error")
		}
	}()

	// Initialize HTTP server
	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler.NewHTTPHandler(services, logger).Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", cfg.HTTPAddr).Msg("HTTP server listening")
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("HTTP server error")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("HTTP shutdown")
	}
	logger.Info().Msg("HTTP server stopped")

	grpcServer.GracefulStop()
	logger.Info().Msg("gRPC server stopped")

	// No request can publish anymore; drain the queued events.
	events.Close()
	if kafkaPublisher != nil {
		if err := kafkaPublisher.Close(); err != nil {
			logger.Error().Err(err).Msg("kafka writer close")
		}
	}

	if rdb != nil {
		rdb.Close()
	}
	if db != nil {
		db.Close()
	}
	logger.Info().Msg("connections closed")
}
