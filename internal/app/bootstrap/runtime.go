package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/viralforge/reelpay/internal/adapters/cache"
	eventadapter "github.com/viralforge/reelpay/internal/adapters/events"
	grpcadapter "github.com/viralforge/reelpay/internal/adapters/grpc"
	httpadapter "github.com/viralforge/reelpay/internal/adapters/http"
	"github.com/viralforge/reelpay/internal/adapters/memory"
	"github.com/viralforge/reelpay/internal/adapters/postgres"
	"github.com/viralforge/reelpay/internal/adapters/security"
	"github.com/viralforge/reelpay/internal/adapters/token"
	"github.com/viralforge/reelpay/internal/application"
	"github.com/viralforge/reelpay/internal/ports"
	"google.golang.org/grpc"
)

type Runtime struct {
	cfg        Config
	logger     *slog.Logger
	httpServer *http.Server
	grpcServer *grpc.Server
	grpcLis    net.Listener
	outbox     *eventadapter.OutboxWorker
	consumer   *eventadapter.ConsumerWorker

	// A process-local store has no other process to run the workers.
	embeddedWorkers bool
	cleanupFn       func(context.Context)
}

func NewRuntime(ctx context.Context, configPath string) (*Runtime, error) {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLevel(cfg.LogLevel)})).With("service", cfg.ServiceID)
	slog.SetDefault(logger)

	var closers []io.Closer
	cleanup := func(context.Context) {
		for i := len(closers) - 1; i >= 0; i-- {
			_ = closers[i].Close()
		}
	}

	store, storeCloser, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if storeCloser != nil {
		closers = append(closers, storeCloser)
	}

	cacheStore := ports.Cache(cache.NewMemoryCache())
	if cfg.RedisURL != "" {
		redisClient, redisErr := cache.Connect(ctx, cfg.RedisURL)
		if redisErr != nil {
			cleanup(ctx)
			return nil, redisErr
		}
		closers = append(closers, redisClient)
		cacheStore = cache.NewRedisCache(redisClient)
	}

	medium := token.NewMock(cfg.TokenSymbol, cfg.TokenDecimals)
	deployment, err := Deploy(ctx, DeployInput{
		Config:   appConfig(cfg),
		Store:    store,
		Medium:   medium,
		Cache:    cacheStore,
		Deployer: cfg.Deployer,
		Backend:  cfg.BackendAccount,
		Platform: cfg.PlatformWallet,
	})
	if err != nil {
		cleanup(ctx)
		return nil, err
	}

	signer, err := security.NewJWTSigner(cfg.JWTIssuer, cfg.JWTSecret, cfg.JWTTTL)
	if err != nil {
		cleanup(ctx)
		return nil, err
	}

	deps := httpadapter.HandlerDeps{
		Authority: deployment.Authority,
		Registry:  deployment.Registry,
		Ledger:    deployment.Ledger,
		Engine:    deployment.Engine,
		Verifier:  signer,
	}
	if cfg.EnableFaucet {
		deps.Faucet = medium
	}
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           httpadapter.NewRouter(httpadapter.NewHandler(deps)),
		ReadHeaderTimeout: 5 * time.Second,
	}

	grpcServer := grpc.NewServer()
	grpcadapter.Register(grpcServer, grpcadapter.NewHealthServer(store))
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.GRPCPort))
	if err != nil {
		cleanup(ctx)
		return nil, err
	}

	publisher := ports.EventPublisher(eventadapter.NewLoggingPublisher(logger))
	consumerAdapter := eventadapter.Consumer(eventadapter.NewNoopConsumer())
	if len(cfg.KafkaBrokers) > 0 {
		kafkaPublisher, pubErr := eventadapter.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopicByEvent)
		if pubErr != nil {
			logger.WarnContext(ctx, "kafka publisher disabled, using logging publisher", "error", pubErr)
		} else {
			publisher = kafkaPublisher
			closers = append(closers, kafkaPublisher)
		}

		kafkaConsumer, conErr := eventadapter.NewKafkaConsumer(cfg.KafkaBrokers, cfg.KafkaConsumerGroup, []string{cfg.KafkaTopicOrderApproved})
		if conErr != nil {
			logger.WarnContext(ctx, "kafka consumer disabled, using noop consumer", "error", conErr)
		} else {
			consumerAdapter = kafkaConsumer
			closers = append(closers, kafkaConsumer)
		}
	}
	outbox := eventadapter.NewOutboxWorker(logger, store, publisher, cfg.OutboxPollInterval, cfg.OutboxBatchSize)
	backend := application.Actor{Account: cfg.BackendAccount, RequestID: "consumer"}
	consumer := eventadapter.NewConsumerWorker(logger, consumerAdapter, deployment.Engine, backend, cfg.KafkaTopicOrderApproved, cfg.ConsumerPollInterval)

	logger.InfoContext(ctx, "ledger deployed",
		"module", "bootstrap",
		"layer", "platform",
		"operation", "deploy",
		"outcome", "success",
		"custody", deployment.Ledger.Custody().String(),
		"settlement_engine", deployment.Engine.Account().String(),
		"store", storeKind(cfg),
	)

	return &Runtime{
		cfg:             cfg,
		logger:          logger,
		httpServer:      httpServer,
		grpcServer:      grpcServer,
		grpcLis:         lis,
		outbox:          outbox,
		consumer:        consumer,
		embeddedWorkers: cfg.DatabaseURL == "",
		cleanupFn:       cleanup,
	}, nil
}

func openStore(ctx context.Context, cfg Config) (ports.Store, io.Closer, error) {
	if cfg.DatabaseURL == "" {
		return memory.NewStore(), nil, nil
	}
	db, err := postgres.Connect(ctx, cfg.DatabaseURL, cfg.MaxDBConns)
	if err != nil {
		return nil, nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, nil, err
	}
	if err := postgres.RunMigrations(ctx, db); err != nil {
		_ = sqlDB.Close()
		return nil, nil, err
	}
	return postgres.NewStore(db), sqlDB, nil
}

func storeKind(cfg Config) string {
	if cfg.DatabaseURL == "" {
		return "memory"
	}
	return "postgres"
}

func parseLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func (r *Runtime) Close(ctx context.Context) {
	_ = r.grpcLis.Close()
	r.cleanupFn(ctx)
}

func (r *Runtime) RunAPI(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	errCh := make(chan error, 4)

	go func() {
		if err := r.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	go func() {
		if err := r.grpcServer.Serve(r.grpcLis); err != nil {
			errCh <- err
		}
	}()
	if r.embeddedWorkers {
		r.startWorkers(ctx, errCh)
	}

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errCh:
		r.logger.ErrorContext(ctx, "runtime failure", "error", runErr)
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = r.httpServer.Shutdown(shutdownCtx)
	r.grpcServer.GracefulStop()
	r.cleanupFn(shutdownCtx)
	return runErr
}

func (r *Runtime) RunWorker(ctx context.Context) error {
	if r.embeddedWorkers {
		return fmt.Errorf("worker needs DB_URL: the in-memory store is only shared with the api process")
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	errCh := make(chan error, 2)
	r.startWorkers(ctx, errCh)

	select {
	case <-ctx.Done():
		r.Close(context.Background())
		return nil
	case err := <-errCh:
		r.Close(context.Background())
		return err
	}
}

func (r *Runtime) startWorkers(ctx context.Context, errCh chan<- error) {
	go func() {
		if err := r.outbox.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			errCh <- err
		}
	}()
	go func() {
		if err := r.consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			errCh <- err
		}
	}()
}
