package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"naskahcollab/config"
	"naskahcollab/config/database"
	"naskahcollab/internal/document/repository"
	"naskahcollab/internal/document/service"
	"naskahcollab/pkg/logger"
	"naskahcollab/pkg/metrics"
	"naskahcollab/router"
	"naskahcollab/socket"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Init("info")
		logger.Sugar.Fatalf("Invalid configuration: %v", err)
	}
	logger.Init(cfg.LogLevel)
	defer logger.Log.Sync()

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	repo, closeStore, err := openStore(ctx, cfg.Store)
	if err != nil {
		logger.Sugar.Fatalf("Could not open document store: %v", err)
	}
	defer closeStore()

	docService := service.NewDocumentService(repo)
	hub := socket.NewHub(docService, socket.Options{
		StoreTimeout:    cfg.Store.Timeout,
		TitleFlush:      cfg.Socket.TitleFlush,
		SendBuffer:      cfg.Socket.SendBuffer,
		MaxMessageBytes: cfg.Socket.MaxMessageBytes,
		PingInterval:    cfg.Socket.PingInterval,
		EventRPS:        cfg.Socket.EventRPS,
		EventBurst:      cfg.Socket.EventBurst,
	})
	workerDone := make(chan struct{})
	go func() {
		hub.SaveWorker(ctx)
		close(workerDone)
	}()

	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password})
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Sugar.Fatalf("Could not connect to redis at %s: %v", cfg.Redis.Addr, err)
		}
		defer rdb.Close()
		logger.Sugar.Infof("Rate limiting backed by redis at %s", cfg.Redis.Addr)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics.RegisterCollectors(reg)

	srv := &http.Server{
		Addr: ":" + cfg.Server.Port,
		Handler: router.Setup(router.Deps{
			Config:   cfg,
			Service:  docService,
			Hub:      hub,
			Redis:    rdb,
			Registry: reg,
		}),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Sugar.Infof("Collaboration server listening on :%s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Sugar.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Sugar.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Sugar.Errorf("Server shutdown: %v", err)
	}

	// Stopping the worker flushes pending titles before the store closes.
	stop()
	<-workerDone
}

func openStore(ctx context.Context, cfg config.StoreConfig) (repository.DocumentRepository, func(), error) {
	switch cfg.Driver {
	case config.StoreMongo:
		client, err := database.ConnectMongo(ctx, cfg.MongoURI, cfg.Timeout)
		if err != nil {
			return nil, nil, err
		}
		repo := repository.NewMongoRepository(client.Database(cfg.MongoDatabase).Collection("documents"))
		if err := repo.EnsureIndexes(ctx); err != nil {
			return nil, nil, err
		}
		logger.Sugar.Infof("Using mongo document store (database %s)", cfg.MongoDatabase)
		return repo, func() { client.Disconnect(context.Background()) }, nil
	case config.StoreMemory:
		logger.Sugar.Warn("Using in-memory document store; documents are lost on restart")
		return repository.NewMemoryRepository(), func() {}, nil
	default:
		db, err := database.Connect(cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		repo := repository.NewPostgresRepository(db)
		if err := repo.EnsureSchema(ctx); err != nil {
			db.Close()
			return nil, nil, err
		}
		return repo, func() { db.Close() }, nil
	}
}
