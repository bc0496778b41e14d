package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	// Application
	"github.com/dreschagin/health-checker/internal/application/aggregator"
	"github.com/dreschagin/health-checker/internal/application/alarm"
	"github.com/dreschagin/health-checker/internal/application/bus"
	"github.com/dreschagin/health-checker/internal/application/poller"
	"github.com/dreschagin/health-checker/internal/application/port"
	"github.com/dreschagin/health-checker/internal/application/usecase"

	// Domain
	"github.com/dreschagin/health-checker/internal/domain/entity"
	"github.com/dreschagin/health-checker/internal/domain/service"

	// Infrastructure
	"github.com/dreschagin/health-checker/internal/infrastructure/cache/memory"
	rediscache "github.com/dreschagin/health-checker/internal/infrastructure/cache/redis"
	natsInfra "github.com/dreschagin/health-checker/internal/infrastructure/messaging/nats"
	"github.com/dreschagin/health-checker/internal/infrastructure/metrics"
	smtpInfra "github.com/dreschagin/health-checker/internal/infrastructure/notification/smtp"
	wsInfra "github.com/dreschagin/health-checker/internal/infrastructure/notification/websocket"
	"github.com/dreschagin/health-checker/internal/infrastructure/observability/cloudwatch"
	"github.com/dreschagin/health-checker/internal/infrastructure/persistence/postgres"
	s3storage "github.com/dreschagin/health-checker/internal/infrastructure/storage/s3"

	// Interfaces
	httpInterface "github.com/dreschagin/health-checker/internal/interfaces/http"
	"github.com/dreschagin/health-checker/internal/interfaces/http/handler"
	"github.com/dreschagin/health-checker/internal/interfaces/http/middleware"

	// Shared
	"github.com/dreschagin/health-checker/pkg/config"
	"github.com/dreschagin/health-checker/pkg/logger"
)

func main() {
	// 1. Загружаем конфигурацию
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 2. Инициализируем logger
	log := logger.New(cfg.LogLevel)
	log.Info("Starting Health Checker")

	if err := run(cfg, log); err != nil {
		log.Error("Health checker stopped with error", err)
		os.Exit(1)
	}
	log.Info("Health checker stopped gracefully")
}

func run(cfg *config.Config, log *logger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Метрики процесса
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(registry)

	// 4. Каналы уведомлений
	hub := wsInfra.NewHub(log)
	channels, closers, err := buildChannels(ctx, cfg, hub, log)
	defer func() {
		for _, closeFn := range closers {
			closeFn()
		}
	}()
	if err != nil {
		return err
	}

	// 5. Кэш узлов для API
	cache, err := buildNodeCache(cfg, log)
	if err != nil {
		return err
	}
	defer cache.Close()

	// 6. Шина событий и ее участники
	eventBus := bus.New(cfg.Bus.Capacity)
	ingestProducer, err := eventBus.Producer()
	if err != nil {
		return fmt.Errorf("failed to acquire ingestion producer: %w", err)
	}
	checkerProducer, err := eventBus.Producer()
	if err != nil {
		return fmt.Errorf("failed to acquire checker producer: %w", err)
	}

	doctor := service.NewDoctor(cfg.Checker.ProbeTimeout)
	notifier := alarm.New(channels, cfg.Alarm.ChannelTimeout, log, alarm.WithMetrics(m))
	agg := aggregator.New(doctor, notifier, log, aggregator.WithMetrics(m))

	services := make([]entity.Service, 0, len(cfg.Checker.Services))
	for _, s := range cfg.Checker.Services {
		services = append(services, entity.NewService(s.Name, s.API))
	}
	checker := poller.NewServiceChecker(services, doctor, checkerProducer, poller.Config{
		Interval:     cfg.Checker.Interval,
		SweepEvery:   cfg.Checker.SweepEvery,
		DrainTimeout: cfg.Checker.DrainTimeout,
	}, m, log)

	// 7. HTTP слой
	nodeAPIHandler := handler.NewNodeAPIHandler(
		usecase.NewIngestNodeUseCase(cache, ingestProducer, log),
		usecase.NewRemoveNodeUseCase(cache, ingestProducer, log),
		usecase.NewListNodesUseCase(cache, log),
		cfg.Server.MaxPayloadBytes,
		log,
	)
	websocketHandler := handler.NewWebSocketHandler(hub, cfg.Server.AllowedOrigins, log)

	var limiter *middleware.IPRateLimiter
	stopCleanup := make(chan struct{})
	defer close(stopCleanup)
	if cfg.RateLimit.Enabled {
		limiter = middleware.NewIPRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
		go limiter.RunCleanup(time.Minute, stopCleanup)
	}

	var ready atomic.Bool
	ready.Store(true)

	router := httpInterface.NewRouter(nodeAPIHandler, websocketHandler, httpInterface.RouterConfig{
		RequestTimeout: cfg.Server.RequestTimeout,
		RateLimiter:    limiter,
		Metrics:        m,
		MetricsHandler: promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}),
		Ready:          ready.Load,
	}, log)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router.Setup(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// 8. Запускаем фоновые процессы

	// Hub и агрегатор живут дольше сервера: их останавливаем последними
	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()
	go hub.Run(hubCtx)

	aggCtx, hardStop := context.WithCancel(context.Background())
	defer hardStop()
	aggDone := make(chan error, 1)
	go func() {
		aggDone <- agg.Run(aggCtx, eventBus)
	}()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return checker.Run(gctx)
	})

	g.Go(func() error {
		log.Info("HTTP server starting", "port", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutdown signal received, starting graceful shutdown...")
		ready.Store(false)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error("Server shutdown error", err)
		}

		// после остановки сервера новых отчетов нет
		ingestProducer.Release()
		return nil
	})

	// 9. Ожидаем завершения производителей, затем агрегатора
	runErr := g.Wait()
	if errors.Is(runErr, poller.ErrDrainTimeout) {
		log.Warn("Event bus did not drain in time", "timeout", cfg.Checker.DrainTimeout)
	}

	select {
	case err := <-aggDone:
		if err != nil {
			log.Error("Aggregator stopped with error", err)
		}
	case <-time.After(cfg.Server.ShutdownTimeout):
		log.Warn("Aggregator did not drain within grace period, stopping", "pending", eventBus.Len())
		hardStop()
		<-aggDone
	}

	return runErr
}

func buildChannels(ctx context.Context, cfg *config.Config, hub *wsInfra.Hub, log *logger.Logger) ([]port.NotificationChannel, []func(), error) {
	channels := []port.NotificationChannel{hub}
	closers := make([]func(), 0)

	if cfg.Alarm.SMTP.Enabled {
		mailer, err := smtpInfra.NewMailer(smtpInfra.Config{
			Host:               cfg.Alarm.SMTP.Host,
			Port:               cfg.Alarm.SMTP.Port,
			Username:           cfg.Alarm.SMTP.Username,
			Password:           cfg.Alarm.SMTP.Password,
			From:               cfg.Alarm.SMTP.From,
			To:                 cfg.Alarm.SMTP.To,
			Subject:            cfg.Alarm.SMTP.Subject,
			InsecureSkipVerify: cfg.Alarm.SMTP.InsecureSkipVerify,
		})
		if err != nil {
			return nil, closers, fmt.Errorf("failed to initialize smtp mailer: %w", err)
		}
		channels = append(channels, mailer)
		log.Info("SMTP channel initialized", "host", cfg.Alarm.SMTP.Host, "recipients", len(cfg.Alarm.SMTP.To))
	} else {
		log.Warn("SMTP notifications are disabled")
	}

	if cfg.NATS.Enabled {
		publisher, err := natsInfra.NewPublisher(natsInfra.Options{
			URL:        cfg.NATS.URL,
			Stream:     cfg.NATS.Stream,
			Subject:    cfg.NATS.Subject,
			MaxAge:     cfg.NATS.MaxAge,
			AckTimeout: cfg.NATS.AckTimeout,
		}, log)
		if err != nil {
			log.Warn("Failed to connect to NATS, continuing without broker channel", "error", err.Error())
		} else {
			closers = append(closers, func() { _ = publisher.Close() })
			channels = append(channels, alarm.NewBrokerChannel(publisher, cfg.NATS.Subject))
			log.Info("NATS channel initialized", "url", cfg.NATS.URL)
		}
	}

	if cfg.Database.Enabled {
		db, err := postgres.Open(ctx, cfg.Database.DSN())
		if err != nil {
			return nil, closers, err
		}
		closers = append(closers, func() { _ = db.Close() })

		db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
		db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
		db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)
		db.SetConnMaxIdleTime(cfg.Database.ConnMaxIdleTime)

		repo := postgres.NewReportRepository(db)
		if err := repo.Migrate(ctx); err != nil {
			return nil, closers, err
		}
		channels = append(channels, repo)
		log.Info("Postgres report archive initialized")
	}

	if cfg.S3.Enabled {
		storage, err := s3storage.NewReportStorage(ctx, s3storage.Config{
			Bucket:          cfg.S3.Bucket,
			Region:          cfg.S3.Region,
			Endpoint:        cfg.S3.Endpoint,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
			UsePathStyle:    cfg.S3.UsePathStyle,
			URLMode:         s3storage.URLMode(cfg.S3.URLMode),
			PresignedTTL:    cfg.S3.PresignedTTL,
		})
		if err != nil {
			return nil, closers, fmt.Errorf("failed to initialize report storage: %w", err)
		}
		channels = append(channels, alarm.NewArchiveChannel(storage, cfg.S3.KeyPrefix))
		log.Info("S3 report archive initialized", "bucket", cfg.S3.Bucket)
	}

	if cfg.CloudWatch.Enabled {
		publisher, err := cloudwatch.NewSeverityPublisher(ctx, cloudwatch.SeverityPublisherConfig{
			Namespace:         cfg.CloudWatch.Namespace,
			Region:            cfg.CloudWatch.Region,
			Endpoint:          cfg.CloudWatch.Endpoint,
			AccessKeyID:       cfg.CloudWatch.AccessKeyID,
			SecretAccessKey:   cfg.CloudWatch.SecretAccessKey,
			DefaultDimensions: cfg.CloudWatch.Dimensions,
			StorageResolution: cfg.CloudWatch.StorageResolution,
		})
		if err != nil {
			return nil, closers, fmt.Errorf("failed to initialize cloudwatch publisher: %w", err)
		}
		channels = append(channels, publisher)
		log.Info("CloudWatch severity channel initialized", "namespace", cfg.CloudWatch.Namespace)
	}

	return channels, closers, nil
}

func buildNodeCache(cfg *config.Config, log *logger.Logger) (port.NodeCache, error) {
	if !cfg.Cache.Enabled {
		log.Info("Using in-memory node cache")
		return memory.NewNodeCache(), nil
	}

	cache, err := rediscache.NewNodeCache(rediscache.Options{
		Host:         cfg.Cache.Host,
		Port:         cfg.Cache.Port,
		Password:     cfg.Cache.Password,
		DB:           cfg.Cache.DB,
		Key:          cfg.Cache.Key,
		PoolSize:     10,
		MinIdleConns: 2,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
	if err != nil {
		return nil, err
	}
	log.Info("Redis node cache initialized", "host", cfg.Cache.Host)
	return cache, nil
}
