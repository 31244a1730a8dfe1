package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"prizeledger/api"
	"prizeledger/application"
	"prizeledger/config"
	"prizeledger/database"
	"prizeledger/domain/interfaces"
	"prizeledger/infrastructure"
	"prizeledger/infrastructure/observability"
	"prizeledger/repository"

	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

// Run initializes and starts the service until ctx is cancelled
func Run(ctx context.Context) error {
	cfg := config.Get()
	log.WithField("environment", cfg.Environment).Info("Starting prizeledger...")

	db, err := database.NewConnection(ctx, cfg.GetDatabaseURL())
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()
	log.Info("Database connection established successfully")

	if err := observability.InitializeGlobalMetrics(ctx, cfg); err != nil {
		return fmt.Errorf("failed to initialize metrics: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := observability.ShutdownGlobalMetrics(shutdownCtx); err != nil {
			log.WithError(err).Error("Failed to flush metrics")
		}
	}()

	mapper := infrastructure.NewEventSubjectMapper()
	publisher := infrastructure.NewNATSEventPublisher(nil, mapper)
	var subscriber interfaces.EventSubscriber = publisher
	health := map[string]api.HealthCheck{"database": db.Ping}

	if cfg.NATSEnabled {
		natsClient := infrastructure.NewNATSClient(cfg.NATSServers)
		if err := natsClient.Connect(ctx); err != nil {
			return err
		}
		defer natsClient.Close()

		publisher = infrastructure.NewNATSEventPublisher(natsClient, mapper)
		if err := publisher.EnsureLedgerEventStream(natsClient); err != nil {
			return fmt.Errorf("failed to ensure event stream: %w", err)
		}
		subscriber = infrastructure.NewNATSEventSubscriber(natsClient, mapper)
		health["nats"] = natsClient.Healthy
	} else {
		log.Warn("NATS disabled, events are handled in-process only")
	}

	repos := repository.NewRepositories(db)
	alerter := infrastructure.NewOperatorAlerter(publisher)
	svc := NewServiceSet(cfg, repos, publisher, alerter, observability.GetMetrics())

	if err := application.RegisterApplicationSubscriptions(subscriber, svc.Draws); err != nil {
		return err
	}

	worker := application.NewDrawWorker(repos.Raffles, svc.Draws, cfg.DrawSchedule)
	stopWorker, err := worker.Start(ctx)
	if err != nil {
		return err
	}
	defer stopWorker()

	apiServices := svc.API()
	apiServices.Health = health
	router := api.NewRouter(apiServices, prometheus.DefaultRegisterer, prometheus.DefaultGatherer)
	server := api.NewServer(cfg.HTTPAddr, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.WithField("addr", cfg.HTTPAddr).Info("HTTP API listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down HTTP API...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	err = g.Wait()

	drainCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if drainErr := publisher.Drain(drainCtx); drainErr != nil {
		log.WithError(drainErr).Warn("Abandoned in-flight event handlers")
	}
	log.Info("Shutdown completed")
	return err
}
