package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	docmetrics "stevedore/internal/document/metrics"
	docservice "stevedore/internal/document/service"
	docstore "stevedore/internal/document/store"
	"stevedore/internal/events"
	eventstore "stevedore/internal/events/store"
	partyservice "stevedore/internal/party/service"
	partystore "stevedore/internal/party/store"
	"stevedore/internal/pipeline"
	"stevedore/internal/platform/config"
	"stevedore/internal/platform/httpserver"
	"stevedore/internal/platform/logger"
	"stevedore/internal/platform/postgres"
	platformredis "stevedore/internal/platform/redis"
	"stevedore/internal/reconcile/cache"
	recmetrics "stevedore/internal/reconcile/metrics"
	recservice "stevedore/internal/reconcile/service"
	recstore "stevedore/internal/reconcile/store"
	shipservice "stevedore/internal/shipment/service"
	shipstore "stevedore/internal/shipment/store"
	httptransport "stevedore/internal/transport/http"
	wfmetrics "stevedore/internal/workflow/metrics"
	wfservice "stevedore/internal/workflow/service"
	wfstore "stevedore/internal/workflow/store"
	"stevedore/pkg/platform/tx"
)

// main wires stores, services, and the pipeline, then runs the HTTP server
// and the outbox drain worker. Business rules live in the internal services.
func main() {
	cfg := config.FromEnv()
	log := logger.New()
	ctx := context.Background()

	// Stores: Postgres when configured, memory otherwise.
	var (
		docs      docservice.Store
		parties   partyservice.Store
		shipments shipservice.Store
		wfHistory wfservice.HistoryStore
		recs      recservice.Store
		outbox    events.Store
		runner    tx.Runner = tx.NoopRunner{}
	)
	if cfg.PostgresURL != "" {
		db, err := postgres.Open(ctx, cfg.PostgresURL)
		if err != nil {
			log.Error("postgres open failed", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		docs = docstore.NewPostgres(db)
		parties = partystore.NewPostgres(db)
		shipments = shipstore.NewPostgres(db)
		wfHistory = wfstore.NewPostgres(db)
		recs = recstore.NewPostgres(db)
		outbox = eventstore.NewPostgres(db)
		runner = tx.NewSQLRunner(db)
	} else {
		log.Info("no postgres configured, using in-memory stores")
		docs = docstore.NewInMemory()
		parties = partystore.NewInMemory()
		shipments = shipstore.NewInMemory()
		wfHistory = wfstore.NewInMemory()
		recs = recstore.NewInMemory()
		outbox = eventstore.NewInMemory()
	}

	// Reconciliation field configs, optionally cached through redis.
	var configSource cache.Source = cache.Static{}
	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("redis connect failed", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
		configSource = cache.NewRedisCache(redisClient.Client, cache.Static{}, cfg.ReconcileCacheTTL)
	}

	documentSvc := docservice.New(docs,
		docservice.WithLogger(log),
		docservice.WithMetrics(docmetrics.New()),
		docservice.WithTxRunner(runner),
	)
	partySvc := partyservice.New(parties,
		partyservice.WithLogger(log),
		partyservice.WithSelfIdentity(partyservice.SelfIdentity{
			NameMarkers: cfg.SelfNameMarkers,
			Domains:     cfg.SelfDomains,
		}),
	)
	shipmentSvc := shipservice.New(shipments, shipservice.WithLogger(log))

	stateStore, ok := shipments.(wfservice.StateStore)
	if !ok {
		log.Error("shipment store does not expose workflow state")
		os.Exit(1)
	}
	workflowSvc, err := wfservice.New(wfHistory, stateStore,
		wfservice.WithLogger(log),
		wfservice.WithMetrics(wfmetrics.New()),
		wfservice.WithTxRunner(runner),
	)
	if err != nil {
		log.Error("workflow service init failed", "error", err)
		os.Exit(1)
	}

	reconcileSvc := recservice.New(recs,
		recservice.WithLogger(log),
		recservice.WithMetrics(recmetrics.New()),
		recservice.WithConfigSource(configSource),
	)

	emitter := events.NewEmitter(outbox, log)
	orch := pipeline.New(documentSvc, partySvc, shipmentSvc, workflowSvc,
		wfservice.NewDetector(cfg.SelfDomains),
		pipeline.WithLogger(log),
		pipeline.WithEmitter(emitter),
		pipeline.WithStepTimeout(cfg.StepTimeout),
		pipeline.WithBatchDelay(cfg.BatchDelay),
	)

	handler := httptransport.NewHandler(orch, shipmentSvc, workflowSvc, reconcileSvc, log)
	router := httptransport.NewRouter(handler, log)
	srv := httpserver.New(cfg.Addr, router)

	workerCtx, stopWorker := context.WithCancel(ctx)
	defer stopWorker()

	if len(cfg.KafkaBrokers) > 0 {
		publisher, err := events.NewKafkaPublisher(ctx, cfg.KafkaBrokers)
		if err != nil {
			log.Error("kafka connect failed", "error", err)
			os.Exit(1)
		}
		defer publisher.Close()

		worker := events.NewWorker(outbox, publisher, log)
		go func() {
			if err := worker.Run(workerCtx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("outbox worker stopped", "error", err)
			}
		}()
	} else {
		log.Info("no kafka brokers configured, outbox events stay unpublished")
	}

	go func() {
		log.Info("starting stevedore", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	stopWorker()

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
}
