// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in the internal packages.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"idvet/internal/audit"
	"idvet/internal/extraction"
	httpapi "idvet/internal/http"
	jobhandler "idvet/internal/job/handler"
	"idvet/internal/job/store"
	"idvet/internal/notify"
	"idvet/internal/pipeline"
	pipelinemetrics "idvet/internal/pipeline/metrics"
	"idvet/internal/platform/config"
	"idvet/internal/platform/httpserver"
	"idvet/internal/platform/logger"
	"idvet/internal/platform/postgres"
	platformredis "idvet/internal/platform/redis"
	"idvet/internal/reasoning"
	"idvet/internal/report"
	"idvet/internal/screening"
	"idvet/internal/upload"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New()

	checks := map[string]httpapi.HealthCheck{}

	// Job store: Redis wins if configured, then Postgres, else memory.
	var jobs store.Store = store.NewInMemoryStore()

	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("redis init failed", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
		jobs = store.NewRedisStore(redisClient.Client)
		checks["redis"] = redisClient.Health
		log.Info("job store: redis")
	}

	db, err := postgres.Open(cfg.Postgres)
	if err != nil {
		log.Error("postgres init failed", "error", err)
		os.Exit(1)
	}
	if db != nil {
		defer db.Close()
		if redisClient == nil {
			jobs = store.NewPostgresStore(db)
			log.Info("job store: postgres")
		}
		checks["postgres"] = db.PingContext
	}
	if redisClient == nil && db == nil {
		log.Info("job store: memory")
	}

	uploads, err := upload.NewFSStore(cfg.Artifacts.UploadDir)
	if err != nil {
		log.Error("upload store init failed", "error", err)
		os.Exit(1)
	}
	reports, err := report.NewFSStore(cfg.Artifacts.ReportDir)
	if err != nil {
		log.Error("report store init failed", "error", err)
		os.Exit(1)
	}

	var sink audit.Sink = audit.NewInMemorySink()
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaSink, err := audit.NewKafkaSink(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			log.Error("kafka init failed", "error", err)
			os.Exit(1)
		}
		defer kafkaSink.Close()
		sink = kafkaSink
		log.Info("audit sink: kafka", "topic", cfg.Kafka.Topic)
	}

	httpClient := &http.Client{Timeout: 30 * time.Second}

	extractor := extraction.NewClient(cfg.Providers.IDCheckURL, "", httpClient)
	providers := []screening.Provider{
		screening.NewWatchmanClient(cfg.Providers.WatchmanURL, cfg.Providers.WatchmanKey, httpClient),
		screening.NewOpenSanctionsClient(cfg.Providers.OpenSanctionsURL, cfg.Providers.OpenSanctionsKey, httpClient),
		screening.NewDilisenseClient(cfg.Providers.DilisenseURL, cfg.Providers.DilisenseKey, httpClient),
	}
	analyzer := reasoning.NewClient(reasoning.Config{
		BaseURL: cfg.Reasoning.BaseURL,
		APIKey:  cfg.Reasoning.APIKey,
		Model:   cfg.Reasoning.Model,
	}, reasoning.WithLogger(log), reasoning.WithHTTPClient(&http.Client{Timeout: 3 * time.Minute}))

	notifier := notify.NewMulti(log,
		notify.NewEmailNotifier(cfg.Email.BaseURL+"/v3/mail/send", cfg.Email.APIKey, cfg.Email.FromEmail, reports, httpClient),
		notify.NewCallbackNotifier(httpClient),
	)

	orch := pipeline.New(
		cfg.Pipeline,
		jobs,
		uploads,
		extractor,
		providers,
		analyzer,
		reports,
		notifier,
		pipeline.WithLogger(log),
		pipeline.WithMetrics(pipelinemetrics.New()),
		pipeline.WithAudit(audit.NewPublisher(sink, log)),
	)

	router := httpapi.NewRouter(log, checks, jobhandler.New(orch, log))
	srv := httpserver.New(cfg.HTTP.Addr, router)

	go func() {
		log.Info("server starting", "addr", cfg.HTTP.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	log.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}

	// Let in-flight jobs reach a terminal state before the process exits.
	orch.Wait()
}
