// cmd/worker-manager/main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"scholarship-workers/internal/common/config"
	"scholarship-workers/internal/common/database"
	"scholarship-workers/internal/common/logger"
	"scholarship-workers/internal/common/observability"
	"scholarship-workers/internal/matching/features"
	"scholarship-workers/internal/training/autotrain"
	"scholarship-workers/internal/training/modelstore"
	"scholarship-workers/internal/training/samplestore"

	// Matching Workers (4)
	ce "scholarship-workers/internal/workers/matching/check-eligibility"
	pp "scholarship-workers/internal/workers/matching/predict-probability"
	rr "scholarship-workers/internal/workers/matching/rank-recommendations"
	vc "scholarship-workers/internal/workers/matching/validate-criteria"

	// Data Access Workers (2)
	qs "scholarship-workers/internal/workers/data-access/query-scholarships"
	ss "scholarship-workers/internal/workers/data-access/search-scholarships"

	// Training Workers (4)
	mm "scholarship-workers/internal/workers/training/manage-model"
	rd "scholarship-workers/internal/workers/training/record-decision"
	tm "scholarship-workers/internal/workers/training/train-model"
	ts "scholarship-workers/internal/workers/training/training-status"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2 // Exponential backoff
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	zapLog := logger.New("info", "console")
	defer zapLog.Sync()

	// Wrap zap logger with our logger interface
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting worker manager...")

	cfg, err := config.Load()
	if err != nil {
		zapLog.Fatal("config load failed", zap.Error(err))
	}

	obs := observability.New("worker-manager")
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Init Zeebe Client with retry ---
	var zeebeClient zbc.Client
	err = retryWithBackoff(func() error {
		var err error
		zeebeClient, err = zbc.NewClient(&zbc.ClientConfig{
			GatewayAddress:         cfg.Camunda.BrokerAddress,
			UsePlaintextConnection: true,
		})
		return err
	}, 10, 2*time.Second, zapLog, "Zeebe client initialization")

	if err != nil {
		zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
	}
	zapLog.Info("Zeebe client connected successfully")

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		// Test the connection with context
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")

	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	// --- Init Elasticsearch with retry ---
	var esClient *database.ElasticsearchClient
	err = retryWithBackoff(func() error {
		var err error
		esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
		if err != nil {
			return err
		}
		// Test the connection
		return esClient.Ping()
	}, 15, 2*time.Second, zapLog, "Elasticsearch connection")

	if err != nil {
		zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
	}
	zapLog.Info("Elasticsearch connected successfully")

	// --- Init Redis with retry ---
	var redis *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		redis, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		// Test the connection with context
		return redis.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")

	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer redis.Close()
	zapLog.Info("Redis connected successfully")

	// --- Shared matching/training collaborators ---
	// One extractor and one store instance each serve every worker, so
	// feature transforms and model selection stay consistent across the
	// matching and training task types.
	extractor := features.New(cfg.Matching.Features)
	models := modelstore.New(pg.DB, log)
	samples := samplestore.New(pg.DB, log)
	orchestrator := autotrain.New(
		cfg.Training.Autotrain,
		cfg.Training.Logreg,
		redis.Client,
		samples,
		models,
		log,
	)

	zapLog.Info("Matching and training collaborators initialized")

	// --- START: Register ALL 10 Workers ---

	// --- 1. Matching Workers (4) ---
	if cfg.Workers[ce.TaskType].Enabled {
		handler := ce.NewHandler(
			&ce.Config{
				Timeout: time.Duration(cfg.Workers[ce.TaskType].Timeout) * time.Millisecond,
			},
			log,
		)
		startWorker(zeebeClient, ce.TaskType, cfg.Workers[ce.TaskType], handler.Handle, zapLog)
	}

	if cfg.Workers[pp.TaskType].Enabled {
		handler := pp.NewHandler(
			&pp.Config{
				Timeout:               time.Duration(cfg.Workers[pp.TaskType].Timeout) * time.Millisecond,
				ProfileCacheTTL:       time.Duration(cfg.Matching.ProfileCacheTTL) * time.Second,
				MinSamplesScholarship: cfg.Training.Autotrain.MinSamplesScholarship,
			},
			pg.DB, redis.Client, models, extractor, log,
		)
		startWorker(zeebeClient, pp.TaskType, cfg.Workers[pp.TaskType], handler.Handle, zapLog)
	}

	if cfg.Workers[rr.TaskType].Enabled {
		handler := rr.NewHandler(
			&rr.Config{
				Timeout:               time.Duration(cfg.Workers[rr.TaskType].Timeout) * time.Millisecond,
				DefaultLimit:          cfg.Matching.DefaultRecommendationLimit,
				MinSamplesScholarship: cfg.Training.Autotrain.MinSamplesScholarship,
			},
			models, extractor, log,
		)
		startWorker(zeebeClient, rr.TaskType, cfg.Workers[rr.TaskType], handler.Handle, zapLog)
	}

	if cfg.Workers[vc.TaskType].Enabled {
		handler := vc.NewHandler(
			&vc.Config{
				Timeout: time.Duration(cfg.Workers[vc.TaskType].Timeout) * time.Millisecond,
			},
			log,
		)
		startWorker(zeebeClient, vc.TaskType, cfg.Workers[vc.TaskType], handler.Handle, zapLog)
	}

	// --- 2. Data Access Workers (2) ---
	if cfg.Workers[qs.TaskType].Enabled {
		handler := qs.NewHandler(
			&qs.Config{
				Timeout: time.Duration(cfg.Workers[qs.TaskType].Timeout) * time.Millisecond,
			},
			pg.DB, log,
		)
		startWorker(zeebeClient, qs.TaskType, cfg.Workers[qs.TaskType], handler.Handle, zapLog)
	}

	if cfg.Workers[ss.TaskType].Enabled {
		handler := ss.NewHandler(
			&ss.Config{
				Timeout: time.Duration(cfg.Workers[ss.TaskType].Timeout) * time.Millisecond,
			},
			esClient.Client, log,
		)
		startWorker(zeebeClient, ss.TaskType, cfg.Workers[ss.TaskType], handler.Handle, zapLog)
	}

	// --- 3. Training Workers (4) ---
	if cfg.Workers[rd.TaskType].Enabled {
		handler := rd.NewHandler(
			&rd.Config{
				Timeout: time.Duration(cfg.Workers[rd.TaskType].Timeout) * time.Millisecond,
			},
			samples, orchestrator, extractor, log,
		)
		startWorker(zeebeClient, rd.TaskType, cfg.Workers[rd.TaskType], handler.Handle, zapLog)
	}

	if cfg.Workers[tm.TaskType].Enabled {
		handler := tm.NewHandler(
			&tm.Config{
				Timeout: time.Duration(cfg.Workers[tm.TaskType].Timeout) * time.Millisecond,
			},
			orchestrator, log,
		)
		startWorker(zeebeClient, tm.TaskType, cfg.Workers[tm.TaskType], handler.Handle, zapLog)
	}

	if cfg.Workers[mm.TaskType].Enabled {
		handler := mm.NewHandler(
			&mm.Config{
				Timeout: time.Duration(cfg.Workers[mm.TaskType].Timeout) * time.Millisecond,
			},
			models, orchestrator, log,
		)
		startWorker(zeebeClient, mm.TaskType, cfg.Workers[mm.TaskType], handler.Handle, zapLog)
	}

	if cfg.Workers[ts.TaskType].Enabled {
		handler := ts.NewHandler(
			&ts.Config{
				Timeout: time.Duration(cfg.Workers[ts.TaskType].Timeout) * time.Millisecond,
			},
			orchestrator, log,
		)
		startWorker(zeebeClient, ts.TaskType, cfg.Workers[ts.TaskType], handler.Handle, zapLog)
	}

	zapLog.Info("All 10 workers registered successfully")

	// --- Health & Metrics Server ---
	go func() {
		http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(map[string]string{
				"status": "healthy",
				"time":   time.Now().Format(time.RFC3339),
			})
		})
		http.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(map[string]string{
				"status": "ready",
				"time":   time.Now().Format(time.RFC3339),
			})
		})
		http.Handle("/metrics", promhttp.Handler())
		zapLog.Info("Health/Metrics server listening on :8080")
		if err := http.ListenAndServe(":8080", nil); err != nil {
			zapLog.Error("Health/Metrics server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping workers...")

	if err := zeebeClient.Close(); err != nil {
		zapLog.Error("Error closing Zeebe client", zap.Error(err))
	}

	// Background retraining runs detached from job completion; let any
	// in-flight run finish before tearing down Postgres and Redis.
	zapLog.Info("Waiting for in-flight training runs...")
	orchestrator.Wait()

	zapLog.Info("Worker manager stopped gracefully")
}

func startWorker(client zbc.Client, taskType string, wcfg config.WorkerConfig, handlerFunc func(worker.JobClient, entities.Job), log *zap.Logger) {
	if !wcfg.Enabled {
		log.Info("worker disabled", zap.String("taskType", taskType))
		return
	}

	client.NewJobWorker().
		JobType(taskType).
		Handler(handlerFunc).
		MaxJobsActive(wcfg.MaxJobsActive).
		Timeout(time.Duration(wcfg.Timeout) * time.Millisecond).
		Open()

	log.Info("worker started",
		zap.String("taskType", taskType),
		zap.Int("maxJobsActive", wcfg.MaxJobsActive),
		zap.Int("timeout_ms", wcfg.Timeout),
	)
}
