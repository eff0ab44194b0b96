// cmd/worker-manager/main.go
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"pos-workers/internal/common/auth"
	"pos-workers/internal/common/aws"
	"pos-workers/internal/common/camunda"
	"pos-workers/internal/common/config"
	"pos-workers/internal/common/database"
	"pos-workers/internal/common/logger"
	"pos-workers/internal/common/observability"
	"pos-workers/pkg/registry"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	if len(os.Args) < 2 {
		os.Exit(run(serve, nil))
	}

	switch os.Args[1] {
	case "serve":
		os.Exit(run(serve, os.Args[2:]))
	case "migrate":
		os.Exit(run(migrate, os.Args[2:]))
	case "registry-check":
		os.Exit(registryCheck(os.Args[2:]))
	case "help", "-h", "--help":
		help()
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", os.Args[1])
		help()
		os.Exit(2)
	}
}

func help() {
	fmt.Println(`worker-manager runs the point-of-sale Zeebe job workers.

Usage:
  worker-manager [command] [flags]

Commands:
  serve           connect to Zeebe and process jobs (default)
  migrate         apply the embedded PostgreSQL migrations and exit
  registry-check  validate the activity registry and its input schemas

Flags:
  -config string  path to a config file (default: configs/config.yaml)`)
}

type command func(ctx context.Context, cfg *config.Config, log logger.Logger) error

// run loads configuration and the logger, then executes cmd.
func run(cmd command, args []string) int {
	fs := flag.NewFlagSet("worker-manager", flag.ExitOnError)
	configPath := fs.String("config", "", "path to a config file")
	_ = fs.Parse(args)

	var (
		cfg *config.Config
		err error
	)
	if *configPath != "" {
		cfg, err = config.LoadFromFile(*configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		return 1
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	defer func() { _ = zapLog.Sync() }()
	log := logger.NewZapAdapter(zapLog).WithFields(map[string]interface{}{
		"service": cfg.App.Name,
		"version": cfg.App.Version,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd(ctx, cfg, log); err != nil {
		log.Error("command failed", map[string]interface{}{"error": err.Error()})
		return 1
	}
	return 0
}

func migrate(ctx context.Context, cfg *config.Config, log logger.Logger) error {
	pg, err := connectPostgres(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer pg.Close()

	applied, err := database.ApplyMigrations(ctx, pg.DB, log)
	if err != nil {
		return err
	}
	log.Info("migrations complete", map[string]interface{}{"applied": applied})
	return nil
}

func registryCheck(args []string) int {
	fs := flag.NewFlagSet("registry-check", flag.ExitOnError)
	path := fs.String("path", "", "registry file (default: the embedded registry)")
	_ = fs.Parse(args)

	reg, err := registry.Load(*path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load registry: %v\n", err)
		return 1
	}
	if err := reg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "registry validation failed: %v\n", err)
		return 1
	}

	served := make(map[string]bool)
	for _, taskType := range taskTypes() {
		served[taskType] = true
		if _, ok := reg.Find(taskType); !ok {
			fmt.Fprintf(os.Stderr, "task type %s has a worker but no registry entry\n", taskType)
			return 1
		}
	}
	for _, a := range reg.Activities {
		if !served[a.TaskType] {
			fmt.Printf("warning: registry activity %s (%s) has no worker\n", a.ID, a.TaskType)
		}
	}

	fmt.Printf("registry %s OK: %d activities\n", reg.Version, len(reg.Activities))
	return 0
}

func serve(ctx context.Context, cfg *config.Config, log logger.Logger) error {
	log.Info("starting worker manager", map[string]interface{}{"environment": cfg.App.Environment})

	obs := observability.New(observability.Options{
		ServiceName:    cfg.App.Name,
		Version:        cfg.App.Version,
		MetricsEnabled: cfg.Observability.MetricsEnabled,
		TracingEnabled: cfg.Observability.TracingEnabled,
		JaegerEndpoint: cfg.Observability.JaegerEndpoint,
		SampleRatio:    cfg.Observability.SampleRatio,
	}, log)
	defer obs.Shutdown(context.Background())

	// --- Zeebe ---
	var zeebe *camunda.Client
	err := retryWithBackoff(ctx, func() error {
		var err error
		zeebe, err = camunda.NewClientWithConfig(camunda.ConfigFrom(cfg.Camunda))
		return err
	}, 10, 2*time.Second, log, "Zeebe client initialization")
	if err != nil {
		return err
	}
	defer zeebe.Close()
	log.Info("Zeebe client connected", map[string]interface{}{"gateway": cfg.Camunda.BrokerAddress})

	// --- PostgreSQL ---
	pg, err := connectPostgres(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer pg.Close()

	// --- Redis ---
	var rdb *database.RedisClient
	err = retryWithBackoff(ctx, func() error {
		var err error
		rdb, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return rdb.Ping(ctx)
	}, 10, 2*time.Second, log, "Redis connection")
	if err != nil {
		return err
	}
	defer rdb.Close()
	log.Info("Redis connected", nil)

	// --- Elasticsearch ---
	var es *database.ElasticsearchClient
	err = retryWithBackoff(ctx, func() error {
		var err error
		es, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
		if err != nil {
			return err
		}
		return es.Ping()
	}, 15, 2*time.Second, log, "Elasticsearch connection")
	if err != nil {
		return err
	}
	if err := es.EnsureSalesIndex(ctx, cfg.Database.Elasticsearch.SalesIndex); err != nil {
		log.Warn("sales index not ready, settlements will not be searchable", map[string]interface{}{"error": err.Error()})
	}
	log.Info("Elasticsearch connected", nil)

	deps := &dependencies{
		db:    pg.DB,
		redis: rdb.Client,
		es:    es.Client,
	}

	// --- Identity provider and messaging, all optional ---
	if cfg.Auth.Keycloak.Enabled() {
		deps.idp = auth.NewKeycloakClient(cfg.Auth.Keycloak)
		log.Info("Keycloak identity sync enabled", map[string]interface{}{"realm": cfg.Auth.Keycloak.Realm})
	} else {
		log.Warn("Keycloak not configured, staff accounts will not be synced", nil)
	}

	awsCfg := cfg.Integrations.AWS
	if awsCfg.SES.Enabled {
		from := awsCfg.SES.FromEmail
		if from == "" {
			from = cfg.Notifications.Email.FromEmail
		}
		ses, err := aws.NewSESClient(ctx, awsCfg.Region, from)
		if err != nil {
			log.Warn("SES client unavailable, email notifications disabled", map[string]interface{}{"error": err.Error()})
		} else {
			deps.email = ses
		}
	}
	if awsCfg.SNS.Enabled {
		sns, err := aws.NewSNSClient(ctx, awsCfg.Region, awsCfg.SNS.DefaultSMSSenderID)
		if err != nil {
			log.Warn("SNS client unavailable, SMS notifications disabled", map[string]interface{}{"error": err.Error()})
		} else {
			deps.sms = sns
		}
	}

	// --- Job-variable validation ---
	reg, err := registry.Load(cfg.Registry.Path)
	if err != nil {
		return fmt.Errorf("load activity registry: %w", err)
	}
	validator, err := reg.Validator()
	if err != nil {
		return fmt.Errorf("compile activity schemas: %w", err)
	}

	runner := camunda.NewRunner(zeebe.GetClient(), validator, obs, log)
	registerWorkers(runner, cfg, deps, log)

	workers := runner.Workers()
	sort.Strings(workers)
	log.Info("workers registered", map[string]interface{}{"count": len(workers), "taskTypes": workers})

	// --- Health & Metrics Server ---
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.HTTPPort),
		Handler:           healthMux(pg, rdb, zeebe),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info("health/metrics server listening", map[string]interface{}{"addr": srv.Addr})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("health/metrics server failed", map[string]interface{}{"error": err.Error()})
		}
	}()

	// --- Graceful Shutdown ---
	<-ctx.Done()
	log.Info("shutdown signal received, stopping workers", nil)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	runner.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("health server shutdown failed", map[string]interface{}{"error": err.Error()})
	}

	log.Info("worker manager stopped", nil)
	return nil
}

func connectPostgres(ctx context.Context, cfg *config.Config, log logger.Logger) (*database.PostgresClient, error) {
	var pg *database.PostgresClient
	err := retryWithBackoff(ctx, func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, log, "PostgreSQL connection")
	if err != nil {
		return nil, err
	}
	log.Info("PostgreSQL connected", map[string]interface{}{"database": cfg.Database.Postgres.Database})
	return pg, nil
}

func healthMux(pg *database.PostgresClient, rdb *database.RedisClient, zeebe *camunda.Client) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeStatus(w, http.StatusOK, map[string]string{"status": "healthy"})
	})
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		checks := map[string]string{"postgres": "ok", "redis": "ok", "zeebe": "ok"}
		status := http.StatusOK
		if err := pg.Ping(ctx); err != nil {
			checks["postgres"] = err.Error()
			status = http.StatusServiceUnavailable
		}
		if err := rdb.Ping(ctx); err != nil {
			checks["redis"] = err.Error()
			status = http.StatusServiceUnavailable
		}
		if err := zeebe.HealthCheck(ctx); err != nil {
			checks["zeebe"] = err.Error()
			status = http.StatusServiceUnavailable
		}
		writeStatus(w, status, checks)
	})
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

func writeStatus(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(ctx context.Context, operation func() error, maxRetries int, initialDelay time.Duration, log logger.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName), map[string]interface{}{
				"error":       err.Error(),
				"attempt":     i + 1,
				"maxRetries":  maxRetries,
				"nextRetryIn": delay.String(),
			})
			select {
			case <-ctx.Done():
				return fmt.Errorf("%s aborted: %w", operationName, ctx.Err())
			case <-time.After(delay):
			}
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}
