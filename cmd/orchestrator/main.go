// Copyright 2025 James Ross
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/blockprover/orchestrator/internal/chainspec"
	"github.com/blockprover/orchestrator/internal/config"
	"github.com/blockprover/orchestrator/internal/janitor"
	"github.com/blockprover/orchestrator/internal/obs"
	"github.com/blockprover/orchestrator/internal/proofschema"
	"github.com/blockprover/orchestrator/internal/prover"
	"github.com/blockprover/orchestrator/internal/ratelimit"
	"github.com/blockprover/orchestrator/internal/reqactor"
	"github.com/blockprover/orchestrator/internal/reqgateway"
	"github.com/blockprover/orchestrator/internal/reqkey"
	"github.com/blockprover/orchestrator/internal/reqpool"
	"github.com/blockprover/orchestrator/internal/redisclient"
)

var version = "dev"

func main() {
	var configPath string
	var showVersion bool
	fs := flag.NewFlagSet(os.Args[0], flag.ExitOnError)
	fs.StringVar(&configPath, "config", "config/config.yaml", "Path to YAML config")
	fs.BoolVar(&showVersion, "version", false, "Print version and exit")
	_ = fs.Parse(os.Args[1:])

	if showVersion {
		fmt.Println(version)
		return
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := obs.NewLoggerFromConfig(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	tp, err := obs.MaybeInitTracing(cfg)
	if err != nil {
		logger.Warn("tracing init failed, continuing without spans", obs.Err(err))
	}
	if tp != nil {
		defer func() { _ = obs.TracerShutdown(context.Background(), tp) }()
	}

	pool, closePool, readyCheck, err := buildPool(cfg)
	if err != nil {
		logger.Fatal("failed to build pool", obs.Err(err))
	}
	defer closePool()

	chainSpecs, err := chainspec.Load(cfg.ChainSpecsPath)
	if err != nil {
		logger.Warn("chain specs not loaded, continuing with an empty table", obs.Err(err))
		chainSpecs = chainspec.Table{}
	}

	registry := buildProverRegistry()
	schemas, err := buildSchemaRegistry()
	if err != nil {
		logger.Fatal("failed to build proof-args schema registry", obs.Err(err))
	}

	a := reqactor.NewWithSchemas(pool, registry, schemas, cfg.ConcurrencyLimit, 256, logger, reqactor.BreakerConfig{
		Window:           cfg.CircuitBreaker.Window,
		CooldownPeriod:   cfg.CircuitBreaker.CooldownPeriod,
		FailureThreshold: cfg.CircuitBreaker.FailureThreshold,
		MinSamples:       cfg.CircuitBreaker.MinSamples,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go a.Run(ctx)

	var limiter *ratelimit.Limiter
	if cfg.RateLimit.Enabled {
		limiter = ratelimit.New(cfg.RateLimit.PerSecond, cfg.RateLimit.Burst)
	} else {
		limiter = ratelimit.Disabled()
	}

	gw := reqgateway.NewWithLimiter(a, pool, cfg.DefaultRequestConfig, chainSpecs, limiter)

	// Operator-driven pause/resume (spec.md §1 "tolerate ... operator-driven
	// pauses"), triggered by signal since this process has no RPC front end
	// of its own; cmd/report-tui builds its own Gateway for read-only queries
	// against the same Pool backend.
	pauseCh := make(chan os.Signal, 1)
	signal.Notify(pauseCh, syscall.SIGUSR1, syscall.SIGUSR2)
	go func() {
		for sig := range pauseCh {
			switch sig {
			case syscall.SIGUSR1:
				if err := gw.Pause(ctx); err != nil {
					logger.Warn("pause request failed", obs.Err(err))
					continue
				}
				logger.Info("paused via SIGUSR1")
			case syscall.SIGUSR2:
				gw.Resume()
				logger.Info("resumed via SIGUSR2")
			}
		}
	}()

	if cfg.Janitor.Enabled {
		j, err := janitor.New(pool, cfg.Janitor.Schedule, cfg.Janitor.PruneAfter, logger)
		if err != nil {
			logger.Fatal("failed to build janitor", obs.Err(err))
		}
		j.Start()
		defer j.Stop()
	}

	httpSrv := obs.StartHTTPServer(cfg, readyCheck)
	defer func() { _ = httpSrv.Shutdown(context.Background()) }()

	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("signal received, shutting down", obs.String("signal", sig.String()))
	cancel()

	select {
	case sig2 := <-sigCh:
		logger.Warn("second signal received, exiting immediately", obs.String("signal", sig2.String()))
		os.Exit(1)
	case <-time.After(5 * time.Second):
	}
}

// buildPool constructs the Pool backend named by cfg.Pool.Backend, returning
// a no-op close and an always-ready check for the memory backend, and the
// Redis client's Close/Ping for the ttl-store backend — mirroring the
// teacher's own readyCheck, which pings its Redis client directly
// (cmd/job-queue-system/main.go).
func buildPool(cfg *config.Config) (reqpool.Pool, func(), func(context.Context) error, error) {
	switch cfg.Pool.Backend {
	case "memory":
		return reqpool.NewMemory(), func() {}, func(context.Context) error { return nil }, nil
	case "ttl-store":
		rdb := redisclient.New(cfg)
		pool := reqpool.NewRedis(rdb, cfg.Pool.TTLSeconds, cfg.Pool.KeyPrefix)
		readyCheck := func(ctx context.Context) error {
			_, err := rdb.Ping(ctx).Result()
			return err
		}
		return pool, func() { _ = rdb.Close() }, readyCheck, nil
	default:
		return nil, nil, nil, fmt.Errorf("unknown pool backend %q", cfg.Pool.Backend)
	}
}

// nativeProverArgsSchema constrains the Native reference worker's ProverArgs
// blob to a JSON object; Native itself ignores the args' contents, so this
// only rejects malformed (non-object) payloads. Real prover backends would
// register their own, stricter schema instead (SPEC_FULL §4.6).
const nativeProverArgsSchema = `{"type": "object"}`

// buildSchemaRegistry registers the ProverArgs schema for every proof type
// this reference deployment dispatches to a real schema for; proof types
// left unregistered admit any args unchanged (proofschema.Registry.Validate).
func buildSchemaRegistry() (*proofschema.Registry, error) {
	reg := proofschema.NewRegistry()
	if err := reg.RegisterSchema(reqkey.ProofTypeNative, []byte(nativeProverArgsSchema)); err != nil {
		return nil, fmt.Errorf("register native schema: %w", err)
	}
	return reg, nil
}

// buildProverRegistry registers the reference Native worker for every known
// proof type. A real deployment would register one Worker per actual prover
// backend instead (spec §9 "dynamic dispatch over provers").
func buildProverRegistry() *prover.Registry {
	registry := prover.NewRegistry()
	native := prover.NewNative()
	for _, pt := range []reqkey.ProofType{
		reqkey.ProofTypeNative, reqkey.ProofTypeSP1, reqkey.ProofTypeSGX, reqkey.ProofTypeRisc0,
		reqkey.ProofTypeOpenVM, reqkey.ProofTypeZisk, reqkey.ProofTypePowdr, reqkey.ProofTypeBrevis,
	} {
		registry.Register(pt, native)
	}
	return registry
}
