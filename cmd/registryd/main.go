// Command registryd is the agent registry and discovery service's HTTP
// server entrypoint.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/sage-x-project/agent-registry/internal/admin"
	"github.com/sage-x-project/agent-registry/internal/admission"
	"github.com/sage-x-project/agent-registry/internal/config"
	"github.com/sage-x-project/agent-registry/internal/discovery"
	"github.com/sage-x-project/agent-registry/internal/embed"
	"github.com/sage-x-project/agent-registry/internal/health"
	"github.com/sage-x-project/agent-registry/internal/httpapi"
	"github.com/sage-x-project/agent-registry/internal/registry"
	"github.com/sage-x-project/agent-registry/internal/store/postgres"
	qdrantstore "github.com/sage-x-project/agent-registry/internal/store/qdrant"
	"github.com/sage-x-project/agent-registry/logger"
)

func main() {
	log := logger.GetLogger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("failed to load configuration", err)
	}

	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Warn("unrecognized LOG_LEVEL, defaulting to info: " + err.Error())
	} else {
		logger.SetGlobalLevel(level)
	}

	ctx := context.Background()

	pg, err := postgres.Open(ctx, cfg.PostgresURL)
	if err != nil {
		log.Fatal("failed to open postgres store", err)
	}
	defer pg.Close()

	vec, err := qdrantstore.Open(ctx, cfg.QdrantURL)
	if err != nil {
		log.Fatal("failed to open qdrant store", err)
	}

	model, err := embed.NewModelFromEnv()
	if err != nil {
		log.Warn("failed to initialize embedding model, using deterministic fallback: " + err.Error())
		model = nil
	}
	embedder := embed.New(model)

	validator, err := registry.NewValidator()
	if err != nil {
		log.Fatal("failed to compile register schema", err)
	}

	registrySvc := registry.NewService(pg, vec, embedder, log)
	discoverySvc := discovery.NewService(pg, vec, embedder, log, discovery.Config{
		Weights: discovery.Weights{
			Sim:   cfg.SearchWeightSim,
			Rep:   cfg.SearchWeightRep,
			Avail: cfg.SearchWeightAvail,
		},
		LexicalStandInScore: cfg.LexicalStandInScore,
		HeartbeatTTL:        time.Duration(cfg.HeartbeatTTLMS) * time.Millisecond,
		MinReputation:       cfg.MinRepDiscover,
	})
	healthChecker := health.NewChecker(pg, vec)
	reindexer := admin.NewReindexer(pg, vec, embedder, log)

	limiter := admission.NewRateLimiter(cfg.RateLimitMax, time.Duration(cfg.RateLimitWindowMS)*time.Millisecond)
	guard := admission.NewGuard(cfg.APIKey, limiter, log)

	server := httpapi.NewServer(guard, registrySvc, discoverySvc, healthChecker, reindexer, pg, validator, cfg.CORSOrigin, log)

	httpServer := &http.Server{
		Addr:    ":" + strconv.Itoa(cfg.Port),
		Handler: server.Router(),
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Infof("agent registry listening on %s", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("http server failed", err)
		}
	}()

	sig := <-sigChan
	log.Infof("received signal %v, shutting down", sig)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", err)
	}
}
