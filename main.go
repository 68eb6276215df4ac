// Copyright 2025 Certen Protocol

package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/certen/beacon-relay/pkg/beacon"
	"github.com/certen/beacon-relay/pkg/broadcast"
	"github.com/certen/beacon-relay/pkg/config"
	"github.com/certen/beacon-relay/pkg/controlloop"
	"github.com/certen/beacon-relay/pkg/database"
	"github.com/certen/beacon-relay/pkg/dispatcher"
	"github.com/certen/beacon-relay/pkg/headlistener"
	"github.com/certen/beacon-relay/pkg/metrics"
	"github.com/certen/beacon-relay/pkg/prover"
	"github.com/certen/beacon-relay/pkg/server"
	"github.com/certen/beacon-relay/pkg/settlement"
	"github.com/certen/beacon-relay/pkg/tracerunner"
)

func main() {
	logger := log.New(os.Stdout, "[Relay] ", log.LstdFlags)

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatalf("invalid config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbClient, err := database.NewClient(cfg, database.WithLogger(logger))
	if err != nil {
		logger.Fatalf("connect database: %v", err)
	}
	defer dbClient.Close()

	if err := dbClient.MigrateUp(ctx); err != nil {
		logger.Fatalf("run migrations: %v", err)
	}
	repos := database.NewRepositories(dbClient)

	beaconClient := beacon.NewHTTPClient(cfg.BeaconRPCURL)

	settlementClient, err := settlement.NewJSONRPCClient(cfg.StarknetRPCURL, cfg.StarknetChainID, cfg.StarknetAddress, cfg.StarknetPrivateKey)
	if err != nil {
		logger.Fatalf("connect settlement client: %v", err)
	}

	proverClient := prover.NewHTTPClient(cfg.AtlanticAPIURL, cfg.AtlanticAPIKey)
	traceRunner := tracerunner.NewCLIRunner(cfg.TraceRunnerBinaryPath, cfg.TraceRunnerWorkDir, cfg.TraceRunnerTimeout)

	metrics.MustRegister()

	disp := dispatcher.New(repos, beaconClient, traceRunner, proverClient, cfg.JobsRetryEnabled, cfg.JobsResumeEnabled)
	if err := disp.ResumeAll(ctx); err != nil {
		logger.Fatalf("resume jobs: %v", err)
	}

	enqueue := func(ctx context.Context, newJob *database.NewJob) error {
		job, err := repos.Jobs.CreateJob(ctx, newJob)
		if err != nil {
			if errors.Is(err, database.ErrJobExists) {
				return nil
			}
			return err
		}
		disp.Submit(ctx, job)
		return nil
	}
	loop := controlloop.New(repos.Jobs, settlementClient, enqueue)

	listener := headlistener.New(cfg.BeaconRPCURL, 64)
	if cfg.BeaconChainListenerEnabled {
		listener.Start(ctx)
	}

	broadcaster := broadcast.New(repos.Jobs, repos.Verified, settlementClient)
	broadcaster.Start(ctx)

	relayHandlers := server.NewRelayHandlers(repos, beaconClient, settlementClient, listener.LastObserved, logger)
	mux := http.NewServeMux()
	mux.HandleFunc("/status", relayHandlers.HandleStatus)
	mux.HandleFunc("/get_merkle_paths_for_epoch/", relayHandlers.HandleGetMerklePathsForEpoch)
	mux.HandleFunc("/debug/get-epoch-update/", relayHandlers.HandleDebugGetEpochUpdate)
	mux.HandleFunc("/debug/get-latest-verified-slot", relayHandlers.HandleDebugGetLatestVerifiedSlot)
	mux.HandleFunc("/healthz", relayHandlers.HandleHealthz)
	mux.HandleFunc("/readyz", relayHandlers.HandleReadyz)
	mux.Handle("/metrics", metrics.Handler())

	httpServer := &http.Server{
		Addr:              cfg.ListenAddr(),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Printf("query API listening on %s", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Printf("query API server error: %v", err)
		}
	}()

	go runControlLoop(ctx, loop, listener, logger)

	<-ctx.Done()
	logger.Println("shutdown signal received, draining")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	_ = httpServer.Shutdown(shutdownCtx)

	listener.Stop()
	broadcaster.Stop()
	disp.Wait()

	logger.Println("shutdown complete")
}

// runControlLoop serializes Control Loop ticks one at a time against the
// Head Listener's event stream, per §5c's requirement that one observation
// complete before the next begins.
func runControlLoop(ctx context.Context, loop *controlloop.ControlLoop, listener *headlistener.Listener, logger *log.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-listener.Events():
			if !ok {
				return
			}
			if err := loop.Tick(ctx, event); err != nil {
				logger.Printf("control loop tick failed: %v", err)
			}
		}
	}
}
