// Package app wires the scheduler runtime: settlement client, notifier,
// run audit storage, cron triggers, supervision, and the health server.
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/RedaRahmani/doublezero-offchain/internal/platform/timeouts"
	"github.com/RedaRahmani/doublezero-offchain/internal/services/scheduler/domain"
	"github.com/RedaRahmani/doublezero-offchain/internal/services/scheduler/ledger"
	"github.com/RedaRahmani/doublezero-offchain/internal/services/scheduler/notify"
	"github.com/RedaRahmani/doublezero-offchain/internal/services/scheduler/storage"
	schedulersqlite "github.com/RedaRahmani/doublezero-offchain/internal/services/scheduler/storage/sqlite"
)

// RuntimeConfig controls scheduler startup, dependencies, and worker behavior.
type RuntimeConfig struct {
	Port               int
	LedgerRPC          string
	SolanaRPC          string
	GenesisEpoch       uint64
	SweepSchedule      string
	InitializeSchedule string
	CalculateSchedule  string
	SweepStepInterval  time.Duration
	RestartDelay       time.Duration
	ReadyTimeout       time.Duration
	SlackWebhookURL    string
	DBPath             string
}

const (
	defaultSchedulerPort = 8094
	defaultSchedulerDB   = "data/scheduler.db"

	defaultSweepSchedule      = "@hourly"
	defaultInitializeSchedule = "15 * * * *"
	defaultCalculateSchedule  = "30 * * * *"
)

// Run starts scheduler runtime dependencies and blocks until ctx ends.
func Run(ctx context.Context, cfg RuntimeConfig) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if strings.TrimSpace(cfg.LedgerRPC) == "" {
		return fmt.Errorf("ledger RPC address is required")
	}
	if strings.TrimSpace(cfg.SolanaRPC) == "" {
		return fmt.Errorf("solana RPC address is required")
	}
	if cfg.Port <= 0 {
		cfg.Port = defaultSchedulerPort
	}
	if strings.TrimSpace(cfg.DBPath) == "" {
		cfg.DBPath = defaultSchedulerDB
	}
	if strings.TrimSpace(cfg.SweepSchedule) == "" {
		cfg.SweepSchedule = defaultSweepSchedule
	}
	if strings.TrimSpace(cfg.InitializeSchedule) == "" {
		cfg.InitializeSchedule = defaultInitializeSchedule
	}
	if strings.TrimSpace(cfg.CalculateSchedule) == "" {
		cfg.CalculateSchedule = defaultCalculateSchedule
	}
	if cfg.ReadyTimeout <= 0 {
		cfg.ReadyTimeout = timeouts.RPCReady
	}

	if dir := filepath.Dir(cfg.DBPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create scheduler storage dir: %w", err)
		}
	}

	runStore, err := schedulersqlite.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open scheduler sqlite store: %w", err)
	}
	defer func() {
		if closeErr := runStore.Close(); closeErr != nil {
			log.Printf("close scheduler sqlite store: %v", closeErr)
		}
	}()

	client, err := ledger.New(cfg.LedgerRPC, cfg.SolanaRPC, nil, log.Printf)
	if err != nil {
		return fmt.Errorf("build settlement client: %w", err)
	}
	readyCtx, cancelReady := context.WithTimeout(ctx, cfg.ReadyTimeout)
	defer cancelReady()
	if err := client.WaitReady(readyCtx, cfg.ReadyTimeout); err != nil {
		return err
	}

	notifier := notify.NewSlackNotifier(cfg.SlackWebhookURL, nil, log.Printf)
	recorder := newRunStoreRecorder(runStore)
	supervisor := domain.NewSupervisor(cfg.RestartDelay, log.Printf)

	workers := scheduledWorkers(client, notifier, recorder, cfg)
	cronRunner := cron.New()
	for _, worker := range workers {
		worker := worker
		if _, err := cronRunner.AddFunc(worker.schedule, func() {
			supervisor.Spawn(ctx, worker.spec)
		}); err != nil {
			return fmt.Errorf("schedule %s (%q): %w", worker.spec.Name, worker.schedule, err)
		}
	}

	// The first sweep starts immediately; cron ticks only add a new sweep
	// once the previous one has stopped.
	supervisor.Spawn(ctx, workers[0].spec)
	cronRunner.Start()
	defer func() {
		<-cronRunner.Stop().Done()
	}()

	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.Port))
	if err != nil {
		return fmt.Errorf("listen on scheduler port %d: %w", cfg.Port, err)
	}
	defer listener.Close()

	grpcServer := grpc.NewServer(grpc.StatsHandler(otelgrpc.NewServerHandler()))
	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus("scheduler.runtime", grpc_health_v1.HealthCheckResponse_SERVING)

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		if serveErr := grpcServer.Serve(listener); serveErr != nil && !errors.Is(serveErr, grpc.ErrServerStopped) {
			return serveErr
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		healthServer.Shutdown()
		grpcServer.GracefulStop()
		return nil
	})

	log.Printf("scheduler health server listening at %v", listener.Addr())
	err = group.Wait()
	supervisor.Wait()
	return err
}

type scheduledWorker struct {
	schedule string
	spec     domain.Spec
}

// scheduledWorkers builds the three worker specs and their cron schedules.
// The sweep is the only supervisor-restarted worker: the initializer and
// calculator rely on the next cron tick as their retry.
func scheduledWorkers(client domain.SettlementClient, notifier domain.Notifier, recorder domain.RunRecorder, cfg RuntimeConfig) []scheduledWorker {
	return []scheduledWorker{
		{
			schedule: cfg.SweepSchedule,
			spec: domain.Spec{
				Name:    domain.WorkerSweep,
				Restart: domain.RestartOnFault,
				New: func() domain.Worker {
					return domain.NewSweepWorker(client, notifier, domain.SweepConfig{
						GenesisEpoch: cfg.GenesisEpoch,
						StepInterval: cfg.SweepStepInterval,
						Recorder:     recorder,
					})
				},
			},
		},
		{
			schedule: cfg.InitializeSchedule,
			spec: domain.Spec{
				Name:    domain.WorkerInitialize,
				Restart: domain.RestartNever,
				New: func() domain.Worker {
					return domain.NewInitializeWorker(client, recorder, nil)
				},
			},
		},
		{
			schedule: cfg.CalculateSchedule,
			spec: domain.Spec{
				Name:    domain.WorkerCalculate,
				Restart: domain.RestartNever,
				New: func() domain.Worker {
					return domain.NewCalculateWorker(client, recorder, nil)
				},
			},
		},
	}
}

type runStoreRecorder struct {
	store storage.RunStore
}

func newRunStoreRecorder(store storage.RunStore) *runStoreRecorder {
	return &runStoreRecorder{store: store}
}

func (r *runStoreRecorder) RecordRun(ctx context.Context, run domain.Run) error {
	if r == nil || r.store == nil {
		return nil
	}
	return r.store.RecordRun(ctx, storage.RunRecord{
		Worker:    run.Worker,
		Epoch:     run.Epoch,
		Outcome:   run.Outcome,
		Detail:    run.Detail,
		CreatedAt: run.CreatedAt,
	})
}
