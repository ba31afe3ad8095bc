// Package scheduler parses scheduler command flags and launches the
// scheduler runtime.
package scheduler

import (
	"context"
	"flag"
	"time"

	entrypoint "github.com/RedaRahmani/doublezero-offchain/internal/platform/cmd"
	schedulerapp "github.com/RedaRahmani/doublezero-offchain/internal/services/scheduler/app"
)

// Config holds scheduler command configuration.
type Config struct {
	Port               int           `env:"DOUBLEZERO_SCHEDULER_PORT" envDefault:"8094"`
	LedgerRPC          string        `env:"DOUBLEZERO_SCHEDULER_LEDGER_RPC"`
	SolanaRPC          string        `env:"DOUBLEZERO_SCHEDULER_SOLANA_RPC"`
	GenesisEpoch       uint64        `env:"DOUBLEZERO_SCHEDULER_GENESIS_EPOCH" envDefault:"0"`
	SweepSchedule      string        `env:"DOUBLEZERO_SCHEDULER_SWEEP_SCHEDULE" envDefault:"@hourly"`
	InitializeSchedule string        `env:"DOUBLEZERO_SCHEDULER_INITIALIZE_SCHEDULE" envDefault:"15 * * * *"`
	CalculateSchedule  string        `env:"DOUBLEZERO_SCHEDULER_CALCULATE_SCHEDULE" envDefault:"30 * * * *"`
	SweepStepInterval  time.Duration `env:"DOUBLEZERO_SCHEDULER_SWEEP_STEP_INTERVAL" envDefault:"10ms"`
	RestartDelay       time.Duration `env:"DOUBLEZERO_SCHEDULER_RESTART_DELAY" envDefault:"5s"`
	ReadyTimeout       time.Duration `env:"DOUBLEZERO_SCHEDULER_READY_TIMEOUT" envDefault:"1m"`
	SlackWebhookURL    string        `env:"DOUBLEZERO_SCHEDULER_SLACK_WEBHOOK_URL"`
	DBPath             string        `env:"DOUBLEZERO_SCHEDULER_DB_PATH" envDefault:"data/scheduler.db"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.IntVar(&cfg.Port, "port", cfg.Port, "The scheduler health gRPC server port")
	fs.StringVar(&cfg.LedgerRPC, "ledger-rpc", cfg.LedgerRPC, "The DoubleZero ledger RPC endpoint")
	fs.StringVar(&cfg.SolanaRPC, "solana-rpc", cfg.SolanaRPC, "The Solana RPC endpoint")
	fs.Uint64Var(&cfg.GenesisEpoch, "genesis-epoch", cfg.GenesisEpoch, "First epoch the debt sweep settles")
	fs.StringVar(&cfg.SweepSchedule, "sweep-schedule", cfg.SweepSchedule, "Cron schedule for the debt sweep worker")
	fs.StringVar(&cfg.InitializeSchedule, "initialize-schedule", cfg.InitializeSchedule, "Cron schedule for the distribution initializer")
	fs.StringVar(&cfg.CalculateSchedule, "calculate-schedule", cfg.CalculateSchedule, "Cron schedule for the distribution calculator")
	fs.DurationVar(&cfg.SweepStepInterval, "sweep-step-interval", cfg.SweepStepInterval, "Delay between sweep epoch attempts")
	fs.DurationVar(&cfg.RestartDelay, "restart-delay", cfg.RestartDelay, "Delay before restarting a faulted worker")
	fs.DurationVar(&cfg.ReadyTimeout, "ready-timeout", cfg.ReadyTimeout, "Maximum wait for the ledger RPC at startup")
	fs.StringVar(&cfg.SlackWebhookURL, "slack-webhook-url", cfg.SlackWebhookURL, "Slack webhook for debt sweep summaries")
	fs.StringVar(&cfg.DBPath, "db-path", cfg.DBPath, "The scheduler SQLite database path")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the scheduler runtime.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceScheduler, func(context.Context) error {
		return schedulerapp.Run(ctx, schedulerapp.RuntimeConfig{
			Port:               cfg.Port,
			LedgerRPC:          cfg.LedgerRPC,
			SolanaRPC:          cfg.SolanaRPC,
			GenesisEpoch:       cfg.GenesisEpoch,
			SweepSchedule:      cfg.SweepSchedule,
			InitializeSchedule: cfg.InitializeSchedule,
			CalculateSchedule:  cfg.CalculateSchedule,
			SweepStepInterval:  cfg.SweepStepInterval,
			RestartDelay:       cfg.RestartDelay,
			ReadyTimeout:       cfg.ReadyTimeout,
			SlackWebhookURL:    cfg.SlackWebhookURL,
			DBPath:             cfg.DBPath,
		})
	})
}
