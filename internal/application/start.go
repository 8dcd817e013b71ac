package application

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/JonMunkholm/opendata/internal/config"
	"github.com/JonMunkholm/opendata/internal/core"
	"github.com/JonMunkholm/opendata/internal/logging"
)

// Run is the startup state shared by the commands.
type Run struct {
	Ctx      context.Context
	Config   *config.Config
	Pipeline *config.Pipeline
	Env      *Env

	stop context.CancelFunc
}

// Start loads .env, the runtime configuration and the pipeline file,
// configures logging and builds the environment. The context carries a fresh
// run id and is cancelled on SIGINT or SIGTERM.
func Start(command string) (*Run, error) {
	// Overload lets .env values win over the inherited environment
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	ctx, runID := logging.NewRun(ctx)
	log := logging.FromContext(ctx)
	log.Info("configuration loaded", "command", command, "run_id", runID, "config", cfg.String())

	p, err := config.LoadPipeline(cfg.Pipeline.Path)
	if err != nil {
		stop()
		return nil, err
	}

	env, err := Setup(ctx, cfg)
	if err != nil {
		stop()
		return nil, err
	}
	return &Run{Ctx: ctx, Config: cfg, Pipeline: p, Env: env, stop: stop}, nil
}

// Close releases the environment and the signal handler.
func (r *Run) Close() {
	r.Env.Close()
	r.stop()
}

// Fail logs err with its catalog code and exits with status 1.
func Fail(ctx context.Context, msg string, err error) {
	logging.FromContext(ctx).Error(msg, "error", err, "code", core.ErrorCode(err), "hint", core.FormatUserError(err))
	os.Exit(1)
}
