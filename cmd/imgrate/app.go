package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/manash/imgrate/internal/config"
	"github.com/manash/imgrate/internal/logging"
	"github.com/manash/imgrate/internal/tui"
)

var (
	flagConfig  string
	flagVerbose bool
)

// Commands annotated with configOptional run on defaults when --config
// names a file that does not exist yet.
const (
	annotationConfig = "imgrate/config"
	configOptional   = "optional"
)

type App struct {
	In         io.Reader
	Out        io.Writer
	Err        io.Writer
	IsTerminal func() bool
	RunTUI     func(ctx context.Context, cfg tui.Config) error

	cfg     *config.Config
	dataDir string
	logger  *zap.Logger
}

func DefaultApp() *App {
	return &App{
		In:  os.Stdin,
		Out: os.Stdout,
		Err: os.Stderr,
		IsTerminal: func() bool {
			return term.IsTerminal(int(os.Stdout.Fd())) && term.IsTerminal(int(os.Stdin.Fd()))
		},
		RunTUI: func(ctx context.Context, cfg tui.Config) error {
			return tui.Run(ctx, cfg)
		},
	}
}

// setup loads .env, the config file and the logger for every subcommand.
func (a *App) setup(cmd *cobra.Command) error {
	_ = godotenv.Load()

	path := flagConfig
	if path != "" && cmd.Annotations[annotationConfig] == configOptional {
		if _, err := os.Stat(path); err != nil {
			path = ""
		}
	}
	if path == "" && flagConfig == "" {
		discovered, err := config.Discover()
		if err != nil {
			return fmt.Errorf("failed to locate config: %w", err)
		}
		path = discovered
	}

	cfg, err := config.Load(path)
	if err != nil {
		return err
	}

	dataDir, err := cfg.ResolveDataDir()
	if err != nil {
		return fmt.Errorf("failed to resolve data directory: %w", err)
	}

	logger, err := logging.New(cfg.Log.Level, cfg.LogFile(dataDir), flagVerbose)
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.dataDir = dataDir
	a.logger = logger.With(zap.String("command", cmd.Name()))
	a.logger.Debug("configuration loaded",
		zap.String("config", path),
		zap.String("data_dir", dataDir))
	return nil
}

func (a *App) teardown() {
	if a.logger != nil {
		_ = a.logger.Sync()
	}
}

func newRootCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "imgrate",
		Short: "Rate a directory of images on five questions",
		Long: `imgrate walks a rater through a shuffled directory of images, asking five
questions per image on a 1-5 scale.

Progress is snapshotted as you go, so an interrupted session resumes exactly
where it stopped. When the last image is rated the answers are exported as
CSV (or Parquet) and the snapshot is removed.

Examples:
  imgrate rate --name "Ada Lovelace" --images ./photos --output ./results
  imgrate rate -n ada -i ./photos --plain
  imgrate sessions -o yaml`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return app.setup(cmd)
		},
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			app.teardown()
		},
	}

	cmd.PersistentFlags().StringVarP(&flagConfig, "config", "c", "", "config file (default: discovered)")
	cmd.PersistentFlags().BoolVar(&flagVerbose, "verbose", false, "debug logging")

	cmd.AddCommand(newRateCmd(app))
	cmd.AddCommand(newSessionsCmd(app))
	cmd.AddCommand(newConfigCmd(app))

	return cmd
}
