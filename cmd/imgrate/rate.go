package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/manash/imgrate/internal/display"
	"github.com/manash/imgrate/internal/export"
	"github.com/manash/imgrate/internal/rating"
	"github.com/manash/imgrate/internal/repl"
	"github.com/manash/imgrate/internal/security"
	"github.com/manash/imgrate/internal/session"
	"github.com/manash/imgrate/internal/tui"
)

// tuiImageRows is the terminal height given to the image in the full-screen
// interface.
const tuiImageRows = 16

var (
	flagName   string
	flagImages string
	flagOutput string
	flagFormat string
	flagPlain  bool
	flagSeed   uint64
)

func newRateCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rate",
		Short: "Start or resume a rating session",
		Long: `Start a rating session for a rater, or resume the one they left unfinished.

Keys: 1-5 rate the current question, up/down pick a question, enter or right
moves on, left goes back, q saves and quits.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRate(cmd.Context(), cmd, app)
		},
	}

	cmd.Flags().StringVarP(&flagName, "name", "n", "", "rater name")
	cmd.Flags().StringVarP(&flagImages, "images", "i", "", "directory of images to rate")
	cmd.Flags().StringVarP(&flagOutput, "output", "o", "", "directory for the final export (default: config export.output_dir, then cwd)")
	cmd.Flags().StringVarP(&flagFormat, "format", "f", "", "export format (csv, parquet)")
	cmd.Flags().BoolVar(&flagPlain, "plain", false, "line-oriented interface instead of the full-screen one")
	cmd.Flags().Uint64Var(&flagSeed, "seed", 0, "fixed shuffle seed for a fresh session")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("images")

	return cmd
}

func runRate(ctx context.Context, cmd *cobra.Command, app *App) error {
	if ctx == nil {
		ctx = context.Background()
	}

	if _, err := security.SanitizeRaterName(flagName); err != nil {
		return err
	}

	outputDir, err := resolveOutputDir(app)
	if err != nil {
		return err
	}

	format := flagFormat
	if format == "" {
		format = app.cfg.Export.Format
	}
	exporter, err := export.ForFormat(format)
	if err != nil {
		return err
	}

	ledger, err := session.NewStoreWithPath(session.DBPath(app.dataDir))
	if err != nil {
		return fmt.Errorf("failed to open session ledger: %w", err)
	}
	defer ledger.Close()

	shuffle := session.RandomShuffler()
	if cmd.Flags().Changed("seed") {
		shuffle = session.SeededShuffler(flagSeed)
	}

	adapter, err := session.NewAdapter(session.Config{
		DataDir:    app.dataDir,
		Extensions: app.cfg.Images.Extensions,
		Exporter:   exporter,
		Shuffle:    shuffle,
		Ledger:     ledger,
		Logger:     app.logger,
	})
	if err != nil {
		return err
	}

	sess, err := adapter.Start(ctx, session.StartOptions{
		Rater:     flagName,
		ImagesDir: flagImages,
		OutputDir: outputDir,
	})
	if err != nil {
		return err
	}

	var machineOpts []rating.Option
	if app.cfg.Rating.AllowIncompleteLast {
		machineOpts = append(machineOpts, rating.WithPolicy(rating.PolicyAllowIncompleteLast))
	}
	machine, err := rating.NewMachine(sess.Ratings, sess, machineOpts...)
	if err != nil {
		return err
	}

	dispatchOpts := []rating.DispatcherOption{rating.WithLogger(app.logger)}
	if app.cfg.Rating.Autosave {
		dispatchOpts = append(dispatchOpts, rating.WithAutosave(sess.Save))
	}
	dispatcher := rating.NewDispatcher(machine, dispatchOpts...)

	app.logger.Info("rating session started",
		zap.String("session", sess.ID),
		zap.String("rater", sess.Key),
		zap.Bool("resumed", sess.Resumed),
		zap.Int("images", machine.Len()))

	if flagPlain || !app.IsTerminal() {
		r := repl.New(&repl.Config{
			In:         app.In,
			Out:        app.Out,
			Err:        app.Err,
			Session:    sess,
			Dispatcher: dispatcher,
			Displayer:  display.New(app.Out, display.WithPlacement(display.Placement{Rows: 20})),
			Labels:     app.cfg.QuestionLabel,
			Logger:     app.logger,
		})
		return r.Run(ctx)
	}

	tuiCfg := tui.Config{
		Session:    sess,
		Dispatcher: dispatcher,
		Labels:     app.cfg.QuestionLabel,
		Logger:     app.logger,
	}
	viewer := display.New(app.Out, display.WithPlacement(display.Placement{Rows: tuiImageRows, KeepCursor: true}))
	if viewer.Supported() {
		tuiCfg.Images = viewer
		tuiCfg.ImageRows = tuiImageRows
	}
	if err := app.RunTUI(ctx, tuiCfg); err != nil {
		return err
	}

	if sess.Completed() {
		fmt.Fprintf(app.Out, "Done! Ratings exported to %s\n", sess.ExportPath)
	} else {
		fmt.Fprintf(app.Out, "Progress saved to %s\n", sess.SnapshotPath())
	}
	return nil
}

func resolveOutputDir(app *App) (string, error) {
	dir := flagOutput
	if dir == "" {
		dir = app.cfg.Export.OutputDir
	}
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", err
		}
		dir = wd
	}
	if err := security.ValidateOutputDir(dir); err != nil {
		return "", fmt.Errorf("invalid output directory: %w", err)
	}
	return dir, nil
}
