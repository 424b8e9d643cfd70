package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/manash/imgrate/internal/session"
)

var (
	flagSessionsOutput string
	flagKeepSnapshot   bool
)

type sessionsReport struct {
	Sessions []*session.Record      `json:"sessions" yaml:"sessions"`
	Pending  []session.SnapshotInfo `json:"pending" yaml:"pending"`
}

// sessionDetail is a ledger record plus the snapshot it can be resumed from.
type sessionDetail struct {
	session.Record `yaml:",inline"`
	Snapshot       string `json:"snapshot,omitempty" yaml:"snapshot,omitempty"`
}

func newSessionsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "sessions",
		Aliases: []string{"ls"},
		Short:   "List recorded rating sessions and pending snapshots",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSessions(cmd, app)
		},
	}

	cmd.PersistentFlags().StringVarP(&flagSessionsOutput, "output", "o", "table", "output format (table, json, yaml)")

	cmd.AddCommand(&cobra.Command{
		Use:   "show <id>",
		Short: "Show one session; the id may be shortened to a unique prefix",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSessionsShow(cmd, app, args[0])
		},
	})

	rmCmd := &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"delete"},
		Short:   "Delete a session from the ledger along with its pending snapshot",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSessionsRemove(cmd, app, args[0])
		},
	}
	rmCmd.Flags().BoolVar(&flagKeepSnapshot, "keep-snapshot", false, "keep the snapshot so the rater can still resume")
	cmd.AddCommand(rmCmd)

	return cmd
}

func runSessions(cmd *cobra.Command, app *App) error {
	ledger, err := session.NewStoreWithPath(session.DBPath(app.dataDir))
	if err != nil {
		return fmt.Errorf("failed to open session ledger: %w", err)
	}
	defer ledger.Close()

	records, err := ledger.ListSessions(cmd.Context())
	if err != nil {
		return err
	}
	pending, err := session.NewSnapshotStore(app.dataDir).List()
	if err != nil {
		return fmt.Errorf("failed to list snapshots: %w", err)
	}

	report := sessionsReport{Sessions: records, Pending: pending}
	return writeFormatted(app.Out, report, func(out io.Writer) error {
		return writeSessionsTable(out, report)
	})
}

func runSessionsShow(cmd *cobra.Command, app *App, ref string) error {
	ledger, err := session.NewStoreWithPath(session.DBPath(app.dataDir))
	if err != nil {
		return fmt.Errorf("failed to open session ledger: %w", err)
	}
	defer ledger.Close()

	rec, err := resolveSession(cmd.Context(), ledger, ref)
	if err != nil {
		return err
	}

	detail := sessionDetail{Record: *rec}
	if snap, ok := pendingSnapshot(cmd.Context(), ledger, session.NewSnapshotStore(app.dataDir), rec); ok {
		detail.Snapshot = snap
	}
	return writeFormatted(app.Out, detail, func(out io.Writer) error {
		return writeSessionDetail(out, detail)
	})
}

func runSessionsRemove(cmd *cobra.Command, app *App, ref string) error {
	ctx := cmd.Context()
	ledger, err := session.NewStoreWithPath(session.DBPath(app.dataDir))
	if err != nil {
		return fmt.Errorf("failed to open session ledger: %w", err)
	}
	defer ledger.Close()

	rec, err := resolveSession(ctx, ledger, ref)
	if err != nil {
		return err
	}

	snapshots := session.NewSnapshotStore(app.dataDir)
	snap, pending := pendingSnapshot(ctx, ledger, snapshots, rec)

	if err := ledger.DeleteSession(ctx, rec.ID); err != nil {
		return fmt.Errorf("failed to delete session %s: %w", rec.ID, err)
	}
	fmt.Fprintf(app.Out, "Deleted session %s (%s)\n", shortID(rec.ID), rec.Rater)

	if pending && !flagKeepSnapshot {
		if err := snapshots.Delete(rec.RaterKey); err != nil {
			return fmt.Errorf("failed to delete snapshot: %w", err)
		}
		fmt.Fprintf(app.Out, "Deleted snapshot %s\n", snap)
	}
	return nil
}

// resolveSession looks a session up by its full id, then by unique prefix.
func resolveSession(ctx context.Context, ledger *session.Store, ref string) (*session.Record, error) {
	rec, err := ledger.GetSession(ctx, ref)
	if !errors.Is(err, session.ErrSessionNotFound) {
		return rec, err
	}

	records, err := ledger.ListSessions(ctx)
	if err != nil {
		return nil, err
	}
	var match *session.Record
	for _, r := range records {
		if !strings.HasPrefix(r.ID, ref) {
			continue
		}
		if match != nil {
			return nil, fmt.Errorf("session id %q is ambiguous", ref)
		}
		match = r
	}
	if match == nil {
		return nil, fmt.Errorf("%w: %s", session.ErrSessionNotFound, ref)
	}
	return match, nil
}

// pendingSnapshot returns the snapshot a record can be resumed from. Only the
// rater's current active session owns the snapshot on disk.
func pendingSnapshot(ctx context.Context, ledger *session.Store, snapshots *session.SnapshotStore, rec *session.Record) (string, bool) {
	if rec.Status != session.StatusActive || !snapshots.Exists(rec.RaterKey) {
		return "", false
	}
	active, err := ledger.FindActive(ctx, rec.RaterKey)
	if err != nil || active.ID != rec.ID {
		return "", false
	}
	return snapshots.Path(rec.RaterKey), true
}

func writeFormatted(out io.Writer, v any, table func(io.Writer) error) error {
	switch flagSessionsOutput {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	case "table", "":
		return table(out)
	default:
		return fmt.Errorf("unsupported output format %q: must be table, json or yaml", flagSessionsOutput)
	}
}

func writeSessionsTable(out io.Writer, report sessionsReport) error {
	if len(report.Sessions) == 0 && len(report.Pending) == 0 {
		fmt.Fprintln(out, "No sessions recorded")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tRATER\tSTATUS\tRATED\tUPDATED\tEXPORT")
	for _, rec := range report.Sessions {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d/%d\t%s\t%s\n",
			shortID(rec.ID), rec.Rater, rec.Status, rec.RatedCount, rec.ImageCount,
			session.FormatTimestamp(rec.UpdatedAt), rec.ExportPath)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if len(report.Pending) > 0 {
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Pending snapshots:")
		for _, info := range report.Pending {
			fmt.Fprintf(out, "  %s  %s  (%s)\n", info.Key, info.Path, session.FormatTimestamp(info.UpdatedAt))
		}
	}
	return nil
}

func writeSessionDetail(out io.Writer, d sessionDetail) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "ID:\t%s\n", d.ID)
	fmt.Fprintf(w, "Rater:\t%s\n", d.Rater)
	fmt.Fprintf(w, "Status:\t%s\n", d.Status)
	fmt.Fprintf(w, "Rated:\t%d/%d\n", d.RatedCount, d.ImageCount)
	fmt.Fprintf(w, "Images:\t%s\n", d.ImagesDir)
	fmt.Fprintf(w, "Output:\t%s\n", d.OutputDir)
	fmt.Fprintf(w, "Started:\t%s\n", session.FormatTimestamp(d.CreatedAt))
	fmt.Fprintf(w, "Updated:\t%s\n", session.FormatTimestamp(d.UpdatedAt))
	if d.CompletedAt != nil {
		fmt.Fprintf(w, "Completed:\t%s\n", session.FormatTimestamp(*d.CompletedAt))
	}
	if d.ExportPath != "" {
		fmt.Fprintf(w, "Export:\t%s\n", d.ExportPath)
	}
	if d.Snapshot != "" {
		fmt.Fprintf(w, "Snapshot:\t%s\n", d.Snapshot)
	}
	return w.Flush()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
