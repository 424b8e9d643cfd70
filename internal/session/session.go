package session

import (
	"context"

	"go.uber.org/zap"

	"github.com/manash/imgrate/pkg/models"
)

// Session is the explicit context of one rater's run, created by
// Adapter.Start and torn down by Complete or Close.
type Session struct {
	ID        string
	Rater     string
	Key       string
	ImagesDir string
	OutputDir string
	// Ratings is the ordered list as loaded at start.
	Ratings []models.ImageRating
	Resumed bool
	// ExportPath is set once the final export has been written.
	ExportPath string

	adapter *Adapter
}

func (s *Session) Completed() bool {
	return s.ExportPath != ""
}

func (s *Session) SnapshotPath() string {
	return s.adapter.snapshots.Path(s.Key)
}

// Save snapshots the current list. It is the autosave hook for navigation.
func (s *Session) Save(ratings []models.ImageRating) error {
	if s.Completed() {
		return nil
	}
	if err := s.adapter.Snapshot(s.Rater, ratings); err != nil {
		return err
	}
	s.adapter.recordProgress(context.Background(), s, ratings)
	return nil
}

// Complete writes the final export and discards the snapshot. It satisfies
// rating.Completer.
func (s *Session) Complete(ratings []models.ImageRating) error {
	path, err := s.adapter.ExportFinal(s.OutputDir, s.Rater, ratings)
	if err != nil {
		return err
	}
	s.ExportPath = path
	s.adapter.recordCompletion(context.Background(), s, ratings)
	return nil
}

// Close is the teardown for a session that ends before completion. Snapshot
// failures are logged and returned, but never prevent the caller from
// exiting.
func (s *Session) Close(ratings []models.ImageRating) error {
	if s.Completed() {
		return nil
	}
	if err := s.Save(ratings); err != nil {
		s.adapter.logger.Error("failed to snapshot on close",
			zap.String("rater", s.Key), zap.Error(err))
		return err
	}
	s.adapter.logger.Info("session closed",
		zap.String("rater", s.Key),
		zap.Int("complete", models.CountComplete(ratings)),
		zap.Int("images", len(ratings)))
	return nil
}
