// Package session loads, snapshots and exports rating sessions.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/manash/imgrate/internal/export"
	"github.com/manash/imgrate/internal/security"
	"github.com/manash/imgrate/pkg/models"
)

type Config struct {
	// DataDir holds the resumable snapshots.
	DataDir    string
	Extensions []string
	Exporter   export.Writer
	Shuffle    Shuffler
	// Ledger is optional; when nil no session history is recorded.
	Ledger *Store
	Logger *zap.Logger
	Now    func() time.Time
}

// Adapter is the persistence side of a rating session: it builds the ordered
// image list, snapshots progress and writes the final export.
type Adapter struct {
	snapshots  *SnapshotStore
	extensions []string
	exporter   export.Writer
	shuffle    Shuffler
	ledger     *Store
	logger     *zap.Logger
	now        func() time.Time
}

func NewAdapter(cfg Config) (*Adapter, error) {
	if cfg.DataDir == "" {
		return nil, errors.New("data directory is required")
	}
	a := &Adapter{
		snapshots:  NewSnapshotStore(cfg.DataDir),
		extensions: cfg.Extensions,
		exporter:   cfg.Exporter,
		shuffle:    cfg.Shuffle,
		ledger:     cfg.Ledger,
		logger:     cfg.Logger,
		now:        cfg.Now,
	}
	if len(a.extensions) == 0 {
		a.extensions = DefaultExtensions
	}
	if a.exporter == nil {
		a.exporter = export.CSVWriter{}
	}
	if a.shuffle == nil {
		a.shuffle = RandomShuffler()
	}
	if a.logger == nil {
		a.logger = zap.NewNop()
	}
	if a.now == nil {
		a.now = time.Now
	}
	return a, nil
}

// ExportPath is where the final export for raterKey lands in destDir.
func (a *Adapter) ExportPath(destDir, raterKey string) string {
	return filepath.Join(destDir, filePrefix+raterKey+a.exporter.Extension())
}

// LoadSession returns the ordered image list for a rater. An existing
// snapshot wins and keeps its order and answers; otherwise the images
// directory is listed and shuffled once.
func (a *Adapter) LoadSession(raterName, imagesDir string) ([]models.ImageRating, bool, error) {
	key, err := security.SanitizeRaterName(raterName)
	if err != nil {
		return nil, false, err
	}

	ratings, err := a.snapshots.Load(key)
	switch {
	case err == nil:
		a.logger.Info("resuming rating session",
			zap.String("rater", key),
			zap.Int("images", len(ratings)),
			zap.Int("complete", models.CountComplete(ratings)))
		return ratings, true, nil
	case errors.Is(err, ErrSnapshotCorrupt), errors.Is(err, ErrSnapshotUnreadable):
		a.logger.Warn("snapshot cannot be resumed, starting a fresh session",
			zap.String("rater", key), zap.Error(err))
	case errors.Is(err, ErrSnapshotNotFound):
	default:
		return nil, false, err
	}

	paths, err := ListImages(imagesDir, a.extensions)
	if err != nil {
		return nil, false, err
	}
	a.shuffle(paths)

	ratings = make([]models.ImageRating, 0, len(paths))
	for _, p := range paths {
		ratings = append(ratings, models.NewImageRating(p))
	}
	a.logger.Info("starting rating session",
		zap.String("rater", key),
		zap.String("images_dir", imagesDir),
		zap.Int("images", len(ratings)))
	return ratings, false, nil
}

// Snapshot persists the whole list for the rater, overwriting any previous
// snapshot.
func (a *Adapter) Snapshot(raterName string, ratings []models.ImageRating) error {
	key, err := security.SanitizeRaterName(raterName)
	if err != nil {
		return err
	}
	if err := a.snapshots.Save(key, ratings); err != nil {
		return err
	}
	a.logger.Debug("snapshot saved", zap.String("path", a.snapshots.Path(key)))
	return nil
}

// ExportFinal writes the tabular export to destDir and, once it is safely
// on disk, removes the rater's snapshot. On failure the snapshot is kept.
func (a *Adapter) ExportFinal(destDir, raterName string, ratings []models.ImageRating) (string, error) {
	key, err := security.SanitizeRaterName(raterName)
	if err != nil {
		return "", err
	}

	path := a.ExportPath(destDir, key)
	rows := export.RowsFromRatings(ratings)
	err = writeFileAtomic(path, func(w io.Writer) error {
		return a.exporter.Write(w, rows)
	})
	if err != nil {
		a.logger.Error("export failed", zap.String("path", path), zap.Error(err))
		return "", fmt.Errorf("%w: %s: %v", ErrExportWriteError, path, err)
	}

	if err := a.snapshots.Delete(key); err != nil {
		a.logger.Warn("failed to remove snapshot after export",
			zap.String("path", a.snapshots.Path(key)), zap.Error(err))
	}
	a.logger.Info("ratings exported",
		zap.String("path", path),
		zap.String("format", a.exporter.Format()),
		zap.Int("rows", len(rows)))
	return path, nil
}

// StartOptions is the session start signal.
type StartOptions struct {
	Rater     string
	ImagesDir string
	OutputDir string
}

// Start builds the explicit session context for a rater. A fresh list is
// snapshotted right away so its shuffle is pinned even if the process dies
// before the first close.
func (a *Adapter) Start(ctx context.Context, opts StartOptions) (*Session, error) {
	key, err := security.SanitizeRaterName(opts.Rater)
	if err != nil {
		return nil, err
	}

	ratings, resumed, err := a.LoadSession(opts.Rater, opts.ImagesDir)
	if err != nil {
		return nil, err
	}

	sess := &Session{
		ID:        uuid.New().String(),
		Rater:     opts.Rater,
		Key:       key,
		ImagesDir: opts.ImagesDir,
		OutputDir: opts.OutputDir,
		Ratings:   ratings,
		Resumed:   resumed,
		adapter:   a,
	}

	if !resumed {
		if err := a.Snapshot(opts.Rater, ratings); err != nil {
			a.logger.Warn("failed to pin fresh session order", zap.Error(err))
		}
	}

	a.recordStart(ctx, sess)
	return sess, nil
}

func (a *Adapter) recordStart(ctx context.Context, sess *Session) {
	if a.ledger == nil {
		return
	}
	now := a.now()

	if sess.Resumed {
		rec, err := a.ledger.FindActive(ctx, sess.Key)
		if err == nil {
			sess.ID = rec.ID
			return
		}
		if !errors.Is(err, ErrSessionNotFound) {
			a.logger.Warn("ledger lookup failed", zap.Error(err))
			return
		}
	} else if err := a.ledger.AbandonActive(ctx, sess.Key, now); err != nil {
		a.logger.Warn("ledger update failed", zap.Error(err))
	}

	rec := &Record{
		ID:         sess.ID,
		Rater:      sess.Rater,
		RaterKey:   sess.Key,
		ImagesDir:  absOrSelf(sess.ImagesDir),
		OutputDir:  absOrSelf(sess.OutputDir),
		ImageCount: len(sess.Ratings),
		RatedCount: models.CountComplete(sess.Ratings),
		Status:     StatusActive,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := a.ledger.CreateSession(ctx, rec); err != nil {
		a.logger.Warn("failed to record session", zap.Error(err))
	}
}

func (a *Adapter) recordProgress(ctx context.Context, sess *Session, ratings []models.ImageRating) {
	if a.ledger == nil {
		return
	}
	if err := a.ledger.UpdateProgress(ctx, sess.ID, models.CountComplete(ratings), a.now()); err != nil {
		a.logger.Warn("failed to record progress", zap.Error(err))
	}
}

func (a *Adapter) recordCompletion(ctx context.Context, sess *Session, ratings []models.ImageRating) {
	if a.ledger == nil {
		return
	}
	err := a.ledger.MarkCompleted(ctx, sess.ID, sess.ExportPath, models.CountComplete(ratings), a.now())
	if err != nil {
		a.logger.Warn("failed to record completion", zap.Error(err))
	}
}

func absOrSelf(path string) string {
	if path == "" {
		return path
	}
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}
