package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/manash/imgrate/pkg/models"
)

const filePrefix = "ImageRatings-"

// SnapshotStore keeps one resumable JSON snapshot per rater key.
type SnapshotStore struct {
	dir string
}

func NewSnapshotStore(dir string) *SnapshotStore {
	return &SnapshotStore{dir: dir}
}

func (s *SnapshotStore) Dir() string {
	return s.dir
}

func (s *SnapshotStore) Path(key string) string {
	return filepath.Join(s.dir, filePrefix+key+".json")
}

func (s *SnapshotStore) Exists(key string) bool {
	_, err := os.Stat(s.Path(key))
	return err == nil
}

func (s *SnapshotStore) Load(key string) ([]models.ImageRating, error) {
	path := s.Path(key)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrSnapshotNotFound, path)
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrSnapshotUnreadable, path, err)
	}

	var ratings []models.ImageRating
	if err := json.Unmarshal(data, &ratings); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrSnapshotCorrupt, path, err)
	}
	if len(ratings) == 0 {
		return nil, fmt.Errorf("%w: %s: no images", ErrSnapshotCorrupt, path)
	}
	for i, ir := range ratings {
		if err := ir.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %s: entry %d: %v", ErrSnapshotCorrupt, path, i, err)
		}
		if ir.ImageName == "" {
			ratings[i].ImageName = models.ImageName(ir.ImagePath)
		}
	}
	return ratings, nil
}

// Save replaces the snapshot for key. The file is written next to its
// final location and renamed into place, so readers never see a partial
// snapshot.
func (s *SnapshotStore) Save(key string, ratings []models.ImageRating) error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("%w: %v", ErrSnapshotWriteError, err)
	}

	data, err := json.MarshalIndent(ratings, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSnapshotWriteError, err)
	}

	err = writeFileAtomic(s.Path(key), func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSnapshotWriteError, err)
	}
	return nil
}

func (s *SnapshotStore) Delete(key string) error {
	err := os.Remove(s.Path(key))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// SnapshotInfo describes a pending snapshot on disk.
type SnapshotInfo struct {
	Key       string    `json:"key" yaml:"key"`
	Path      string    `json:"path" yaml:"path"`
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at"`
}

func (s *SnapshotStore) List() ([]SnapshotInfo, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	var infos []SnapshotInfo
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, filePrefix) || filepath.Ext(name) != ".json" {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		infos = append(infos, SnapshotInfo{
			Key:       strings.TrimSuffix(strings.TrimPrefix(name, filePrefix), ".json"),
			Path:      filepath.Join(s.dir, name),
			UpdatedAt: info.ModTime(),
		})
	}
	sort.Slice(infos, func(i, j int) bool {
		return infos[i].UpdatedAt.After(infos[j].UpdatedAt)
	})
	return infos, nil
}

func writeFileAtomic(path string, write func(w io.Writer) error) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tempPath := tmp.Name()

	if err := write(tmp); err != nil {
		tmp.Close()
		os.Remove(tempPath)
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tempPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tempPath)
		return err
	}
	if err := os.Chmod(tempPath, 0644); err != nil {
		os.Remove(tempPath)
		return err
	}

	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to move file: %w", err)
	}
	return nil
}
