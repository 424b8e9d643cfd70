package session

import "errors"

var (
	ErrDirectoryNotFound  = errors.New("images directory not found")
	ErrNoImagesFound      = errors.New("no images found")
	ErrSnapshotNotFound   = errors.New("snapshot not found")
	ErrSnapshotCorrupt    = errors.New("snapshot is corrupt")
	ErrSnapshotUnreadable = errors.New("snapshot cannot be read")
	ErrSnapshotWriteError = errors.New("failed to write snapshot")
	ErrExportWriteError   = errors.New("failed to write export")
	ErrSessionNotFound    = errors.New("session not found")
)
