package session

import "time"

type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusAbandoned Status = "abandoned"
)

// Record is the ledger entry kept for every rating session.
type Record struct {
	ID          string     `json:"id" yaml:"id"`
	Rater       string     `json:"rater" yaml:"rater"`
	RaterKey    string     `json:"rater_key" yaml:"rater_key"`
	ImagesDir   string     `json:"images_dir" yaml:"images_dir"`
	OutputDir   string     `json:"output_dir" yaml:"output_dir"`
	ImageCount  int        `json:"image_count" yaml:"image_count"`
	RatedCount  int        `json:"rated_count" yaml:"rated_count"`
	Status      Status     `json:"status" yaml:"status"`
	ExportPath  string     `json:"export_path,omitempty" yaml:"export_path,omitempty"`
	CreatedAt   time.Time  `json:"created_at" yaml:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" yaml:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty" yaml:"completed_at,omitempty"`
}

func FormatTimestamp(t time.Time) string {
	return t.Format("2006-01-02 15:04:05")
}
