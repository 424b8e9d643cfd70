package security

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestSanitizeRaterName(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
		wantErr  error
	}{
		{
			name:     "simple name",
			input:    "alice",
			expected: "alice",
		},
		{
			name:     "spaces collapse to underscore",
			input:    "  Jane   Doe ",
			expected: "Jane_Doe",
		},
		{
			name:     "accents folded",
			input:    "José Núñez",
			expected: "Jose_Nunez",
		},
		{
			name:     "path separators replaced",
			input:    "team/alice",
			expected: "team-alice",
		},
		{
			name:     "reserved name",
			input:    "con",
			expected: "con_",
		},
		{
			name:    "blank",
			input:   "   ",
			wantErr: ErrEmptyRaterName,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SanitizeRaterName(tt.input)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("SanitizeRaterName(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.expected {
				t.Errorf("SanitizeRaterName(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "normal filename",
			input:    "ratings.csv",
			expected: "ratings.csv",
		},
		{
			name:     "filename with slashes",
			input:    "foo/bar.json",
			expected: "foo-bar.json",
		},
		{
			name:     "filename with backslashes",
			input:    "foo\\bar.json",
			expected: "foo-bar.json",
		},
		{
			name:     "leading dots removed",
			input:    "..hidden",
			expected: "hidden",
		},
		{
			name:     "leading hyphens removed",
			input:    "--flag",
			expected: "flag",
		},
		{
			name:     "trailing dots removed",
			input:    "name...",
			expected: "name",
		},
		{
			name:     "special characters removed",
			input:    "file<name>:with*bad?chars",
			expected: "filename-withbadchars",
		},
		{
			name:     "windows reserved name gets underscore",
			input:    "CON.txt",
			expected: "CON.txt_",
		},
		{
			name:     "empty becomes file",
			input:    "...",
			expected: "file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SanitizeFilename(tt.input)
			if got != tt.expected {
				t.Errorf("SanitizeFilename(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestValidateOutputDir(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "plain.txt")
	if err := os.WriteFile(file, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	if err := ValidateOutputDir(dir); err != nil {
		t.Errorf("ValidateOutputDir(dir) error = %v", err)
	}
	if err := ValidateOutputDir(file); !errors.Is(err, ErrNotDirectory) {
		t.Errorf("ValidateOutputDir(file) error = %v, want ErrNotDirectory", err)
	}
	if err := ValidateOutputDir(filepath.Join(dir, "missing")); !os.IsNotExist(err) {
		t.Errorf("ValidateOutputDir(missing) error = %v, want not-exist", err)
	}
}
