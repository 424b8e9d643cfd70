package session

import (
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// DefaultExtensions lists the image extensions picked up when none are
// configured.
var DefaultExtensions = []string{".png"}

// ListImages returns the absolute paths of the regular files in dir whose
// extension matches one of extensions, case-insensitively, sorted by name.
func ListImages(dir string, extensions []string) ([]string, error) {
	if len(extensions) == 0 {
		extensions = DefaultExtensions
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrDirectoryNotFound, dir, err)
	}

	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrDirectoryNotFound, dir, err)
	}

	var paths []string
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		if !hasExtension(entry.Name(), extensions) {
			continue
		}
		paths = append(paths, filepath.Join(abs, entry.Name()))
	}

	if len(paths) == 0 {
		return nil, fmt.Errorf("%w: %s (extensions %s)", ErrNoImagesFound, dir, strings.Join(extensions, ", "))
	}

	slices.Sort(paths)
	return paths, nil
}

func hasExtension(name string, extensions []string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" {
		return false
	}
	for _, want := range extensions {
		want = strings.ToLower(want)
		if !strings.HasPrefix(want, ".") {
			want = "." + want
		}
		if ext == want {
			return true
		}
	}
	return false
}

// Shuffler reorders paths in place.
type Shuffler func(paths []string)

func RandomShuffler() Shuffler {
	return func(paths []string) {
		rand.Shuffle(len(paths), func(i, j int) {
			paths[i], paths[j] = paths[j], paths[i]
		})
	}
}

// SeededShuffler produces the same order for the same seed and input.
func SeededShuffler(seed uint64) Shuffler {
	return func(paths []string) {
		r := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
		r.Shuffle(len(paths), func(i, j int) {
			paths[i], paths[j] = paths[j], paths[i]
		})
	}
}
