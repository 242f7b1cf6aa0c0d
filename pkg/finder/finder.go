package finder

import (
	"context"
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"gitlab.com/tozd/go/errors"
)

// SnippetFinder is responsible for finding snippet files in a directory
type SnippetFinder interface {
	// FindSnippets returns the files below dir matching any of the globs
	FindSnippets(ctx context.Context, dir string, patterns []string) ([]string, error)
}

// DefaultFinder walks an afero filesystem.
type DefaultFinder struct {
	fs afero.Fs
}

func NewDefaultFinder(fs afero.Fs) *DefaultFinder {
	return &DefaultFinder{fs: fs}
}

// FindSnippets returns slash separated paths relative to dir, sorted. Patterns
// use doublestar syntax, so ** crosses directories.
func (f *DefaultFinder) FindSnippets(ctx context.Context, dir string, patterns []string) ([]string, error) {
	for _, p := range patterns {
		if !doublestar.ValidatePattern(p) {
			return nil, errors.Errorf("invalid glob %q", p)
		}
	}

	var files []string
	err := afero.Walk(f.fs, dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		for _, p := range patterns {
			if ok, _ := doublestar.Match(p, rel); ok {
				files = append(files, rel)
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, errors.Errorf("walking %s: %w", dir, err)
	}

	sort.Strings(files)
	zerolog.Ctx(ctx).Debug().Str("dir", dir).Strs("patterns", patterns).Int("files", len(files)).Msg("found snippet files")
	return files, nil
}
