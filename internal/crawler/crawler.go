package crawler

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"
)

// Ingestion faults. These are the only user-facing failures of a job:
// everything past discovery is recorded as data on the output.
var (
	ErrRootNotFound  = errors.New("repository root does not exist")
	ErrNotDirectory  = errors.New("repository root is not a directory")
	ErrNoSourceFiles = errors.New("repository contains no source files")
)

var skipDirs = map[string]struct{}{
	"venv":          {},
	".venv":         {},
	"env":           {},
	"__pycache__":   {},
	".git":          {},
	".svn":          {},
	".hg":           {},
	"node_modules":  {},
	".pytest_cache": {},
	".mypy_cache":   {},
	".tox":          {},
	"build":         {},
	"dist":          {},
	".idea":         {},
}

// Crawler scans a repository root for source files of the configured language.
type Crawler struct {
	root       string
	extensions map[string]struct{}
}

// NewCrawler creates a crawler for the given root. The extensions come from
// the language driver so the crawler stays language-agnostic.
func NewCrawler(root string, extensions []string) *Crawler {
	extSet := make(map[string]struct{}, len(extensions))
	for _, ext := range extensions {
		extSet[ext] = struct{}{}
	}
	return &Crawler{root: root, extensions: extSet}
}

// Discover walks the root and returns repo-relative source file paths,
// sorted lexicographically. Hidden files, well-known tool directories, and
// anything matched by a root .gitignore are skipped.
func (c *Crawler) Discover() ([]string, error) {
	info, err := os.Stat(c.root)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrRootNotFound, c.root)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrNotDirectory, c.root)
	}

	gi := loadGitignore(c.root)

	var files []string
	err = filepath.WalkDir(c.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // unreadable entries are skipped, not fatal
		}

		name := d.Name()
		if d.IsDir() {
			if path == c.root {
				return nil
			}
			if _, skip := skipDirs[name]; skip || strings.HasPrefix(name, ".") || strings.HasSuffix(name, ".egg-info") {
				return filepath.SkipDir
			}
			return nil
		}

		if strings.HasPrefix(name, ".") {
			return nil
		}
		if _, ok := c.extensions[filepath.Ext(name)]; !ok {
			return nil
		}

		rel, err := filepath.Rel(c.root, path)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if gi != nil && gi.MatchesPath(rel) {
			return nil
		}

		files = append(files, rel)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", c.root, err)
	}

	if len(files) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoSourceFiles, c.root)
	}

	sort.Strings(files)
	return files, nil
}

// Root returns the repository root the crawler was created with.
func (c *Crawler) Root() string {
	return c.root
}

func loadGitignore(root string) *ignore.GitIgnore {
	gi, err := ignore.CompileIgnoreFile(filepath.Join(root, ".gitignore"))
	if err != nil {
		return nil
	}
	return gi
}
