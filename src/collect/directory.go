package collect

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
)

// EnsureDirectory creates path and any missing parents. An existing
// directory is left untouched. If path or one of its parents exists as
// something other than a directory a *PathConflictError is returned.
func (c *Collector) EnsureDirectory(path string) error {
	info, err := os.Stat(path)
	switch {
	case err == nil:
		if !info.IsDir() {
			return &PathConflictError{Path: path, Conflict: path}
		}
		return nil
	case !errors.Is(err, fs.ErrNotExist):
		if conflict := firstNonDir(path); conflict != "" {
			return &PathConflictError{Path: path, Conflict: conflict}
		}
		return &DestinationWriteError{Path: path, Err: err}
	}

	if err := os.MkdirAll(path, 0o755); err != nil {
		if conflict := firstNonDir(path); conflict != "" {
			return &PathConflictError{Path: path, Conflict: conflict}
		}
		return &DestinationWriteError{Path: path, Err: err}
	}
	c.logger.Debug().Str("path", path).Msg("created directory")
	return nil
}

// firstNonDir returns the shallowest existing ancestor of path (or path
// itself) that is not a directory.
func firstNonDir(path string) string {
	var chain []string
	for p := filepath.Clean(path); ; p = filepath.Dir(p) {
		chain = append(chain, p)
		if parent := filepath.Dir(p); parent == p {
			break
		}
	}
	for i := len(chain) - 1; i >= 0; i-- {
		info, err := os.Stat(chain[i])
		if err != nil {
			return ""
		}
		if !info.IsDir() {
			return chain[i]
		}
	}
	return ""
}
