package directory

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"artifact-collector/src/source"
)

// Source implements source.Source for a tree on the local filesystem.
// It is used when the workspace and the log root live on the same machine.
type Source struct {
	Root string // absolute directory path
}

func New(root string) (*Source, error) {
	if root == "" {
		return nil, fmt.Errorf("%w: directory source root must not be empty", source.ErrUnreachable)
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("%w: stat root: %v", source.ErrUnreachable, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: root is not a directory: %s", source.ErrUnreachable, root)
	}
	return &Source{Root: root}, nil
}

func (s *Source) ReadDir(rel string) ([]source.Entry, error) {
	dir := s.abs(rel)
	des, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	entries := make([]source.Entry, 0, len(des))
	for _, de := range des {
		e := source.Entry{Name: de.Name()}
		// Stat follows symlinks so targets are copied rather than the links.
		info, err := os.Stat(filepath.Join(dir, de.Name()))
		switch {
		case err == nil:
			e.IsDir = info.IsDir()
			e.Regular = info.Mode().IsRegular()
			e.Size = info.Size()
			e.Mode = info.Mode()
			e.ModTime = info.ModTime()
		case source.Unresolvable(err):
			e.Dangling = true
		default:
			return nil, err
		}
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, nil
}

func (s *Source) Open(rel string) (io.ReadCloser, error) {
	return os.Open(s.abs(rel))
}

func (s *Source) RealPath(rel string) (string, error) {
	return filepath.EvalSymlinks(s.abs(rel))
}

func (s *Source) Close() error { return nil }

func (s *Source) String() string { return "dir:" + s.Root }

func (s *Source) abs(rel string) string {
	return filepath.Join(s.Root, filepath.FromSlash(rel))
}
