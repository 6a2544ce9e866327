package source

import (
	"errors"
	"io/fs"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memLinks is a tree of directories and symlinks keyed by absolute path.
type memLinks map[string]string

func (m memLinks) Lstat(p string) (os.FileMode, error) {
	if p == "/" {
		return os.ModeDir, nil
	}
	target, ok := m[p]
	if !ok {
		return 0, fs.ErrNotExist
	}
	if target == "" {
		return os.ModeDir, nil
	}
	return os.ModeSymlink, nil
}

func (m memLinks) ReadLink(p string) (string, error) { return m[p], nil }

func TestResolvePath(t *testing.T) {
	tree := memLinks{
		"/ws":             "",
		"/ws/logs":        "",
		"/ws/logs/run":    "",
		"/ws/logs/loop":   ".",
		"/ws/logs/latest": "run",
		"/ws/logs/abs":    "/ws/logs/run",
		"/ws/logs/up":     "../..",
		"/ws/logs/self":   "self",
	}

	cases := map[string]string{
		"/ws/logs":                 "/ws/logs",
		"/ws/logs/loop":            "/ws/logs",
		"/ws/logs/loop/loop/loop":  "/ws/logs",
		"/ws/logs/latest":          "/ws/logs/run",
		"/ws/logs/abs":             "/ws/logs/run",
		"/ws/logs/up/ws/logs/loop": "/ws/logs",
		"/ws/logs/../logs/latest":  "/ws/logs/run",
	}
	for in, want := range cases {
		got, err := ResolvePath(tree, in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ResolvePath(tree, "/ws/logs/self")
	assert.True(t, errors.Is(err, ErrLinkLoop))
	assert.True(t, Unresolvable(err))

	_, err = ResolvePath(tree, "/ws/missing")
	assert.True(t, errors.Is(err, fs.ErrNotExist))

	_, err = ResolvePath(tree, "ws/logs")
	assert.Error(t, err)
}
