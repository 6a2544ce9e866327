package collect

import (
	"io"
	"os"
	"path/filepath"
	"time"
)

const defaultFileMode = 0o644

// writeFileAtomic streams r into a temporary file next to dst, syncs it and
// renames it over dst. Errors from r are wrapped in *readError.
func writeFileAtomic(dst string, r io.Reader, perm os.FileMode) (int64, error) {
	if perm == 0 {
		perm = defaultFileMode
	}
	dir := filepath.Dir(dst)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(dst)+".tmp-*")
	if err != nil {
		return 0, err
	}
	tmpName := tmp.Name()
	fail := func(err error) error {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}

	n, err := io.Copy(tmp, sourceReader{r})
	if err != nil {
		return n, fail(err)
	}
	if err := tmp.Chmod(perm); err != nil {
		return n, fail(err)
	}
	if err := tmp.Sync(); err != nil {
		return n, fail(err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return n, err
	}
	if err := os.Rename(tmpName, dst); err != nil {
		os.Remove(tmpName)
		return n, err
	}
	return n, nil
}

func chtimes(path string, mtime time.Time) error {
	return os.Chtimes(path, mtime, mtime)
}

// sourceReader tags read failures so copy errors can be attributed.
type sourceReader struct{ r io.Reader }

func (s sourceReader) Read(p []byte) (int, error) {
	n, err := s.r.Read(p)
	if err != nil && err != io.EOF {
		err = &readError{err: err}
	}
	return n, err
}
