package collect

import (
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

const gzipSuffix = ".gz"

// Compress gzips each path in place at maximum compression, producing
// <path>.gz and removing <path> once the compressed file is synced and
// renamed into place. Files are handled independently: a failure yields a
// *CompressionError for that path and leaves it untouched, and the rest are
// still attempted. A path that already ends in ".gz", or that is missing
// while <path>.gz exists, is treated as already compressed.
//
// It returns the compressed outputs and the joined per-file errors.
func (c *Collector) Compress(paths []string) ([]string, error) {
	var (
		outputs []string
		errs    []error
		seen    = map[string]struct{}{}
	)
	for _, p := range paths {
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}

		out, skipped, err := c.compressOne(p)
		if err != nil {
			c.metrics.Compressed(false)
			c.logger.Error().Err(err).Str("path", p).Msg("compression failed")
			errs = append(errs, &CompressionError{Path: p, Err: err})
			continue
		}
		if skipped {
			c.logger.Debug().Str("path", p).Msg("already compressed")
			continue
		}
		c.metrics.Compressed(true)
		c.logger.Info().Str("path", out).Msg("compressed")
		outputs = append(outputs, out)
	}
	return outputs, errors.Join(errs...)
}

func (c *Collector) compressOne(p string) (string, bool, error) {
	if strings.HasSuffix(p, gzipSuffix) {
		return p, true, nil
	}
	out := p + gzipSuffix
	info, err := os.Lstat(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			if _, gzErr := os.Stat(out); gzErr == nil {
				return out, true, nil
			}
		}
		return "", false, err
	}
	if !info.Mode().IsRegular() {
		return "", false, fmt.Errorf("not a regular file")
	}
	if err := gzipFile(p, out, info); err != nil {
		return "", false, err
	}
	if err := os.Remove(p); err != nil {
		return "", false, fmt.Errorf("remove original after compressing: %w", err)
	}
	return out, false, nil
}

func gzipFile(src, dst string, info os.FileInfo) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	tmp, err := os.CreateTemp(filepath.Dir(dst), "."+filepath.Base(dst)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	fail := func(err error) error {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}

	zw, err := gzip.NewWriterLevel(tmp, gzip.BestCompression)
	if err != nil {
		return fail(err)
	}
	zw.Name = filepath.Base(src)
	zw.ModTime = info.ModTime()
	if _, err := io.Copy(zw, in); err != nil {
		return fail(err)
	}
	if err := zw.Close(); err != nil {
		return fail(err)
	}
	if err := tmp.Chmod(info.Mode().Perm()); err != nil {
		return fail(err)
	}
	if err := tmp.Sync(); err != nil {
		return fail(err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, dst); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}
