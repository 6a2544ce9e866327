// Package collect pulls build logs and OVS database snapshots from a remote
// workspace into a local log root.
package collect

import (
	"errors"
	"fmt"
	"io"
	"path"
	"path/filepath"

	"github.com/rs/zerolog"

	"artifact-collector/src/filter"
	"artifact-collector/src/metrics"
	"artifact-collector/src/source"
	pg "artifact-collector/src/util/progress"
)

// maxDepth bounds recursion when a source cannot tell two directories apart.
const maxDepth = 128

// TransferSpec describes one selective pull.
type TransferSpec struct {
	// RemoteRoot is the source URI of the workspace (see package target).
	RemoteRoot string
	// LocalRoot is the log root receiving the copies.
	LocalRoot string
	// Include is evaluated in order, first match wins. Empty means filter.Default().
	Include              filter.Rules
	VerifyRemoteIdentity bool
}

func (s TransferSpec) rules() filter.Rules {
	if len(s.Include) == 0 {
		return filter.Default()
	}
	return s.Include
}

// OpenFunc opens the source named by remoteRoot.
type OpenFunc func(remoteRoot string, verifyIdentity bool) (source.Source, error)

// Collector runs the collection steps. It holds no per-run state.
type Collector struct {
	logger   zerolog.Logger
	metrics  *metrics.Recorder
	progress io.Writer
}

type Option func(*Collector)

// WithMetrics records counters on rec.
func WithMetrics(rec *metrics.Recorder) Option {
	return func(c *Collector) { c.metrics = rec }
}

// WithProgress reports per-file transfer progress to w.
func WithProgress(w io.Writer) Option {
	return func(c *Collector) { c.progress = w }
}

func New(logger zerolog.Logger, opts ...Option) *Collector {
	c := &Collector{logger: logger.With().Str("component", "collector").Logger()}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Connect opens the source for spec and classifies failures as
// IdentityVerificationError or SourceUnreachableError.
func (c *Collector) Connect(open OpenFunc, spec TransferSpec) (source.Source, error) {
	src, err := open(spec.RemoteRoot, spec.VerifyRemoteIdentity)
	if err != nil {
		if errors.Is(err, source.ErrIdentityVerification) {
			return nil, &IdentityVerificationError{Source: spec.RemoteRoot, Err: err}
		}
		return nil, &SourceUnreachableError{Source: spec.RemoteRoot, Err: err}
	}
	c.logger.Debug().
		Str("source", src.String()).
		Bool("verified", spec.VerifyRemoteIdentity).
		Msg("connected to source")
	return src, nil
}

// Collect copies every file selected by spec's rules from src into
// spec.LocalRoot, preserving relative paths. Directories are only created
// when a file is written below them. The first failure stops the pull;
// files copied before it are kept.
func (c *Collector) Collect(src source.Source, spec TransferSpec) (int, error) {
	if spec.LocalRoot == "" {
		return 0, &DestinationWriteError{Path: spec.LocalRoot, Err: errors.New("local root must not be empty")}
	}
	count := 0
	err := c.walkRoot(src, spec.rules(), func(rel string, e source.Entry) error {
		n, err := c.copyFile(src, rel, e, filepath.Join(spec.LocalRoot, filepath.FromSlash(rel)))
		if err != nil {
			return err
		}
		count++
		c.metrics.FilePulled(n)
		c.logger.Debug().Str("path", rel).Int64("bytes", n).Msg("pulled file")
		return nil
	})
	if err != nil {
		return count, err
	}
	c.logger.Info().
		Str("source", src.String()).
		Str("local_root", spec.LocalRoot).
		Int("files", count).
		Msg("pull complete")
	return count, nil
}

// Plan lists the relative paths Collect would copy, without writing anything.
func (c *Collector) Plan(src source.Source, spec TransferSpec) ([]string, error) {
	var out []string
	err := c.walkRoot(src, spec.rules(), func(rel string, _ source.Entry) error {
		out = append(out, rel)
		return nil
	})
	return out, err
}

// walkRoot visits every regular file selected by rules. A directory that
// resolves to one of its own ancestors is a symlink loop and is skipped.
func (c *Collector) walkRoot(src source.Source, rules filter.Rules, visit func(string, source.Entry) error) error {
	root, err := src.RealPath("")
	if err != nil {
		return &SourceUnreachableError{Source: src.String(), Err: err}
	}
	ancestors := map[string]struct{}{root: {}}
	return c.walk(src, rules, "", 0, ancestors, visit)
}

func (c *Collector) walk(src source.Source, rules filter.Rules, rel string, depth int, ancestors map[string]struct{}, visit func(string, source.Entry) error) error {
	if depth > maxDepth {
		return &SourceUnreachableError{Source: src.String(), Path: rel, Err: errors.New("directory nesting too deep")}
	}
	entries, err := src.ReadDir(rel)
	if err != nil {
		return &SourceUnreachableError{Source: src.String(), Path: rel, Err: err}
	}
	for _, e := range entries {
		p := path.Join(rel, e.Name)
		if e.Dangling {
			c.logger.Warn().Str("path", p).Msg("skipping unresolvable entry")
			continue
		}
		if !rules.Included(p, e.IsDir) {
			continue
		}
		if e.IsDir {
			resolved, err := src.RealPath(p)
			if err != nil {
				c.logger.Warn().Err(err).Str("path", p).Msg("skipping unresolvable directory")
				continue
			}
			if _, loop := ancestors[resolved]; loop {
				c.logger.Warn().Str("path", p).Str("resolved", resolved).Msg("skipping symlink loop")
				continue
			}
			ancestors[resolved] = struct{}{}
			err = c.walk(src, rules, p, depth+1, ancestors, visit)
			delete(ancestors, resolved)
			if err != nil {
				return err
			}
			continue
		}
		if !e.Regular {
			c.logger.Warn().Str("path", p).Stringer("mode", e.Mode).Msg("skipping special file")
			continue
		}
		if err := visit(p, e); err != nil {
			return err
		}
	}
	return nil
}

func (c *Collector) copyFile(src source.Source, rel string, e source.Entry, dst string) (int64, error) {
	rc, err := src.Open(rel)
	if err != nil {
		return 0, &SourceUnreachableError{Source: src.String(), Path: rel, Err: err}
	}
	defer rc.Close()

	var r io.Reader = rc
	if c.progress != nil {
		r = pg.NewReader(rc, e.Size, rel, c.progress)
	}
	n, err := writeFileAtomic(dst, r, e.Mode.Perm())
	if err != nil {
		return n, c.classifyCopyError(src, rel, dst, err)
	}
	if !e.ModTime.IsZero() {
		if err := chtimes(dst, e.ModTime); err != nil {
			return n, &DestinationWriteError{Path: dst, Err: err}
		}
	}
	return n, nil
}

func (c *Collector) classifyCopyError(src source.Source, rel, dst string, err error) error {
	var re *readError
	if errors.As(err, &re) {
		return &SourceUnreachableError{Source: src.String(), Path: rel, Err: re.err}
	}
	return &DestinationWriteError{Path: dst, Err: err}
}

func (s TransferSpec) String() string {
	return fmt.Sprintf("%s -> %s", s.RemoteRoot, s.LocalRoot)
}
