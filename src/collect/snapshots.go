package collect

import (
	"errors"
	"io"
	"io/fs"
	"path"
	"path/filepath"
	"strings"

	"artifact-collector/src/source"
	pg "artifact-collector/src/util/progress"
)

// LogicalName identifies one of the OVS/OVN databases.
type LogicalName string

const (
	Conf         LogicalName = "conf"
	NorthboundDB LogicalName = "ovnnb_db"
	SouthboundDB LogicalName = "ovnsb_db"
)

// LogicalNames is the fixed processing order.
var LogicalNames = []LogicalName{Conf, NorthboundDB, SouthboundDB}

const (
	// DefaultDataDir locates the OVS data directory relative to the remote workspace.
	DefaultDataDir = "../../data/ovs"
	// SnapshotDir is where snapshots land below the local root.
	SnapshotDir = "logs/ovs_dbs"

	snapshotExt = ".txt"
)

// DatabaseSnapshot is one database file to copy. SourcePath is relative to
// the source root and may climb out of it.
type DatabaseSnapshot struct {
	SourcePath      string
	LogicalName     LogicalName
	DestinationPath string
}

// Destination returns DestinationPath with its extension replaced by ".txt".
func (s DatabaseSnapshot) Destination() string {
	p := s.DestinationPath
	return strings.TrimSuffix(p, filepath.Ext(p)) + snapshotExt
}

// SnapshotDirectory returns the snapshot directory below localRoot.
func SnapshotDirectory(localRoot string) string {
	return filepath.Join(localRoot, filepath.FromSlash(SnapshotDir))
}

// DefaultSnapshots returns conf, ovnnb_db and ovnsb_db read from dataDir
// (relative to the source root) and destined for localRoot/logs/ovs_dbs.
func DefaultSnapshots(dataDir, localRoot string) []DatabaseSnapshot {
	if dataDir == "" {
		dataDir = DefaultDataDir
	}
	dir := SnapshotDirectory(localRoot)
	out := make([]DatabaseSnapshot, 0, len(LogicalNames))
	for _, name := range LogicalNames {
		out = append(out, DatabaseSnapshot{
			SourcePath:      path.Join(dataDir, string(name)+".db"),
			LogicalName:     name,
			DestinationPath: filepath.Join(dir, string(name)+snapshotExt),
		})
	}
	return out
}

// Destinations returns the destination of every snapshot, in order.
func Destinations(snaps []DatabaseSnapshot) []string {
	out := make([]string, len(snaps))
	for i, s := range snaps {
		out[i] = s.Destination()
	}
	return out
}

// CollectSnapshots copies each snapshot in order. It stops at the first
// failure: a missing source yields *SnapshotMissingError and later
// snapshots are not attempted, while earlier copies are kept. The database
// files are live; no locking is done, so a copy reflects whatever bytes
// were on disk while it was read.
func (c *Collector) CollectSnapshots(src source.Source, snaps []DatabaseSnapshot) error {
	for _, s := range snaps {
		dst := s.Destination()
		n, err := c.copySnapshot(src, s, dst)
		if err != nil {
			c.logger.Error().Err(err).Str("snapshot", string(s.LogicalName)).Msg("snapshot copy failed")
			return err
		}
		c.metrics.SnapshotCollected()
		c.logger.Info().
			Str("snapshot", string(s.LogicalName)).
			Str("destination", dst).
			Int64("bytes", n).
			Msg("copied snapshot")
	}
	return nil
}

func (c *Collector) copySnapshot(src source.Source, s DatabaseSnapshot, dst string) (int64, error) {
	rc, err := src.Open(s.SourcePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, &SnapshotMissingError{LogicalName: s.LogicalName, Path: s.SourcePath, Err: err}
		}
		return 0, &SourceUnreachableError{Source: src.String(), Path: s.SourcePath, Err: err}
	}
	defer rc.Close()

	var r io.Reader = rc
	if c.progress != nil {
		r = pg.NewReader(rc, 0, string(s.LogicalName), c.progress)
	}
	n, err := writeFileAtomic(dst, r, defaultFileMode)
	if err != nil {
		return n, c.classifyCopyError(src, s.SourcePath, dst, err)
	}
	return n, nil
}
