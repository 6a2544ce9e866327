package collect

import (
	"path/filepath"

	"artifact-collector/src/pipeline"
	"artifact-collector/src/source"
)

// Step names, as reported when a run fails.
const (
	StepPull            = "pull"
	StepEnsureDirectory = "ensure-directory"
	StepSnapshots       = "snapshots"
	StepCompress        = "compress"
	StepChecksums       = "checksums"
)

// Job is one full collection run.
type Job struct {
	Transfer    TransferSpec
	SnapshotDir string
	Snapshots   []DatabaseSnapshot
	// Checksums adds a final step writing checksums.txt for the compressed snapshots.
	Checksums bool
}

// NewJob builds the standard job: pull logs, then snapshot the three
// databases found at dataDir (relative to the remote root) into
// logs/ovs_dbs and compress them.
func NewJob(transfer TransferSpec, dataDir string, checksums bool) Job {
	return Job{
		Transfer:    transfer,
		SnapshotDir: SnapshotDirectory(transfer.LocalRoot),
		Snapshots:   DefaultSnapshots(dataDir, transfer.LocalRoot),
		Checksums:   checksums,
	}
}

// Report summarizes a run.
type Report struct {
	FilesPulled int      `json:"files_pulled"`
	Compressed  []string `json:"compressed"`
}

// Run executes the job as a pipeline. The returned error is a
// *pipeline.StepError naming the failed step.
func (c *Collector) Run(open OpenFunc, job Job) (Report, error) {
	var (
		report Report
		src    source.Source
	)
	defer func() {
		if src != nil {
			if err := src.Close(); err != nil {
				c.logger.Warn().Err(err).Msg("closing source")
			}
		}
	}()

	p := pipeline.New(c.logger, c.metrics,
		pipeline.Step{Name: StepPull, Run: func() error {
			s, err := c.Connect(open, job.Transfer)
			if err != nil {
				return err
			}
			src = s
			report.FilesPulled, err = c.Collect(src, job.Transfer)
			return err
		}},
		pipeline.Step{Name: StepEnsureDirectory, Run: func() error {
			return c.EnsureDirectory(job.SnapshotDir)
		}},
		pipeline.Step{Name: StepSnapshots, Run: func() error {
			return c.CollectSnapshots(src, job.Snapshots)
		}},
		pipeline.Step{Name: StepCompress, Run: func() error {
			var err error
			report.Compressed, err = c.Compress(Destinations(job.Snapshots))
			return err
		}},
	)
	if job.Checksums {
		p.Add(pipeline.Step{Name: StepChecksums, Run: func() error {
			names := make([]string, 0, len(job.Snapshots))
			for _, d := range Destinations(job.Snapshots) {
				names = append(names, filepath.Base(d)+gzipSuffix)
			}
			return WriteChecksums(job.SnapshotDir, names)
		}})
	}
	return report, p.Run()
}
