package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"artifact-collector/src/collect"
	"artifact-collector/src/logging"
	"artifact-collector/src/metrics"
)

func newCollectCmd(stdout, stderr io.Writer) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "collect",
		Short: "Pull logs and database snapshots into the log root",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			rules, err := cfg.Rules()
			if err != nil {
				return err
			}

			logger := logging.NewLogger(cfg, stderr)
			rec := metrics.New()
			opts := []collect.Option{collect.WithMetrics(rec)}
			if cfg.Progress {
				opts = append(opts, collect.WithProgress(stderr))
			}
			c := collect.New(logger, opts...)

			job := collect.NewJob(collect.TransferSpec{
				RemoteRoot:           cfg.Source,
				LocalRoot:            cfg.LogRoot,
				Include:              rules,
				VerifyRemoteIdentity: cfg.VerifyHostKey,
			}, cfg.DataDir, cfg.Checksums)

			report, runErr := c.Run(sourceOpener(cfg), job)
			if cfg.MetricsTextfile != "" {
				if err := rec.WriteTextfile(cfg.MetricsTextfile); err != nil {
					logger.Warn().Err(err).Str("path", cfg.MetricsTextfile).Msg("writing metrics textfile")
				}
			}
			if runErr != nil {
				return runErr
			}

			switch output {
			case "json":
				enc := json.NewEncoder(stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			case "text", "":
				fmt.Fprintf(stdout, "Pulled %d files into %s\n", report.FilesPulled, cfg.LogRoot)
				for _, p := range report.Compressed {
					fmt.Fprintf(stdout, "  %s\n", p)
				}
				return nil
			default:
				return fmt.Errorf("unsupported --output: %s", output)
			}
		},
	}
	addSourceFlags(cmd)
	cmd.Flags().String("log-root", "", "Local directory receiving the collected files")
	cmd.Flags().String("data-dir", "", "Directory of the OVS databases, relative to the source root")
	cmd.Flags().Bool("checksums", false, "Write checksums.txt for the compressed snapshots")
	cmd.Flags().String("metrics-textfile", "", "Write run metrics to this node_exporter textfile")
	cmd.Flags().Bool("progress", false, "Report per-file transfer progress on stderr")
	cmd.Flags().StringVarP(&output, "output", "o", "text", "Output format: text|json")
	return cmd
}
