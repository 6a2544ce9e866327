package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"artifact-collector/src/collect"
)

var errChecksumMismatch = errors.New("checksum verification failed")

func newVerifyCmd(stdout, stderr io.Writer) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "verify [dir]",
		Short: "Verify checksums.txt in a snapshot directory (default: <log-root>/logs/ovs_dbs)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var dir string
			if len(args) == 1 {
				dir = args[0]
			} else {
				cfg, err := loadConfig(cmd)
				if err != nil {
					return err
				}
				if cfg.LogRoot == "" {
					return errors.New("a directory argument or --log-root is required")
				}
				dir = collect.SnapshotDirectory(cfg.LogRoot)
			}

			results, err := collect.VerifyChecksums(filepath.Clean(dir))
			if err != nil {
				return err
			}
			switch output {
			case "json":
				enc := json.NewEncoder(stdout)
				enc.SetIndent("", "  ")
				if err := enc.Encode(results); err != nil {
					return err
				}
			case "table", "":
				tw := tabwriter.NewWriter(stdout, 0, 0, 2, ' ', 0)
				fmt.Fprintln(tw, "NAME\tSTATUS")
				for _, r := range results {
					fmt.Fprintf(tw, "%s\t%s\n", r.Name, r.Status)
				}
				if err := tw.Flush(); err != nil {
					return err
				}
			default:
				return fmt.Errorf("unsupported --output: %s", output)
			}
			for _, r := range results {
				if r.Status != "ok" {
					return errChecksumMismatch
				}
			}
			return nil
		},
	}
	cmd.Flags().String("log-root", "", "Log root whose snapshot directory is verified")
	cmd.Flags().StringVarP(&output, "output", "o", "table", "Output format: table|json")
	return cmd
}
