package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"artifact-collector/src/collect"
	"artifact-collector/src/logging"
)

// newListCmd shows which files a collect run would pull, without writing.
func newListCmd(stdout, stderr io.Writer) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the workspace files selected by the include rules",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if _, err := cfg.Target(); err != nil {
				return err
			}
			rules, err := cfg.Rules()
			if err != nil {
				return err
			}

			logger := logging.NewLogger(cfg, stderr)
			c := collect.New(logger)
			spec := collect.TransferSpec{
				RemoteRoot:           cfg.Source,
				Include:              rules,
				VerifyRemoteIdentity: cfg.VerifyHostKey,
			}
			src, err := c.Connect(sourceOpener(cfg), spec)
			if err != nil {
				return err
			}
			defer src.Close()

			paths, err := c.Plan(src, spec)
			if err != nil {
				return err
			}
			switch output {
			case "json":
				if paths == nil {
					paths = []string{}
				}
				enc := json.NewEncoder(stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(paths)
			case "text", "":
				for _, p := range paths {
					fmt.Fprintln(stdout, p)
				}
				return nil
			default:
				return fmt.Errorf("unsupported --output: %s", output)
			}
		},
	}
	addSourceFlags(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", "text", "Output format: text|json")
	return cmd
}
