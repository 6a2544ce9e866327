package cli

import (
	"github.com/spf13/cobra"

	"artifact-collector/src/config"
)

// addGlobalFlags adds the persistent config and logging flags to the root command.
func addGlobalFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().String("config", "", "Path to a YAML config file")
	cmd.PersistentFlags().String("log-level", "", "Log level: trace|debug|info|warn|error")
	cmd.PersistentFlags().String("log-format", "", "Log format: json|console")
}

// addSourceFlags adds the flags describing where and how to read the workspace.
func addSourceFlags(cmd *cobra.Command) {
	cmd.Flags().String("source", "", "Workspace URI (dir:/path, ssh://user@host[:port]/path, incus:[project/]instance:/path)")
	cmd.Flags().StringArray("include", nil, "Filter rule such as '+ logs/**/*' (repeatable, replaces the configured rules)")
	cmd.Flags().Bool("verify-host-key", false, "Verify the remote identity before reading")
	cmd.Flags().String("known-hosts", "", "known_hosts file used to verify ssh sources")
	cmd.Flags().String("ssh-key", "", "Private key for ssh sources")
}

// loadConfig reads the config file named by --config, then applies any
// flags explicitly set on cmd.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Root().PersistentFlags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	pf := cmd.Root().PersistentFlags()
	if v, _ := pf.GetString("log-level"); v != "" {
		cfg.LogLevel = v
	}
	if v, _ := pf.GetString("log-format"); v != "" {
		cfg.LogFormat = v
	}

	fs := cmd.Flags()
	str := func(name string, dst *string) {
		if fs.Lookup(name) != nil && fs.Changed(name) {
			*dst, _ = fs.GetString(name)
		}
	}
	boolean := func(name string, dst *bool) {
		if fs.Lookup(name) != nil && fs.Changed(name) {
			*dst, _ = fs.GetBool(name)
		}
	}
	str("source", &cfg.Source)
	str("log-root", &cfg.LogRoot)
	str("data-dir", &cfg.DataDir)
	str("known-hosts", &cfg.KnownHosts)
	str("ssh-key", &cfg.SSHKey)
	str("metrics-textfile", &cfg.MetricsTextfile)
	boolean("verify-host-key", &cfg.VerifyHostKey)
	boolean("checksums", &cfg.Checksums)
	boolean("progress", &cfg.Progress)
	if fs.Lookup("include") != nil && fs.Changed("include") {
		cfg.Include, _ = fs.GetStringArray("include")
	}
	return cfg, nil
}
