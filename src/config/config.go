package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"artifact-collector/src/collect"
	"artifact-collector/src/filter"
	"artifact-collector/src/target"
)

var validate = validator.New()

func init() {
	validate.RegisterValidation("source", func(fl validator.FieldLevel) bool {
		_, err := target.Parse(fl.Field().String())
		return err == nil
	})
	validate.RegisterValidation("rule", func(fl validator.FieldLevel) bool {
		_, err := filter.Parse(fl.Field().String())
		return err == nil
	})
}

type Config struct {
	// Source is the workspace URI, e.g. dir:/home/zuul/src/workspace.
	Source string `yaml:"source" validate:"required,source"`
	// LogRoot is the local directory receiving logs and snapshots.
	LogRoot string `yaml:"log_root" validate:"required"`
	// DataDir locates the OVS databases relative to Source.
	DataDir string   `yaml:"data_dir" validate:"required"`
	Include []string `yaml:"include" validate:"dive,rule"`

	VerifyHostKey bool   `yaml:"verify_host_key"`
	KnownHosts    string `yaml:"known_hosts" validate:"required_if=VerifyHostKey true"`
	SSHKey        string `yaml:"ssh_key"`

	Checksums       bool   `yaml:"checksums"`
	MetricsTextfile string `yaml:"metrics_textfile"`
	Progress        bool   `yaml:"progress"`

	LogLevel  string `yaml:"log_level" validate:"oneof=trace debug info warn error"`
	LogFormat string `yaml:"log_format" validate:"oneof=json console"`
}

// Defaults returns the built-in configuration.
func Defaults() *Config {
	return &Config{
		DataDir:    collect.DefaultDataDir,
		Include:    append([]string(nil), filter.DefaultLines...),
		KnownHosts: os.ExpandEnv("${HOME}/.ssh/known_hosts"),
		LogLevel:   "info",
		LogFormat:  "json",
	}
}

// Load builds a Config from defaults, the YAML file at path (optional) and
// COLLECTOR_* environment variables, in that order of precedence. The
// result is not validated; callers apply flag overrides and then Validate.
func Load(path string) (*Config, error) {
	cfg := Defaults()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.Source = getEnv("COLLECTOR_SOURCE", cfg.Source)
	cfg.LogRoot = getEnv("COLLECTOR_LOG_ROOT", cfg.LogRoot)
	cfg.DataDir = getEnv("COLLECTOR_DATA_DIR", cfg.DataDir)
	cfg.KnownHosts = getEnv("COLLECTOR_KNOWN_HOSTS", cfg.KnownHosts)
	cfg.SSHKey = getEnv("COLLECTOR_SSH_KEY", cfg.SSHKey)
	cfg.MetricsTextfile = getEnv("COLLECTOR_METRICS_TEXTFILE", cfg.MetricsTextfile)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = getEnv("LOG_FORMAT", cfg.LogFormat)
	if v := os.Getenv("COLLECTOR_INCLUDE"); v != "" {
		cfg.Include = splitRules(v)
	}
	var err error
	if cfg.VerifyHostKey, err = getBool("COLLECTOR_VERIFY_HOST_KEY", cfg.VerifyHostKey); err != nil {
		return nil, err
	}
	if cfg.Checksums, err = getBool("COLLECTOR_CHECKSUMS", cfg.Checksums); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks required fields and syntax.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Rules parses Include.
func (c *Config) Rules() (filter.Rules, error) {
	return filter.ParseAll(c.Include)
}

// Target parses Source.
func (c *Config) Target() (target.Target, error) {
	return target.Parse(c.Source)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("parse %s: %w", key, err)
	}
	return b, nil
}

// splitRules splits a ';'-separated rule list.
func splitRules(v string) []string {
	var out []string
	for _, r := range strings.Split(v, ";") {
		if r = strings.TrimSpace(r); r != "" {
			out = append(out, r)
		}
	}
	return out
}
