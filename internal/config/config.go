// Package config loads boostusage configuration from a YAML file, the
// environment, and built-in defaults, in increasing order of precedence:
// defaults < config.yaml < environment < command-line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// FileName is the config file looked up inside Dir().
const FileName = "config.yaml"

// Environment variables recognised by Load.
const (
	EnvBoostSource = "BOOST_SOURCE_PATH"
	EnvDB          = "BOOSTUSAGE_DB"
	EnvDataDir     = "BOOSTUSAGE_DATA_DIR"
	EnvReleaseCSV  = "BOOSTUSAGE_RELEASE_CSV"
	EnvOutputDir   = "BOOSTUSAGE_OUTPUT_DIR"
)

// Dir returns the boostusage config directory, respecting XDG_CONFIG_HOME.
// Defaults to ~/.config/boostusage if XDG_CONFIG_HOME is not set.
func Dir() (string, error) {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "boostusage"), nil
}

// Config is the full boostusage configuration.
type Config struct {
	DBPath          string   `yaml:"db_path" validate:"required"`
	DataDir         string   `yaml:"data_dir" validate:"required"`
	ReleaseCalendar string   `yaml:"release_calendar"`
	BoostSourcePath string   `yaml:"boost_source_path"`
	OutputDir       string   `yaml:"output_dir" validate:"required"`
	Analysis        Analysis `yaml:"analysis"`
	Log             Log      `yaml:"log"`
}

// Analysis holds the thresholds used by the aggregator and reports.
type Analysis struct {
	TopLibraries           int    `yaml:"top_libraries" validate:"gte=1"`
	BottomLibraries        int    `yaml:"bottom_libraries" validate:"gte=1"`
	TopHeaders             int    `yaml:"top_headers" validate:"gte=1"`
	DashboardTop           int    `yaml:"dashboard_top" validate:"gte=1"`
	LibraryTopRepos        int    `yaml:"library_top_repos" validate:"gte=1"`
	MinDistributionVersion string `yaml:"min_distribution_version" validate:"required,boostversion"`
	MinPivotVersion        string `yaml:"min_pivot_version" validate:"required,boostversion"`
	MinYear                int    `yaml:"min_year" validate:"gte=1970"`
	MinPivotYear           int    `yaml:"min_pivot_year" validate:"gtefield=MinYear"`
	MinCommitYear          int    `yaml:"min_commit_year" validate:"gte=1970"`
	RecentYears            int    `yaml:"recent_years" validate:"gte=1,lte=50"`
	LegacyNormalize        bool   `yaml:"legacy_normalize"`
}

// Log configures the diagnostic logger.
type Log struct {
	Level  string `yaml:"level" validate:"omitempty,oneof=trace debug info warn warning error off disabled"`
	Format string `yaml:"format" validate:"omitempty,oneof=console json"`
}

// Default returns the built-in configuration.
func Default() *Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return &Config{
		DBPath:          filepath.Join(home, ".boostusage", "boost_usage.db"),
		DataDir:         filepath.Join("data", "file_time"),
		ReleaseCalendar: filepath.Join("data", "boost_release_date.csv"),
		OutputDir:       ".",
		Analysis: Analysis{
			TopLibraries:           150,
			BottomLibraries:        20,
			TopHeaders:             20,
			DashboardTop:           20,
			LibraryTopRepos:        10,
			MinDistributionVersion: "1.50.0",
			MinPivotVersion:        "1.53.0",
			MinYear:                2000,
			MinPivotYear:           2014,
			MinCommitYear:          2013,
			RecentYears:            5,
			LegacyNormalize:        true,
		},
		Log: Log{Level: "info", Format: "console"},
	}
}

// Load reads the YAML file at path over Default(), applies environment
// overrides and validates the result. An empty path means Dir()/config.yaml.
// A missing file is not an error.
func Load(path string) (*Config, error) {
	if path == "" {
		dir, err := Dir()
		if err == nil {
			path = filepath.Join(dir, FileName)
		}
	}

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	cfg.ApplyEnv(os.Getenv)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides paths from environment variables looked up via getenv.
func (c *Config) ApplyEnv(getenv func(string) string) {
	set := func(dst *string, key string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}
	set(&c.BoostSourcePath, EnvBoostSource)
	set(&c.DBPath, EnvDB)
	set(&c.DataDir, EnvDataDir)
	set(&c.ReleaseCalendar, EnvReleaseCSV)
	set(&c.OutputDir, EnvOutputDir)
}

var versionPattern = regexp.MustCompile(`^\d+(\.\d+){0,2}$`)

var validate = func() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("boostversion", func(fl validator.FieldLevel) bool {
		return versionPattern.MatchString(fl.Field().String())
	})
	return v
}()

// Validate checks that required fields are present and values are sane.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("invalid config: %w", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s fails %q", fe.Namespace(), fe.Tag()))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}
