package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{EnvBoostSource, EnvDB, EnvDataDir, EnvReleaseCSV, EnvOutputDir} {
		t.Setenv(k, "")
	}
}

func TestDir_RespectsXDG(t *testing.T) {
	xdg := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)

	dir, err := Dir()
	if err != nil {
		t.Fatalf("Dir() error: %v", err)
	}
	if want := filepath.Join(xdg, "boostusage"); dir != want {
		t.Errorf("Dir() = %q, want %q", dir, want)
	}
}

func TestLoad_FileNotFound(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load() returned error for missing file: %v", err)
	}
	def := Default()
	if cfg.Analysis != def.Analysis {
		t.Errorf("Analysis = %+v, want defaults %+v", cfg.Analysis, def.Analysis)
	}
	if cfg.DBPath != def.DBPath {
		t.Errorf("DBPath = %q, want %q", cfg.DBPath, def.DBPath)
	}
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), FileName)
	content := `db_path: /tmp/usage.db
data_dir: exports
analysis:
  top_libraries: 40
  recent_years: 3
  legacy_normalize: false
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.DBPath != "/tmp/usage.db" {
		t.Errorf("DBPath = %q", cfg.DBPath)
	}
	if cfg.DataDir != "exports" {
		t.Errorf("DataDir = %q", cfg.DataDir)
	}
	if cfg.Analysis.TopLibraries != 40 || cfg.Analysis.RecentYears != 3 {
		t.Errorf("Analysis = %+v", cfg.Analysis)
	}
	if cfg.Analysis.LegacyNormalize {
		t.Error("LegacyNormalize should be false")
	}
	// Untouched keys keep their defaults.
	if cfg.Analysis.BottomLibraries != 20 {
		t.Errorf("BottomLibraries = %d, want 20", cfg.Analysis.BottomLibraries)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), FileName)
	if err := os.WriteFile(path, []byte("db_path: /from/file.db\n"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	t.Setenv(EnvDB, "/from/env.db")
	t.Setenv(EnvBoostSource, "/opt/boost_1_89_0/boost")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.DBPath != "/from/env.db" {
		t.Errorf("DBPath = %q, want env value", cfg.DBPath)
	}
	if cfg.BoostSourcePath != "/opt/boost_1_89_0/boost" {
		t.Errorf("BoostSourcePath = %q", cfg.BoostSourcePath)
	}
}

func TestLoad_MalformedYAML(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), FileName)
	if err := os.WriteFile(path, []byte("analysis: [unterminated\n"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("Load() should fail on malformed YAML")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults valid", func(*Config) {}, ""},
		{"missing db path", func(c *Config) { c.DBPath = "" }, "DBPath"},
		{"bad version", func(c *Config) { c.Analysis.MinPivotVersion = "one.fifty" }, "MinPivotVersion"},
		{"zero recent years", func(c *Config) { c.Analysis.RecentYears = 0 }, "RecentYears"},
		{"pivot year before min year", func(c *Config) { c.Analysis.MinPivotYear = 1990 }, "MinPivotYear"},
		{"unknown log format", func(c *Config) { c.Log.Format = "xml" }, "Format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() should fail for %s", tt.name)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q should mention %q", err, tt.wantErr)
			}
		})
	}
}
