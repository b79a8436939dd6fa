package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestConfig_GetTestPath(t *testing.T) {
	tests := []struct {
		name     string
		config   *Config
		expected string
	}{
		{
			name: "default path",
			config: &Config{
				ProjectPath: ".",
				TestPath:    ".",
				Flags:       Flags{},
			},
			expected: ".",
		},
		{
			name: "with test path flag",
			config: &Config{
				ProjectPath: "/project",
				TestPath:    ".",
				Flags: Flags{
					TestPath: "notebooks",
				},
			},
			expected: "/project/notebooks",
		},
		{
			name: "absolute test path",
			config: &Config{
				ProjectPath: "/project",
				TestPath:    ".",
				Flags: Flags{
					TestPath: "/absolute/path",
				},
			},
			expected: "/absolute/path",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.config.GetTestPath()
			if result != tt.expected {
				t.Errorf("expected %s, got %s", tt.expected, result)
			}
		})
	}
}

func TestConfig_GetDatabaseName(t *testing.T) {
	cfg := New()

	t.Run("default database name", func(t *testing.T) {
		name := cfg.GetDatabaseName(1)
		expected := "nbtp_testing_1"
		if name != expected {
			t.Errorf("expected %s, got %s", expected, name)
		}
	})

	t.Run("custom prefix", func(t *testing.T) {
		cfg := New()
		cfg.DatabasePrefix = "ci"
		if name := cfg.GetDatabaseName(3); name != "ci_3" {
			t.Errorf("expected ci_3, got %s", name)
		}
	})
}

func TestNew(t *testing.T) {
	cfg := New()

	if cfg.ProjectPath != DefaultProjectPath {
		t.Errorf("expected ProjectPath %s, got %s", DefaultProjectPath, cfg.ProjectPath)
	}

	if cfg.Processors != DefaultProcessors {
		t.Errorf("expected Processors %d, got %d", DefaultProcessors, cfg.Processors)
	}

	if len(cfg.PathsToIgnore) != len(DefaultPathsToIgnore) {
		t.Errorf("expected %d paths to ignore, got %d", len(DefaultPathsToIgnore), len(cfg.PathsToIgnore))
	}

	cfg.DefaultTests[0] = "changed"
	if DefaultTests[0] != "test_notebook_runs" {
		t.Errorf("New must copy DefaultTests")
	}
}

func TestLoad_AppliesFlags(t *testing.T) {
	cfg := Load(Flags{Processors: 8, Kernel: "python3", NoDefault: true})

	if cfg.Processors != 8 {
		t.Errorf("expected 8 processors, got %d", cfg.Processors)
	}
	if cfg.Kernel != "python3" {
		t.Errorf("expected kernel python3, got %q", cfg.Kernel)
	}
	if len(cfg.DefaultTests) != 0 {
		t.Errorf("expected no default tests, got %v", cfg.DefaultTests)
	}
}

func TestLoadEnv(t *testing.T) {
	dir := t.TempDir()
	env := "NBTP_PAPERMILL=/opt/bin/papermill\nNBTP_TIMEOUT=90s\nDB_DATABASE_PREFIX=envdb\n"
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte(env), 0644); err != nil {
		t.Fatal(err)
	}
	for _, k := range []string{"NBTP_PAPERMILL", "NBTP_TIMEOUT", "DB_DATABASE_PREFIX"} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
	t.Setenv("NBTP_PROCESSORS", "6")

	cfg := New()
	cfg.ProjectPath = dir
	if err := LoadEnv(cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.PapermillPath != "/opt/bin/papermill" {
		t.Errorf("expected papermill from .env, got %q", cfg.PapermillPath)
	}
	if cfg.ExecTimeout != 90*time.Second {
		t.Errorf("expected 90s timeout, got %s", cfg.ExecTimeout)
	}
	if cfg.GetDatabaseName(2) != "envdb_2" {
		t.Errorf("expected envdb_2, got %s", cfg.GetDatabaseName(2))
	}
	if cfg.Processors != 6 {
		t.Errorf("expected 6 processors, got %d", cfg.Processors)
	}
}

func TestLoadEnv_MissingFileIsFine(t *testing.T) {
	cfg := New()
	cfg.ProjectPath = t.TempDir()
	if err := LoadEnv(cfg); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestConfig_Parameters(t *testing.T) {
	cfg := Load(Flags{Parameters: []string{"alpha=3", "name=run one", "debug=true"}})

	params, err := cfg.Parameters()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if params["alpha"] != 3 {
		t.Errorf("expected alpha=3, got %#v", params["alpha"])
	}
	if params["name"] != "run one" {
		t.Errorf("expected name string, got %#v", params["name"])
	}
	if params["debug"] != true {
		t.Errorf("expected debug=true, got %#v", params["debug"])
	}

	cfg = Load(Flags{Parameters: []string{"novalue"}})
	if _, err := cfg.Parameters(); err == nil {
		t.Error("expected error for missing '='")
	}
}

func TestConfig_OutputPathsAreAbsolute(t *testing.T) {
	cfg := New()
	for _, p := range []string{cfg.GetOutputPath(), cfg.GetHistoryPath(), cfg.GetArtifactsDir("abc")} {
		if !filepath.IsAbs(p) {
			t.Errorf("expected absolute path, got %s", p)
		}
	}
}
