package provision

import (
	"context"
	"errors"
	"io"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nbtp/internal/config"
)

type fakeDatabases struct {
	workers []int
	err     error
}

func (f fakeDatabases) CheckAndCreateDatabases(int) ([]int, error) {
	return f.workers, f.err
}

func skipWithoutShell(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("setup commands run through sh")
	}
}

func TestValidDatabaseName(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"nbtp_testing_1", true},
		{"Reports2024", true},
		{"", false},
		{"a-b", false},
		{"x`; DROP DATABASE y", false},
		{strings.Repeat("a", 65), false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ValidDatabaseName(tt.name), tt.name)
	}
}

func TestDatabaseManager_DSN(t *testing.T) {
	cfg := config.New()
	cfg.ProjectPath = t.TempDir()
	t.Setenv("DB_HOST", "db.local")
	t.Setenv("DB_PORT", "3307")
	t.Setenv("DB_USERNAME", "nb")
	t.Setenv("DB_PASSWORD", "secret")

	assert.Equal(t, "nb:secret@tcp(db.local:3307)/", NewDatabaseManager(cfg).DSN())
}

func TestSetupRunner_RunWorker(t *testing.T) {
	skipWithoutShell(t)
	cfg := config.New()
	cfg.ProjectPath = t.TempDir()
	cfg.DatabasePrefix = "nb"
	cfg.SetupCommand = `echo "db=$DB_DATABASE"; echo warn >&2`

	result := NewSetupRunner(cfg, nil, nil).RunWorker(context.Background(), 3)
	require.True(t, result.Success, "%v", result.Error)
	assert.Equal(t, "nb_3", result.Database)
	assert.Contains(t, result.Output, "db=nb_3")
	assert.Contains(t, result.Output, "warn")

	cfg.SetupCommand = "exit 2"
	result = NewSetupRunner(cfg, nil, nil).RunWorker(context.Background(), 1)
	assert.False(t, result.Success)
	assert.Error(t, result.Error)
}

func TestSetupRunner_Run(t *testing.T) {
	skipWithoutShell(t)

	tests := []struct {
		name    string
		dbs     fakeDatabases
		command string
		wantErr string
	}{
		{name: "databases only", dbs: fakeDatabases{workers: []int{1, 2}}},
		{name: "setup command", dbs: fakeDatabases{workers: []int{1, 2, 3}}, command: "true"},
		{name: "setup fails", dbs: fakeDatabases{workers: []int{1, 2}}, command: `test "$DB_DATABASE" = nbtp_testing_1`, wantErr: "setup failed for 1 worker(s)"},
		{name: "no databases", dbs: fakeDatabases{}, wantErr: "no worker databases"},
		{name: "server down", dbs: fakeDatabases{err: errors.New("connection refused")}, wantErr: "connection refused"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.New()
			cfg.ProjectPath = t.TempDir()
			cfg.SetupCommand = tt.command
			sr := NewSetupRunner(cfg, tt.dbs, nil)
			sr.SetOutput(io.Discard)

			err := sr.Run(len(tt.dbs.workers))
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}
