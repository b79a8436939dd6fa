package logger

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetup_WritesJSONLines(t *testing.T) {
	root := t.TempDir()
	cleanup, err := Setup(Config{Root: root, Debug: true})
	require.NoError(t, err)

	L().Debug("resolve.dir.hook", "dir", "/nb/sub")
	assert.Equal(t, filepath.Join(root, ".nbtp", "logs", "nbtp.log"), Path())
	require.NoError(t, cleanup())
	assert.Empty(t, Path())

	data, err := os.ReadFile(filepath.Join(root, ".nbtp", "logs", "nbtp.log"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)

	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &rec))
	assert.Equal(t, "resolve.dir.hook", rec["msg"])
	assert.Equal(t, "/nb/sub", rec["dir"])
	assert.Contains(t, rec, "source")
}

func TestSetup_InfoLevelDropsDebug(t *testing.T) {
	root := t.TempDir()
	cleanup, err := Setup(Config{Root: root})
	require.NoError(t, err)
	L().Debug("hidden")
	require.NoError(t, cleanup())

	data, err := os.ReadFile(filepath.Join(root, ".nbtp", "logs", "nbtp.log"))
	require.NoError(t, err)
	assert.NotContains(t, string(data), "hidden")
}
