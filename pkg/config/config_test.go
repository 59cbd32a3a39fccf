package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0600))
	return path
}

func TestApplyDefaultsDoesNotOverrideExplicitFlag(t *testing.T) {
	path := writeConfig(t, "max-tasks: 500\ncluster-name: from-config\n")
	values, err := Load(path)
	require.NoError(t, err)

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.Int("max-tasks", 1000, "")
	fs.String("cluster-name", "unknown", "")
	require.NoError(t, fs.Set("cluster-name", "from-cli"))

	require.NoError(t, ApplyDefaults(fs, values))

	maxTasks, _ := fs.GetInt("max-tasks")
	clusterName, _ := fs.GetString("cluster-name")
	assert.Equal(t, 500, maxTasks)
	assert.Equal(t, "from-cli", clusterName)
}

func TestApplyDefaultsIgnoresUnknownFlags(t *testing.T) {
	path := writeConfig(t, "not-a-real-flag: true\n")
	values, err := Load(path)
	require.NoError(t, err)

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	require.NoError(t, ApplyDefaults(fs, values))
}
