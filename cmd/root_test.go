package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/celaya-solutions/SE-Reference-System-2/internal/config"
)

func TestFlagDefaultsComeFromConfig(t *testing.T) {
	want := config.LoadConfig()

	port := serveCmd.Flags().Lookup("port")
	require.NotNil(t, port)
	assert.Equal(t, want.Port, port.DefValue)
	assert.NotEmpty(t, port.DefValue)

	for name, def := range map[string]string{
		"storage":    want.StorageDriver,
		"data-dir":   want.DataDir,
		"log-level":  want.LogLevel,
		"log-format": want.LogFormat,
	} {
		flag := rootCmd.PersistentFlags().Lookup(name)
		require.NotNil(t, flag, name)
		assert.Equal(t, def, flag.DefValue, name)
	}
}

func TestSubcommandsRegistered(t *testing.T) {
	var names []string
	for _, c := range rootCmd.Commands() {
		names = append(names, c.Name())
	}
	assert.Subset(t, names, []string{"serve", "import", "reset", "export", "audit"})
}
