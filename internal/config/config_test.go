package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(map[string]string{"useramdir": "true"})
	require.NoError(t, err)
	assert.Equal(t, DefaultAnalyzer, cfg.Analyzer)
	assert.True(t, cfg.IncompleteQueryFail)
	assert.True(t, cfg.UseRAMDir)
}

func TestLoadRejectsNeitherDirOption(t *testing.T) {
	_, err := Load(map[string]string{})
	assert.Error(t, err)
}

func TestLoadRejectsBothDirOptions(t *testing.T) {
	_, err := Load(map[string]string{"lucenedir": "/tmp/x", "useramdir": "true"})
	assert.Error(t, err)
}

func TestLoadIncompleteQueryFailFalse(t *testing.T) {
	cfg, err := Load(map[string]string{"useramdir": "true", "incompletequeryfail": "false"})
	require.NoError(t, err)
	assert.False(t, cfg.IncompleteQueryFail)
}
