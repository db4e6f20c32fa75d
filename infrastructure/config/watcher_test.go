package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "dynamic_config.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestConfigWatcher_LoadsInitialConfigFromFile(t *testing.T) {
	path := writeConfigFile(t, `{
		"features": {"enableLearning": true, "enableWebSocket": false},
		"limits": {"maxRelationshipsPerConcept": 250, "similarityThreshold": 0.4, "decayEnabled": true}
	}`)

	watcher, err := NewConfigWatcher(path, zap.NewNop())
	require.NoError(t, err)
	defer watcher.watcher.Close()

	current := watcher.GetCurrent()
	assert.True(t, current.Features.EnableLearning)
	assert.False(t, current.Features.EnableWebSocket)
	assert.Equal(t, 250, current.Limits.MaxRelationshipsPerConcept)
}

func TestConfigWatcher_ValidateConfigRejectsNonPositiveMaxRelationships(t *testing.T) {
	watcher := &ConfigWatcher{}
	err := watcher.validateConfig(&DynamicConfig{
		Limits: RelationshipLimits{MaxRelationshipsPerConcept: 0, SimilarityThreshold: 0.5},
	})
	assert.Error(t, err)
}

func TestConfigWatcher_ValidateConfigRejectsOutOfRangeSimilarityThreshold(t *testing.T) {
	watcher := &ConfigWatcher{}
	err := watcher.validateConfig(&DynamicConfig{
		Limits: RelationshipLimits{MaxRelationshipsPerConcept: 10, SimilarityThreshold: 1.5},
	})
	assert.Error(t, err)
}

func TestConfigWatcher_ValidateConfigAcceptsValidLimits(t *testing.T) {
	watcher := &ConfigWatcher{}
	err := watcher.validateConfig(&DynamicConfig{
		Limits: RelationshipLimits{MaxRelationshipsPerConcept: 10, SimilarityThreshold: 0.5},
	})
	assert.NoError(t, err)
}
