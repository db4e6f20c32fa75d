package config_test

import (
	"testing"

	"github.com/lehelkovach/osl-agent-prototype-sub000/infrastructure/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func staticConfig() *config.Config {
	return &config.Config{
		Features: config.Features{
			EnableWebSocket:    true,
			EnableLearning:     false,
			EnableFormAutofill: true,
			EnableEventBridge:  false,
		},
		RelationshipLimits: config.RelationshipLimits{
			MaxRelationshipsPerConcept: 500,
			SimilarityThreshold:        0.3,
			DecayEnabled:               true,
		},
	}
}

func TestDynamicConfigManager_WithoutWatcherReadsStaticFeatures(t *testing.T) {
	manager, err := config.NewDynamicConfigManager(staticConfig(), "", zap.NewNop())
	require.NoError(t, err)

	assert.True(t, manager.IsFeatureEnabled("websocket"))
	assert.False(t, manager.IsFeatureEnabled("learning"))
	assert.True(t, manager.IsFeatureEnabled("form_autofill"))
	assert.False(t, manager.IsFeatureEnabled("unknown_feature"))
}

func TestDynamicConfigManager_WithoutWatcherReadsStaticLimits(t *testing.T) {
	manager, err := config.NewDynamicConfigManager(staticConfig(), "", zap.NewNop())
	require.NoError(t, err)

	assert.Equal(t, 500, manager.GetLimit("max_relationships_per_concept"))
	assert.Equal(t, 0, manager.GetLimit("unknown_limit"))
}

func TestDynamicConfigManager_UpdateFeatureFailsWithoutWatcher(t *testing.T) {
	manager, err := config.NewDynamicConfigManager(staticConfig(), "", zap.NewNop())
	require.NoError(t, err)

	assert.Error(t, manager.UpdateFeature("learning", true))
	assert.Error(t, manager.UpdateLimit("max_relationships_per_concept", 10))
}

func TestDynamicConfigManager_GetDynamicConfigFallsBackToStaticWithoutWatcher(t *testing.T) {
	manager, err := config.NewDynamicConfigManager(staticConfig(), "", zap.NewNop())
	require.NoError(t, err)

	dyn := manager.GetDynamicConfig()
	assert.Equal(t, false, dyn.Features.EnableLearning)
	assert.Equal(t, 500, dyn.Limits.MaxRelationshipsPerConcept)
	assert.True(t, dyn.WebSocket.Enabled)
}
