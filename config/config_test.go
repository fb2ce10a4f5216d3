package config

import (
	"testing"

	"counseling-module/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePriorityWeights(t *testing.T) {
	weights, err := ParsePriorityWeights("low:1,medium:2,high:3", "v1")
	require.NoError(t, err)
	assert.Equal(t, "v1", weights.Version)
	assert.Equal(t, 1, weights.Weights[models.PriorityLow])
	assert.Equal(t, 2, weights.Weights[models.PriorityMedium])
	assert.Equal(t, 3, weights.Weights[models.PriorityHigh])
}

func TestParsePriorityWeightsToleratesSpacingAndOrder(t *testing.T) {
	weights, err := ParsePriorityWeights(" high:5 , low:1, medium:3 ", "v2")
	require.NoError(t, err)
	assert.Equal(t, 5, weights.Weights[models.PriorityHigh])
	assert.Equal(t, 3, weights.Weights[models.PriorityMedium])
}

func TestParsePriorityWeightsRejectsBadTables(t *testing.T) {
	cases := []struct {
		name string
		spec string
	}{
		{"missing priority", "low:1,medium:2"},
		{"unknown priority", "low:1,medium:2,high:3,urgent:4"},
		{"zero weight", "low:0,medium:2,high:3"},
		{"negative weight", "low:-1,medium:2,high:3"},
		{"non-numeric weight", "low:one,medium:2,high:3"},
		{"duplicate priority", "low:1,low:2,medium:2,high:3"},
		{"malformed entry", "low=1,medium:2,high:3"},
		{"empty table", ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParsePriorityWeights(tc.spec, "v1")
			assert.Error(t, err)
		})
	}
}

func TestLoadConfigDefaultsMatchShippedWeights(t *testing.T) {
	require.NoError(t, LoadConfig())
	assert.Equal(t, models.DefaultPriorityWeights().Weights, AppConfig.PriorityWeights.Weights)
	assert.Equal(t, 3, AppConfig.EngineMaxAttempts)
	assert.Equal(t, "support.request-events", AppConfig.KafkaRequestEventsTopic)
}
