package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultAnalyticsConfigIsValid(t *testing.T) {
	cfg := DefaultAnalyticsConfig()
	require.NoError(t, validateAnalyticsConfig(cfg))

	assert.Equal(t, 10, cfg.Clustering.Iterations)
	assert.Equal(t, 0.02, cfg.Basket.MinSupport)
	assert.Equal(t, 8, cfg.Basket.MaxRules)
	assert.Len(t, cfg.Lifecycle.Transitions, 9)
	assert.Len(t, cfg.Budget, 5)
}

func TestValidateAnalyticsConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(cfg *AnalyticsConfig)
	}{
		{
			name:   "zero iterations",
			mutate: func(cfg *AnalyticsConfig) { cfg.Clustering.Iterations = 0 },
		},
		{
			name:   "zero max rules",
			mutate: func(cfg *AnalyticsConfig) { cfg.Basket.MaxRules = 0 },
		},
		{
			name:   "support above one",
			mutate: func(cfg *AnalyticsConfig) { cfg.Basket.MinSupport = 1.5 },
		},
		{
			name:   "no transitions",
			mutate: func(cfg *AnalyticsConfig) { cfg.Lifecycle.Transitions = nil },
		},
		{
			name: "probability above one",
			mutate: func(cfg *AnalyticsConfig) {
				cfg.Lifecycle.Transitions[0].Probability = 1.2
			},
		},
		{
			name:   "no budget channels",
			mutate: func(cfg *AnalyticsConfig) { cfg.Budget = nil },
		},
		{
			name: "negative spend",
			mutate: func(cfg *AnalyticsConfig) {
				cfg.Budget[0].CurrentSpend = -1
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultAnalyticsConfig()
			tc.mutate(&cfg)
			assert.Error(t, validateAnalyticsConfig(cfg))
		})
	}
}

func TestStaticHolderGet(t *testing.T) {
	cfg := DefaultAnalyticsConfig()
	cfg.Basket.MaxRules = 3

	holder := NewStaticAnalyticsConfigHolder(cfg)
	assert.Equal(t, 3, holder.Get().Basket.MaxRules)
}
