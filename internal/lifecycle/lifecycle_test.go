package lifecycle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/smallbiznis/insight/internal/config"
	"github.com/smallbiznis/insight/internal/rfm"
)

func newTestModeler(cfg config.AnalyticsConfig) *Modeler {
	return New(Params{
		Log:    zap.NewNop(),
		Holder: config.NewStaticAnalyticsConfigHolder(cfg),
	})
}

func tiered(gold, silver, bronze int) []rfm.Profile {
	var out []rfm.Profile
	for i := 0; i < gold; i++ {
		out = append(out, rfm.Profile{Cluster: 0, Segment: "Gold"})
	}
	for i := 0; i < silver; i++ {
		out = append(out, rfm.Profile{Cluster: 1, Segment: "Silver"})
	}
	for i := 0; i < bronze; i++ {
		out = append(out, rfm.Profile{Cluster: 2, Segment: "Bronze"})
	}
	return out
}

func find(t *testing.T, transitions []Transition, from, to string) Transition {
	t.Helper()
	for _, tr := range transitions {
		if tr.From == from && tr.To == to {
			return tr
		}
	}
	t.Fatalf("transition %s -> %s not found", from, to)
	return Transition{}
}

func TestTransitionsNewEdgesScaleWithTierShares(t *testing.T) {
	m := newTestModeler(config.DefaultAnalyticsConfig())

	// 20% Gold, 50% Silver, 30% Bronze.
	transitions := m.Transitions(tiered(4, 10, 6))

	assert.Equal(t, 0.4, find(t, transitions, "New", "Silver").Probability)
	assert.Equal(t, 0.27, find(t, transitions, "New", "Bronze").Probability)
}

func TestTransitionsOmitNewToGold(t *testing.T) {
	m := newTestModeler(config.DefaultAnalyticsConfig())

	for _, tr := range m.Transitions(tiered(4, 10, 6)) {
		if tr.From == "New" {
			assert.Contains(t, []string{"Silver", "Bronze"}, tr.To)
		}
	}
}

func TestTransitionsKeepConstantEdges(t *testing.T) {
	m := newTestModeler(config.DefaultAnalyticsConfig())
	transitions := m.Transitions(tiered(3, 3, 3))

	assert.Equal(t, 0.85, find(t, transitions, "Gold", "Gold").Probability)
	assert.Equal(t, 0.25, find(t, transitions, "Silver", "Gold").Probability)
	assert.Equal(t, 0.60, find(t, transitions, "Bronze", "Churn").Probability)

	require.Len(t, transitions, 11)
}

func TestTransitionsEmptyBase(t *testing.T) {
	m := newTestModeler(config.DefaultAnalyticsConfig())
	transitions := m.Transitions(nil)

	assert.Equal(t, 0.26, find(t, transitions, "New", "Silver").Probability)
	assert.Equal(t, 0.31, find(t, transitions, "New", "Bronze").Probability)
}

func TestValidateWarnsOnDrift(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)

	cfg := config.DefaultAnalyticsConfig()
	cfg.Lifecycle.Transitions = []config.TransitionConstant{
		{From: "Gold", To: "Gold", Probability: 0.5},
		{From: "Gold", To: "Churn", Probability: 0.2},
	}
	m := New(Params{
		Log:    zap.New(core),
		Holder: config.NewStaticAnalyticsConfigHolder(cfg),
	})

	transitions := m.Transitions(tiered(1, 1, 1))

	// Constants are reported as-is, never renormalized.
	assert.Equal(t, 0.5, find(t, transitions, "Gold", "Gold").Probability)
	require.Equal(t, 1, logs.FilterMessage("lifecycle transition probabilities do not sum to 1").Len())
}
