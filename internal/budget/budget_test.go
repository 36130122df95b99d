package budget

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/smallbiznis/insight/internal/config"
)

func TestAllocateServesConfiguredTable(t *testing.T) {
	a := New(Params{
		Log:    zap.NewNop(),
		Holder: config.NewStaticAnalyticsConfigHolder(config.DefaultAnalyticsConfig()),
	})

	channels := a.Allocate(nil)
	require.Len(t, channels, 5)

	byName := map[string]Channel{}
	for _, ch := range channels {
		byName[ch.Channel] = ch
	}

	email := byName["Email"]
	assert.Equal(t, 1000.0, email.CurrentSpend)
	assert.Equal(t, 5.0, email.CAC)
	assert.Equal(t, 12.0, email.ROAS)
	assert.Equal(t, 2000.0, email.SuggestedSpend)

	assert.Equal(t, "Google Ads", channels[0].Channel)
}

func TestAllocateCustomTable(t *testing.T) {
	cfg := config.DefaultAnalyticsConfig()
	cfg.Budget = []config.ChannelBudget{
		{Channel: "Referral", CurrentSpend: 500, CAC: 10, ROAS: 6.0, SuggestedSpend: 900},
	}
	a := New(Params{Log: zap.NewNop(), Holder: config.NewStaticAnalyticsConfigHolder(cfg)})

	channels := a.Allocate(nil)
	require.Len(t, channels, 1)
	assert.Equal(t, "Referral", channels[0].Channel)
	assert.Equal(t, 900.0, channels[0].SuggestedSpend)
}
