package budget

import (
	"github.com/smallbiznis/insight/internal/config"
	"github.com/smallbiznis/insight/internal/rfm"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Channel is one marketing channel's spend recommendation.
type Channel struct {
	Channel        string  `json:"channel"`
	CurrentSpend   float64 `json:"currentSpend"`
	CAC            float64 `json:"cac"`
	ROAS           float64 `json:"roas"`
	SuggestedSpend float64 `json:"suggestedSpend"`
}

// Allocator recommends channel spends for a customer base. The profile
// slice is accepted so smarter allocators can weigh the base; the static
// allocator ignores it.
type Allocator interface {
	Allocate(profiles []rfm.Profile) []Channel
}

// StaticAllocator serves the configured channel table verbatim. The
// recommendations come from the operator's config, not from the data.
type StaticAllocator struct {
	log    *zap.Logger
	holder *config.AnalyticsConfigHolder
}

type Params struct {
	fx.In

	Log    *zap.Logger
	Holder *config.AnalyticsConfigHolder
}

func New(p Params) Allocator {
	return &StaticAllocator{log: p.Log.Named("budget"), holder: p.Holder}
}

var Module = fx.Module("budget",
	fx.Provide(New),
)

func (a *StaticAllocator) Allocate(_ []rfm.Profile) []Channel {
	table := a.holder.Get().Budget
	out := make([]Channel, 0, len(table))
	for _, ch := range table {
		out = append(out, Channel{
			Channel:        ch.Channel,
			CurrentSpend:   ch.CurrentSpend,
			CAC:            ch.CAC,
			ROAS:           ch.ROAS,
			SuggestedSpend: ch.SuggestedSpend,
		})
	}
	return out
}
