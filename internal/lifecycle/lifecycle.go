package lifecycle

import (
	"math"

	"github.com/smallbiznis/insight/internal/config"
	"github.com/smallbiznis/insight/internal/rfm"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Transition is one directed edge of the lifecycle Markov chain.
type Transition struct {
	From        string  `json:"from"`
	To          string  `json:"to"`
	Probability float64 `json:"probability"`
}

type Modeler struct {
	log    *zap.Logger
	holder *config.AnalyticsConfigHolder
}

type Params struct {
	fx.In

	Log    *zap.Logger
	Holder *config.AnalyticsConfigHolder
}

func New(p Params) *Modeler {
	return &Modeler{log: p.Log.Named("lifecycle"), holder: p.Holder}
}

var Module = fx.Module("lifecycle",
	fx.Provide(New),
)

// Transitions builds the lifecycle chain for this customer base. The
// tier-to-tier edges are fixed constants; only the New-customer edges
// depend on the data, scaled by the observed share of each tier.
func (m *Modeler) Transitions(profiles []rfm.Profile) []Transition {
	cfg := m.holder.Get().Lifecycle

	pSilver, pBronze := tierShares(profiles)

	out := make([]Transition, 0, len(cfg.Transitions)+2)
	out = append(out,
		Transition{From: "New", To: "Silver", Probability: round2(pSilver * cfg.NewSilverScale)},
		Transition{From: "New", To: "Bronze", Probability: round2(pBronze * cfg.NewBronzeScale)},
	)
	for _, t := range cfg.Transitions {
		out = append(out, Transition{From: t.From, To: t.To, Probability: t.Probability})
	}

	m.validate(out, cfg.SumTolerance)
	return out
}

// tierShares returns the fraction of customers in the Silver and Bronze
// tiers. An empty base falls back to an even split so the New edges stay
// meaningful.
func tierShares(profiles []rfm.Profile) (silver, bronze float64) {
	if len(profiles) == 0 {
		return 0.33, 0.34
	}

	var s, b int
	for _, p := range profiles {
		switch p.Cluster {
		case 1:
			s++
		case 2:
			b++
		}
	}
	n := float64(len(profiles))
	return float64(s) / n, float64(b) / n
}

// validate logs any state whose outgoing probabilities drift from 1.0 by
// more than the tolerance. Drift is reported, never corrected: the New
// edges are intentionally lossy because some new customers simply never
// return.
func (m *Modeler) validate(transitions []Transition, tolerance float64) {
	sums := make(map[string]float64)
	for _, t := range transitions {
		sums[t.From] += t.Probability
	}
	for state, sum := range sums {
		if state == "New" {
			continue
		}
		if math.Abs(sum-1.0) > tolerance {
			m.log.Warn("lifecycle transition probabilities do not sum to 1",
				zap.String("state", state),
				zap.Float64("sum", sum),
			)
		}
	}
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
