package basket

import (
	"math"
	"sort"

	"github.com/smallbiznis/insight/internal/config"
	datasetdomain "github.com/smallbiznis/insight/internal/dataset/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Rule is one mined category pairing. Antecedent and consequent are
// ordered by confidence: the rule reads "customers who buy A also
// buy B".
type Rule struct {
	Antecedent string  `json:"antecedent"`
	Consequent string  `json:"consequent"`
	Support    float64 `json:"support"`
	Confidence float64 `json:"confidence"`
	Lift       float64 `json:"lift"`
}

type Miner struct {
	log    *zap.Logger
	holder *config.AnalyticsConfigHolder
}

type Params struct {
	fx.In

	Log    *zap.Logger
	Holder *config.AnalyticsConfigHolder
}

func New(p Params) *Miner {
	return &Miner{log: p.Log.Named("basket"), holder: p.Holder}
}

var Module = fx.Module("basket",
	fx.Provide(New),
)

// Mine treats each customer's distinct purchased categories as one
// basket and surfaces category pairs whose lift and support clear the
// configured thresholds, strongest lift first.
func (m *Miner) Mine(txns []datasetdomain.Transaction) []Rule {
	baskets := make(map[string]map[string]struct{})
	for _, tx := range txns {
		b, ok := baskets[tx.CustomerID]
		if !ok {
			b = make(map[string]struct{})
			baskets[tx.CustomerID] = b
		}
		b[tx.Category] = struct{}{}
	}
	n := float64(len(baskets))
	if n == 0 {
		return []Rule{}
	}

	single := make(map[string]int)
	pair := make(map[[2]string]int)
	for _, b := range baskets {
		cats := make([]string, 0, len(b))
		for c := range b {
			cats = append(cats, c)
		}
		sort.Strings(cats)

		for i, c := range cats {
			single[c]++
			for _, d := range cats[i+1:] {
				pair[[2]string{c, d}]++
			}
		}
	}

	cfg := m.holder.Get().Basket

	rules := make([]Rule, 0, len(pair))
	for key, count := range pair {
		support := float64(count) / n
		if support <= cfg.MinSupport {
			continue
		}

		a, b := key[0], key[1]
		supportA := float64(single[a]) / n
		supportB := float64(single[b]) / n
		lift := support / (supportA * supportB)
		if lift <= cfg.MinLift {
			continue
		}

		// Direction follows the sorted pair key: the lexicographically
		// first category is the antecedent.
		rules = append(rules, Rule{
			Antecedent: a,
			Consequent: b,
			Support:    round4(support),
			Confidence: round4(support / supportA),
			Lift:       round4(lift),
		})
	}

	sort.SliceStable(rules, func(i, j int) bool {
		if rules[i].Lift != rules[j].Lift {
			return rules[i].Lift > rules[j].Lift
		}
		if rules[i].Antecedent != rules[j].Antecedent {
			return rules[i].Antecedent < rules[j].Antecedent
		}
		return rules[i].Consequent < rules[j].Consequent
	})

	if len(rules) > cfg.MaxRules {
		rules = rules[:cfg.MaxRules]
	}
	return rules
}

func round4(f float64) float64 {
	return math.Round(f*10000) / 10000
}
