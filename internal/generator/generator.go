package generator

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
	"time"

	datasetdomain "github.com/smallbiznis/insight/internal/dataset/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// persona is a hidden behavioral archetype. Each synthetic customer is
// assigned one via a weighted draw; the persona biases how many purchases
// the customer made, how recently, how much they spend and how long they
// wait between purchases.
type persona struct {
	name               string
	weight             float64
	minTxns            int
	maxTxns            int
	recencyBiasDays    int
	spendMultiplier    float64
	intervalMultiplier float64
}

var personas = []persona{
	{name: "Whale", weight: 0.10, minTxns: 8, maxTxns: 20, recencyBiasDays: 14, spendMultiplier: 4.0, intervalMultiplier: 0.6},
	{name: "Loyalist", weight: 0.35, minTxns: 5, maxTxns: 12, recencyBiasDays: 30, spendMultiplier: 1.5, intervalMultiplier: 1.0},
	{name: "At-Risk", weight: 0.30, minTxns: 2, maxTxns: 6, recencyBiasDays: 90, spendMultiplier: 1.0, intervalMultiplier: 1.8},
	{name: "Lost", weight: 0.25, minTxns: 1, maxTxns: 3, recencyBiasDays: 240, spendMultiplier: 0.8, intervalMultiplier: 2.5},
}

var categories = []string{"Electronics", "Gadgets", "Fashion", "Accessories", "Sports", "Footwear", "Home", "Beauty"}

var channels = []string{"Online", "In-Store", "Mobile App", "Marketplace"}

// companion injects a correlated secondary purchase so the rule miner has
// detectable basket signal on synthetic data. Without it, random basket
// composition rarely clears the lift and support thresholds.
type companion struct {
	category    string
	probability float64
	fraction    float64
}

var companions = map[string]companion{
	"Electronics": {category: "Gadgets", probability: 0.55, fraction: 0.45},
	"Sports":      {category: "Footwear", probability: 0.50, fraction: 0.50},
	"Fashion":     {category: "Accessories", probability: 0.50, fraction: 0.40},
	"Beauty":      {category: "Fashion", probability: 0.40, fraction: 0.50},
}

// affinityProbability is how often a transaction reuses the customer's
// primary category/channel instead of a uniform draw.
const affinityProbability = 0.7

type Generator struct {
	log *zap.Logger
}

func New(log *zap.Logger) *Generator {
	return &Generator{log: log.Named("generator")}
}

var Module = fx.Module("generator",
	fx.Provide(New),
)

// Generate produces a synthetic transaction history for count customers,
// newest transaction first. All randomness comes from rng so runs are
// reproducible under a fixed seed.
func (g *Generator) Generate(rng *rand.Rand, count int, now time.Time) []datasetdomain.Transaction {
	if count <= 0 {
		return nil
	}

	txns := make([]datasetdomain.Transaction, 0, count*4)
	for i := 0; i < count; i++ {
		customerID := fmt.Sprintf("CUST-%d", 1000+i)
		txns = append(txns, g.generateCustomer(rng, customerID, now)...)
	}

	sort.SliceStable(txns, func(i, j int) bool {
		return txns[i].Date.After(txns[j].Date)
	})
	return txns
}

func (g *Generator) generateCustomer(rng *rand.Rand, customerID string, now time.Time) []datasetdomain.Transaction {
	p := drawPersona(rng)

	primaryCategory := categories[rng.Intn(len(categories))]
	primaryChannel := channels[rng.Intn(len(channels))]

	txnCount := p.minTxns + rng.Intn(p.maxTxns-p.minTxns+1)
	baseSpend := (40 + rng.Float64()*160) * p.spendMultiplier
	baseInterval := (5 + rng.Float64()*10) * p.intervalMultiplier

	// offset walks backwards from "now"; the persona's recency bias sets
	// where the most recent purchase lands.
	offset := 1 + rng.Float64()*float64(p.recencyBiasDays)

	txns := make([]datasetdomain.Transaction, 0, txnCount+1)
	for t := 0; t < txnCount; t++ {
		date := now.AddDate(0, 0, -int(offset))

		category := primaryCategory
		if rng.Float64() >= affinityProbability {
			category = categories[rng.Intn(len(categories))]
		}
		channel := primaryChannel
		if rng.Float64() >= affinityProbability {
			channel = channels[rng.Intn(len(channels))]
		}

		amount := math.Max(1, math.Round(baseSpend*(0.6+0.8*rng.Float64())))
		txns = append(txns, datasetdomain.Transaction{
			CustomerID: customerID,
			Amount:     amount,
			Date:       date,
			Category:   category,
			Channel:    channel,
		})

		if comp, ok := companions[category]; ok && rng.Float64() < comp.probability {
			txns = append(txns, datasetdomain.Transaction{
				CustomerID: customerID,
				Amount:     math.Max(1, math.Round(amount*comp.fraction)),
				Date:       date,
				Category:   comp.category,
				Channel:    channel,
			})
		}

		offset += baseInterval * (0.5 + rng.Float64())
	}
	return txns
}

func drawPersona(rng *rand.Rand) persona {
	total := 0.0
	for _, p := range personas {
		total += p.weight
	}

	draw := rng.Float64() * total
	for _, p := range personas {
		if draw < p.weight {
			return p
		}
		draw -= p.weight
	}
	return personas[len(personas)-1]
}
