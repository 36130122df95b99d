package rfm

import (
	"math"
	"sort"
	"time"

	datasetdomain "github.com/smallbiznis/insight/internal/dataset/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Profile is the per-customer feature vector the rest of the pipeline
// consumes. Cluster and Segment are filled in later by the clustering
// stage; everything else is derived here.
type Profile struct {
	CustomerID       string  `json:"customerID"`
	Recency          int     `json:"recency"`
	Frequency        int     `json:"frequency"`
	Monetary         float64 `json:"monetary"`
	AvgSpend         float64 `json:"avgSpend"`
	AvgInterval      float64 `json:"avgInterval"`
	ChurnRisk        int     `json:"churnRisk"`
	CLV              int     `json:"clv"`
	NextPurchaseDays int     `json:"nextPurchaseDays"`
	Cluster          int     `json:"cluster"`
	Segment          string  `json:"segment"`
}

type Calculator struct {
	log *zap.Logger
}

func New(log *zap.Logger) *Calculator {
	return &Calculator{log: log.Named("rfm")}
}

var Module = fx.Module("rfm",
	fx.Provide(New),
)

// ComputeProfiles aggregates transactions into one profile per customer,
// ordered by customer ID. Transactions dated after now still count; their
// recency is floored at zero.
func (c *Calculator) ComputeProfiles(txns []datasetdomain.Transaction, now time.Time) []Profile {
	byCustomer := make(map[string][]datasetdomain.Transaction)
	for _, tx := range txns {
		byCustomer[tx.CustomerID] = append(byCustomer[tx.CustomerID], tx)
	}

	ids := make([]string, 0, len(byCustomer))
	for id := range byCustomer {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	profiles := make([]Profile, 0, len(ids))
	for _, id := range ids {
		profiles = append(profiles, computeProfile(id, byCustomer[id], now))
	}
	return profiles
}

func computeProfile(customerID string, txns []datasetdomain.Transaction, now time.Time) Profile {
	sort.Slice(txns, func(i, j int) bool { return txns[i].Date.Before(txns[j].Date) })

	var monetary float64
	for _, tx := range txns {
		monetary += tx.Amount
	}
	frequency := len(txns)
	avgSpend := monetary / float64(frequency)

	earliest, latest := txns[0].Date, txns[frequency-1].Date
	recency := int(now.Sub(latest).Hours() / 24)
	if recency < 0 {
		recency = 0
	}

	var avgInterval float64
	if frequency > 1 {
		avgInterval = latest.Sub(earliest).Hours() / 24 / float64(frequency-1)
	}

	churnFrac := churnFraction(recency, frequency, avgInterval)

	// Monthly purchase rate over the customer's active window plus the
	// silence since their last purchase. A long silence drags the rate
	// down even for historically frequent buyers.
	denom := float64(recency) + avgInterval*float64(frequency)
	if denom <= 0 {
		denom = 1
	}
	monthlyFreq := float64(frequency) * 30 / denom

	clv := int(math.Round(avgSpend * math.Max(0.1, monthlyFreq) * 12 * (1 - churnFrac)))
	if clv < 0 {
		clv = 0
	}

	next := int(math.Round(avgInterval - float64(recency)))
	if next < 1 {
		next = 1
	}

	return Profile{
		CustomerID:       customerID,
		Recency:          recency,
		Frequency:        frequency,
		Monetary:         math.Round(monetary*100) / 100,
		AvgSpend:         math.Round(avgSpend*100) / 100,
		AvgInterval:      math.Round(avgInterval*100) / 100,
		ChurnRisk:        int(math.Floor(churnFrac * 100)),
		CLV:              clv,
		NextPurchaseDays: next,
	}
}

// churnFraction maps purchase cadence to a 0..0.95 risk fraction. For a
// one-off buyer risk grows linearly with silence; for repeat buyers it
// grows against the customer's own interval, gently below the expected
// gap and quadratically past it.
func churnFraction(recency, frequency int, avgInterval float64) float64 {
	if frequency <= 1 || avgInterval <= 0 {
		return math.Min(float64(recency)/90, 0.9)
	}

	ratio := float64(recency) / (2.5 * avgInterval)
	var frac float64
	if ratio <= 1 {
		frac = 0.5 * math.Sqrt(ratio)
	} else {
		frac = math.Min(0.95, 0.5*ratio*ratio)
	}
	if frac < 0 {
		frac = 0
	}
	return frac
}
