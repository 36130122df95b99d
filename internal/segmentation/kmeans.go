package segmentation

import (
	"math"
	"math/rand"
	"sort"

	"github.com/smallbiznis/insight/internal/config"
	"github.com/smallbiznis/insight/internal/rfm"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// K is fixed: the lifecycle model only knows the three value tiers.
const K = 3

var tierLabels = [K]string{"Gold", "Silver", "Bronze"}

// Centroid describes one value tier in the units the profiles use, not
// the normalized space the clustering ran in.
type Centroid struct {
	Cluster      int     `json:"cluster"`
	Label        string  `json:"label"`
	Size         int     `json:"size"`
	AvgRecency   float64 `json:"avgRecency"`
	AvgFrequency float64 `json:"avgFrequency"`
	AvgMonetary  float64 `json:"avgMonetary"`
	AvgCLV       float64 `json:"avgCLV"`
}

type Engine struct {
	log    *zap.Logger
	holder *config.AnalyticsConfigHolder
}

type Params struct {
	fx.In

	Log    *zap.Logger
	Holder *config.AnalyticsConfigHolder
}

func New(p Params) *Engine {
	return &Engine{log: p.Log.Named("segmentation"), holder: p.Holder}
}

var Module = fx.Module("segmentation",
	fx.Provide(New),
)

// Cluster partitions profiles into K value tiers on normalized
// (recency, frequency, monetary), assigning Cluster and Segment in place.
// Initial centroids come from farthest-point seeding over the input, so
// well-separated groups never share one. Cluster 0 is always the
// highest-value tier regardless of how the initialization landed. Fewer
// profiles than K degenerates to one centroid per profile, keeping
// distinct customers in distinct tiers.
func (e *Engine) Cluster(rng *rand.Rand, profiles []rfm.Profile) []Centroid {
	if len(profiles) == 0 {
		return nil
	}

	points := normalize(profiles)

	k := K
	if len(points) < k {
		k = len(points)
	}

	iterations := e.holder.Get().Clustering.Iterations
	centroids := seed(rng, points, k)

	assignments := make([]int, len(points))
	for iter := 0; iter < iterations; iter++ {
		for i, pt := range points {
			assignments[i] = nearest(pt, centroids)
		}

		for c := 0; c < k; c++ {
			var sum [3]float64
			n := 0
			for i, a := range assignments {
				if a != c {
					continue
				}
				for d := 0; d < 3; d++ {
					sum[d] += points[i][d]
				}
				n++
			}
			// Empty clusters keep their previous centroid.
			if n == 0 {
				continue
			}
			for d := 0; d < 3; d++ {
				centroids[c][d] = sum[d] / float64(n)
			}
		}
	}
	for i, pt := range points {
		assignments[i] = nearest(pt, centroids)
	}

	rank := rankByValue(centroids)
	for i := range profiles {
		tier := rank[assignments[i]]
		profiles[i].Cluster = tier
		profiles[i].Segment = tierLabels[tier]
	}

	membersByTier := make([][]int, k)
	for i := range profiles {
		tier := profiles[i].Cluster
		membersByTier[tier] = append(membersByTier[tier], i)
	}

	out := make([]Centroid, 0, k)
	for tier := 0; tier < k; tier++ {
		if len(membersByTier[tier]) == 0 {
			continue
		}
		out = append(out, summarize(tier, membersByTier[tier], profiles))
	}
	return out
}

// normalize maps each profile onto [0,1]^3 by dividing by the column max,
// with recency inverted so that larger is always better.
func normalize(profiles []rfm.Profile) [][3]float64 {
	var maxR, maxF, maxM float64
	for _, p := range profiles {
		maxR = math.Max(maxR, float64(p.Recency))
		maxF = math.Max(maxF, float64(p.Frequency))
		maxM = math.Max(maxM, p.Monetary)
	}

	points := make([][3]float64, len(profiles))
	for i, p := range profiles {
		if maxR > 0 {
			points[i][0] = 1 - float64(p.Recency)/maxR
		} else {
			points[i][0] = 1
		}
		if maxF > 0 {
			points[i][1] = float64(p.Frequency) / maxF
		}
		if maxM > 0 {
			points[i][2] = p.Monetary / maxM
		}
	}
	return points
}

// seed picks the first centroid at random and each remaining one as the
// point farthest from those already chosen. Farthest-point seeding keeps
// well-separated groups from sharing a centroid no matter where the
// random first pick lands.
func seed(rng *rand.Rand, points [][3]float64, k int) [][3]float64 {
	centroids := make([][3]float64, 0, k)
	centroids = append(centroids, points[rng.Intn(len(points))])

	for len(centroids) < k {
		bestIdx, bestDist := 0, -1.0
		for i, pt := range points {
			d := math.MaxFloat64
			for _, ct := range centroids {
				var dist float64
				for dim := 0; dim < 3; dim++ {
					diff := pt[dim] - ct[dim]
					dist += diff * diff
				}
				if dist < d {
					d = dist
				}
			}
			if d > bestDist {
				bestIdx, bestDist = i, d
			}
		}
		centroids = append(centroids, points[bestIdx])
	}
	return centroids
}

func nearest(pt [3]float64, centroids [][3]float64) int {
	best, bestDist := 0, math.MaxFloat64
	for c, ct := range centroids {
		var dist float64
		for d := 0; d < 3; d++ {
			diff := pt[d] - ct[d]
			dist += diff * diff
		}
		if dist < bestDist {
			best, bestDist = c, dist
		}
	}
	return best
}

// rankByValue orders raw cluster indexes by normalized monetary plus
// frequency, descending, and returns the raw-to-tier mapping.
func rankByValue(centroids [][3]float64) []int {
	order := make([]int, len(centroids))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		a, b := centroids[order[i]], centroids[order[j]]
		return a[2]+a[1] > b[2]+b[1]
	})

	rank := make([]int, len(centroids))
	for tier, raw := range order {
		rank[raw] = tier
	}
	return rank
}

func summarize(tier int, members []int, profiles []rfm.Profile) Centroid {
	var r, f, m, clv float64
	for _, i := range members {
		p := profiles[i]
		r += float64(p.Recency)
		f += float64(p.Frequency)
		m += p.Monetary
		clv += float64(p.CLV)
	}
	n := float64(len(members))
	return Centroid{
		Cluster:      tier,
		Label:        tierLabels[tier],
		Size:         len(members),
		AvgRecency:   math.Round(r/n*100) / 100,
		AvgFrequency: math.Round(f/n*100) / 100,
		AvgMonetary:  math.Round(m/n*100) / 100,
		AvgCLV:       math.Round(clv/n*100) / 100,
	}
}
