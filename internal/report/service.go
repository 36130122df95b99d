package report

import (
	"context"
	"math/rand"
	"time"

	"github.com/smallbiznis/insight/internal/basket"
	"github.com/smallbiznis/insight/internal/budget"
	"github.com/smallbiznis/insight/internal/cache"
	"github.com/smallbiznis/insight/internal/clock"
	"github.com/smallbiznis/insight/internal/config"
	datasetdomain "github.com/smallbiznis/insight/internal/dataset/domain"
	"github.com/smallbiznis/insight/internal/generator"
	"github.com/smallbiznis/insight/internal/lifecycle"
	"github.com/smallbiznis/insight/internal/observability/metrics"
	"github.com/smallbiznis/insight/internal/rfm"
	"github.com/smallbiznis/insight/internal/segmentation"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// sampleCustomerCount sizes the synthetic base used for sample reports
// and for the offline fallback.
const sampleCustomerCount = 200

const datasetReportTTL = 5 * time.Minute

type Service struct {
	log       *zap.Logger
	clock     clock.Clock
	metrics   *metrics.Metrics
	tracer    trace.Tracer
	remote    *RemoteClient
	generator *generator.Generator
	rfm       *rfm.Calculator
	segments  *segmentation.Engine
	basket    *basket.Miner
	lifecycle *lifecycle.Modeler
	budget    budget.Allocator
	datasets  datasetdomain.Service
	cache     cache.Cache[string, Report]
}

type Params struct {
	fx.In

	Config    config.Config
	Log       *zap.Logger
	Metrics   *metrics.Metrics `optional:"true"`
	Clock     clock.Clock
	Generator *generator.Generator
	RFM       *rfm.Calculator
	Segments  *segmentation.Engine
	Basket    *basket.Miner
	Lifecycle *lifecycle.Modeler
	Budget    budget.Allocator
	Datasets  datasetdomain.Service
}

func New(p Params) *Service {
	var remote *RemoteClient
	if p.Config.RemoteAnalyzeURL != "" {
		remote = NewRemoteClient(p.Config.RemoteAnalyzeURL, p.Config.RemoteAnalyzeTimeout, p.Log)
	}

	return &Service{
		log:       p.Log.Named("report.service"),
		clock:     p.Clock,
		metrics:   p.Metrics,
		tracer:    otel.Tracer("insight/report"),
		remote:    remote,
		generator: p.Generator,
		rfm:       p.RFM,
		segments:  p.Segments,
		basket:    p.Basket,
		lifecycle: p.Lifecycle,
		budget:    p.Budget,
		datasets:  p.Datasets,
		cache:     cache.NewTTLCache[string, Report](),
	}
}

var Module = fx.Module("report.service",
	fx.Provide(New),
)

// AnalyzeUpload analyzes an uploaded file. With a remote analyzer
// configured the upload goes there first; if the remote fails, one local
// run over synthetic data is served instead, marked Offline. The remote
// is never retried within a request.
func (s *Service) AnalyzeUpload(ctx context.Context, filename string, content []byte) (Report, error) {
	if s.remote.Enabled() {
		report, err := s.remote.Analyze(ctx, filename, content)
		if err == nil {
			s.metrics.RecordPipelineRun(ctx, "remote", "ok")
			return report, nil
		}

		s.log.Warn("remote analyzer unavailable, serving synthetic fallback", zap.Error(err))
		s.metrics.RecordFallback(ctx, "remote_unavailable")

		report, runErr := s.Run(ctx, s.syntheticTransactions())
		if runErr != nil {
			return Report{}, runErr
		}
		report.Offline = true
		s.metrics.RecordPipelineRun(ctx, "fallback", "ok")
		return report, nil
	}

	txns, err := s.datasets.Parse(ctx, filename, content)
	if err != nil {
		return Report{}, err
	}

	report, err := s.Run(ctx, txns)
	if err != nil {
		s.metrics.RecordPipelineRun(ctx, "local", "error")
		return Report{}, err
	}
	s.metrics.RecordPipelineRun(ctx, "local", "ok")
	return report, nil
}

// AnalyzeSample produces a report over freshly generated synthetic data.
// count <= 0 uses the default base size; seed 0 draws from the clock so
// repeated calls differ.
func (s *Service) AnalyzeSample(ctx context.Context, count int, seed int64) (Report, error) {
	if count <= 0 {
		count = sampleCustomerCount
	}
	if seed == 0 {
		seed = s.clock.Now().UnixNano()
	}

	now := s.clock.Now()
	txns := s.generator.Generate(rand.New(rand.NewSource(seed)), count, now)

	report, err := s.Run(ctx, txns)
	if err != nil {
		return Report{}, err
	}
	s.metrics.RecordPipelineRun(ctx, "sample", "ok")
	return report, nil
}

// AnalyzeDataset runs the local pipeline over a stored dataset's rows.
// Results are cached briefly since stored rows are immutable.
func (s *Service) AnalyzeDataset(ctx context.Context, datasetID string) (Report, error) {
	if cached, ok := s.cache.Get(datasetID); ok {
		return cached, nil
	}

	txns, err := s.datasets.Transactions(ctx, datasetdomain.GetDatasetRequest{ID: datasetID})
	if err != nil {
		return Report{}, err
	}

	report, err := s.Run(ctx, txns)
	if err != nil {
		s.metrics.RecordPipelineRun(ctx, "dataset", "error")
		return Report{}, err
	}
	s.metrics.RecordPipelineRun(ctx, "dataset", "ok")

	s.cache.Set(datasetID, report, datasetReportTTL)
	return report, nil
}

// Run executes the local pipeline end to end over the given rows.
func (s *Service) Run(ctx context.Context, txns []datasetdomain.Transaction) (Report, error) {
	if len(txns) == 0 {
		return Report{}, ErrEmptyDataset
	}

	ctx, span := s.tracer.Start(ctx, "report.Run")
	defer span.End()

	now := s.clock.Now()
	rng := rand.New(rand.NewSource(now.UnixNano()))

	profiles := s.stageProfiles(ctx, txns, now)
	centroids := s.stageSegments(ctx, rng, profiles)
	rules := s.stageRules(ctx, txns)
	transitions := s.stageTransitions(ctx, profiles)
	channels := s.budget.Allocate(profiles)

	return Report{
		AnalyzedData: profiles,
		Centroids:    centroids,
		Rules:        rules,
		Transitions:  transitions,
		Budget:       channels,
	}, nil
}

func (s *Service) stageProfiles(ctx context.Context, txns []datasetdomain.Transaction, now time.Time) []rfm.Profile {
	start := s.clock.Now()
	profiles := s.rfm.ComputeProfiles(txns, now)
	s.metrics.RecordStageDuration(ctx, "rfm", s.clock.Now().Sub(start))
	return profiles
}

func (s *Service) stageSegments(ctx context.Context, rng *rand.Rand, profiles []rfm.Profile) []segmentation.Centroid {
	start := s.clock.Now()
	centroids := s.segments.Cluster(rng, profiles)
	s.metrics.RecordStageDuration(ctx, "segmentation", s.clock.Now().Sub(start))
	return centroids
}

func (s *Service) stageRules(ctx context.Context, txns []datasetdomain.Transaction) []basket.Rule {
	start := s.clock.Now()
	rules := s.basket.Mine(txns)
	s.metrics.RecordStageDuration(ctx, "basket", s.clock.Now().Sub(start))
	return rules
}

func (s *Service) stageTransitions(ctx context.Context, profiles []rfm.Profile) []lifecycle.Transition {
	start := s.clock.Now()
	transitions := s.lifecycle.Transitions(profiles)
	s.metrics.RecordStageDuration(ctx, "lifecycle", s.clock.Now().Sub(start))
	return transitions
}

func (s *Service) syntheticTransactions() []datasetdomain.Transaction {
	now := s.clock.Now()
	rng := rand.New(rand.NewSource(now.UnixNano()))
	return s.generator.Generate(rng, sampleCustomerCount, now)
}
