package report

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/smallbiznis/insight/internal/basket"
	"github.com/smallbiznis/insight/internal/budget"
	"github.com/smallbiznis/insight/internal/clock"
	"github.com/smallbiznis/insight/internal/config"
	datasetdomain "github.com/smallbiznis/insight/internal/dataset/domain"
	"github.com/smallbiznis/insight/internal/generator"
	"github.com/smallbiznis/insight/internal/lifecycle"
	"github.com/smallbiznis/insight/internal/rfm"
	"github.com/smallbiznis/insight/internal/segmentation"
)

// fakeDatasetService serves canned rows so report tests need no database.
type fakeDatasetService struct {
	datasetdomain.Service

	parsed       []datasetdomain.Transaction
	parseErr     error
	stored       []datasetdomain.Transaction
	transactions int
}

func (f *fakeDatasetService) Parse(_ context.Context, _ string, _ []byte) ([]datasetdomain.Transaction, error) {
	return f.parsed, f.parseErr
}

func (f *fakeDatasetService) Transactions(_ context.Context, _ datasetdomain.GetDatasetRequest) ([]datasetdomain.Transaction, error) {
	f.transactions++
	return f.stored, nil
}

func newTestService(t *testing.T, cfg config.Config, datasets datasetdomain.Service) *Service {
	t.Helper()

	log := zap.NewNop()
	holder := config.NewStaticAnalyticsConfigHolder(config.DefaultAnalyticsConfig())
	fixed := clock.NewFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))

	return New(Params{
		Config:    cfg,
		Log:       log,
		Clock:     fixed,
		Generator: generator.New(log),
		RFM:       rfm.New(log),
		Segments:  segmentation.New(segmentation.Params{Log: log, Holder: holder}),
		Basket:    basket.New(basket.Params{Log: log, Holder: holder}),
		Lifecycle: lifecycle.New(lifecycle.Params{Log: log, Holder: holder}),
		Budget:    budget.New(budget.Params{Log: log, Holder: holder}),
		Datasets:  datasets,
	})
}

func sampleRows() []datasetdomain.Transaction {
	base := time.Date(2025, 5, 20, 0, 0, 0, 0, time.UTC)
	var rows []datasetdomain.Transaction
	for c := 0; c < 8; c++ {
		id := string(rune('a' + c))
		for i := 0; i < 3+c; i++ {
			rows = append(rows, datasetdomain.Transaction{
				CustomerID: id,
				Amount:     float64(40 + 25*c),
				Date:       base.AddDate(0, 0, -7*i),
				Category:   []string{"Electronics", "Gadgets", "Home"}[i%3],
				Channel:    "Online",
			})
		}
	}
	return rows
}

func TestRunProducesFullReport(t *testing.T) {
	s := newTestService(t, config.Config{}, &fakeDatasetService{})

	report, err := s.Run(context.Background(), sampleRows())
	require.NoError(t, err)

	assert.Len(t, report.AnalyzedData, 8)
	assert.NotEmpty(t, report.Centroids)
	assert.Len(t, report.Transitions, 11)
	assert.Len(t, report.Budget, 5)
	assert.False(t, report.Offline)

	for _, p := range report.AnalyzedData {
		assert.NotEmpty(t, p.Segment)
	}
}

func TestRunEmptyDataset(t *testing.T) {
	s := newTestService(t, config.Config{}, &fakeDatasetService{})

	_, err := s.Run(context.Background(), nil)
	assert.ErrorIs(t, err, ErrEmptyDataset)
}

func TestAnalyzeUploadLocal(t *testing.T) {
	fake := &fakeDatasetService{parsed: sampleRows()}
	s := newTestService(t, config.Config{}, fake)

	report, err := s.AnalyzeUpload(context.Background(), "data.csv", []byte("ignored"))
	require.NoError(t, err)
	assert.False(t, report.Offline)
	assert.Len(t, report.AnalyzedData, 8)
}

func TestAnalyzeUploadRemoteSuccess(t *testing.T) {
	var calls int
	remote := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		require.NoError(t, r.ParseMultipartForm(1<<20))
		_, _, err := r.FormFile("file")
		require.NoError(t, err)

		json.NewEncoder(w).Encode(Report{
			AnalyzedData: []rfm.Profile{{CustomerID: "remote-1", Segment: "Gold"}},
		})
	}))
	defer remote.Close()

	s := newTestService(t, config.Config{RemoteAnalyzeURL: remote.URL}, &fakeDatasetService{})

	report, err := s.AnalyzeUpload(context.Background(), "data.csv", []byte("rows"))
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.False(t, report.Offline)
	require.Len(t, report.AnalyzedData, 1)
	assert.Equal(t, "remote-1", report.AnalyzedData[0].CustomerID)
}

func TestAnalyzeUploadFallsBackOnce(t *testing.T) {
	var calls int
	remote := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer remote.Close()

	s := newTestService(t, config.Config{RemoteAnalyzeURL: remote.URL}, &fakeDatasetService{})

	report, err := s.AnalyzeUpload(context.Background(), "data.csv", []byte("rows"))
	require.NoError(t, err)

	// The remote is tried exactly once; the fallback report is synthetic
	// and flagged offline.
	assert.Equal(t, 1, calls)
	assert.True(t, report.Offline)
	assert.NotEmpty(t, report.AnalyzedData)
	assert.NotEmpty(t, report.Transitions)
}

func TestAnalyzeSample(t *testing.T) {
	s := newTestService(t, config.Config{}, &fakeDatasetService{})

	report, err := s.AnalyzeSample(context.Background(), 0, 0)
	require.NoError(t, err)
	assert.False(t, report.Offline)
	assert.NotEmpty(t, report.AnalyzedData)
	assert.NotEmpty(t, report.Centroids)
}

func TestAnalyzeSampleSeeded(t *testing.T) {
	s := newTestService(t, config.Config{}, &fakeDatasetService{})

	a, err := s.AnalyzeSample(context.Background(), 30, 9)
	require.NoError(t, err)
	b, err := s.AnalyzeSample(context.Background(), 30, 9)
	require.NoError(t, err)

	assert.Equal(t, a.AnalyzedData, b.AnalyzedData)
	assert.Len(t, countCustomers(a), 30)
}

func countCustomers(r Report) map[string]struct{} {
	out := map[string]struct{}{}
	for _, p := range r.AnalyzedData {
		out[p.CustomerID] = struct{}{}
	}
	return out
}

func TestAnalyzeDatasetCaches(t *testing.T) {
	fake := &fakeDatasetService{stored: sampleRows()}
	s := newTestService(t, config.Config{}, fake)

	first, err := s.AnalyzeDataset(context.Background(), "42")
	require.NoError(t, err)

	second, err := s.AnalyzeDataset(context.Background(), "42")
	require.NoError(t, err)

	assert.Equal(t, 1, fake.transactions)
	assert.Equal(t, first.AnalyzedData, second.AnalyzedData)
}
