package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/smallbiznis/insight/internal/basket"
	"github.com/smallbiznis/insight/internal/budget"
	"github.com/smallbiznis/insight/internal/clock"
	"github.com/smallbiznis/insight/internal/config"
	datasetdomain "github.com/smallbiznis/insight/internal/dataset/domain"
	datasetrepository "github.com/smallbiznis/insight/internal/dataset/repository"
	datasetservice "github.com/smallbiznis/insight/internal/dataset/service"
	"github.com/smallbiznis/insight/internal/generator"
	"github.com/smallbiznis/insight/internal/lifecycle"
	"github.com/smallbiznis/insight/internal/report"
	"github.com/smallbiznis/insight/internal/rfm"
	"github.com/smallbiznis/insight/internal/segmentation"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&datasetdomain.Dataset{}, &datasetdomain.Transaction{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	log := zap.NewNop()
	holder := config.NewStaticAnalyticsConfigHolder(config.DefaultAnalyticsConfig())
	fixed := clock.NewFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))

	datasetSvc := datasetservice.New(datasetservice.Params{
		DB:    db,
		Log:   log,
		GenID: node,
		Repo:  datasetrepository.Provide(),
	})

	reportSvc := report.New(report.Params{
		Config:    config.Config{},
		Log:       log,
		Clock:     fixed,
		Generator: generator.New(log),
		RFM:       rfm.New(log),
		Segments:  segmentation.New(segmentation.Params{Log: log, Holder: holder}),
		Basket:    basket.New(basket.Params{Log: log, Holder: holder}),
		Lifecycle: lifecycle.New(lifecycle.Params{Log: log, Holder: holder}),
		Budget:    budget.New(budget.Params{Log: log, Holder: holder}),
		Datasets:  datasetSvc,
	})

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(ErrorHandlingMiddleware())

	return NewServer(ServerParams{
		Gin:        engine,
		Cfg:        config.Config{HTTPAddr: ":0"},
		Clock:      fixed,
		DatasetSvc: datasetSvc,
		ReportSvc:  reportSvc,
	})
}

func uploadRequest(t *testing.T, target, filename string, content []byte) *http.Request {
	t.Helper()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, target, &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func sampleCSV() []byte {
	var buf bytes.Buffer
	buf.WriteString("CustomerID,Amount,Date,Category,Channel\n")
	base := time.Date(2025, 5, 25, 0, 0, 0, 0, time.UTC)
	for c := 0; c < 6; c++ {
		for i := 0; i < 3; i++ {
			fmt.Fprintf(&buf, "CUST-%d,%d,%s,%s,Online\n",
				1000+c,
				50+10*c,
				base.AddDate(0, 0, -10*i-c).Format("2006-01-02"),
				[]string{"Electronics", "Gadgets"}[i%2],
			)
		}
	}
	return buf.Bytes()
}

func TestAnalyzeUploadEndpoint(t *testing.T) {
	s := newTestServer(t)

	w := httptest.NewRecorder()
	s.Engine().ServeHTTP(w, uploadRequest(t, "/api/analyze", "txns.csv", sampleCSV()))

	require.Equal(t, http.StatusOK, w.Code)

	var result report.Report
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Len(t, result.AnalyzedData, 6)
	assert.NotEmpty(t, result.Centroids)
	assert.Len(t, result.Budget, 5)
	assert.False(t, result.Offline)
}

func TestAnalyzeRejectsMissingFile(t *testing.T) {
	s := newTestServer(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/analyze", nil)
	s.Engine().ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "validation_error")
}

func TestAnalyzeRejectsUnsupportedFormat(t *testing.T) {
	s := newTestServer(t)

	w := httptest.NewRecorder()
	s.Engine().ServeHTTP(w, uploadRequest(t, "/api/analyze", "txns.pdf", []byte("nope")))

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAnalyzeSampleEndpoint(t *testing.T) {
	s := newTestServer(t)

	w := httptest.NewRecorder()
	s.Engine().ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/analyze/sample", nil))

	require.Equal(t, http.StatusOK, w.Code)

	var result report.Report
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.NotEmpty(t, result.AnalyzedData)
	assert.NotEmpty(t, result.Transitions)
}

func TestAnalyzeSampleSeededParams(t *testing.T) {
	s := newTestServer(t)

	w := httptest.NewRecorder()
	s.Engine().ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/analyze/sample?count=25&seed=4", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var result report.Report
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))

	customers := map[string]struct{}{}
	for _, p := range result.AnalyzedData {
		customers[p.CustomerID] = struct{}{}
	}
	assert.Len(t, customers, 25)
}

func TestAnalyzeSampleRejectsBadCount(t *testing.T) {
	s := newTestServer(t)

	w := httptest.NewRecorder()
	s.Engine().ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/analyze/sample?count=-3", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTemplateEndpoint(t *testing.T) {
	s := newTestServer(t)

	w := httptest.NewRecorder()
	s.Engine().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/template", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/csv")
	assert.Contains(t, w.Body.String(), "CustomerID,Amount,Date,Category,Channel")
}

func TestDatasetLifecycle(t *testing.T) {
	s := newTestServer(t)

	// Create from upload.
	w := httptest.NewRecorder()
	s.Engine().ServeHTTP(w, uploadRequest(t, "/api/datasets", "may.csv", sampleCSV()))
	require.Equal(t, http.StatusCreated, w.Code)

	var created datasetdomain.Dataset
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, datasetdomain.SourceUpload, created.Source)
	assert.Equal(t, 18, created.RowCount)
	assert.NotEmpty(t, created.Slug)

	id := created.ID.String()

	// Fetch it back.
	w = httptest.NewRecorder()
	s.Engine().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/datasets/"+id, nil))
	require.Equal(t, http.StatusOK, w.Code)

	// List includes it.
	w = httptest.NewRecorder()
	s.Engine().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/datasets", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), created.Slug)

	// Analyze the stored rows.
	w = httptest.NewRecorder()
	s.Engine().ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/datasets/"+id+"/analyze", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var result report.Report
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Len(t, result.AnalyzedData, 6)

	// PDF export.
	w = httptest.NewRecorder()
	s.Engine().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/datasets/"+id+"/report.pdf", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.NotZero(t, w.Body.Len())
}

func TestGetDatasetNotFound(t *testing.T) {
	s := newTestServer(t)

	w := httptest.NewRecorder()
	s.Engine().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/datasets/123456789", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetDatasetInvalidID(t *testing.T) {
	s := newTestServer(t)

	w := httptest.NewRecorder()
	s.Engine().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/datasets/not-a-number", nil))

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
