package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/insight/internal/basket"
	"github.com/smallbiznis/insight/internal/budget"
	"github.com/smallbiznis/insight/internal/clock"
	"github.com/smallbiznis/insight/internal/config"
	"github.com/smallbiznis/insight/internal/dataset"
	datasetdomain "github.com/smallbiznis/insight/internal/dataset/domain"
	"github.com/smallbiznis/insight/internal/generator"
	"github.com/smallbiznis/insight/internal/lifecycle"
	"github.com/smallbiznis/insight/internal/migration"
	"github.com/smallbiznis/insight/internal/observability"
	obsmiddleware "github.com/smallbiznis/insight/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/insight/internal/observability/metrics"
	obstracing "github.com/smallbiznis/insight/internal/observability/tracing"
	"github.com/smallbiznis/insight/internal/ratelimit"
	"github.com/smallbiznis/insight/internal/report"
	"github.com/smallbiznis/insight/internal/rfm"
	"github.com/smallbiznis/insight/internal/segmentation"
	"go.uber.org/fx"
)

var Module = fx.Module("http.server",
	config.Module,
	clock.Module,
	fx.Provide(registerGin),
	dataset.Module,
	generator.Module,
	rfm.Module,
	segmentation.Module,
	basket.Module,
	lifecycle.Module,
	budget.Module,
	report.Module,
	ratelimit.Module,
	migration.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

// reportService is the slice of report.Service the handlers need.
type reportService interface {
	AnalyzeUpload(ctx context.Context, filename string, content []byte) (report.Report, error)
	AnalyzeSample(ctx context.Context, count int, seed int64) (report.Report, error)
	AnalyzeDataset(ctx context.Context, datasetID string) (report.Report, error)
}

type Server struct {
	engine         *gin.Engine
	cfg            config.Config
	clock          clock.Clock
	datasetSvc     datasetdomain.Service
	reportSvc      reportService
	obsMetrics     *obsmetrics.Metrics
	analyzeLimiter *ratelimit.AnalyzeLimiter
}

type ServerParams struct {
	fx.In

	Gin            *gin.Engine
	Cfg            config.Config
	Clock          clock.Clock
	DatasetSvc     datasetdomain.Service
	ReportSvc      *report.Service
	ObsMetrics     *obsmetrics.Metrics        `optional:"true"`
	AnalyzeLimiter *ratelimit.AnalyzeLimiter  `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:         p.Gin,
		cfg:            p.Cfg,
		clock:          p.Clock,
		datasetSvc:     p.DatasetSvc,
		reportSvc:      p.ReportSvc,
		obsMetrics:     p.ObsMetrics,
		analyzeLimiter: p.AnalyzeLimiter,
	}

	svc.registerAPIRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api")

	// -------- Analysis --------
	api.POST("/analyze", s.AnalyzeRateLimit(), s.Analyze)
	api.POST("/analyze/sample", s.AnalyzeRateLimit(), s.AnalyzeSample)

	// -------- Upload template --------
	api.GET("/template", s.Template)

	// -------- Datasets --------
	api.GET("/datasets", s.ListDatasets)
	api.POST("/datasets", s.CreateDataset)
	api.GET("/datasets/:id", s.GetDatasetByID)
	api.GET("/datasets/:id/transactions", s.ListDatasetTransactions)
	api.POST("/datasets/:id/analyze", s.AnalyzeRateLimit(), s.AnalyzeDataset)
	api.GET("/datasets/:id/report.pdf", s.AnalyzeRateLimit(), s.DatasetReportPDF)
}
