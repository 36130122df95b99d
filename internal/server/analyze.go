package server

import (
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/insight/internal/observability/logger"
	"go.uber.org/zap"
)

// maxUploadBytes caps analysis uploads at 10 MiB.
const maxUploadBytes = 10 << 20

// Analyze accepts a multipart CSV or XLSX upload and returns the full
// analysis report without persisting anything.
func (s *Server) Analyze(c *gin.Context) {
	filename, content, err := readUploadedFile(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	result, err := s.reportSvc.AnalyzeUpload(c.Request.Context(), filename, content)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// maxSampleCustomers bounds user-supplied sample sizes.
const maxSampleCustomers = 5000

// AnalyzeSample returns a report over freshly generated synthetic data.
// Optional count and seed query params make runs sizable and repeatable.
func (s *Server) AnalyzeSample(c *gin.Context) {
	var count int
	if raw := c.Query("count"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > maxSampleCustomers {
			AbortWithError(c, ErrInvalidRequest)
			return
		}
		count = parsed
	}

	var seed int64
	if raw := c.Query("seed"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			AbortWithError(c, ErrInvalidRequest)
			return
		}
		seed = parsed
	}

	result, err := s.reportSvc.AnalyzeSample(c.Request.Context(), count, seed)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// AnalyzeDataset recomputes the report for a stored dataset.
func (s *Server) AnalyzeDataset(c *gin.Context) {
	datasetID := c.Param("id")
	c.Set("dataset_id", datasetID)

	ctx := c.Request.Context()
	token, ok, err := s.analyzeLimiter.TryLockDataset(ctx, datasetID)
	if err != nil {
		logger.FromContext(ctx).Warn("dataset analysis lock failed", zap.Error(err))
		AbortWithError(c, ErrServiceUnavailable)
		return
	}
	if !ok {
		denyAnalyze(c, "dataset-concurrency", s)
		return
	}
	defer func() {
		if err := s.analyzeLimiter.ReleaseDataset(ctx, datasetID, token); err != nil {
			logger.FromContext(ctx).Warn("dataset analysis unlock failed", zap.Error(err))
		}
	}()

	result, err := s.reportSvc.AnalyzeDataset(ctx, datasetID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// AnalyzeRateLimit applies the per-client token bucket to the analysis
// endpoints. Without redis configured it is a no-op.
func (s *Server) AnalyzeRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.analyzeLimiter == nil || !s.analyzeLimiter.Enabled() {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		result, err := s.analyzeLimiter.AllowClient(ctx, c.ClientIP())
		if err != nil {
			logger.FromContext(ctx).Warn("analyze rate limit check failed", zap.Error(err))
			AbortWithError(c, ErrServiceUnavailable)
			return
		}
		if !result.Allowed {
			retryAfter := int(result.RetryAfter.Seconds())
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			denyAnalyze(c, "client-rate", s)
			return
		}

		s.obsMetrics.RecordRateLimitAllowed(ctx, normalizeEndpoint(c))
		c.Next()
	}
}

func denyAnalyze(c *gin.Context, reason string, s *Server) {
	ctx := c.Request.Context()
	logger.FromContext(ctx).Warn("analyze rate limit exceeded",
		zap.String("reason", reason),
		zap.String("endpoint", normalizeEndpoint(c)),
	)
	s.obsMetrics.RecordRateLimitDenied(ctx, normalizeEndpoint(c), reason)
	AbortWithError(c, ErrRateLimited)
}

func normalizeEndpoint(c *gin.Context) string {
	endpoint := c.FullPath()
	if endpoint == "" {
		endpoint = c.Request.URL.Path
	}
	return endpoint
}

func readUploadedFile(c *gin.Context) (string, []byte, error) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return "", nil, ErrInvalidRequest
	}
	if fileHeader.Size > maxUploadBytes {
		return "", nil, ErrInvalidRequest
	}

	file, err := fileHeader.Open()
	if err != nil {
		return "", nil, ErrInvalidRequest
	}
	defer file.Close()

	content, err := io.ReadAll(io.LimitReader(file, maxUploadBytes+1))
	if err != nil {
		return "", nil, ErrInternal
	}
	if len(content) > maxUploadBytes {
		return "", nil, ErrInvalidRequest
	}

	return fileHeader.Filename, content, nil
}
