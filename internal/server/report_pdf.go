package server

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	datasetdomain "github.com/smallbiznis/insight/internal/dataset/domain"
	"github.com/smallbiznis/insight/internal/report"
)

// DatasetReportPDF renders a stored dataset's analysis as a PDF.
func (s *Server) DatasetReportPDF(c *gin.Context) {
	datasetID := c.Param("id")
	c.Set("dataset_id", datasetID)

	ctx := c.Request.Context()

	found, err := s.datasetSvc.GetByID(ctx, datasetdomain.GetDatasetRequest{ID: datasetID})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	result, err := s.reportSvc.AnalyzeDataset(ctx, datasetID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	doc, err := report.RenderPDF("Customer Intelligence Report: "+found.Name, s.clock.Now(), result)
	if err != nil {
		AbortWithError(c, ErrInternal)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+found.Slug+`-report.pdf"`)
	c.Header("Content-Type", "application/pdf")
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, doc); err != nil {
		// Headers are already sent; nothing left to do but log via the
		// request middleware.
		_ = c.Error(err)
	}
}
