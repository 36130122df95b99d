package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	datasetdomain "github.com/smallbiznis/insight/internal/dataset/domain"
)

// CreateDataset persists an uploaded file as a named dataset.
func (s *Server) CreateDataset(c *gin.Context) {
	filename, content, err := readUploadedFile(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	name := strings.TrimSpace(c.PostForm("name"))
	if name == "" {
		name = filename
	}

	created, err := s.datasetSvc.Create(c.Request.Context(), datasetdomain.CreateDatasetRequest{
		Name:     name,
		Filename: filename,
		Content:  content,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.obsMetrics.RecordDatasetRows(c.Request.Context(), string(created.Source), created.RowCount)
	c.JSON(http.StatusCreated, created)
}

func (s *Server) ListDatasets(c *gin.Context) {
	query := queryPagination(c)

	result, err := s.datasetSvc.List(c.Request.Context(), datasetdomain.ListDatasetRequest{
		PageToken: query.PageToken,
		PageSize:  query.PageSize,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (s *Server) GetDatasetByID(c *gin.Context) {
	c.Set("dataset_id", c.Param("id"))

	found, err := s.datasetSvc.GetByID(c.Request.Context(), datasetdomain.GetDatasetRequest{ID: c.Param("id")})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, found)
}

func (s *Server) ListDatasetTransactions(c *gin.Context) {
	c.Set("dataset_id", c.Param("id"))

	txns, err := s.datasetSvc.Transactions(c.Request.Context(), datasetdomain.GetDatasetRequest{ID: c.Param("id")})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"transactions": txns})
}

// Template serves the canonical upload CSV.
func (s *Server) Template(c *gin.Context) {
	c.Header("Content-Disposition", `attachment; filename="template.csv"`)
	c.Data(http.StatusOK, "text/csv", s.datasetSvc.Template())
}
