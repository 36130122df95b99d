package server

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

type paginationQuery struct {
	PageToken string
	PageSize  int32
}

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

func queryPagination(c *gin.Context) paginationQuery {
	query := paginationQuery{
		PageToken: strings.TrimSpace(c.Query("page_token")),
		PageSize:  defaultPageSize,
	}

	if raw := strings.TrimSpace(c.Query("page_size")); raw != "" {
		if parsed, err := strconv.ParseInt(raw, 10, 32); err == nil && parsed > 0 {
			query.PageSize = int32(parsed)
		}
	}
	if query.PageSize > maxPageSize {
		query.PageSize = maxPageSize
	}
	return query
}
