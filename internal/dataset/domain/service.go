package domain

import (
	"context"
	"errors"

	"github.com/smallbiznis/insight/pkg/db/pagination"
)

type CreateDatasetRequest struct {
	Name     string
	Filename string
	Content  []byte
}

type GetDatasetRequest struct {
	ID string
}

type ListDatasetRequest struct {
	PageToken string
	PageSize  int32
}

type ListDatasetResponse struct {
	pagination.PageInfo
	Datasets []Dataset `json:"datasets"`
}

type Service interface {
	// Parse validates and decodes an uploaded file without persisting it.
	Parse(ctx context.Context, filename string, content []byte) ([]Transaction, error)
	Create(ctx context.Context, req CreateDatasetRequest) (Dataset, error)
	CreateSynthetic(ctx context.Context, name string, txns []Transaction) (Dataset, error)
	GetByID(ctx context.Context, req GetDatasetRequest) (Dataset, error)
	List(ctx context.Context, req ListDatasetRequest) (ListDatasetResponse, error)
	Transactions(ctx context.Context, req GetDatasetRequest) ([]Transaction, error)
	// Template returns the canonical upload template as CSV.
	Template() []byte
}

var (
	ErrInvalidID          = errors.New("invalid_id")
	ErrNotFound           = errors.New("not_found")
	ErrEmptyFile          = errors.New("empty_file")
	ErrUnsupportedFormat  = errors.New("unsupported_format")
	ErrMissingColumns     = errors.New("missing_columns")
	ErrNoRows             = errors.New("no_rows")
	ErrInvalidTransaction = errors.New("invalid_transaction")
)
