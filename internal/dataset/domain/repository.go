package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/insight/pkg/db/pagination"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, dataset *Dataset, txns []Transaction) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Dataset, error)
	List(ctx context.Context, db *gorm.DB, page pagination.Pagination) ([]*Dataset, error)
	Transactions(ctx context.Context, db *gorm.DB, datasetID snowflake.ID) ([]Transaction, error)
}
