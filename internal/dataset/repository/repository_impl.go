package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/insight/internal/dataset/domain"
	"github.com/smallbiznis/insight/pkg/db/pagination"
	"gorm.io/gorm"
)

const insertBatchSize = 500

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, dataset *domain.Dataset, txns []domain.Transaction) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(dataset).Error; err != nil {
			return err
		}
		if len(txns) == 0 {
			return nil
		}
		return tx.CreateInBatches(txns, insertBatchSize).Error
	})
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Dataset, error) {
	var dataset domain.Dataset
	err := db.WithContext(ctx).
		Model(&domain.Dataset{}).
		Where("id = ?", id).
		Limit(1).
		Find(&dataset).Error
	if err != nil {
		return nil, err
	}
	if dataset.ID == 0 {
		return nil, nil
	}
	return &dataset, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, page pagination.Pagination) ([]*domain.Dataset, error) {
	var datasets []*domain.Dataset
	stmt := db.WithContext(ctx).Model(&domain.Dataset{})
	if page.PageToken != "" {
		cursor, err := pagination.DecodeCursor(page.PageToken)
		if err == nil && cursor.CreatedAt != "" {
			stmt = stmt.Where("created_at < ?", cursor.CreatedAt)
		}
	}
	if page.PageSize > 0 {
		// one extra row to detect another page
		stmt = stmt.Limit(page.PageSize + 1)
	}
	err := stmt.
		Order("created_at desc, id desc").
		Find(&datasets).Error
	if err != nil {
		return nil, err
	}
	return datasets, nil
}

func (r *repo) Transactions(ctx context.Context, db *gorm.DB, datasetID snowflake.ID) ([]domain.Transaction, error) {
	var txns []domain.Transaction
	err := db.WithContext(ctx).
		Model(&domain.Transaction{}).
		Where("dataset_id = ?", datasetID).
		Order("date desc").
		Find(&txns).Error
	if err != nil {
		return nil, err
	}
	return txns, nil
}
