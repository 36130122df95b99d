package seed

import (
	"context"
	"errors"
	"math/rand"
	"time"

	datasetdomain "github.com/smallbiznis/insight/internal/dataset/domain"
	"github.com/smallbiznis/insight/internal/generator"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	demoDatasetName = "Demo Dataset"
	demoCustomers   = 120
	demoSeed        = 20240101
)

// EnsureDemoDataset stores one synthetic dataset on first startup so the
// API is explorable before any upload. Generation is seeded, so fresh
// installs all get the same demo rows.
func EnsureDemoDataset(db *gorm.DB, datasets datasetdomain.Service, log *zap.Logger) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	ctx := context.Background()

	var count int64
	if err := db.WithContext(ctx).
		Model(&datasetdomain.Dataset{}).
		Where("name = ? AND source = ?", demoDatasetName, datasetdomain.SourceSynthetic).
		Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	txns := generator.New(zap.NewNop()).Generate(rand.New(rand.NewSource(demoSeed)), demoCustomers, now)

	created, err := datasets.CreateSynthetic(ctx, demoDatasetName, txns)
	if err != nil {
		return err
	}

	log.Info("seeded demo dataset",
		zap.String("slug", created.Slug),
		zap.Int("rows", created.RowCount),
	)
	return nil
}
