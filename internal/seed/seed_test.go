package seed

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	datasetdomain "github.com/smallbiznis/insight/internal/dataset/domain"
	datasetrepository "github.com/smallbiznis/insight/internal/dataset/repository"
	datasetservice "github.com/smallbiznis/insight/internal/dataset/service"
)

func newSeedFixture(t *testing.T) (*gorm.DB, datasetdomain.Service) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&datasetdomain.Dataset{}, &datasetdomain.Transaction{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	svc := datasetservice.New(datasetservice.Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  datasetrepository.Provide(),
	})
	return db, svc
}

func TestEnsureDemoDataset(t *testing.T) {
	db, svc := newSeedFixture(t)

	require.NoError(t, EnsureDemoDataset(db, svc, zap.NewNop()))

	var count int64
	require.NoError(t, db.Model(&datasetdomain.Dataset{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	var demo datasetdomain.Dataset
	require.NoError(t, db.Where("name = ?", demoDatasetName).First(&demo).Error)
	assert.Equal(t, datasetdomain.SourceSynthetic, demo.Source)
	assert.Greater(t, demo.RowCount, 0)

	txns, err := svc.Transactions(context.Background(), datasetdomain.GetDatasetRequest{ID: demo.ID.String()})
	require.NoError(t, err)
	assert.Len(t, txns, demo.RowCount)
}

func TestEnsureDemoDatasetIdempotent(t *testing.T) {
	db, svc := newSeedFixture(t)

	require.NoError(t, EnsureDemoDataset(db, svc, zap.NewNop()))
	require.NoError(t, EnsureDemoDataset(db, svc, zap.NewNop()))

	var count int64
	require.NoError(t, db.Model(&datasetdomain.Dataset{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestEnsureDemoDatasetNilDB(t *testing.T) {
	_, svc := newSeedFixture(t)
	assert.Error(t, EnsureDemoDataset(nil, svc, zap.NewNop()))
}
