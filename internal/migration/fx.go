package migration

import (
	"github.com/smallbiznis/insight/internal/config"
	datasetdomain "github.com/smallbiznis/insight/internal/dataset/domain"
	"github.com/smallbiznis/insight/internal/seed"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config, datasets datasetdomain.Service, log *zap.Logger) error {
		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}

		if err := RunMigrations(sqlDB, cfg.DBType); err != nil {
			return err
		}

		if cfg.SeedDemoDataset {
			return seed.EnsureDemoDataset(conn, datasets, log)
		}
		return nil
	}),
)
