package dataset

import (
	"github.com/smallbiznis/insight/internal/dataset/repository"
	"github.com/smallbiznis/insight/internal/dataset/service"
	"go.uber.org/fx"
)

var Module = fx.Module("dataset.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
