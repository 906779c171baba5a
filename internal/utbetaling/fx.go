package utbetaling

import (
	"github.com/smallbiznis/okonomi/internal/config"
	"github.com/smallbiznis/okonomi/internal/utbetaling/domain"
	"github.com/smallbiznis/okonomi/internal/utbetaling/repository"
	"github.com/smallbiznis/okonomi/internal/utbetaling/service"
	"go.uber.org/fx"
)

var Module = fx.Module("utbetaling.service",
	fx.Provide(repository.Provide),
	fx.Provide(func(holder *config.ClassCodeConfigHolder) domain.CategoryLookup { return holder }),
	fx.Provide(service.NewService),
)
