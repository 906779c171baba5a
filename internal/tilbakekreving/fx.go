package tilbakekreving

import (
	"github.com/smallbiznis/okonomi/internal/tilbakekreving/repository"
	"github.com/smallbiznis/okonomi/internal/tilbakekreving/service"
	"github.com/smallbiznis/okonomi/internal/tilbakekreving/vedtak"
	"go.uber.org/fx"
)

var Module = fx.Module("tilbakekreving.service",
	fx.Provide(repository.Provide),
	fx.Provide(vedtak.Provide),
	fx.Provide(service.NewService),
)
