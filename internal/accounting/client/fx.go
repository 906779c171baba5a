package client

import (
	"github.com/smallbiznis/okonomi/internal/config"
	tilbakedomain "github.com/smallbiznis/okonomi/internal/tilbakekreving/domain"
	"go.uber.org/fx"
)

var Module = fx.Module("accounting.client",
	fx.Provide(func(cfg config.Config) Transport {
		return NewHTTPTransport(cfg.Accounting.BaseURL, cfg.Accounting.Timeout)
	}),
	fx.Provide(New),
	fx.Provide(func(c *Client) tilbakedomain.AccountingClient { return c }),
)
