package messaging

import (
	"context"
	"errors"

	"github.com/smallbiznis/okonomi/internal/config"
	utbetalingdomain "github.com/smallbiznis/okonomi/internal/utbetaling/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("messaging",
	fx.Provide(NewConnection),
	fx.Provide(providePublisher),
	fx.Provide(func(p Publisher, cfg config.Config) utbetalingdomain.Dispatcher {
		return NewOrderPublisher(p, cfg.NATS.OrderSubject)
	}),
	fx.Provide(NewHandlers),
	fx.Invoke(registerSubscriptions),
)

// NewConnection connects to NATS. Without a URL it returns nil outside
// production and an error in production.
func NewConnection(lc fx.Lifecycle, cfg config.Config, log *zap.Logger) (*Client, error) {
	if cfg.NATS.URL == "" {
		if cfg.IsProduction() {
			return nil, errors.New("NATS_URL is required in production")
		}
		log.Warn("NATS_URL not set, messaging disabled")
		return nil, nil
	}

	client, err := NewClient(Config{URL: cfg.NATS.URL, Name: cfg.NATS.ClientName}, log)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return client.Drain()
		},
	})
	return client, nil
}

func providePublisher(client *Client, log *zap.Logger) Publisher {
	if client == nil {
		return discardPublisher{log: log.Named("messaging.discard")}
	}
	return client
}

func registerSubscriptions(client *Client, cfg config.Config, h *Handlers) error {
	if client == nil {
		return nil
	}
	subs := []struct {
		subject string
		fn      func(context.Context, []byte) error
	}{
		{cfg.NATS.ReceiptSubject, h.HandleReceipt},
		{cfg.NATS.ClaimSubject, h.HandleClaim},
		{cfg.NATS.ClaimStatusSubject, h.HandleClaimStatus},
	}
	for _, s := range subs {
		if err := client.QueueSubscribe(s.subject, cfg.NATS.QueueGroup, h.Wrap(s.subject, s.fn)); err != nil {
			return err
		}
	}
	return nil
}
