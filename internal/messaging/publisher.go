package messaging

import (
	"context"

	utbetalingdomain "github.com/smallbiznis/okonomi/internal/utbetaling/domain"
)

// OrderPublisher hands payment orders to the disbursement system.
type OrderPublisher struct {
	publisher Publisher
	subject   string
}

func NewOrderPublisher(publisher Publisher, subject string) *OrderPublisher {
	return &OrderPublisher{publisher: publisher, subject: subject}
}

func (p *OrderPublisher) Dispatch(ctx context.Context, order utbetalingdomain.PaymentOrder) error {
	return p.publisher.Publish(ctx, p.subject, NewOrderMessage(order))
}

var _ utbetalingdomain.Dispatcher = (*OrderPublisher)(nil)
