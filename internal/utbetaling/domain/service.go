package domain

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// RecordPaymentEventRequest appends an outcome reported by the disbursement
// system. Status may be left empty when ReceiptCode is set; it is then
// derived from the code.
type RecordPaymentEventRequest struct {
	OrderID            snowflake.ID    `json:"order_id"`
	Status             PaymentStatus   `json:"status,omitempty"`
	OccurredAt         time.Time       `json:"occurred_at"`
	ReceiptCode        *string         `json:"receipt_code,omitempty"`
	ReceiptDescription *string         `json:"receipt_description,omitempty"`
	Acknowledgement    json.RawMessage `json:"acknowledgement,omitempty"`
}

type Service interface {
	CreatePaymentOrder(ctx context.Context, decision Decision) (*PaymentOrder, error)
	RecordPaymentEvent(ctx context.Context, req RecordPaymentEventRequest) (*PaymentEvent, error)
	GetPaymentOrder(ctx context.Context, id snowflake.ID) (*PaymentOrder, error)
	ListPaymentOrders(ctx context.Context, recipientID string) ([]PaymentOrder, error)
}

// Repository exposes inserts and reads only. Orders, lines and events are
// never updated or deleted.
type Repository interface {
	InsertOrder(ctx context.Context, db *gorm.DB, order *PaymentOrder) error
	InsertLines(ctx context.Context, db *gorm.DB, lines []PaymentLine) error
	InsertEvent(ctx context.Context, db *gorm.DB, event *PaymentEvent) error
	FindOrderByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*PaymentOrder, error)
	FindOrderByDecisionID(ctx context.Context, db *gorm.DB, decisionID string) (*PaymentOrder, error)
	ListOrdersByRecipient(ctx context.Context, db *gorm.DB, recipientID string) ([]*PaymentOrder, error)
	ListLines(ctx context.Context, db *gorm.DB, orderIDs []snowflake.ID) ([]PaymentLine, error)
	ListEvents(ctx context.Context, db *gorm.DB, orderIDs []snowflake.ID) ([]PaymentEvent, error)
}

// Dispatcher hands a persisted order to the disbursement system.
type Dispatcher interface {
	Dispatch(ctx context.Context, order PaymentOrder) error
}

// DispatchError means the order was stored but not handed over. The order
// stays RECEIVED.
type DispatchError struct {
	OrderID snowflake.ID
	Err     error
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("dispatch payment order %s: %v", e.OrderID, e.Err)
}

func (e *DispatchError) Unwrap() error { return e.Err }
