package messaging

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/okonomi/internal/accounting/protocol"
	utbetalingdomain "github.com/smallbiznis/okonomi/internal/utbetaling/domain"
)

// OrderMessage is a payment order as handed to the disbursement system.
type OrderMessage struct {
	OrderID           snowflake.ID                 `json:"oppdragId"`
	SakID             int64                        `json:"sakId"`
	DecisionID        string                       `json:"vedtakId"`
	BenefitType       utbetalingdomain.BenefitType `json:"ytelse"`
	RecipientID       string                       `json:"mottaker"`
	PreparerIdent     string                       `json:"saksbehandler"`
	PreparerUnit      string                       `json:"saksbehandlerEnhet"`
	ApproverIdent     string                       `json:"attestant"`
	ApproverUnit      string                       `json:"attestantEnhet"`
	ReconciliationKey time.Time                    `json:"avstemmingsnokkel"`
	Lines             []OrderLineMessage           `json:"linjer"`
}

type OrderLineMessage struct {
	LineID     snowflake.ID                     `json:"linjeId"`
	ReplacesID *snowflake.ID                    `json:"refLinjeId,omitempty"`
	Kind       utbetalingdomain.LineKind        `json:"type"`
	From       protocol.Date                    `json:"fom"`
	To         *protocol.Date                   `json:"tom,omitempty"`
	Amount     *protocol.Amount                 `json:"belop,omitempty"`
	ClassCode  string                           `json:"klassifikasjon"`
	Timing     utbetalingdomain.ExecutionTiming `json:"utforing"`
}

// NewOrderMessage maps a persisted order onto its wire shape.
func NewOrderMessage(order utbetalingdomain.PaymentOrder) OrderMessage {
	msg := OrderMessage{
		OrderID:           order.ID,
		SakID:             order.SakID,
		DecisionID:        order.DecisionID,
		BenefitType:       order.BenefitType,
		RecipientID:       order.RecipientID,
		PreparerIdent:     order.PreparerIdent,
		PreparerUnit:      order.PreparerUnit,
		ApproverIdent:     order.ApproverIdent,
		ApproverUnit:      order.ApproverUnit,
		ReconciliationKey: order.ReconciliationKey.UTC(),
		Lines:             make([]OrderLineMessage, 0, len(order.Lines)),
	}
	for _, l := range order.Lines {
		line := OrderLineMessage{
			LineID:     l.ID,
			ReplacesID: l.ReplacesID,
			Kind:       l.Kind,
			From:       protocol.NewDate(l.PeriodFrom),
			ClassCode:  l.ClassCode,
			Timing:     l.Timing,
		}
		if l.PeriodTo != nil {
			to := protocol.NewDate(*l.PeriodTo)
			line.To = &to
		}
		if l.Amount != nil {
			amount := protocol.AmountFromMinor(*l.Amount)
			line.Amount = &amount
		}
		msg.Lines = append(msg.Lines, line)
	}
	return msg
}

// ReceiptMessage is the disbursement system's verdict on an order.
type ReceiptMessage struct {
	OrderID    snowflake.ID     `json:"oppdragId"`
	Message    protocol.Message `json:"mmel"`
	OccurredAt time.Time        `json:"tidspunkt"`
}

// ClaimMessage is an unsolicited claim from the accounting system.
type ClaimMessage struct {
	Detail protocol.ClaimDetail `json:"detaljertkravgrunnlag"`
}

// ClaimStatusMessage is a status notice from the accounting system.
type ClaimStatusMessage struct {
	Notice protocol.ClaimStatusNotice `json:"endringKravOgVedtakstatus"`
}
