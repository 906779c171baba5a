package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/smallbiznis/okonomi/internal/audit/masking"
	tilbakedomain "github.com/smallbiznis/okonomi/internal/tilbakekreving/domain"
	utbetalingdomain "github.com/smallbiznis/okonomi/internal/utbetaling/domain"
	"github.com/smallbiznis/okonomi/pkg/log/ctxlogger"
	"github.com/smallbiznis/okonomi/pkg/telemetry"
	"github.com/smallbiznis/okonomi/pkg/telemetry/correlation"
	"go.uber.org/zap"
)

var ErrMalformedMessage = errors.New("malformed_message")

// Handlers turns inbound messages into service calls. Core NATS has no
// redelivery, so failures are logged and counted, never retried.
type Handlers struct {
	payments   utbetalingdomain.Service
	repayments tilbakedomain.Service
	log        *zap.Logger
	metrics    *telemetry.Metrics
}

func NewHandlers(payments utbetalingdomain.Service, repayments tilbakedomain.Service, log *zap.Logger, metrics *telemetry.Metrics) *Handlers {
	return &Handlers{
		payments:   payments,
		repayments: repayments,
		log:        log.Named("messaging.handlers"),
		metrics:    metrics,
	}
}

// HandleReceipt records the disbursement system's receipt as a payment
// event.
func (h *Handlers) HandleReceipt(ctx context.Context, data []byte) error {
	var msg ReceiptMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	if msg.OrderID == 0 || strings.TrimSpace(msg.Message.Severity) == "" {
		return fmt.Errorf("%w: receipt without order id or code", ErrMalformedMessage)
	}

	code := strings.TrimSpace(msg.Message.Severity)
	req := utbetalingdomain.RecordPaymentEventRequest{
		OrderID:         msg.OrderID,
		OccurredAt:      msg.OccurredAt,
		ReceiptCode:     &code,
		Acknowledgement: json.RawMessage(data),
	}
	if desc := strings.TrimSpace(msg.Message.Description); desc != "" {
		req.ReceiptDescription = &desc
	}

	event, err := h.payments.RecordPaymentEvent(ctx, req)
	if err != nil {
		return err
	}
	ctxlogger.WithContext(ctx, h.log).Info("receipt recorded",
		zap.String("order_id", msg.OrderID.String()),
		zap.String("status", string(event.Status)),
	)
	return nil
}

// HandleClaim opens a repayment case for an incoming claim.
func (h *Handlers) HandleClaim(ctx context.Context, data []byte) error {
	var msg ClaimMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	claim, err := tilbakedomain.ClaimFromDetail(msg.Detail)
	if err != nil {
		return err
	}

	c, err := h.repayments.CreateFromClaim(ctx, claim)
	if err != nil {
		return err
	}
	ctxlogger.WithContext(ctx, h.log).Info("claim received",
		zap.Int64("claim_id", claim.ClaimID),
		zap.String("case_id", c.ID.String()),
		zap.String("case_worker", masking.MaskIdent(claim.CaseWorker)),
	)
	return nil
}

// HandleClaimStatus applies a claim status notice to its case.
func (h *Handlers) HandleClaimStatus(ctx context.Context, data []byte) error {
	var msg ClaimStatusMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	if msg.Notice.ClaimID <= 0 {
		return fmt.Errorf("%w: status without claim id", ErrMalformedMessage)
	}
	status, err := tilbakedomain.ClaimStatusFromCode(msg.Notice.StatusCode)
	if err != nil {
		return err
	}

	c, err := h.repayments.UpdateClaimStatus(ctx, msg.Notice.ClaimID, status)
	if err != nil {
		return err
	}
	ctxlogger.WithContext(ctx, h.log).Info("claim status applied",
		zap.Int64("claim_id", msg.Notice.ClaimID),
		zap.String("status", string(status)),
		zap.Bool("closed", c.ExternallyClosed),
	)
	return nil
}

// Wrap adapts fn to a NATS handler with correlation, metrics and logging.
func (h *Handlers) Wrap(subject string, fn func(ctx context.Context, data []byte) error) nats.MsgHandler {
	return func(msg *nats.Msg) {
		start := time.Now()
		ctx := context.Background()
		if msg.Header != nil {
			ctx = correlation.ContextWithCorrelationID(ctx, msg.Header.Get(correlation.HeaderName))
		}
		ctx, _ = correlation.EnsureCorrelationID(ctx)
		ctx = ctxlogger.ContextWithEventSubject(ctx, subject)

		status := "success"
		if err := fn(ctx, msg.Data); err != nil {
			status = "error"
			ctxlogger.WithContext(ctx, h.log).Error("message handling failed",
				zap.String("subject", subject),
				zap.Error(err),
			)
		}
		h.metrics.RecordHandler(subject, status, time.Since(start))
	}
}
