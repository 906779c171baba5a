package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/smallbiznis/okonomi/internal/accounting/protocol"
	auditdomain "github.com/smallbiznis/okonomi/internal/audit/domain"
	"github.com/smallbiznis/okonomi/internal/config"
	"github.com/smallbiznis/okonomi/internal/observability/logger"
	tilbakedomain "github.com/smallbiznis/okonomi/internal/tilbakekreving/domain"
	"github.com/smallbiznis/okonomi/pkg/telemetry"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	operationSendDecision = "send_decision"
	operationFetchClaim   = "fetch_claim"

	// claimQueryIdent identifies this service as the reader of a claim.
	claimQueryIdent = "OKONOMI"
)

type Params struct {
	fx.In

	Transport Transport
	Audit     auditdomain.Service
	Log       *zap.Logger
	Config    config.Config      `optional:"true"`
	Secure    *logger.Secure     `optional:"true"`
	Metrics   *telemetry.Metrics `optional:"true"`
}

// Client wraps every accounting system call in a BEFORE/AFTER audit pair.
type Client struct {
	transport       Transport
	audit           auditdomain.Service
	log             *zap.Logger
	secure          *logger.Secure
	metrics         *telemetry.Metrics
	responsibleUnit string
}

func New(p Params) *Client {
	secure := p.Secure
	if secure == nil {
		secure = logger.NopSecure()
	}
	unit := p.Config.Accounting.ResponsibleUnit
	if unit == "" {
		unit = config.DefaultResponsibleUnit
	}
	return &Client{
		transport:       p.Transport,
		audit:           p.Audit,
		log:             p.Log.Named("accounting.client"),
		secure:          secure,
		metrics:         p.Metrics,
		responsibleUnit: unit,
	}
}

// SendDecision sends a repayment vedtak. OK and OK_WITH_WARNING return the
// severity; SERIOUS_ERROR, SQL_ERROR and unknown codes return an error.
func (c *Client) SendDecision(ctx context.Context, caseRef string, vedtak protocol.Vedtak) (protocol.Severity, error) {
	raw, elapsed, err := c.exchange(ctx, operationSendDecision, caseRef, auditdomain.KindVedtak, PathVedtak, protocol.VedtakRequest{Vedtak: vedtak})
	if err != nil {
		return "", err
	}

	var resp protocol.VedtakResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		c.metrics.ObserveExternalCall(operationSendDecision, "decode_error", elapsed)
		return "", fmt.Errorf("decode vedtak response: %w", err)
	}
	return c.classify(operationSendDecision, caseRef, resp.Message, raw, elapsed)
}

// FetchClaimDetail reads a claim. A response without detail returns nil
// and no error: the claim does not exist yet at the source.
func (c *Client) FetchClaimDetail(ctx context.Context, caseRef string, claimID int64) (*protocol.ClaimDetail, error) {
	req := protocol.ClaimRequest{
		Query: protocol.ClaimQuery{
			ActionCode:      protocol.ActionCodeFetchClaim,
			ClaimID:         claimID,
			ResponsibleUnit: c.responsibleUnit,
			CaseWorker:      claimQueryIdent,
		},
	}
	raw, elapsed, err := c.exchange(ctx, operationFetchClaim, caseRef, auditdomain.KindKravgrunnlagHent, PathKravgrunnlag, req)
	if err != nil {
		return nil, err
	}

	var resp protocol.ClaimResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		c.metrics.ObserveExternalCall(operationFetchClaim, "decode_error", elapsed)
		return nil, fmt.Errorf("decode claim response: %w", err)
	}

	if _, err := c.classify(operationFetchClaim, caseRef, resp.Message, raw, elapsed); err != nil {
		return nil, err
	}
	if resp.Detail == nil {
		c.log.Info("claim detail absent", zap.String("case_ref", caseRef), zap.Int64("claim_id", claimID))
	}
	return resp.Detail, nil
}

// exchange writes BEFORE with the serialized request, performs the call and
// writes AFTER with the raw response or the transport failure. Audit write
// failures abort the operation.
func (c *Client) exchange(ctx context.Context, operation, caseRef string, kind auditdomain.Kind, path string, request any) ([]byte, time.Duration, error) {
	body, err := json.Marshal(request)
	if err != nil {
		return nil, 0, fmt.Errorf("encode %s request: %w", operation, err)
	}

	if err := c.audit.Before(ctx, caseRef, kind, json.RawMessage(body)); err != nil {
		return nil, 0, err
	}

	start := time.Now()
	raw, callErr := c.transport.Do(ctx, path, body)
	elapsed := time.Since(start)

	if callErr != nil {
		c.metrics.ObserveExternalCall(operation, "transport_error", elapsed)
		if err := c.audit.After(ctx, caseRef, kind, map[string]any{"transport_error": callErr.Error()}); err != nil {
			return nil, elapsed, err
		}
		c.log.Error("accounting system call failed",
			zap.String("operation", operation),
			zap.String("case_ref", caseRef),
			zap.Error(callErr),
		)
		var transportErr *TransportError
		if errors.As(callErr, &transportErr) {
			return nil, elapsed, callErr
		}
		return nil, elapsed, &TransportError{Path: path, Err: callErr}
	}

	if err := c.audit.After(ctx, caseRef, kind, auditPayload(raw)); err != nil {
		return nil, elapsed, err
	}
	return raw, elapsed, nil
}

func (c *Client) classify(operation, caseRef string, msg protocol.Message, raw []byte, elapsed time.Duration) (protocol.Severity, error) {
	severity, err := protocol.Classify(msg)
	if err != nil {
		c.metrics.ObserveExternalCall(operation, "fatal", elapsed)
		c.log.Error("accounting system returned fatal severity",
			zap.String("operation", operation),
			zap.String("case_ref", caseRef),
			zap.String("severity", msg.Severity),
			zap.String("code", msg.Code),
		)
		c.secure.Error("accounting system returned fatal severity",
			zap.String("operation", operation),
			zap.String("case_ref", caseRef),
			zap.ByteString("response", raw),
			zap.Error(err),
		)
		return severity, err
	}

	if severity == protocol.SeverityOKWithWarning {
		c.metrics.ObserveExternalCall(operation, "warning", elapsed)
		c.log.Warn("accounting system accepted with warning",
			zap.String("operation", operation),
			zap.String("case_ref", caseRef),
			zap.String("code", msg.Code),
			zap.String("description", msg.Description),
		)
		return severity, nil
	}
	c.metrics.ObserveExternalCall(operation, "ok", elapsed)
	return severity, nil
}

func auditPayload(raw []byte) any {
	if json.Valid(raw) {
		return json.RawMessage(raw)
	}
	return map[string]any{"raw": string(raw)}
}

var _ tilbakedomain.AccountingClient = (*Client)(nil)
