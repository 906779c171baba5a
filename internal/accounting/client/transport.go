package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/smallbiznis/okonomi/internal/observability/tracing"
	"github.com/smallbiznis/okonomi/pkg/telemetry/correlation"
)

const (
	PathVedtak       = "/tilbakekreving/tilbakekrevingsvedtak"
	PathKravgrunnlag = "/tilbakekreving/kravgrunnlag"

	maxResponseBytes = 4 << 20
)

//go:generate mockgen -source=transport.go -destination=./mocks/mock_transport.go -package=mocks

// Transport performs one request/response exchange with the accounting
// system.
type Transport interface {
	Do(ctx context.Context, path string, body []byte) ([]byte, error)
}

// TransportError is a failure below the protocol: connection, timeout or a
// non-2xx HTTP status. It is not retried by this service.
type TransportError struct {
	Path       string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("accounting system %s: http status %d", e.Path, e.StatusCode)
	}
	return fmt.Sprintf("accounting system %s: %v", e.Path, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

type HTTPTransport struct {
	baseURL string
	client  *http.Client
}

func NewHTTPTransport(baseURL string, timeout time.Duration) *HTTPTransport {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPTransport{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		client:  tracing.WrapHTTPClient(&http.Client{Timeout: timeout}),
	}
}

func (t *HTTPTransport) Do(ctx context.Context, path string, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, &TransportError{Path: path, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if id := correlation.ExtractCorrelationID(ctx); id != "" {
		req.Header.Set(correlation.HeaderName, id)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, &TransportError{Path: path, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &TransportError{Path: path, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &TransportError{Path: path, StatusCode: resp.StatusCode}
	}
	return raw, nil
}
