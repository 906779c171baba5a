package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/golang/mock/gomock"
	"github.com/smallbiznis/okonomi/internal/accounting/client/mocks"
	"github.com/smallbiznis/okonomi/internal/accounting/protocol"
	auditdomain "github.com/smallbiznis/okonomi/internal/audit/domain"
	auditrepo "github.com/smallbiznis/okonomi/internal/audit/repository"
	auditservice "github.com/smallbiznis/okonomi/internal/audit/service"
	"github.com/smallbiznis/okonomi/internal/clock"
	"github.com/smallbiznis/okonomi/internal/config"
	"github.com/smallbiznis/okonomi/pkg/telemetry/correlation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
)

var dbSeq int64

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:accounting_client_%d?mode=memory&cache=shared", atomic.AddInt64(&dbSeq, 1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&auditdomain.Hendelse{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func newTestClient(t *testing.T, transport Transport) (*Client, auditdomain.Service) {
	t.Helper()
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	audit := auditservice.NewService(auditservice.Params{
		DB:    setupTestDB(t),
		Log:   zaptest.NewLogger(t),
		GenID: node,
		Repo:  auditrepo.Provide(),
		Clock: clock.NewFakeClock(time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)),
	})
	c := New(Params{
		Transport: transport,
		Audit:     audit,
		Log:       zaptest.NewLogger(t),
		Config:    config.Config{Accounting: config.AccountingConfig{ResponsibleUnit: "4819"}},
	})
	return c, audit
}

func sampleVedtak() protocol.Vedtak {
	return protocol.Vedtak{
		ActionCode:       protocol.ActionCodeIssueDecision,
		VedtakID:         991,
		LegalBasisCode:   "22-15",
		InterestComputed: protocol.InterestNotComputed,
		ResponsibleUnit:  "4819",
		ControlField:     "2024-02-01-12.00.00.000000",
		PreparerIdent:    "Z990001",
		DecisionDate:     protocol.NewDate(time.Date(2024, 2, 20, 0, 0, 0, 0, time.UTC)),
	}
}

func vedtakResponse(severity string) []byte {
	return []byte(fmt.Sprintf(`{"mmel":{"alvorlighetsgrad":%q,"kodeMelding":"B420010I","beskrMelding":"melding"},"vedtakId":991}`, severity))
}

func TestSendDecisionClassifiesSeverity(t *testing.T) {
	cases := []struct {
		code    string
		want    protocol.Severity
		fatal   bool
		unknown bool
	}{
		{code: "00", want: protocol.SeverityOK},
		{code: "04", want: protocol.SeverityOKWithWarning},
		{code: "08", want: protocol.SeveritySeriousError, fatal: true},
		{code: "12", want: protocol.SeveritySQLError, fatal: true},
		{code: "99", unknown: true},
	}

	for _, tc := range cases {
		t.Run(tc.code, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			transport := mocks.NewMockTransport(ctrl)
			transport.EXPECT().
				Do(gomock.Any(), PathVedtak, gomock.Any()).
				Return(vedtakResponse(tc.code), nil)

			c, audit := newTestClient(t, transport)
			severity, err := c.SendDecision(context.Background(), "1001", sampleVedtak())

			switch {
			case tc.unknown:
				var unknownErr *protocol.UnknownSeverityError
				require.ErrorAs(t, err, &unknownErr)
			case tc.fatal:
				var sevErr *protocol.SeverityError
				require.ErrorAs(t, err, &sevErr)
				assert.Equal(t, tc.want, sevErr.Severity)
				assert.Equal(t, tc.want, severity)
			default:
				require.NoError(t, err)
				assert.Equal(t, tc.want, severity)
			}

			trail, err := audit.Trail(context.Background(), "1001")
			require.NoError(t, err)
			require.Len(t, trail, 2)
			assert.Equal(t, auditdomain.DirectionBefore, trail[0].Direction)
			assert.Equal(t, auditdomain.DirectionAfter, trail[1].Direction)
			assert.Equal(t, auditdomain.KindVedtak, trail[1].Kind)
			assert.JSONEq(t, string(vedtakResponse(tc.code)), string(trail[1].Payload))
		})
	}
}

func TestSendDecisionWritesBeforePayloadVerbatim(t *testing.T) {
	ctrl := gomock.NewController(t)
	transport := mocks.NewMockTransport(ctrl)

	var sent []byte
	transport.EXPECT().
		Do(gomock.Any(), PathVedtak, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, body []byte) ([]byte, error) {
			sent = body
			return vedtakResponse("00"), nil
		})

	c, audit := newTestClient(t, transport)
	_, err := c.SendDecision(context.Background(), "1001", sampleVedtak())
	require.NoError(t, err)

	trail, err := audit.Trail(context.Background(), "1001")
	require.NoError(t, err)
	require.Len(t, trail, 2)
	assert.JSONEq(t, string(sent), string(trail[0].Payload))

	var envelope map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(sent, &envelope))
	assert.Contains(t, envelope, "tilbakekrevingsvedtak")
}

func TestSendDecisionRecordsTransportFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	transport := mocks.NewMockTransport(ctrl)
	transport.EXPECT().
		Do(gomock.Any(), PathVedtak, gomock.Any()).
		Return(nil, errors.New("connection refused"))

	c, audit := newTestClient(t, transport)
	_, err := c.SendDecision(context.Background(), "1001", sampleVedtak())

	var transportErr *TransportError
	require.ErrorAs(t, err, &transportErr)

	trail, err := audit.Trail(context.Background(), "1001")
	require.NoError(t, err)
	require.Len(t, trail, 2)
	assert.Equal(t, auditdomain.DirectionAfter, trail[1].Direction)
	assert.JSONEq(t, `{"transport_error":"connection refused"}`, string(trail[1].Payload))
}

func TestSendDecisionWrapsNonJSONResponse(t *testing.T) {
	ctrl := gomock.NewController(t)
	transport := mocks.NewMockTransport(ctrl)
	transport.EXPECT().
		Do(gomock.Any(), PathVedtak, gomock.Any()).
		Return([]byte("<html>bad gateway</html>"), nil)

	c, audit := newTestClient(t, transport)
	_, err := c.SendDecision(context.Background(), "1001", sampleVedtak())
	require.Error(t, err)

	trail, err := audit.Trail(context.Background(), "1001")
	require.NoError(t, err)
	require.Len(t, trail, 2)
	assert.JSONEq(t, `{"raw":"<html>bad gateway</html>"}`, string(trail[1].Payload))
}

func TestFetchClaimDetail(t *testing.T) {
	ctrl := gomock.NewController(t)
	transport := mocks.NewMockTransport(ctrl)

	transport.EXPECT().
		Do(gomock.Any(), PathKravgrunnlag, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, body []byte) ([]byte, error) {
			var req protocol.ClaimRequest
			if err := json.Unmarshal(body, &req); err != nil {
				return nil, err
			}
			assert.Equal(t, protocol.ActionCodeFetchClaim, req.Query.ActionCode)
			assert.Equal(t, int64(555), req.Query.ClaimID)
			assert.Equal(t, "4819", req.Query.ResponsibleUnit)
			return []byte(`{"mmel":{"alvorlighetsgrad":"00"},"detaljertkravgrunnlag":{"kravgrunnlagId":555,"vedtakId":12,"kodeStatusKrav":"NY","fagsystemId":"1001","kontrollfelt":"k1"}}`), nil
		})

	c, audit := newTestClient(t, transport)
	detail, err := c.FetchClaimDetail(context.Background(), "1001", 555)
	require.NoError(t, err)
	require.NotNil(t, detail)
	assert.Equal(t, int64(555), detail.ClaimID)
	assert.Equal(t, "k1", detail.ControlField)

	trail, err := audit.Trail(context.Background(), "1001")
	require.NoError(t, err)
	require.Len(t, trail, 2)
	assert.Equal(t, auditdomain.KindKravgrunnlagHent, trail[0].Kind)
}

func TestFetchClaimDetailAbsent(t *testing.T) {
	ctrl := gomock.NewController(t)
	transport := mocks.NewMockTransport(ctrl)
	transport.EXPECT().
		Do(gomock.Any(), PathKravgrunnlag, gomock.Any()).
		Return([]byte(`{"mmel":{"alvorlighetsgrad":"00"}}`), nil)

	c, _ := newTestClient(t, transport)
	detail, err := c.FetchClaimDetail(context.Background(), "1001", 555)
	require.NoError(t, err)
	assert.Nil(t, detail)
}

func TestHTTPTransport(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "corr-9", r.Header.Get(correlation.HeaderName))
		body, _ := io.ReadAll(r.Body)
		switch r.URL.Path {
		case PathVedtak:
			_, _ = w.Write(body)
		default:
			w.WriteHeader(http.StatusServiceUnavailable)
		}
	}))
	defer srv.Close()

	transport := NewHTTPTransport(srv.URL+"/", time.Second)
	ctx := correlation.ContextWithCorrelationID(context.Background(), "corr-9")

	raw, err := transport.Do(ctx, PathVedtak, []byte(`{"ping":1}`))
	require.NoError(t, err)
	assert.JSONEq(t, `{"ping":1}`, string(raw))

	_, err = transport.Do(ctx, PathKravgrunnlag, []byte(`{}`))
	var transportErr *TransportError
	require.ErrorAs(t, err, &transportErr)
	assert.Equal(t, http.StatusServiceUnavailable, transportErr.StatusCode)
}
