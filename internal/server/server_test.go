package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/okonomi/internal/accounting/protocol"
	tilbakedomain "github.com/smallbiznis/okonomi/internal/tilbakekreving/domain"
	utbetalingdomain "github.com/smallbiznis/okonomi/internal/utbetaling/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePayments struct {
	utbetalingdomain.Service
	createErr error
	decisions []utbetalingdomain.Decision
	events    []utbetalingdomain.RecordPaymentEventRequest
}

func (f *fakePayments) CreatePaymentOrder(_ context.Context, d utbetalingdomain.Decision) (*utbetalingdomain.PaymentOrder, error) {
	f.decisions = append(f.decisions, d)
	if f.createErr != nil {
		return nil, f.createErr
	}
	return &utbetalingdomain.PaymentOrder{
		ID:          snowflake.ID(10),
		DecisionID:  d.DecisionID,
		RecipientID: d.RecipientID,
		Events: []utbetalingdomain.PaymentEvent{
			{Status: utbetalingdomain.PaymentStatusReceived},
			{Status: utbetalingdomain.PaymentStatusSent},
		},
	}, nil
}

func (f *fakePayments) GetPaymentOrder(_ context.Context, id snowflake.ID) (*utbetalingdomain.PaymentOrder, error) {
	if id != 10 {
		return nil, utbetalingdomain.ErrOrderNotFound
	}
	return &utbetalingdomain.PaymentOrder{ID: id}, nil
}

func (f *fakePayments) RecordPaymentEvent(_ context.Context, req utbetalingdomain.RecordPaymentEventRequest) (*utbetalingdomain.PaymentEvent, error) {
	f.events = append(f.events, req)
	return &utbetalingdomain.PaymentEvent{OrderID: req.OrderID, Status: req.Status}, nil
}

type fakeRepayments struct {
	tilbakedomain.Service
	submitErr error
	decideErr error
}

func (f *fakeRepayments) Get(_ context.Context, id snowflake.ID) (*tilbakedomain.RepaymentCase, error) {
	if id != 20 {
		return nil, tilbakedomain.ErrCaseNotFound
	}
	return &tilbakedomain.RepaymentCase{ID: id, Status: tilbakedomain.CaseStatusCreated, Version: 1}, nil
}

func (f *fakeRepayments) Decide(_ context.Context, req tilbakedomain.DecideRequest) (*tilbakedomain.DecisionResult, error) {
	if f.decideErr != nil {
		return nil, f.decideErr
	}
	return &tilbakedomain.DecisionResult{
		Case:   &tilbakedomain.RepaymentCase{ID: req.CaseID, Status: tilbakedomain.CaseStatusDecisionMade, DecidedBy: req.PreparerIdent},
		Vedtak: protocol.Vedtak{VedtakID: 12},
	}, nil
}

func (f *fakeRepayments) Submit(_ context.Context, id snowflake.ID) (*tilbakedomain.SubmitResult, error) {
	if f.submitErr != nil {
		return nil, f.submitErr
	}
	return &tilbakedomain.SubmitResult{
		Case:     &tilbakedomain.RepaymentCase{ID: id, Status: tilbakedomain.CaseStatusApproved},
		Severity: protocol.SeverityOKWithWarning,
	}, nil
}

func (f *fakeRepayments) SetNetOverride(_ context.Context, _ tilbakedomain.SetNetOverrideRequest) (*tilbakedomain.RepaymentCase, error) {
	return nil, tilbakedomain.ErrConcurrentModification
}

func newTestRouter(payments utbetalingdomain.Service, repayments tilbakedomain.Service) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(ErrorHandlingMiddleware())
	NewServer(Params{Engine: router, Payments: payments, Repayments: repayments})
	return router
}

func doRequest(router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func decodeError(t *testing.T, resp *httptest.ResponseRecorder) errorPayload {
	t.Helper()
	var body errorResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	return body.Error
}

func TestCreatePaymentOrder(t *testing.T) {
	payments := &fakePayments{}
	router := newTestRouter(payments, &fakeRepayments{})

	resp := doRequest(router, http.MethodPost, "/api/v1/payment-orders",
		`{"sak_id":1001,"decision_id":"v-1","benefit_type":"BARNEPENSJON","recipient_id":"01010012345","periods":[{"kind":"ONGOING_PAYMENT","from":"2024-01-01T00:00:00Z","amount":100000}]}`)

	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	require.Len(t, payments.decisions, 1)
	assert.Equal(t, "v-1", payments.decisions[0].DecisionID)

	var body struct {
		Data struct {
			ID     string `json:"id"`
			Status string `json:"status"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.Equal(t, "10", body.Data.ID)
	assert.Equal(t, "SENT", body.Data.Status)
}

func TestCreatePaymentOrderErrors(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		typ    string
	}{
		{"validation", utbetalingdomain.ErrInvalidDecision, http.StatusBadRequest, "validation_error"},
		{"duplicate", utbetalingdomain.ErrOrderAlreadyExists, http.StatusConflict, "conflict"},
		{"no existing", &utbetalingdomain.NoExistingPaymentError{RecipientID: "01010012345", SakID: 1}, http.StatusUnprocessableEntity, "unprocessable"},
		{"dispatch", &utbetalingdomain.DispatchError{OrderID: 10, Err: context.DeadlineExceeded}, http.StatusBadGateway, "dispatch_failed"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			router := newTestRouter(&fakePayments{createErr: tc.err}, &fakeRepayments{})
			resp := doRequest(router, http.MethodPost, "/api/v1/payment-orders", `{"decision_id":"v-1"}`)
			assert.Equal(t, tc.status, resp.Code)
			assert.Equal(t, tc.typ, decodeError(t, resp).Type)
			assert.NotContains(t, resp.Body.String(), "01010012345")
		})
	}
}

func TestCreatePaymentOrderRejectsMalformedBody(t *testing.T) {
	payments := &fakePayments{}
	router := newTestRouter(payments, &fakeRepayments{})

	resp := doRequest(router, http.MethodPost, "/api/v1/payment-orders", `{`)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Empty(t, payments.decisions)
}

func TestGetPaymentOrder(t *testing.T) {
	router := newTestRouter(&fakePayments{}, &fakeRepayments{})

	assert.Equal(t, http.StatusOK, doRequest(router, http.MethodGet, "/api/v1/payment-orders/10", "").Code)
	assert.Equal(t, http.StatusNotFound, doRequest(router, http.MethodGet, "/api/v1/payment-orders/11", "").Code)

	resp := doRequest(router, http.MethodGet, "/api/v1/payment-orders/abc", "")
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	payload := decodeError(t, resp)
	require.Len(t, payload.Errors, 1)
	assert.Equal(t, "id", payload.Errors[0].Field)
}

func TestRecordPaymentEvent(t *testing.T) {
	payments := &fakePayments{}
	router := newTestRouter(payments, &fakeRepayments{})

	resp := doRequest(router, http.MethodPost, "/api/v1/payment-orders/10/events", `{"receipt_code":"00","occurred_at":"2024-02-01T10:00:00Z"}`)
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	require.Len(t, payments.events, 1)
	assert.Equal(t, snowflake.ID(10), payments.events[0].OrderID)
	assert.Equal(t, "00", *payments.events[0].ReceiptCode)

	resp = doRequest(router, http.MethodPost, "/api/v1/payment-orders/10/events", `{}`)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestRepaymentCaseRoutes(t *testing.T) {
	repayments := &fakeRepayments{}
	router := newTestRouter(&fakePayments{}, repayments)

	assert.Equal(t, http.StatusOK, doRequest(router, http.MethodGet, "/api/v1/repayment-cases/20", "").Code)
	assert.Equal(t, http.StatusNotFound, doRequest(router, http.MethodGet, "/api/v1/repayment-cases/21", "").Code)

	resp := doRequest(router, http.MethodPost, "/api/v1/repayment-cases/20/decide", `{"preparer_ident":" ","expected_version":1}`)
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	resp = doRequest(router, http.MethodPost, "/api/v1/repayment-cases/20/decide", `{"preparer_ident":"Z990001","expected_version":1}`)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"DECISION_MADE"`)

	resp = doRequest(router, http.MethodPost, "/api/v1/repayment-cases/20/submit", "")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"OK_WITH_WARNING"`)

	resp = doRequest(router, http.MethodPost, "/api/v1/repayment-cases/20/net-override", `{"enabled":true,"expected_version":1}`)
	assert.Equal(t, http.StatusConflict, resp.Code)
}

func TestRepaymentCaseErrorMapping(t *testing.T) {
	repayments := &fakeRepayments{
		submitErr: &protocol.SeverityError{Severity: protocol.SeveritySQLError, Code: "B420012F"},
		decideErr: &tilbakedomain.MissingRequiredFieldError{Field: "tax_amount", Context: "period 2024-01-01 line X"},
	}
	router := newTestRouter(&fakePayments{}, repayments)

	resp := doRequest(router, http.MethodPost, "/api/v1/repayment-cases/20/submit", "")
	assert.Equal(t, http.StatusBadGateway, resp.Code)
	payload := decodeError(t, resp)
	assert.Equal(t, "accounting_rejected", payload.Type)
	assert.Contains(t, payload.Message, "SQL_ERROR")

	resp = doRequest(router, http.MethodPost, "/api/v1/repayment-cases/20/decide", `{"preparer_ident":"Z990001","expected_version":1}`)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	payload = decodeError(t, resp)
	require.Len(t, payload.Errors, 1)
	assert.Equal(t, "tax_amount", payload.Errors[0].Field)
}

func TestMapErrorTransitions(t *testing.T) {
	status, payload := mapError(&tilbakedomain.InvalidTransitionError{From: tilbakedomain.CaseStatusApproved, To: tilbakedomain.CaseStatusInProgress})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "invalid_transition", payload.Type)

	status, payload = mapError(&protocol.UnknownSeverityError{Code: "77"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "invalid_receipt_code", payload.Errors[0].Code)

	status, _ = mapError(context.Canceled)
	assert.Equal(t, http.StatusInternalServerError, status)
}
