package domain

import (
	"errors"
	"testing"

	"github.com/smallbiznis/okonomi/internal/accounting/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func eventsWith(statuses ...PaymentStatus) []PaymentEvent {
	events := make([]PaymentEvent, 0, len(statuses))
	for _, s := range statuses {
		events = append(events, PaymentEvent{Status: s})
	}
	return events
}

func TestResolveStatusEmpty(t *testing.T) {
	assert.Equal(t, PaymentStatusReceived, ResolveStatus(nil))
	assert.Equal(t, PaymentStatusReceived, ResolveStatus([]PaymentEvent{}))
}

func TestResolveStatusPrecedenceIgnoresOrder(t *testing.T) {
	orders := [][]PaymentStatus{
		{PaymentStatusReceived, PaymentStatusSent, PaymentStatusApprovedWithError, PaymentStatusFailed},
		{PaymentStatusFailed, PaymentStatusApprovedWithError, PaymentStatusSent, PaymentStatusReceived},
		{PaymentStatusApprovedWithError, PaymentStatusReceived, PaymentStatusFailed, PaymentStatusSent},
	}
	for _, statuses := range orders {
		assert.Equal(t, PaymentStatusApprovedWithError, ResolveStatus(eventsWith(statuses...)))
	}
}

func TestResolveStatusApprovalDominatesLaterEvents(t *testing.T) {
	got := ResolveStatus(eventsWith(PaymentStatusReceived, PaymentStatusSent, PaymentStatusApproved, PaymentStatusSent))
	assert.Equal(t, PaymentStatusApproved, got)

	got = ResolveStatus(eventsWith(PaymentStatusSent, PaymentStatusFailed, PaymentStatusRejected))
	assert.Equal(t, PaymentStatusRejected, got)
}

func TestStatusFromReceiptCode(t *testing.T) {
	cases := map[string]PaymentStatus{
		"00": PaymentStatusApproved,
		"04": PaymentStatusApprovedWithError,
		"08": PaymentStatusRejected,
		"12": PaymentStatusFailed,
	}
	for code, want := range cases {
		got, err := StatusFromReceiptCode(code)
		require.NoError(t, err)
		assert.Equal(t, want, got, code)
	}

	_, err := StatusFromReceiptCode("99")
	var unknown *protocol.UnknownSeverityError
	assert.True(t, errors.As(err, &unknown))
}
