package domain

import (
	"github.com/smallbiznis/okonomi/internal/accounting/protocol"
)

// PaymentStatus is the closed set of payment event statuses.
type PaymentStatus string

const (
	PaymentStatusReceived          PaymentStatus = "RECEIVED"
	PaymentStatusSent              PaymentStatus = "SENT"
	PaymentStatusApproved          PaymentStatus = "APPROVED"
	PaymentStatusApprovedWithError PaymentStatus = "APPROVED_WITH_ERROR"
	PaymentStatusRejected          PaymentStatus = "REJECTED"
	PaymentStatusFailed            PaymentStatus = "FAILED"
)

// statusRank orders statuses by authority. Higher wins regardless of when
// the event was appended.
var statusRank = map[PaymentStatus]int{
	PaymentStatusApproved:          6,
	PaymentStatusApprovedWithError: 5,
	PaymentStatusRejected:          4,
	PaymentStatusFailed:            3,
	PaymentStatusSent:              2,
	PaymentStatusReceived:          1,
}

func (s PaymentStatus) Valid() bool {
	_, ok := statusRank[s]
	return ok
}

// Accepted reports whether the disbursement system took the order.
func (s PaymentStatus) Accepted() bool {
	return s == PaymentStatusApproved || s == PaymentStatusApprovedWithError
}

// ResolveStatus returns the highest-precedence status among events, or
// RECEIVED when there are none.
func ResolveStatus(events []PaymentEvent) PaymentStatus {
	resolved := PaymentStatusReceived
	for _, ev := range events {
		if statusRank[ev.Status] > statusRank[resolved] {
			resolved = ev.Status
		}
	}
	return resolved
}

// StatusFromReceiptCode maps a disbursement receipt's severity code to a
// payment status. Unknown codes are an error.
func StatusFromReceiptCode(code string) (PaymentStatus, error) {
	severity, err := protocol.ParseSeverity(code)
	if err != nil {
		return "", err
	}
	switch severity {
	case protocol.SeverityOK:
		return PaymentStatusApproved, nil
	case protocol.SeverityOKWithWarning:
		return PaymentStatusApprovedWithError, nil
	case protocol.SeveritySeriousError:
		return PaymentStatusRejected, nil
	default:
		return PaymentStatusFailed, nil
	}
}
