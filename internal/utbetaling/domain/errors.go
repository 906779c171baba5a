package domain

import (
	"errors"
	"fmt"

	"github.com/smallbiznis/okonomi/internal/audit/masking"
)

var (
	ErrInvalidDecision      = errors.New("invalid_decision")
	ErrDecisionWithoutLines = errors.New("decision_without_periods")
	ErrInvalidPeriod        = errors.New("invalid_period")
	ErrInvalidStatus        = errors.New("invalid_payment_status")
	ErrOrderNotFound        = errors.New("payment_order_not_found")
	ErrOrderAlreadyExists   = errors.New("payment_order_already_exists")
	ErrRecipientBusy        = errors.New("recipient_busy")
)

// NoExistingPaymentError is returned when the first order for a recipient
// is a lone termination. It needs manual review.
type NoExistingPaymentError struct {
	RecipientID string
	SakID       int64
}

func (e *NoExistingPaymentError) Error() string {
	return fmt.Sprintf("no existing payment to terminate for recipient %s in sak %d", masking.MaskIdent(e.RecipientID), e.SakID)
}

// UnmappedCategoryError is returned when no class code exists for a
// benefit type and regime.
type UnmappedCategoryError struct {
	BenefitType BenefitType
	Regime      Regime
}

func (e *UnmappedCategoryError) Error() string {
	if e.Regime == "" {
		return fmt.Sprintf("no category mapping for benefit type %q", e.BenefitType)
	}
	return fmt.Sprintf("no category mapping for benefit type %q in regime %q", e.BenefitType, e.Regime)
}
