package domain

import (
	"errors"
	"fmt"
)

var (
	ErrCaseNotFound           = errors.New("repayment_case_not_found")
	ErrCaseClosed             = errors.New("repayment_case_closed")
	ErrConcurrentModification = errors.New("concurrent_modification")
	ErrIncompleteAssessment   = errors.New("incomplete_assessment")
	ErrInvalidAssessment      = errors.New("invalid_assessment")
	ErrPeriodsNotAssessed     = errors.New("periods_not_assessed")
	ErrUnknownLine            = errors.New("unknown_claim_line")
	ErrInvalidClaim           = errors.New("invalid_claim")
	ErrClaimNotFound          = errors.New("claim_not_found")
	ErrCaseBusy               = errors.New("repayment_case_busy")
)

// InvalidTransitionError is returned for a state change the lifecycle does
// not allow.
type InvalidTransitionError struct {
	From CaseStatus
	To   CaseStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition from %s to %s", e.From, e.To)
}

// MissingRequiredFieldError is returned when a mandatory field is absent
// while mapping a case for the accounting system.
type MissingRequiredFieldError struct {
	Field   string
	Context string
}

func (e *MissingRequiredFieldError) Error() string {
	if e.Context == "" {
		return fmt.Sprintf("missing required field %s", e.Field)
	}
	return fmt.Sprintf("missing required field %s in %s", e.Field, e.Context)
}

// UnmappedCodeError is returned when a value has no accounting system code.
type UnmappedCodeError struct {
	Field string
	Value string
}

func (e *UnmappedCodeError) Error() string {
	return fmt.Sprintf("no external code for %s %q", e.Field, e.Value)
}
