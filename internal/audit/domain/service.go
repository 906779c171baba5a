package domain

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

// Service records external exchanges. Before must be written immediately
// ahead of a call and After immediately following it, including when the
// call fails. A failed write is returned to the caller as fatal.
type Service interface {
	Before(ctx context.Context, caseRef string, kind Kind, payload any) error
	After(ctx context.Context, caseRef string, kind Kind, payload any) error
	Inbound(ctx context.Context, caseRef string, kind Kind, payload any) error
	Trail(ctx context.Context, caseRef string) ([]Hendelse, error)
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, entry *Hendelse) error
	ListByCaseRef(ctx context.Context, db *gorm.DB, caseRef string) ([]*Hendelse, error)
}

var (
	ErrInvalidCaseRef = errors.New("invalid_case_ref")
	ErrInvalidKind    = errors.New("invalid_kind")
	ErrInvalidPayload = errors.New("invalid_payload")
)

// WriteError reports a failed append. Callers treat it as fatal.
type WriteError struct {
	CaseRef   string
	Kind      Kind
	Direction Direction
	Err       error
}

func (e *WriteError) Error() string {
	return "audit " + string(e.Kind) + " " + string(e.Direction) + ": " + e.Err.Error()
}

func (e *WriteError) Unwrap() error { return e.Err }
