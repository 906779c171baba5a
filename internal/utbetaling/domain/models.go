// Package domain contains the payment order ledger: orders, lines, events
// and the rules that derive lines and status from them.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// BenefitType is the benefit a payment order disburses.
type BenefitType string

const (
	BenefitTypeBarnepensjon       BenefitType = "BARNEPENSJON"
	BenefitTypeOmstillingsstoenad BenefitType = "OMSTILLINGSSTOENAD"
)

// LineKind separates recurring payments from terminations.
type LineKind string

const (
	LineKindOngoingPayment LineKind = "ONGOING_PAYMENT"
	LineKindTermination    LineKind = "TERMINATION"
)

// ExecutionTiming tells the disbursement system when to act on a line.
type ExecutionTiming string

const (
	ExecutionTimingImmediate        ExecutionTiming = "IMMEDIATE"
	ExecutionTimingNextScheduledRun ExecutionTiming = "NEXT_SCHEDULED_RUN"
)

// RevisionReasonIndexation marks decisions produced by the yearly
// indexation re-run.
const RevisionReasonIndexation = "REGULERING"

// PaymentOrder is one disbursement instruction derived from one approved
// decision. Orders and their lines are written once; only events are
// appended afterwards.
type PaymentOrder struct {
	ID                snowflake.ID   `gorm:"primaryKey" json:"id"`
	SakID             int64          `gorm:"not null;index" json:"sak_id"`
	DecisionID        string         `gorm:"type:text;not null;uniqueIndex" json:"decision_id"`
	BenefitType       BenefitType    `gorm:"type:text;not null" json:"benefit_type"`
	RecipientID       string         `gorm:"type:text;not null;index" json:"recipient_id"`
	PreparerIdent     string         `gorm:"type:text;not null" json:"preparer_ident"`
	PreparerUnit      string         `gorm:"type:text;not null" json:"preparer_unit"`
	ApproverIdent     string         `gorm:"type:text;not null" json:"approver_ident"`
	ApproverUnit      string         `gorm:"type:text;not null" json:"approver_unit"`
	DecisionSnapshot  datatypes.JSON `gorm:"type:jsonb;not null" json:"decision_snapshot"`
	ReconciliationKey time.Time      `gorm:"not null" json:"reconciliation_key"`
	CreatedAt         time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt         time.Time      `gorm:"not null" json:"updated_at"`

	Lines  []PaymentLine  `gorm:"-" json:"lines"`
	Events []PaymentEvent `gorm:"-" json:"events"`
}

func (PaymentOrder) TableName() string { return "payment_orders" }

// Status resolves the authoritative status from the order's events.
func (o PaymentOrder) Status() PaymentStatus {
	return ResolveStatus(o.Events)
}

// Acknowledgement returns the payload of the latest event that carries one.
func (o PaymentOrder) Acknowledgement() datatypes.JSON {
	for i := len(o.Events) - 1; i >= 0; i-- {
		if len(o.Events[i].Acknowledgement) > 0 {
			return o.Events[i].Acknowledgement
		}
	}
	return nil
}

// Receipt returns the disbursement system's latest receipt, if any.
func (o PaymentOrder) Receipt() *Receipt {
	for i := len(o.Events) - 1; i >= 0; i-- {
		if ev := o.Events[i]; ev.ReceiptCode != nil {
			r := Receipt{Code: *ev.ReceiptCode}
			if ev.ReceiptDescription != nil {
				r.Description = *ev.ReceiptDescription
			}
			return &r
		}
	}
	return nil
}

// LastLine is the line a later order's first line replaces.
func (o PaymentOrder) LastLine() *PaymentLine {
	if len(o.Lines) == 0 {
		return nil
	}
	return &o.Lines[len(o.Lines)-1]
}

// PaymentLine is one period of recurring payment or a termination.
type PaymentLine struct {
	ID         snowflake.ID    `gorm:"primaryKey" json:"id"`
	OrderID    snowflake.ID    `gorm:"not null;index" json:"order_id"`
	SakID      int64           `gorm:"not null;index" json:"sak_id"`
	Position   int             `gorm:"not null" json:"position"`
	Kind       LineKind        `gorm:"type:text;not null" json:"kind"`
	PeriodFrom time.Time       `gorm:"not null" json:"period_from"`
	PeriodTo   *time.Time      `json:"period_to,omitempty"`
	Amount     *int64          `json:"amount,omitempty"`
	ClassCode  string          `gorm:"type:text;not null" json:"class_code"`
	Timing     ExecutionTiming `gorm:"type:text;not null" json:"timing"`
	ReplacesID *snowflake.ID   `gorm:"index" json:"replaces_id,omitempty"`
	CreatedAt  time.Time       `gorm:"not null" json:"created_at"`
}

func (PaymentLine) TableName() string { return "payment_lines" }

// PaymentEvent is an immutable status fact about an order.
type PaymentEvent struct {
	ID                 snowflake.ID   `gorm:"primaryKey" json:"id"`
	OrderID            snowflake.ID   `gorm:"not null;index" json:"order_id"`
	Status             PaymentStatus  `gorm:"type:text;not null" json:"status"`
	OccurredAt         time.Time      `gorm:"not null" json:"occurred_at"`
	ReceiptCode        *string        `gorm:"type:text" json:"receipt_code,omitempty"`
	ReceiptDescription *string        `gorm:"type:text" json:"receipt_description,omitempty"`
	Acknowledgement    datatypes.JSON `gorm:"type:jsonb" json:"acknowledgement,omitempty"`
	CreatedAt          time.Time      `gorm:"not null" json:"created_at"`
}

func (PaymentEvent) TableName() string { return "payment_events" }

// Receipt is the disbursement system's verdict on an order.
type Receipt struct {
	Code        string `json:"code"`
	Description string `json:"description,omitempty"`
}

// Actor is a case worker acting on a decision.
type Actor struct {
	Ident string `json:"ident"`
	Unit  string `json:"unit"`
}

// Decision is the approved decision snapshot supplied by the case service.
type Decision struct {
	SakID          int64            `json:"sak_id"`
	DecisionID     string           `json:"decision_id"`
	BenefitType    BenefitType      `json:"benefit_type"`
	RecipientID    string           `json:"recipient_id"`
	RevisionReason string           `json:"revision_reason,omitempty"`
	Preparer       Actor            `json:"preparer"`
	Approver       Actor            `json:"approver"`
	Periods        []DecisionPeriod `json:"periods"`
}

// DecisionPeriod is one period of the decision. Amount is in minor units
// and is absent for terminations.
type DecisionPeriod struct {
	Kind   LineKind   `json:"kind"`
	From   time.Time  `json:"from"`
	To     *time.Time `json:"to,omitempty"`
	Amount *int64     `json:"amount,omitempty"`
}
