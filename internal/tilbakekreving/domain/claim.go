package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ClaimStatus is the accounting system's status for a claim.
type ClaimStatus string

const (
	ClaimStatusNew        ClaimStatus = "NEW"
	ClaimStatusInProgress ClaimStatus = "IN_PROGRESS"
	ClaimStatusClosed     ClaimStatus = "CLOSED"
	ClaimStatusAnnulled   ClaimStatus = "ANNULLED"
	ClaimStatusSuspended  ClaimStatus = "SUSPENDED"
	ClaimStatusError      ClaimStatus = "ERROR"
	ClaimStatusManual     ClaimStatus = "MANUAL"
	ClaimStatusConfirmed  ClaimStatus = "CONFIRMED"
)

// Terminal reports whether the accounting system has closed the claim for
// further work.
func (s ClaimStatus) Terminal() bool {
	return s == ClaimStatusClosed || s == ClaimStatusAnnulled
}

// ClassType is the ledger category type of an amount line.
type ClassType string

const (
	ClassTypeBenefit    ClassType = "BENEFIT"
	ClassTypeTax        ClassType = "TAX"
	ClassTypeError      ClassType = "ERROR"
	ClassTypeAdjustment ClassType = "ADJUSTMENT"
	ClassTypeInterest   ClassType = "INTEREST"
	ClassTypeDeduction  ClassType = "DEDUCTION"
)

// Claim is the accounting system's notice that a payment order was paid
// wrongly (kravgrunnlag).
type Claim struct {
	ClaimID      int64         `json:"claim_id"`
	SakID        int64         `json:"sak_id"`
	VedtakID     int64         `json:"vedtak_id"`
	SourceRef    string        `json:"source_ref,omitempty"`
	ControlField string        `json:"control_field"`
	Status       ClaimStatus   `json:"status"`
	CaseWorker   string        `json:"case_worker,omitempty"`
	Reference    string        `json:"reference,omitempty"`
	Periods      []ClaimPeriod `json:"periods"`
}

// ClaimPeriod is one calendar period of a claim.
type ClaimPeriod struct {
	From      time.Time         `json:"from"`
	To        time.Time         `json:"to"`
	TaxAmount int64             `json:"tax_amount"`
	Lines     []ClaimAmountLine `json:"lines"`
}

// ClaimAmountLine is one class-coded amount within a period. Amounts are
// in minor units. Outcome, Fault and Cause are set during assessment.
type ClaimAmountLine struct {
	ClassCode       string          `json:"class_code"`
	ClassType       ClassType       `json:"class_type"`
	OriginalAmount  int64           `json:"original_amount"`
	CorrectedAmount int64           `json:"corrected_amount"`
	GrossToRecover  int64           `json:"gross_to_recover"`
	Exempt          int64           `json:"exempt"`
	TaxPercent      decimal.Decimal `json:"tax_percent"`

	NetToRecover   *int64   `json:"net_to_recover,omitempty"`
	TaxAmount      *int64   `json:"tax_amount,omitempty"`
	InterestAmount *int64   `json:"interest_amount,omitempty"`
	Outcome        *Outcome `json:"outcome,omitempty"`
	Fault          *Fault   `json:"fault,omitempty"`
	Cause          *Cause   `json:"cause,omitempty"`
}

// Assessed reports whether a benefit line carries outcome, fault and cause.
func (l ClaimAmountLine) Assessed() bool {
	return l.Outcome != nil && l.Fault != nil && l.Cause != nil
}

// Net returns the amount to recover net of tax.
func (l ClaimAmountLine) Net() int64 {
	if l.NetToRecover != nil {
		return *l.NetToRecover
	}
	if l.TaxAmount != nil {
		return l.GrossToRecover - *l.TaxAmount
	}
	return l.GrossToRecover
}

// ClonePeriods deep-copies periods so a case never shares slices with the
// claim it was built from.
func ClonePeriods(periods []ClaimPeriod) []ClaimPeriod {
	if periods == nil {
		return nil
	}
	out := make([]ClaimPeriod, len(periods))
	for i, p := range periods {
		out[i] = p
		out[i].Lines = append([]ClaimAmountLine(nil), p.Lines...)
	}
	return out
}
