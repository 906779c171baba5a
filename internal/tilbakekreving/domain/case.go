package domain

import (
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
)

// CaseStatus is the repayment case lifecycle state.
type CaseStatus string

const (
	CaseStatusCreated      CaseStatus = "CREATED"
	CaseStatusInProgress   CaseStatus = "IN_PROGRESS"
	CaseStatusDecisionMade CaseStatus = "DECISION_MADE"
	CaseStatusApproved     CaseStatus = "APPROVED"
	CaseStatusRejected     CaseStatus = "REJECTED"
)

var modifiableStatuses = map[CaseStatus]struct{}{
	CaseStatusCreated:      {},
	CaseStatusInProgress:   {},
	CaseStatusDecisionMade: {},
	CaseStatusApproved:     {},
	CaseStatusRejected:     {},
}

// FindingAnswer answers one sub-question of the assessment.
type FindingAnswer string

const (
	FindingYes     FindingAnswer = "YES"
	FindingNo      FindingAnswer = "NO"
	FindingPartial FindingAnswer = "PARTIAL"
)

type SubFinding struct {
	Question string        `json:"question"`
	Answer   FindingAnswer `json:"answer"`
	Note     string        `json:"note,omitempty"`
}

type Rebuttal struct {
	Received bool       `json:"received"`
	Date     *time.Time `json:"date,omitempty"`
	Summary  string     `json:"summary,omitempty"`
}

// Assessment is the case worker's evaluation of a claim.
type Assessment struct {
	Cause              Cause          `json:"cause"`
	Description        string         `json:"description"`
	PriorNoticeType    string         `json:"prior_notice_type,omitempty"`
	PriorNoticeDate    *time.Time     `json:"prior_notice_date,omitempty"`
	EstateCase         bool           `json:"estate_case"`
	AttributableParty  Fault          `json:"attributable_party,omitempty"`
	Rebuttal           Rebuttal       `json:"rebuttal"`
	LegalBasis         LegalBasis     `json:"legal_basis"`
	SubFindings        []SubFinding   `json:"sub_findings,omitempty"`
	VilkaarOutcome     VilkaarOutcome `json:"vilkaar_outcome"`
	AmountStillHeld    *bool          `json:"amount_still_held,omitempty"`
	ReductionRationale string         `json:"reduction_rationale,omitempty"`
	TimeBarFinding     string         `json:"time_bar_finding,omitempty"`
	InterestFinding    string         `json:"interest_finding,omitempty"`
	Conclusion         string         `json:"conclusion"`
	DecisionDate       *time.Time     `json:"decision_date,omitempty"`
}

// Complete reports whether the assessment carries everything a decision
// needs.
func (a Assessment) Complete() bool {
	if !a.Cause.Valid() || !a.VilkaarOutcome.Valid() {
		return false
	}
	if _, ok := legalBasisCodes[a.LegalBasis]; !ok {
		return false
	}
	if strings.TrimSpace(a.Description) == "" || strings.TrimSpace(a.Conclusion) == "" {
		return false
	}
	for _, f := range a.SubFindings {
		switch f.Answer {
		case FindingYes, FindingNo, FindingPartial:
		default:
			return false
		}
	}
	return a.DecisionDate != nil && !a.DecisionDate.IsZero()
}

// RepaymentCase is the decision in progress for one claim.
type RepaymentCase struct {
	ID               snowflake.ID  `gorm:"primaryKey" json:"id"`
	SakID            int64         `gorm:"not null;index" json:"sak_id"`
	ClaimID          int64         `gorm:"not null;uniqueIndex" json:"claim_id"`
	Status           CaseStatus    `gorm:"type:text;not null" json:"status"`
	Claim            Claim         `gorm:"type:jsonb;serializer:json;not null" json:"claim"`
	Assessment       *Assessment   `gorm:"type:jsonb;serializer:json" json:"assessment,omitempty"`
	Periods          []ClaimPeriod `gorm:"type:jsonb;serializer:json;not null" json:"periods"`
	NetOverride      bool          `gorm:"not null;default:false" json:"net_override"`
	DecidedBy        string        `gorm:"type:text" json:"decided_by,omitempty"`
	ExternallyClosed bool          `gorm:"not null;default:false" json:"externally_closed"`
	ClosedAt         *time.Time    `json:"closed_at,omitempty"`
	Version          int           `gorm:"not null;default:1" json:"version"`
	CreatedAt        time.Time     `gorm:"not null" json:"created_at"`
	UpdatedAt        time.Time     `gorm:"not null" json:"updated_at"`
}

func (RepaymentCase) TableName() string { return "repayment_cases" }

// CanBeModified is false only once the accounting system has closed the
// claim.
func (c *RepaymentCase) CanBeModified() bool {
	if c.ExternallyClosed {
		return false
	}
	_, ok := modifiableStatuses[c.Status]
	return ok
}

func (c *RepaymentCase) transition(to CaseStatus, allowed ...CaseStatus) error {
	if !c.CanBeModified() {
		return ErrCaseClosed
	}
	for _, from := range allowed {
		if c.Status == from {
			c.Status = to
			return nil
		}
	}
	return &InvalidTransitionError{From: c.Status, To: to}
}

// editableFrom are the states where case-worker edits are accepted. Edits
// invalidate an unsent decision.
var editableFrom = []CaseStatus{
	CaseStatusCreated,
	CaseStatusInProgress,
	CaseStatusDecisionMade,
	CaseStatusRejected,
}

// SetAssessment stores a new assessment and moves the case to IN_PROGRESS.
func (c *RepaymentCase) SetAssessment(a Assessment) error {
	if err := c.transition(CaseStatusInProgress, editableFrom...); err != nil {
		return err
	}
	c.Assessment = &a
	return nil
}

// SetNetOverride toggles the net-of-tax override.
func (c *RepaymentCase) SetNetOverride(enabled bool) error {
	if err := c.transition(CaseStatusInProgress, editableFrom...); err != nil {
		return err
	}
	c.NetOverride = enabled
	return nil
}

// AnnotatePeriods applies per-line assessments to the case's periods.
func (c *RepaymentCase) AnnotatePeriods(annotations []LineAssessment) error {
	if err := c.transition(CaseStatusInProgress, editableFrom...); err != nil {
		return err
	}

	periods := ClonePeriods(c.Periods)
	for _, a := range annotations {
		line := findBenefitLine(periods, a.PeriodFrom, a.ClassCode)
		if line == nil {
			return ErrUnknownLine
		}
		if a.Outcome != nil && !a.Outcome.Valid() {
			return ErrInvalidAssessment
		}
		if a.Fault != nil && !a.Fault.Valid() {
			return ErrInvalidAssessment
		}
		if a.Cause != nil && !a.Cause.Valid() {
			return ErrInvalidAssessment
		}
		line.Outcome = a.Outcome
		line.Fault = a.Fault
		line.Cause = a.Cause
		line.TaxAmount = a.TaxAmount
		line.NetToRecover = a.NetToRecover
		line.InterestAmount = a.InterestAmount
	}
	c.Periods = periods
	return nil
}

func findBenefitLine(periods []ClaimPeriod, from time.Time, classCode string) *ClaimAmountLine {
	for i := range periods {
		if !sameDay(periods[i].From, from) {
			continue
		}
		for j := range periods[i].Lines {
			line := &periods[i].Lines[j]
			if line.ClassType == ClassTypeBenefit && line.ClassCode == classCode {
				return line
			}
		}
	}
	return nil
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// PeriodsAssessed reports whether at least one period exists and every
// benefit line carries outcome, fault and cause.
func (c *RepaymentCase) PeriodsAssessed() bool {
	if len(c.Periods) == 0 {
		return false
	}
	for _, p := range c.Periods {
		for _, l := range p.Lines {
			if l.ClassType == ClassTypeBenefit && !l.Assessed() {
				return false
			}
		}
	}
	return true
}

// Decide moves the case to DECISION_MADE.
func (c *RepaymentCase) Decide(preparerIdent string) error {
	if !c.CanBeModified() {
		return ErrCaseClosed
	}
	if c.Assessment == nil || !c.Assessment.Complete() {
		return ErrIncompleteAssessment
	}
	if !c.PeriodsAssessed() {
		return ErrPeriodsNotAssessed
	}
	if strings.TrimSpace(preparerIdent) == "" {
		return &MissingRequiredFieldError{Field: "preparer_ident", Context: "case"}
	}
	if err := c.transition(CaseStatusDecisionMade, CaseStatusInProgress, CaseStatusRejected); err != nil {
		return err
	}
	c.DecidedBy = strings.TrimSpace(preparerIdent)
	return nil
}

// Approve records a successful send of the decision.
func (c *RepaymentCase) Approve() error {
	return c.transition(CaseStatusApproved, CaseStatusDecisionMade)
}

// Reject sends a decided or approved case back for rework.
func (c *RepaymentCase) Reject() error {
	return c.transition(CaseStatusRejected, CaseStatusDecisionMade, CaseStatusApproved)
}

// ReplaceClaim swaps in a newer version of the claim and returns the case
// to IN_PROGRESS. Existing line annotations are discarded.
func (c *RepaymentCase) ReplaceClaim(claim Claim) error {
	if !c.CanBeModified() {
		return ErrCaseClosed
	}
	c.Claim = claim
	c.Periods = ClonePeriods(claim.Periods)
	if c.Status != CaseStatusCreated {
		c.Status = CaseStatusInProgress
	}
	return nil
}

// ApplyClaimStatus records a status reported by the accounting system. A
// terminal status closes the case for good.
func (c *RepaymentCase) ApplyClaimStatus(status ClaimStatus, at time.Time) {
	c.Claim.Status = status
	if status.Terminal() && !c.ExternallyClosed {
		c.ExternallyClosed = true
		closedAt := at.UTC()
		c.ClosedAt = &closedAt
	}
}

// LineAssessment annotates one benefit line, identified by period start and
// class code.
type LineAssessment struct {
	PeriodFrom     time.Time `json:"period_from"`
	ClassCode      string    `json:"class_code"`
	Outcome        *Outcome  `json:"outcome,omitempty"`
	Fault          *Fault    `json:"fault,omitempty"`
	Cause          *Cause    `json:"cause,omitempty"`
	TaxAmount      *int64    `json:"tax_amount,omitempty"`
	NetToRecover   *int64    `json:"net_to_recover,omitempty"`
	InterestAmount *int64    `json:"interest_amount,omitempty"`
}
