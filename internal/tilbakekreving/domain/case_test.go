package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

var january = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func testClaim() Claim {
	return Claim{
		ClaimID:      555,
		SakID:        1001,
		VedtakID:     12,
		ControlField: "k1",
		Status:       ClaimStatusNew,
		Periods: []ClaimPeriod{{
			From:      january,
			To:        time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC),
			TaxAmount: 300,
			Lines: []ClaimAmountLine{
				{ClassCode: "BPSKSKAT", ClassType: ClassTypeTax, GrossToRecover: 300},
				{ClassCode: "BARNEPENSJON-OPPR", ClassType: ClassTypeBenefit, OriginalAmount: 3000, CorrectedAmount: 2000, GrossToRecover: 1000},
			},
		}},
	}
}

func completeAssessment() Assessment {
	return Assessment{
		Cause:          CauseIncomeIncrease,
		Description:    "inntekt økte",
		LegalBasis:     LegalBasis2215First1,
		VilkaarOutcome: VilkaarMet,
		Conclusion:     "tilbakekreves",
		SubFindings:    []SubFinding{{Question: "aktsomhet", Answer: FindingNo}},
		DecisionDate:   ptr(time.Date(2024, 2, 20, 0, 0, 0, 0, time.UTC)),
	}
}

func newCase() *RepaymentCase {
	claim := testClaim()
	return &RepaymentCase{
		SakID:   claim.SakID,
		ClaimID: claim.ClaimID,
		Status:  CaseStatusCreated,
		Claim:   claim,
		Periods: ClonePeriods(claim.Periods),
		Version: 1,
	}
}

func assessLines(t *testing.T, c *RepaymentCase) {
	t.Helper()
	require.NoError(t, c.AnnotatePeriods([]LineAssessment{{
		PeriodFrom: january,
		ClassCode:  "BARNEPENSJON-OPPR",
		Outcome:    ptr(OutcomeFull),
		Fault:      ptr(FaultRecipient),
		Cause:      ptr(CauseIncomeIncrease),
		TaxAmount:  ptr(int64(100)),
	}}))
}

func TestAssessmentComplete(t *testing.T) {
	assert.True(t, completeAssessment().Complete())

	missingDate := completeAssessment()
	missingDate.DecisionDate = nil
	assert.False(t, missingDate.Complete())

	badCause := completeAssessment()
	badCause.Cause = "UKJENT"
	assert.False(t, badCause.Complete())

	badFinding := completeAssessment()
	badFinding.SubFindings = []SubFinding{{Question: "x", Answer: "MAYBE"}}
	assert.False(t, badFinding.Complete())

	blankConclusion := completeAssessment()
	blankConclusion.Conclusion = "  "
	assert.False(t, blankConclusion.Complete())
}

func TestCaseLifecycle(t *testing.T) {
	c := newCase()
	require.NoError(t, c.SetAssessment(completeAssessment()))
	assert.Equal(t, CaseStatusInProgress, c.Status)

	assessLines(t, c)
	assert.True(t, c.PeriodsAssessed())

	require.NoError(t, c.Decide(" Z990001 "))
	assert.Equal(t, CaseStatusDecisionMade, c.Status)
	assert.Equal(t, "Z990001", c.DecidedBy)

	require.NoError(t, c.Approve())
	assert.Equal(t, CaseStatusApproved, c.Status)

	err := c.SetNetOverride(true)
	var transitionErr *InvalidTransitionError
	require.ErrorAs(t, err, &transitionErr)
	assert.Equal(t, CaseStatusApproved, transitionErr.From)

	require.NoError(t, c.Reject())
	assert.Equal(t, CaseStatusRejected, c.Status)
	require.NoError(t, c.Decide("Z990001"))
	assert.Equal(t, CaseStatusDecisionMade, c.Status)
}

func TestDecideRequirements(t *testing.T) {
	c := newCase()
	assert.ErrorIs(t, c.Decide("Z990001"), ErrIncompleteAssessment)

	require.NoError(t, c.SetAssessment(completeAssessment()))
	assert.ErrorIs(t, c.Decide("Z990001"), ErrPeriodsNotAssessed)

	assessLines(t, c)
	var missing *MissingRequiredFieldError
	require.ErrorAs(t, c.Decide(" "), &missing)
	assert.Equal(t, "preparer_ident", missing.Field)
	assert.Equal(t, CaseStatusInProgress, c.Status)

	empty := newCase()
	empty.Periods = nil
	require.NoError(t, empty.SetAssessment(completeAssessment()))
	assert.ErrorIs(t, empty.Decide("Z990001"), ErrPeriodsNotAssessed)
}

func TestCreatedCaseCannotBeDecidedDirectly(t *testing.T) {
	c := newCase()
	c.Assessment = ptr(completeAssessment())
	assessLinesWithoutTransition(c)

	var transitionErr *InvalidTransitionError
	require.ErrorAs(t, c.Decide("Z990001"), &transitionErr)
	assert.Equal(t, CaseStatusCreated, transitionErr.From)
}

func assessLinesWithoutTransition(c *RepaymentCase) {
	line := &c.Periods[0].Lines[1]
	line.Outcome = ptr(OutcomeFull)
	line.Fault = ptr(FaultRecipient)
	line.Cause = ptr(CauseIncomeIncrease)
}

func TestAnnotatePeriodsRejectsUnknownLine(t *testing.T) {
	c := newCase()
	err := c.AnnotatePeriods([]LineAssessment{{PeriodFrom: january, ClassCode: "BPSKSKAT"}})
	assert.ErrorIs(t, err, ErrUnknownLine)
	assert.Nil(t, c.Periods[0].Lines[0].Outcome)

	err = c.AnnotatePeriods([]LineAssessment{{PeriodFrom: january, ClassCode: "BARNEPENSJON-OPPR", Fault: ptr(Fault("ALLE"))}})
	assert.ErrorIs(t, err, ErrInvalidAssessment)
	assert.Nil(t, c.Periods[0].Lines[1].Fault)
}

func TestClosedCaseRejectsEverything(t *testing.T) {
	c := newCase()
	c.ApplyClaimStatus(ClaimStatusAnnulled, time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC))

	assert.False(t, c.CanBeModified())
	require.NotNil(t, c.ClosedAt)
	assert.Equal(t, ClaimStatusAnnulled, c.Claim.Status)

	assert.ErrorIs(t, c.SetAssessment(completeAssessment()), ErrCaseClosed)
	assert.ErrorIs(t, c.SetNetOverride(true), ErrCaseClosed)
	assert.ErrorIs(t, c.Decide("Z990001"), ErrCaseClosed)
	assert.ErrorIs(t, c.ReplaceClaim(testClaim()), ErrCaseClosed)
	assert.ErrorIs(t, c.Reject(), ErrCaseClosed)
}

func TestNonTerminalClaimStatusKeepsCaseOpen(t *testing.T) {
	c := newCase()
	c.ApplyClaimStatus(ClaimStatusSuspended, time.Now())
	assert.True(t, c.CanBeModified())
	assert.Nil(t, c.ClosedAt)
}

func TestReplaceClaimDiscardsAnnotations(t *testing.T) {
	c := newCase()
	require.NoError(t, c.SetAssessment(completeAssessment()))
	assessLines(t, c)
	require.NoError(t, c.Decide("Z990001"))

	updated := testClaim()
	updated.ControlField = "k2"
	require.NoError(t, c.ReplaceClaim(updated))

	assert.Equal(t, CaseStatusInProgress, c.Status)
	assert.Equal(t, "k2", c.Claim.ControlField)
	assert.False(t, c.PeriodsAssessed())
}
