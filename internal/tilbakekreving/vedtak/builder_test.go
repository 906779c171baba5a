package vedtak

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/smallbiznis/okonomi/internal/accounting/protocol"
	"github.com/smallbiznis/okonomi/internal/tilbakekreving/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func minor(t *testing.T, a protocol.Amount) int64 {
	t.Helper()
	v, err := a.Minor()
	require.NoError(t, err)
	return v
}

func benefit(code string) domain.ClaimAmountLine {
	return domain.ClaimAmountLine{
		ClassCode:       code,
		ClassType:       domain.ClassTypeBenefit,
		OriginalAmount:  5000,
		CorrectedAmount: 4000,
		GrossToRecover:  1000,
		TaxAmount:       ptr(int64(100)),
		NetToRecover:    ptr(int64(900)),
		Outcome:         ptr(domain.OutcomeFull),
		Fault:           ptr(domain.FaultRecipient),
		Cause:           ptr(domain.CauseIncomeIncrease),
	}
}

func testCase(lines ...domain.ClaimAmountLine) domain.RepaymentCase {
	decided := time.Date(2024, 4, 2, 0, 0, 0, 0, time.UTC)
	return domain.RepaymentCase{
		ID:     1,
		SakID:  42,
		Status: domain.CaseStatusDecisionMade,
		Claim: domain.Claim{
			ClaimID:      900,
			VedtakID:     555,
			ControlField: "2024-03-01-10.00.00.000000",
		},
		Assessment: &domain.Assessment{
			Cause:          domain.CauseIncomeIncrease,
			LegalBasis:     domain.LegalBasis2215First1,
			VilkaarOutcome: domain.VilkaarMet,
			Description:    "d",
			Conclusion:     "c",
			DecisionDate:   &decided,
		},
		DecidedBy: "Z990001",
		Periods: []domain.ClaimPeriod{{
			From:  time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			To:    time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC),
			Lines: lines,
		}},
	}
}

func TestBuildHeader(t *testing.T) {
	c := testCase(benefit("BARNEPENSJON-OPTP"))
	c.Assessment.LegalBasis = domain.LegalBasis2215

	v, err := NewBuilder("4819").Build(c)
	require.NoError(t, err)

	assert.Equal(t, "8", v.ActionCode)
	assert.Equal(t, int64(555), v.VedtakID)
	assert.Equal(t, "N", v.InterestComputed)
	assert.Equal(t, "4819", v.ResponsibleUnit)
	assert.Equal(t, "22-15", v.LegalBasisCode)
	assert.Equal(t, "2024-03-01-10.00.00.000000", v.ControlField)
	assert.Equal(t, "Z990001", v.PreparerIdent)
	assert.Equal(t, "2024-04-02", v.DecisionDate.String())
	require.Len(t, v.Periods, 1)
	assert.Equal(t, "N", v.Periods[0].InterestComputed)
}

func TestBuildDefaultsResponsibleUnit(t *testing.T) {
	v, err := NewBuilder("").Build(testCase(benefit("X")))
	require.NoError(t, err)
	assert.Equal(t, "8020", v.ResponsibleUnit)
	assert.Equal(t, "ANNET", v.LegalBasisCode)
}

func TestBuildOrdersLines(t *testing.T) {
	adjustment := domain.ClaimAmountLine{ClassCode: "JUST-1", ClassType: domain.ClassTypeAdjustment}
	errLine := domain.ClaimAmountLine{ClassCode: "KL_KODE_FEIL", ClassType: domain.ClassTypeError}
	interest := domain.ClaimAmountLine{ClassCode: "RENTE-1", ClassType: domain.ClassTypeInterest}
	tax := domain.ClaimAmountLine{ClassCode: "SKATT-1", ClassType: domain.ClassTypeTax}

	v, err := NewBuilder("").Build(testCase(adjustment, errLine, benefit("BARNEPENSJON-OPTP"), interest, tax))
	require.NoError(t, err)

	var codes []string
	for _, l := range v.Periods[0].Lines {
		codes = append(codes, l.ClassCode)
	}
	assert.Equal(t, []string{"KL_KODE_FEIL", "BARNEPENSJON-OPTP", "JUST-1", "RENTE-1", "SKATT-1"}, codes)
}

func TestBuildOverrideRule(t *testing.T) {
	c := testCase(benefit("BARNEPENSJON-OPTP"))

	v, err := NewBuilder("").Build(c)
	require.NoError(t, err)
	line := v.Periods[0].Lines[0]
	assert.Equal(t, int64(1000), minor(t, line.AmountToRecover))
	require.NotNil(t, line.TaxAmount)
	assert.Equal(t, int64(100), minor(t, *line.TaxAmount))

	c.NetOverride = true
	v, err = NewBuilder("").Build(c)
	require.NoError(t, err)
	line = v.Periods[0].Lines[0]
	assert.Equal(t, int64(900), minor(t, line.AmountToRecover))
	require.NotNil(t, line.TaxAmount)
	assert.Equal(t, int64(0), minor(t, *line.TaxAmount))
}

func TestBuildOverrideLeavesOtherClassesAlone(t *testing.T) {
	feil := domain.ClaimAmountLine{ClassCode: "KL_KODE_FEIL", ClassType: domain.ClassTypeError, GrossToRecover: 700}
	c := testCase(feil, benefit("BARNEPENSJON-OPTP"))
	c.NetOverride = true

	v, err := NewBuilder("").Build(c)
	require.NoError(t, err)
	assert.Equal(t, int64(700), minor(t, v.Periods[0].Lines[0].AmountToRecover))
	assert.Nil(t, v.Periods[0].Lines[0].TaxAmount)
}

func TestBuildMissingTaxFailsWithoutPartialResult(t *testing.T) {
	line := benefit("BARNEPENSJON-OPTP")
	line.TaxAmount = nil

	v, err := NewBuilder("").Build(testCase(benefit("OK-1"), line))

	var missing *domain.MissingRequiredFieldError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, "tax_amount", missing.Field)
	assert.Empty(t, v.Periods)
	assert.Zero(t, v.VedtakID)
}

func TestBuildMissingOutcomeAndFault(t *testing.T) {
	noOutcome := benefit("A")
	noOutcome.Outcome = nil
	_, err := NewBuilder("").Build(testCase(noOutcome))
	var missing *domain.MissingRequiredFieldError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, "outcome", missing.Field)

	noFault := benefit("A")
	noFault.Fault = nil
	_, err = NewBuilder("").Build(testCase(noFault))
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, "fault", missing.Field)
}

func TestBuildInterestSumsBenefitLines(t *testing.T) {
	a := benefit("A")
	a.InterestAmount = ptr(int64(1234))
	b := benefit("B")
	b.InterestAmount = ptr(int64(66))
	other := domain.ClaimAmountLine{ClassCode: "R", ClassType: domain.ClassTypeInterest, InterestAmount: ptr(int64(999))}

	v, err := NewBuilder("").Build(testCase(a, other, b))
	require.NoError(t, err)
	assert.Equal(t, "13.00", v.Periods[0].InterestAmount.String())
}

func TestBuildNonBenefitLineWireShape(t *testing.T) {
	feil := domain.ClaimAmountLine{
		ClassCode:       "KL_KODE_FEIL",
		ClassType:       domain.ClassTypeError,
		OriginalAmount:  0,
		CorrectedAmount: 100000,
		GrossToRecover:  0,
		Outcome:         ptr(domain.OutcomeFull),
	}

	v, err := NewBuilder("").Build(testCase(feil))
	require.NoError(t, err)

	raw, err := json.Marshal(v.Periods[0].Lines[0])
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"kodeKlasse": "KL_KODE_FEIL",
		"belopOpprUtbet": 0.00,
		"belopNy": 1000.00,
		"belopTilbakekreves": 0.00
	}`, string(raw))
}
