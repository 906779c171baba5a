package domain

// Outcome is the recovery outcome for a benefit line.
type Outcome string

const (
	OutcomeFull    Outcome = "FULL_TILBAKEKREV"
	OutcomePartial Outcome = "DELVIS_TILBAKEKREV"
	OutcomeNone    Outcome = "INGEN_TILBAKEKREV"
)

// Fault attributes who caused the wrong payment.
type Fault string

const (
	FaultRecipient  Fault = "BRUKER"
	FaultAgency     Fault = "NAV"
	FaultShared     Fault = "SKYLDDELING"
	FaultUnassigned Fault = "IKKE_FORDELT"
)

// Cause is the internal reason for the wrong payment.
type Cause string

const (
	CauseOther               Cause = "ANNET"
	CauseIncomeIncrease      Cause = "ARBHOYINNT"
	CauseCalculationError    Cause = "BEREGNFEIL"
	CauseDeath               Cause = "DODSFALL"
	CauseMarriage            Cause = "EKTESKAP"
	CauseWrongRule           Cause = "FEILREGEL"
	CauseWrongRegistration   Cause = "FEILUFOREG"
	CauseMovedAbroad         Cause = "FLYTTUTLAND"
	CauseBenefitNotChecked   Cause = "IKKESJEKKYTELSE"
	CauseOverlookedNotice    Cause = "OVERSETTMLD"
	CauseCohabitation        Cause = "SAMLIV"
	CauseWronglyPaidReceived Cause = "UTBFEILMOT"
)

// LegalBasis is the statutory basis for the decision.
type LegalBasis string

const (
	LegalBasis2215         LegalBasis = "22-15"
	LegalBasis2215First1   LegalBasis = "22-15-1-1"
	LegalBasis2215First2   LegalBasis = "22-15-1-2"
	LegalBasis2215Second   LegalBasis = "22-15-2"
	LegalBasis2215Fifth    LegalBasis = "22-15-5"
	LegalBasis2215Sixth    LegalBasis = "22-15-6"
	LegalBasis2217A        LegalBasis = "22-17A"
	LegalBasisNonStatutory LegalBasis = "ULOVFESTET"
)

// VilkaarOutcome is the overall finding on the recovery conditions.
type VilkaarOutcome string

const (
	VilkaarMet          VilkaarOutcome = "MET"
	VilkaarPartiallyMet VilkaarOutcome = "PARTIALLY_MET"
	VilkaarNotMet       VilkaarOutcome = "NOT_MET"
)

// External codes the accounting system recognizes for cause and legal basis.
const (
	ExternalCauseOther      = "ANNET"
	ExternalLegalBasisOther = "ANNET"
)

// causeCodes collapses every internal cause onto the two codes the
// accounting system accepts. Every Cause constant must have an entry.
var causeCodes = map[Cause]string{
	CauseOther:               ExternalCauseOther,
	CauseIncomeIncrease:      ExternalCauseOther,
	CauseCalculationError:    ExternalCauseOther,
	CauseDeath:               ExternalCauseOther,
	CauseMarriage:            ExternalCauseOther,
	CauseWrongRule:           ExternalCauseOther,
	CauseWrongRegistration:   ExternalCauseOther,
	CauseMovedAbroad:         ExternalCauseOther,
	CauseBenefitNotChecked:   ExternalCauseOther,
	CauseOverlookedNotice:    ExternalCauseOther,
	CauseCohabitation:        ExternalCauseOther,
	CauseWronglyPaidReceived: string(CauseWronglyPaidReceived),
}

// legalBasisCodes is the same collapse for legal basis.
var legalBasisCodes = map[LegalBasis]string{
	LegalBasis2215:         string(LegalBasis2215),
	LegalBasis2215First1:   ExternalLegalBasisOther,
	LegalBasis2215First2:   ExternalLegalBasisOther,
	LegalBasis2215Second:   ExternalLegalBasisOther,
	LegalBasis2215Fifth:    ExternalLegalBasisOther,
	LegalBasis2215Sixth:    ExternalLegalBasisOther,
	LegalBasis2217A:        ExternalLegalBasisOther,
	LegalBasisNonStatutory: ExternalLegalBasisOther,
}

func collapse[K ~string](table map[K]string, value K, field string) (string, error) {
	code, ok := table[value]
	if !ok {
		return "", &UnmappedCodeError{Field: field, Value: string(value)}
	}
	return code, nil
}

// ExternalCause maps a cause to its accounting system code.
func ExternalCause(c Cause) (string, error) {
	return collapse(causeCodes, c, "cause")
}

// ExternalLegalBasis maps a legal basis to its accounting system code.
func ExternalLegalBasis(b LegalBasis) (string, error) {
	return collapse(legalBasisCodes, b, "legal_basis")
}

// Causes lists every known cause.
func Causes() []Cause {
	return []Cause{
		CauseOther, CauseIncomeIncrease, CauseCalculationError, CauseDeath,
		CauseMarriage, CauseWrongRule, CauseWrongRegistration, CauseMovedAbroad,
		CauseBenefitNotChecked, CauseOverlookedNotice, CauseCohabitation,
		CauseWronglyPaidReceived,
	}
}

// LegalBases lists every known legal basis.
func LegalBases() []LegalBasis {
	return []LegalBasis{
		LegalBasis2215, LegalBasis2215First1, LegalBasis2215First2,
		LegalBasis2215Second, LegalBasis2215Fifth, LegalBasis2215Sixth,
		LegalBasis2217A, LegalBasisNonStatutory,
	}
}

func (o Outcome) Valid() bool {
	switch o {
	case OutcomeFull, OutcomePartial, OutcomeNone:
		return true
	}
	return false
}

func (f Fault) Valid() bool {
	switch f {
	case FaultRecipient, FaultAgency, FaultShared, FaultUnassigned:
		return true
	}
	return false
}

func (c Cause) Valid() bool {
	_, ok := causeCodes[c]
	return ok
}

func (v VilkaarOutcome) Valid() bool {
	switch v {
	case VilkaarMet, VilkaarPartiallyMet, VilkaarNotMet:
		return true
	}
	return false
}
