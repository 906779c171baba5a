package domain

import "time"

// Regime is the legal regime version in effect for a period.
type Regime string

const (
	RegimeBarnepensjonTom2023 Regime = "BP_TOM_2023"
	RegimeBarnepensjonFom2024 Regime = "BP_FOM_2024"
	RegimeOmstillingsstoenad  Regime = "OMS"
)

var barnepensjonRegime2024 = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

// CategoryLookup resolves a class code for a benefit type and regime.
type CategoryLookup interface {
	Lookup(benefitType, regime string) (string, bool)
}

// RegimeFor returns the regime in effect for a period starting at from.
func RegimeFor(benefitType BenefitType, from time.Time) (Regime, error) {
	switch benefitType {
	case BenefitTypeBarnepensjon:
		if from.Before(barnepensjonRegime2024) {
			return RegimeBarnepensjonTom2023, nil
		}
		return RegimeBarnepensjonFom2024, nil
	case BenefitTypeOmstillingsstoenad:
		return RegimeOmstillingsstoenad, nil
	default:
		return "", &UnmappedCategoryError{BenefitType: benefitType}
	}
}

// ClassCodeFor resolves the category code for a line's period.
func ClassCodeFor(lookup CategoryLookup, benefitType BenefitType, from time.Time) (string, error) {
	regime, err := RegimeFor(benefitType, from)
	if err != nil {
		return "", err
	}
	code, ok := lookup.Lookup(string(benefitType), string(regime))
	if !ok || code == "" {
		return "", &UnmappedCategoryError{BenefitType: benefitType, Regime: regime}
	}
	return code, nil
}
