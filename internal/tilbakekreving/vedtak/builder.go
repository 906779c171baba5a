// Package vedtak maps a repayment case onto the accounting system's
// decision request.
package vedtak

import (
	"fmt"
	"sort"
	"strings"

	"github.com/smallbiznis/okonomi/internal/accounting/protocol"
	"github.com/smallbiznis/okonomi/internal/config"
	"github.com/smallbiznis/okonomi/internal/tilbakekreving/domain"
)

// Builder is pure. The responsible unit is the national accounting unit and
// never the case's own unit.
type Builder struct {
	responsibleUnit string
}

func NewBuilder(responsibleUnit string) *Builder {
	unit := strings.TrimSpace(responsibleUnit)
	if unit == "" {
		unit = config.DefaultResponsibleUnit
	}
	return &Builder{responsibleUnit: unit}
}

// Provide builds the Builder from application config.
func Provide(cfg config.Config) *Builder {
	return NewBuilder(cfg.Accounting.ResponsibleUnit)
}

func (b *Builder) ResponsibleUnit() string {
	return b.responsibleUnit
}

// Build returns the request for c or the first missing field. Nothing is
// returned on error.
func (b *Builder) Build(c domain.RepaymentCase) (protocol.Vedtak, error) {
	if c.Assessment == nil {
		return protocol.Vedtak{}, &domain.MissingRequiredFieldError{Field: "assessment", Context: "case"}
	}
	if c.Assessment.DecisionDate == nil || c.Assessment.DecisionDate.IsZero() {
		return protocol.Vedtak{}, &domain.MissingRequiredFieldError{Field: "decision_date", Context: "assessment"}
	}
	if strings.TrimSpace(c.DecidedBy) == "" {
		return protocol.Vedtak{}, &domain.MissingRequiredFieldError{Field: "preparer_ident", Context: "case"}
	}
	if c.Claim.VedtakID <= 0 {
		return protocol.Vedtak{}, &domain.MissingRequiredFieldError{Field: "vedtak_id", Context: "claim"}
	}
	if strings.TrimSpace(c.Claim.ControlField) == "" {
		return protocol.Vedtak{}, &domain.MissingRequiredFieldError{Field: "control_field", Context: "claim"}
	}

	legalBasis, err := domain.ExternalLegalBasis(c.Assessment.LegalBasis)
	if err != nil {
		return protocol.Vedtak{}, err
	}

	periods := make([]protocol.VedtakPeriod, 0, len(c.Periods))
	for _, p := range c.Periods {
		period, err := b.buildPeriod(p, c.NetOverride)
		if err != nil {
			return protocol.Vedtak{}, err
		}
		periods = append(periods, period)
	}

	return protocol.Vedtak{
		ActionCode:       protocol.ActionCodeIssueDecision,
		VedtakID:         c.Claim.VedtakID,
		LegalBasisCode:   legalBasis,
		InterestComputed: protocol.InterestNotComputed,
		ResponsibleUnit:  b.responsibleUnit,
		ControlField:     c.Claim.ControlField,
		PreparerIdent:    strings.TrimSpace(c.DecidedBy),
		DecisionDate:     protocol.NewDate(*c.Assessment.DecisionDate),
		Periods:          periods,
	}, nil
}

func (b *Builder) buildPeriod(p domain.ClaimPeriod, netOverride bool) (protocol.VedtakPeriod, error) {
	ordered := OrderLines(p.Lines)

	var interest int64
	lines := make([]protocol.VedtakLine, 0, len(ordered))
	for _, l := range ordered {
		var (
			mapped protocol.VedtakLine
			err    error
		)
		if l.ClassType == domain.ClassTypeBenefit {
			if l.InterestAmount != nil {
				interest += *l.InterestAmount
			}
			mapped, err = benefitLine(p, l, netOverride)
		} else {
			mapped = otherLine(l)
		}
		if err != nil {
			return protocol.VedtakPeriod{}, err
		}
		lines = append(lines, mapped)
	}

	return protocol.VedtakPeriod{
		Period: protocol.Period{
			From: protocol.NewDate(p.From),
			To:   protocol.NewDate(p.To),
		},
		InterestComputed: protocol.InterestNotComputed,
		InterestAmount:   protocol.AmountFromMinor(interest),
		Lines:            lines,
	}, nil
}

func benefitLine(p domain.ClaimPeriod, l domain.ClaimAmountLine, netOverride bool) (protocol.VedtakLine, error) {
	where := fmt.Sprintf("period %s line %s", protocol.NewDate(p.From), l.ClassCode)
	if l.TaxAmount == nil {
		return protocol.VedtakLine{}, &domain.MissingRequiredFieldError{Field: "tax_amount", Context: where}
	}
	if l.Outcome == nil {
		return protocol.VedtakLine{}, &domain.MissingRequiredFieldError{Field: "outcome", Context: where}
	}
	if l.Fault == nil {
		return protocol.VedtakLine{}, &domain.MissingRequiredFieldError{Field: "fault", Context: where}
	}
	if l.Cause == nil {
		return protocol.VedtakLine{}, &domain.MissingRequiredFieldError{Field: "cause", Context: where}
	}
	cause, err := domain.ExternalCause(*l.Cause)
	if err != nil {
		return protocol.VedtakLine{}, err
	}

	tax := protocol.AmountFromMinor(*l.TaxAmount)
	mapped := protocol.VedtakLine{
		ClassCode:       l.ClassCode,
		OriginalAmount:  protocol.AmountFromMinor(l.OriginalAmount),
		CorrectedAmount: protocol.AmountFromMinor(l.CorrectedAmount),
		AmountToRecover: protocol.AmountFromMinor(l.GrossToRecover),
		TaxAmount:       &tax,
		OutcomeCode:     string(*l.Outcome),
		FaultCode:       string(*l.Fault),
		CauseCode:       cause,
	}

	if netOverride {
		zero := protocol.ZeroAmount()
		mapped.AmountToRecover = protocol.AmountFromMinor(l.Net())
		mapped.TaxAmount = &zero
	}
	return mapped, nil
}

func otherLine(l domain.ClaimAmountLine) protocol.VedtakLine {
	return protocol.VedtakLine{
		ClassCode:       l.ClassCode,
		OriginalAmount:  protocol.AmountFromMinor(l.OriginalAmount),
		CorrectedAmount: protocol.AmountFromMinor(l.CorrectedAmount),
		AmountToRecover: protocol.AmountFromMinor(l.GrossToRecover),
	}
}

// OrderLines returns lines with ERROR first, BENEFIT second and the rest in
// their original relative order.
func OrderLines(lines []domain.ClaimAmountLine) []domain.ClaimAmountLine {
	out := append([]domain.ClaimAmountLine(nil), lines...)
	sort.SliceStable(out, func(i, j int) bool {
		return lineRank(out[i].ClassType) < lineRank(out[j].ClassType)
	})
	return out
}

func lineRank(t domain.ClassType) int {
	switch t {
	case domain.ClassTypeError:
		return 0
	case domain.ClassTypeBenefit:
		return 1
	default:
		return 2
	}
}
