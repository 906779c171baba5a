package domain

import (
	"sort"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
)

// ChainInput is everything the chain builder needs to derive the lines of
// a new order.
type ChainInput struct {
	OrderID    snowflake.ID
	Decision   Decision
	History    []PaymentOrder
	Categories CategoryLookup
	NextID     func() snowflake.ID
	Now        time.Time
}

// BuildLines derives the new order's lines in period order and links each
// one into the recipient's replaces chain. The first line replaces the last
// line of the most recent accepted prior order; every later line replaces
// the line before it.
func BuildLines(in ChainInput) ([]PaymentLine, error) {
	periods := make([]DecisionPeriod, len(in.Decision.Periods))
	copy(periods, in.Decision.Periods)
	sort.SliceStable(periods, func(i, j int) bool {
		return periods[i].From.Before(periods[j].From)
	})

	if len(in.History) == 0 && len(periods) == 1 && periods[0].Kind == LineKindTermination {
		return nil, &NoExistingPaymentError{
			RecipientID: in.Decision.RecipientID,
			SakID:       in.Decision.SakID,
		}
	}

	timing := TimingFor(in.Decision.RevisionReason)

	var previous *snowflake.ID
	if accepted := MostRecentAccepted(in.History); accepted != nil {
		if last := accepted.LastLine(); last != nil {
			id := last.ID
			previous = &id
		}
	}

	lines := make([]PaymentLine, 0, len(periods))
	for i, period := range periods {
		classCode, err := ClassCodeFor(in.Categories, in.Decision.BenefitType, period.From)
		if err != nil {
			return nil, err
		}

		line := PaymentLine{
			ID:         in.NextID(),
			OrderID:    in.OrderID,
			SakID:      in.Decision.SakID,
			Position:   i,
			Kind:       period.Kind,
			PeriodFrom: period.From,
			PeriodTo:   period.To,
			ClassCode:  classCode,
			Timing:     timing,
			ReplacesID: previous,
			CreatedAt:  in.Now,
		}
		if period.Kind == LineKindOngoingPayment {
			amount := *period.Amount
			line.Amount = &amount
		}
		lines = append(lines, line)

		id := line.ID
		previous = &id
	}
	return lines, nil
}

// TimingFor returns NEXT_SCHEDULED_RUN for indexation re-runs.
func TimingFor(revisionReason string) ExecutionTiming {
	if strings.EqualFold(strings.TrimSpace(revisionReason), RevisionReasonIndexation) {
		return ExecutionTimingNextScheduledRun
	}
	return ExecutionTimingImmediate
}

// MostRecentAccepted returns the latest prior order, by creation time, whose
// resolved status is accepted.
func MostRecentAccepted(history []PaymentOrder) *PaymentOrder {
	ordered := make([]PaymentOrder, len(history))
	copy(ordered, history)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].CreatedAt.Equal(ordered[j].CreatedAt) {
			return ordered[i].ID < ordered[j].ID
		}
		return ordered[i].CreatedAt.Before(ordered[j].CreatedAt)
	})

	for i := len(ordered) - 1; i >= 0; i-- {
		if ordered[i].Status().Accepted() {
			return &ordered[i]
		}
	}
	return nil
}

// ValidateDecision checks a decision snapshot before any lines are built.
func ValidateDecision(d Decision) error {
	if d.SakID <= 0 ||
		strings.TrimSpace(d.DecisionID) == "" ||
		strings.TrimSpace(d.RecipientID) == "" ||
		strings.TrimSpace(d.Preparer.Ident) == "" ||
		strings.TrimSpace(d.Approver.Ident) == "" {
		return ErrInvalidDecision
	}
	switch d.BenefitType {
	case BenefitTypeBarnepensjon, BenefitTypeOmstillingsstoenad:
	default:
		return &UnmappedCategoryError{BenefitType: d.BenefitType}
	}
	if len(d.Periods) == 0 {
		return ErrDecisionWithoutLines
	}
	for _, p := range d.Periods {
		if p.From.IsZero() {
			return ErrInvalidPeriod
		}
		if p.To != nil && p.To.Before(p.From) {
			return ErrInvalidPeriod
		}
		switch p.Kind {
		case LineKindOngoingPayment:
			if p.Amount == nil || *p.Amount < 0 {
				return ErrInvalidPeriod
			}
		case LineKindTermination:
			if p.Amount != nil {
				return ErrInvalidPeriod
			}
		default:
			return ErrInvalidPeriod
		}
	}
	return nil
}
