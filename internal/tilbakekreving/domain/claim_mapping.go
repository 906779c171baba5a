package domain

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/smallbiznis/okonomi/internal/accounting/protocol"
)

var claimStatusCodes = map[string]ClaimStatus{
	"NY":   ClaimStatusNew,
	"ENDR": ClaimStatusNew,
	"BEHA": ClaimStatusInProgress,
	"AVSL": ClaimStatusClosed,
	"ANNU": ClaimStatusAnnulled,
	"SPER": ClaimStatusSuspended,
	"FEIL": ClaimStatusError,
	"MANU": ClaimStatusManual,
	"KVIT": ClaimStatusConfirmed,
}

var classTypeCodes = map[string]ClassType{
	"YTEL": ClassTypeBenefit,
	"SKAT": ClassTypeTax,
	"FEIL": ClassTypeError,
	"JUST": ClassTypeAdjustment,
	"RENT": ClassTypeInterest,
	"TREK": ClassTypeDeduction,
}

// ClaimStatusFromCode maps kodeStatusKrav onto ClaimStatus.
func ClaimStatusFromCode(code string) (ClaimStatus, error) {
	status, ok := claimStatusCodes[strings.ToUpper(strings.TrimSpace(code))]
	if !ok {
		return "", &UnmappedCodeError{Field: "claim_status", Value: code}
	}
	return status, nil
}

// ClaimFromDetail converts the accounting system's claim into the internal
// model. Amounts are converted to minor units.
func ClaimFromDetail(detail protocol.ClaimDetail) (Claim, error) {
	sakID, err := strconv.ParseInt(strings.TrimSpace(detail.SakRef), 10, 64)
	if err != nil || sakID <= 0 {
		return Claim{}, fmt.Errorf("%w: fagsystemId %q", ErrInvalidClaim, detail.SakRef)
	}
	if detail.ClaimID <= 0 || detail.VedtakID <= 0 {
		return Claim{}, fmt.Errorf("%w: missing claim or vedtak id", ErrInvalidClaim)
	}
	if strings.TrimSpace(detail.ControlField) == "" {
		return Claim{}, fmt.Errorf("%w: missing control field", ErrInvalidClaim)
	}

	status, err := ClaimStatusFromCode(detail.StatusCode)
	if err != nil {
		return Claim{}, err
	}

	claim := Claim{
		ClaimID:      detail.ClaimID,
		SakID:        sakID,
		VedtakID:     detail.VedtakID,
		SourceRef:    detail.SourceRef,
		ControlField: detail.ControlField,
		Status:       status,
		CaseWorker:   detail.CaseWorker,
		Reference:    detail.Reference,
		Periods:      make([]ClaimPeriod, 0, len(detail.Periods)),
	}

	for _, p := range detail.Periods {
		tax, err := p.TaxAmount.Minor()
		if err != nil {
			return Claim{}, fmt.Errorf("%w: %v", ErrInvalidClaim, err)
		}
		period := ClaimPeriod{
			From:      p.Period.From.Time,
			To:        p.Period.To.Time,
			TaxAmount: tax,
			Lines:     make([]ClaimAmountLine, 0, len(p.Lines)),
		}
		for _, l := range p.Lines {
			line, err := claimLineFromDetail(l)
			if err != nil {
				return Claim{}, err
			}
			period.Lines = append(period.Lines, line)
		}
		claim.Periods = append(claim.Periods, period)
	}
	return claim, nil
}

func claimLineFromDetail(l protocol.ClaimDetailLine) (ClaimAmountLine, error) {
	classType, ok := classTypeCodes[strings.ToUpper(strings.TrimSpace(l.ClassType))]
	if !ok {
		return ClaimAmountLine{}, &UnmappedCodeError{Field: "class_type", Value: l.ClassType}
	}

	amounts := []protocol.Amount{l.OriginalAmount, l.CorrectedAmount, l.GrossToRecover, l.Exempt}
	minor := make([]int64, len(amounts))
	for i, a := range amounts {
		v, err := a.Minor()
		if err != nil {
			return ClaimAmountLine{}, fmt.Errorf("%w: %v", ErrInvalidClaim, err)
		}
		minor[i] = v
	}

	return ClaimAmountLine{
		ClassCode:       strings.TrimSpace(l.ClassCode),
		ClassType:       classType,
		OriginalAmount:  minor[0],
		CorrectedAmount: minor[1],
		GrossToRecover:  minor[2],
		Exempt:          minor[3],
		TaxPercent:      l.TaxPercent.Decimal,
	}, nil
}
