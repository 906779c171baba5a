package protocol

import (
	"fmt"

	"github.com/shopspring/decimal"
)

const amountScale = 2

// Amount is a two-decimal fixed-point value. Internally money is kept in
// minor units (øre); conversion happens only at the wire boundary.
type Amount struct {
	decimal.Decimal
}

func AmountFromMinor(minor int64) Amount {
	return Amount{Decimal: decimal.New(minor, -amountScale)}
}

func ZeroAmount() Amount {
	return AmountFromMinor(0)
}

// Minor converts back to minor units. Values with more than two decimals
// are rejected instead of rounded.
func (a Amount) Minor() (int64, error) {
	shifted := a.Decimal.Shift(amountScale)
	if !shifted.Equal(shifted.Truncate(0)) {
		return 0, fmt.Errorf("amount %s has more than %d decimals", a.Decimal.String(), amountScale)
	}
	return shifted.IntPart(), nil
}

func (a Amount) String() string {
	return a.Decimal.StringFixed(amountScale)
}

func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(a.Decimal.StringFixed(amountScale)), nil
}

func (a *Amount) UnmarshalJSON(data []byte) error {
	var d decimal.Decimal
	if err := d.UnmarshalJSON(data); err != nil {
		return err
	}
	a.Decimal = d
	return nil
}
