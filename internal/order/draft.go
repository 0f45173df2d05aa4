package order

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ErrMissingFields rejects a draft before any network traffic happens.
var ErrMissingFields = errors.New("amount, price, start time, and end time are all required")

// BelowFloorError is shared between the draft validator and the inline
// end-time guard so both reject with the same wording.
func BelowFloorError(floor time.Time) error {
	return fmt.Errorf("end time must be %s or later", strings.Replace(floor.Format(MinuteLayout), "T", " ", 1))
}

// Draft is the transient, client-only order being composed. Field values
// are raw form strings; validation converts them to typed values at the
// boundary instead of coercing late.
type Draft struct {
	Type      Type
	AmountKwh string
	Price     string
	StartTime string // minute precision, e.g. 2026-01-27T10:00
	EndTime   string
	Weights   WeightVector
}

// NewDraft starts an empty draft of the given type with default weights.
func NewDraft(orderType Type) Draft {
	return Draft{Type: orderType, Weights: DefaultWeights()}
}

// Reset clears the draft back to its initial state. The weight vector
// returns to the balanced preset.
func (d *Draft) Reset() {
	*d = NewDraft(d.Type)
	d.Weights = Presets["balanced"]
}

// Validate gates submission and assembles the wire payload. floor is the
// negotiated minimum end time, nil when none has been resolved. Times are
// normalised to whole-second precision; amounts and prices become
// decimals, rejecting anything that is not a positive number.
func (d Draft) Validate(floor *time.Time) (Payload, error) {
	if d.AmountKwh == "" || d.Price == "" || d.StartTime == "" || d.EndTime == "" {
		return Payload{}, ErrMissingFields
	}

	amount, err := parsePositiveDecimal("amount", d.AmountKwh)
	if err != nil {
		return Payload{}, err
	}
	price, err := parsePositiveDecimal("price", d.Price)
	if err != nil {
		return Payload{}, err
	}

	start, err := time.Parse(MinuteLayout, d.StartTime)
	if err != nil {
		return Payload{}, fmt.Errorf("invalid start time %q", d.StartTime)
	}
	end, err := time.Parse(MinuteLayout, d.EndTime)
	if err != nil {
		return Payload{}, fmt.Errorf("invalid end time %q", d.EndTime)
	}
	if !end.After(start) {
		return Payload{}, errors.New("end time must be after start time")
	}

	if floor != nil && end.Before(*floor) {
		return Payload{}, BelowFloorError(*floor)
	}

	payload := Payload{
		OrderType:   d.Type,
		PricePerKwh: price,
		AmountKwh:   amount,
		StartTime:   start.Format(SecondLayout),
		EndTime:     end.Format(SecondLayout),
	}

	if d.Type == TypeBuy {
		wp, wd, wt := d.Weights.Wire()
		payload.WeightPrice = &wp
		payload.WeightDistance = &wd
		payload.WeightTrust = &wt
	}

	return payload, nil
}

// EstimatedTotal is amount × price, shown to the user before submission.
// Zero when either field is absent or malformed.
func (d Draft) EstimatedTotal() decimal.Decimal {
	amount, err := decimal.NewFromString(d.AmountKwh)
	if err != nil {
		return decimal.Zero
	}
	price, err := decimal.NewFromString(d.Price)
	if err != nil {
		return decimal.Zero
	}
	return amount.Mul(price)
}

func parsePositiveDecimal(field, raw string) (decimal.Decimal, error) {
	value, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%s must be a number, got %q", field, raw)
	}
	if !value.IsPositive() {
		return decimal.Decimal{}, fmt.Errorf("%s must be greater than zero", field)
	}
	return value, nil
}
