package order

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Type distinguishes buy orders from sell orders.
type Type string

const (
	TypeBuy  Type = "buy"
	TypeSell Type = "sell"
)

// Status is the server-owned lifecycle state of an order.
type Status string

const (
	StatusActive    Status = "ACTIVE"
	StatusMatched   Status = "MATCHED"
	StatusCompleted Status = "COMPLETED"
	StatusExpired   Status = "EXPIRED"
)

// Layouts used on the wire and in form fields. The marketplace speaks
// zone-less local timestamps (ISO local date-time), form fields carry
// minute precision.
const (
	MinuteLayout = "2006-01-02T15:04"
	SecondLayout = "2006-01-02T15:04:05"
)

// Record is an order as returned by the marketplace. Read-only to the
// client; status transitions happen server-side.
type Record struct {
	ID          int64           `json:"id"`
	UserID      int64           `json:"userId,omitempty"`
	OrderType   Type            `json:"orderType"`
	PricePerKwh decimal.Decimal `json:"pricePerKwh"`
	AmountKwh   decimal.Decimal `json:"amountKwh"`
	StartTime   string          `json:"startTime"`
	EndTime     string          `json:"endTime"`
	Status      Status          `json:"status"`
	CreatedAt   string          `json:"createdAt"`
}

// NormalizedStatus folds casing quirks; some records arrive as "active".
func (r Record) NormalizedStatus() Status {
	return Status(strings.ToUpper(string(r.Status)))
}

// Payload is the submission body for POST /orders. Weight fields are
// pointers so that sell orders omit them entirely rather than sending
// zeros.
type Payload struct {
	OrderType      Type            `json:"orderType"`
	PricePerKwh    decimal.Decimal `json:"pricePerKwh"`
	AmountKwh      decimal.Decimal `json:"amountKwh"`
	StartTime      string          `json:"startTime"`
	EndTime        string          `json:"endTime"`
	WeightPrice    *float64        `json:"weightPrice,omitempty"`
	WeightDistance *float64        `json:"weightDistance,omitempty"`
	WeightTrust    *float64        `json:"weightTrust,omitempty"`
}

// ParseInstant accepts the timestamp shapes the marketplace emits:
// RFC3339, local seconds, and local minutes.
func ParseInstant(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range []string{time.RFC3339, SecondLayout, MinuteLayout} {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", value)
}
