package storage

import (
	"time"

	"github.com/shopspring/decimal"
)

// Actions recorded in the journal.
const (
	ActionSubmit = "submit"
	ActionCancel = "cancel"
)

// OrderEvent records one client action against the marketplace, kept
// locally for auditing. Cancel events carry only the remote order id.
type OrderEvent struct {
	ID          int64
	Action      string
	OrderType   string
	AmountKwh   *decimal.Decimal
	PricePerKwh *decimal.Decimal
	StartTime   *time.Time
	EndTime     *time.Time
	RemoteID    *int64
	Outcome     string
	Error       *string
	CreatedAt   time.Time
}

// OrderSnapshot is one marketplace record as seen at fetch time. A
// refresh inserts the whole visible set under a single fetched_at.
type OrderSnapshot struct {
	ID          int64
	FetchedAt   time.Time
	RemoteID    int64
	OrderType   string
	AmountKwh   decimal.Decimal
	PricePerKwh decimal.Decimal
	StartTime   *time.Time
	EndTime     *time.Time
	Status      string
	CreatedAt   time.Time
}
