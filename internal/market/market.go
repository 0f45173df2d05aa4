package market

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"entrade/internal/order"
)

// OrderService is the marketplace order surface the client consumes.
type OrderService interface {
	SubmitOrder(ctx context.Context, payload order.Payload) error
	ListOrders(ctx context.Context) ([]order.Record, error)
	ListCompletedOrders(ctx context.Context) ([]order.Record, error)
	CancelOrder(ctx context.Context, id int64) error
}

// MinEndTimeResolver resolves the server-authoritative earliest end time
// for a start time and energy amount. The formula behind it (the UI only
// hints at a 7kW basis plus buffer) is opaque to the client.
type MinEndTimeResolver interface {
	MinEndTime(ctx context.Context, startTime time.Time, amountKwh decimal.Decimal) (time.Time, error)
}
