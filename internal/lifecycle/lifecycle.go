package lifecycle

import (
	"entrade/internal/order"
)

// The server drives status transitions; the client only reflects them.
// ACTIVE → MATCHED → COMPLETED, or ACTIVE → EXPIRED.
var transitions = map[order.Status][]order.Status{
	order.StatusActive:  {order.StatusMatched, order.StatusExpired},
	order.StatusMatched: {order.StatusCompleted},
}

// IsTerminal reports whether a status can never change again.
func IsTerminal(s order.Status) bool {
	return s == order.StatusCompleted || s == order.StatusExpired
}

// CanTransition reports whether the server could legally move an order
// from one status to another. Useful for sanity-checking refreshed data.
func CanTransition(from, to order.Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// CanCancel is the client-side cancellation gate: only ACTIVE orders may
// be cancelled. The server independently rejects everything else.
func CanCancel(r order.Record) bool {
	return r.NormalizedStatus() == order.StatusActive
}

// OpenOrders filters the records shown in the orders view: everything
// except COMPLETED, which lives in the separate history view.
func OpenOrders(records []order.Record) []order.Record {
	out := make([]order.Record, 0, len(records))
	for _, r := range records {
		if r.NormalizedStatus() != order.StatusCompleted {
			out = append(out, r)
		}
	}
	return out
}

// CompletedOrders keeps only COMPLETED records. Applied defensively on
// top of the dedicated endpoint.
func CompletedOrders(records []order.Record) []order.Record {
	out := make([]order.Record, 0, len(records))
	for _, r := range records {
		if r.NormalizedStatus() == order.StatusCompleted {
			out = append(out, r)
		}
	}
	return out
}

// Summary aggregates the currently visible set.
type Summary struct {
	Total int
	Buy   int
	Sell  int
}

// Summarize derives total/buy/sell counts over the given records.
func Summarize(records []order.Record) Summary {
	s := Summary{Total: len(records)}
	for _, r := range records {
		switch r.OrderType {
		case order.TypeBuy:
			s.Buy++
		case order.TypeSell:
			s.Sell++
		}
	}
	return s
}

// StatusLabel renders a status for table output.
func StatusLabel(s order.Status) string {
	switch s {
	case order.StatusActive:
		return "waiting"
	case order.StatusMatched:
		return "matched"
	case order.StatusCompleted:
		return "done"
	case order.StatusExpired:
		return "expired"
	default:
		if s == "" {
			return "-"
		}
		return string(s)
	}
}
