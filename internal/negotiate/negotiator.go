// Package negotiate enforces the server-computed minimum order end time.
//
// The marketplace derives the earliest permissible end time from the
// requested energy amount; this package never reimplements that formula.
// It debounces lookups while the user edits, guards against out-of-order
// responses with a monotonically increasing sequence number, and keeps
// the end-time field from ever dropping below the resolved floor.
package negotiate

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"entrade/internal/logging"
	"entrade/internal/market"
	"entrade/internal/order"
)

// DefaultDebounce spaces lookups while the user is still typing.
const DefaultDebounce = 200 * time.Millisecond

// Options tune negotiator behaviour.
type Options struct {
	Debounce       time.Duration
	RequestTimeout time.Duration
}

// Result reports a resolved floor and any end-time auto-correction.
type Result struct {
	Floor     time.Time // truncated to minute precision
	EndTime   string    // current end-time field value after enforcement
	Corrected bool      // true when the end time was advanced to the floor
}

// Negotiator owns the end-time field of one order form. Update feeds it
// start-time/amount edits, SetEndTime feeds it end-time edits; it never
// triggers a lookup from end-time changes, which would loop.
type Negotiator struct {
	resolver market.MinEndTimeResolver
	opts     Options
	logger   zerolog.Logger

	// OnFloor and OnError surface outcomes of asynchronous lookups.
	// Invoked without the internal lock held. Set before first Update.
	OnFloor func(Result)
	OnError func(error)

	mu       sync.Mutex
	timer    *time.Timer
	seq      uint64
	start    time.Time
	amount   decimal.Decimal
	floor    time.Time
	hasFloor bool
	endTime  string
}

// New constructs a negotiator over the given resolver.
func New(resolver market.MinEndTimeResolver, opts Options, logger zerolog.Logger) *Negotiator {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 10 * time.Second
	}
	return &Negotiator{
		resolver: resolver,
		opts:     opts,
		logger:   logging.Component(logger, "min_end_negotiator"),
	}
}

// Update records a start-time or amount edit and schedules a debounced
// lookup. When either value is absent or the amount is not a positive
// number, no request is issued and any previously negotiated floor is
// cleared. Each call supersedes whatever was pending before it.
func (n *Negotiator) Update(startTime, amountKwh string) {
	n.mu.Lock()
	defer n.mu.Unlock()

	// Any edit invalidates responses still in flight.
	n.seq++

	if n.timer != nil {
		n.timer.Stop()
		n.timer = nil
	}

	start, startErr := time.Parse(order.MinuteLayout, startTime)
	amount, amountErr := decimal.NewFromString(amountKwh)
	if startTime == "" || amountKwh == "" || startErr != nil || amountErr != nil || !amount.IsPositive() {
		n.start = time.Time{}
		n.amount = decimal.Decimal{}
		n.floor = time.Time{}
		n.hasFloor = false
		return
	}

	n.start = start
	n.amount = amount
	// The scheduled lookup carries this edit's sequence number; fire
	// re-checks it so an expired timer cannot outlive a later edit.
	seq := n.seq
	n.timer = time.AfterFunc(n.opts.Debounce, func() { n.fire(seq) })
}

func (n *Negotiator) fire(seq uint64) {
	n.mu.Lock()
	if seq != n.seq {
		n.mu.Unlock()
		n.logger.Debug().Uint64("seq", seq).Msg("skipping superseded min-end-time lookup")
		return
	}
	start := n.start
	amount := n.amount
	n.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), n.opts.RequestTimeout)
	defer cancel()

	floor, err := n.resolver.MinEndTime(ctx, start, amount)
	n.apply(seq, floor, err)
}

// ResolveNow performs one synchronous lookup, bypassing the debounce.
// Used by one-shot callers that have a settled start time and amount.
func (n *Negotiator) ResolveNow(ctx context.Context, startTime, amountKwh string) (Result, error) {
	start, err := time.Parse(order.MinuteLayout, startTime)
	if err != nil {
		return Result{}, err
	}
	amount, err := decimal.NewFromString(amountKwh)
	if err != nil {
		return Result{}, err
	}

	n.mu.Lock()
	n.seq++
	seq := n.seq
	n.start = start
	n.amount = amount
	n.mu.Unlock()

	floor, rerr := n.resolver.MinEndTime(ctx, start, amount)
	res, applied := n.apply(seq, floor, rerr)
	if rerr != nil {
		return Result{}, rerr
	}
	if !applied {
		n.mu.Lock()
		res = Result{Floor: n.floor, EndTime: n.endTime}
		n.mu.Unlock()
	}
	return res, nil
}

// apply installs a response unless a newer request has superseded it.
func (n *Negotiator) apply(seq uint64, floor time.Time, err error) (Result, bool) {
	n.mu.Lock()
	if seq != n.seq {
		n.mu.Unlock()
		n.logger.Debug().Uint64("seq", seq).Msg("discarding stale min-end-time response")
		return Result{}, false
	}

	if err != nil {
		n.floor = time.Time{}
		n.hasFloor = false
		onError := n.OnError
		n.mu.Unlock()
		n.logger.Warn().Err(err).Msg("min-end-time lookup failed")
		if onError != nil {
			onError(err)
		}
		return Result{}, false
	}

	n.floor = floor.Truncate(time.Minute)
	n.hasFloor = true

	res := Result{Floor: n.floor, EndTime: n.endTime}
	if n.endTime == "" {
		res.Corrected = true
	} else if end, perr := time.Parse(order.MinuteLayout, n.endTime); perr != nil || end.Before(n.floor) {
		res.Corrected = true
	}
	if res.Corrected {
		n.endTime = n.floor.Format(order.MinuteLayout)
		res.EndTime = n.endTime
	}

	onFloor := n.OnFloor
	n.mu.Unlock()

	n.logger.Debug().Time("floor", res.Floor).Bool("corrected", res.Corrected).Msg("min-end-time floor resolved")
	if onFloor != nil {
		onFloor(res)
	}
	return res, true
}

// SetEndTime applies a user edit to the end-time field. Values below the
// current floor are rejected: the field snaps back to the floor and the
// returned error carries the floor's formatted value.
func (n *Negotiator) SetEndTime(value string) (string, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.hasFloor && value != "" {
		if end, err := time.Parse(order.MinuteLayout, value); err == nil && end.Before(n.floor) {
			n.endTime = n.floor.Format(order.MinuteLayout)
			return n.endTime, order.BelowFloorError(n.floor)
		}
	}
	n.endTime = value
	return n.endTime, nil
}

// EndTime returns the current end-time field value.
func (n *Negotiator) EndTime() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.endTime
}

// Floor returns the current negotiated floor, if one is set.
func (n *Negotiator) Floor() (time.Time, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.floor, n.hasFloor
}

// Clear drops the floor and any pending lookup, e.g. after a successful
// submission resets the form.
func (n *Negotiator) Clear() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.seq++
	if n.timer != nil {
		n.timer.Stop()
		n.timer = nil
	}
	n.floor = time.Time{}
	n.hasFloor = false
	n.endTime = ""
}
