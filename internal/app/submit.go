package app

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"entrade/internal/order"
	"entrade/internal/storage"
)

// Submit composes a draft, negotiates the minimum end time, validates,
// and posts the order. The draft never leaves this call; on success it is
// reset and the negotiated floor cleared, on failure it stays printable
// so the user can retry with adjusted flags.
func (a *App) Submit(ctx context.Context, opts SubmitOptions) error {
	sess, err := a.newSession()
	if err != nil {
		return err
	}
	client := a.newClient(sess)

	draft := order.NewDraft(opts.OrderType)
	draft.AmountKwh = strings.TrimSpace(opts.AmountKwh)
	draft.Price = strings.TrimSpace(opts.Price)
	draft.StartTime = strings.TrimSpace(opts.StartTime)
	draft.EndTime = strings.TrimSpace(opts.EndTime)

	if opts.OrderType == order.TypeBuy {
		if err := applyWeights(&draft, opts); err != nil {
			return err
		}
		fmt.Fprintf(a.Out, "matching weights: %s\n", draft.Weights.Summary())
	}

	negotiator := a.newNegotiator(client)
	if _, err := negotiator.SetEndTime(draft.EndTime); err != nil {
		return err
	}

	// The floor only exists once start time and amount are both known;
	// a failed lookup is a warning, not a submission blocker.
	if draft.StartTime != "" && draft.AmountKwh != "" {
		res, err := negotiator.ResolveNow(ctx, draft.StartTime, draft.AmountKwh)
		if err != nil {
			a.Logger.Warn().Err(err).Msg("minimum end time unavailable; submitting without a floor")
		} else if res.Corrected {
			fmt.Fprintf(a.Out, "end time adjusted to the marketplace minimum: %s\n",
				strings.Replace(res.EndTime, "T", " ", 1))
		}
		draft.EndTime = negotiator.EndTime()
	}

	var floorPtr *time.Time
	if floor, ok := negotiator.Floor(); ok {
		floorPtr = &floor
	}

	payload, err := draft.Validate(floorPtr)
	if err != nil {
		return err
	}

	if total := draft.EstimatedTotal(); total.IsPositive() {
		fmt.Fprintf(a.Out, "estimated settlement: %s\n", total.StringFixed(0))
	}

	submitErr := client.SubmitOrder(ctx, payload)
	a.journalSubmission(ctx, payload, submitErr)

	if submitErr != nil {
		return submitErr
	}

	draft.Reset()
	negotiator.Clear()

	fmt.Fprintf(a.Out, "%s order registered\n", payload.OrderType)
	return nil
}

func applyWeights(draft *order.Draft, opts SubmitOptions) error {
	if opts.Preset != "" {
		preset, err := order.Preset(opts.Preset)
		if err != nil {
			return err
		}
		draft.Weights = preset
	}

	for _, edit := range opts.WeightEdits {
		key, raw, found := strings.Cut(edit, "=")
		if !found {
			return fmt.Errorf("weight edit must look like key=value, got %q", edit)
		}
		value, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return fmt.Errorf("weight value in %q must be a number", edit)
		}
		updated, err := draft.Weights.Set(strings.TrimSpace(key), value)
		if err != nil {
			return err
		}
		draft.Weights = updated
	}
	return nil
}

// journalSubmission best-effort records the attempt locally; journal
// failures never affect the user-facing outcome.
func (a *App) journalSubmission(ctx context.Context, payload order.Payload, submitErr error) {
	store, closeStore, err := a.openJournal(ctx)
	if err != nil {
		a.Logger.Error().Err(err).Msg("journal unavailable")
		return
	}
	if store == nil {
		return
	}
	defer closeStore()

	event := storage.OrderEvent{
		Action:    storage.ActionSubmit,
		OrderType: string(payload.OrderType),
		Outcome:   "ok",
	}
	event.AmountKwh = &payload.AmountKwh
	event.PricePerKwh = &payload.PricePerKwh
	if start, err := order.ParseInstant(payload.StartTime); err == nil {
		event.StartTime = &start
	}
	if end, err := order.ParseInstant(payload.EndTime); err == nil {
		event.EndTime = &end
	}
	if submitErr != nil {
		event.Outcome = "error"
		msg := submitErr.Error()
		event.Error = &msg
	}

	if _, err := store.InsertEvent(ctx, event); err != nil {
		a.Logger.Error().Err(err).Msg("failed to journal submission")
	}
}
