package app

import (
	"context"
	"errors"
	"fmt"
	"text/tabwriter"

	"entrade/internal/order"
)

// History prints recent journal entries.
func (a *App) History(ctx context.Context, opts HistoryOptions) error {
	store, closeStore, err := a.openJournal(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot show history")
	}
	defer closeStore()

	events, err := store.ListRecentEvents(ctx, opts.Limit)
	if err != nil {
		return err
	}
	if len(events) == 0 {
		fmt.Fprintln(a.Out, "no journal entries found")
		return nil
	}

	writer := tabwriter.NewWriter(a.Out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Time (UTC)\tAction\tType\tkWh\tPrice/kWh\tOrder\tOutcome\tError")

	for _, event := range events {
		amount, price, remote := "-", "-", "-"
		if event.AmountKwh != nil {
			amount = event.AmountKwh.StringFixed(1)
		}
		if event.PricePerKwh != nil {
			price = event.PricePerKwh.StringFixed(0)
		}
		if event.RemoteID != nil {
			remote = fmt.Sprintf("%d", *event.RemoteID)
		}
		errMsg := ""
		if event.Error != nil {
			errMsg = sanitizeInline(*event.Error)
		}
		fmt.Fprintf(writer, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			event.CreatedAt.UTC().Format(order.SecondLayout),
			event.Action,
			event.OrderType,
			amount,
			price,
			remote,
			event.Outcome,
			errMsg,
		)
	}

	return writer.Flush()
}
