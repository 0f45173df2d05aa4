package app

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"

	"entrade/internal/lifecycle"
	"entrade/internal/order"
	"entrade/internal/storage"
)

// Orders prints the open order view: everything except COMPLETED.
func (a *App) Orders(ctx context.Context) error {
	sess, err := a.newSession()
	if err != nil {
		return err
	}

	records, err := a.newClient(sess).ListOrders(ctx)
	if err != nil {
		return err
	}

	visible := lifecycle.OpenOrders(records)
	a.snapshotOrders(ctx, visible)

	a.renderSummary(lifecycle.Summarize(visible))
	if len(visible) == 0 {
		fmt.Fprintln(a.Out, "no open orders")
		return nil
	}

	writer := tabwriter.NewWriter(a.Out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "ID\tType\tkWh\tPrice/kWh\tStart\tEnd\tStatus\tCancellable")
	for _, rec := range visible {
		cancellable := "-"
		if lifecycle.CanCancel(rec) {
			cancellable = "yes"
		}
		fmt.Fprintf(writer, "%d\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			rec.ID,
			rec.OrderType,
			formatDecimal(rec.AmountKwh, 1),
			formatDecimal(rec.PricePerKwh, 0),
			formatWireTime(rec.StartTime),
			formatWireTime(rec.EndTime),
			lifecycle.StatusLabel(rec.NormalizedStatus()),
			cancellable,
		)
	}
	return writer.Flush()
}

// Completed prints the settled history view.
func (a *App) Completed(ctx context.Context) error {
	sess, err := a.newSession()
	if err != nil {
		return err
	}

	records, err := a.newClient(sess).ListCompletedOrders(ctx)
	if err != nil {
		return err
	}

	visible := lifecycle.CompletedOrders(records)
	a.renderSummary(lifecycle.Summarize(visible))
	if len(visible) == 0 {
		fmt.Fprintln(a.Out, "no completed orders")
		return nil
	}

	writer := tabwriter.NewWriter(a.Out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "ID\tType\tkWh\tPrice/kWh\tStart\tEnd\tCreated")
	for _, rec := range visible {
		fmt.Fprintf(writer, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
			rec.ID,
			rec.OrderType,
			formatDecimal(rec.AmountKwh, 1),
			formatDecimal(rec.PricePerKwh, 0),
			formatWireTime(rec.StartTime),
			formatWireTime(rec.EndTime),
			formatWireTime(rec.CreatedAt),
		)
	}
	return writer.Flush()
}

func (a *App) renderSummary(summary lifecycle.Summary) {
	fmt.Fprintf(a.Out, "orders: %d total, %d buy, %d sell\n", summary.Total, summary.Buy, summary.Sell)
}

// snapshotOrders journals the fetched set when a journal is configured.
func (a *App) snapshotOrders(ctx context.Context, records []order.Record) {
	store, closeStore, err := a.openJournal(ctx)
	if err != nil {
		a.Logger.Error().Err(err).Msg("journal unavailable")
		return
	}
	if store == nil {
		return
	}
	defer closeStore()

	fetchedAt := time.Now().UTC()
	snapshots := make([]storage.OrderSnapshot, 0, len(records))
	for _, rec := range records {
		snap := storage.OrderSnapshot{
			RemoteID:    rec.ID,
			OrderType:   string(rec.OrderType),
			AmountKwh:   rec.AmountKwh,
			PricePerKwh: rec.PricePerKwh,
			Status:      string(rec.NormalizedStatus()),
		}
		if start, err := order.ParseInstant(rec.StartTime); err == nil {
			snap.StartTime = &start
		}
		if end, err := order.ParseInstant(rec.EndTime); err == nil {
			snap.EndTime = &end
		}
		snapshots = append(snapshots, snap)
	}

	if err := store.InsertSnapshots(ctx, fetchedAt, snapshots); err != nil {
		a.Logger.Error().Err(err).Msg("failed to journal order snapshots")
	}
}

func formatDecimal(d decimal.Decimal, places int32) string {
	return d.StringFixed(places)
}

func formatWireTime(value string) string {
	ts, err := order.ParseInstant(value)
	if err != nil {
		return sanitizeInline(value)
	}
	return strings.Replace(ts.Format(order.MinuteLayout), "T", " ", 1)
}
