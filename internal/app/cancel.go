package app

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"entrade/internal/lifecycle"
	"entrade/internal/order"
	"entrade/internal/storage"
)

// Cancel requests deletion of one order. Only ACTIVE orders pass the
// client-side gate; for anything else the command is a no-op with an
// explanation, and the server independently enforces the same rule.
func (a *App) Cancel(ctx context.Context, opts CancelOptions) error {
	sess, err := a.newSession()
	if err != nil {
		return err
	}
	client := a.newClient(sess)

	records, err := client.ListOrders(ctx)
	if err != nil {
		return err
	}

	var target *order.Record
	for i := range records {
		if records[i].ID == opts.OrderID {
			target = &records[i]
			break
		}
	}
	if target == nil {
		return fmt.Errorf("order %d not found", opts.OrderID)
	}

	if !lifecycle.CanCancel(*target) {
		fmt.Fprintf(a.Out, "order %d is %s; only waiting orders can be cancelled\n",
			opts.OrderID, lifecycle.StatusLabel(target.NormalizedStatus()))
		return nil
	}

	if !opts.Yes && !a.confirm(fmt.Sprintf("cancel order %d?", opts.OrderID)) {
		fmt.Fprintln(a.Out, "aborted")
		return nil
	}

	cancelErr := client.CancelOrder(ctx, opts.OrderID)
	a.journalCancellation(ctx, *target, cancelErr)
	if cancelErr != nil {
		return cancelErr
	}

	fmt.Fprintf(a.Out, "order %d cancelled\n", opts.OrderID)
	return nil
}

func (a *App) confirm(prompt string) bool {
	fmt.Fprintf(a.Out, "%s [y/N] ", prompt)
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

func (a *App) journalCancellation(ctx context.Context, rec order.Record, cancelErr error) {
	store, closeStore, err := a.openJournal(ctx)
	if err != nil {
		a.Logger.Error().Err(err).Msg("journal unavailable")
		return
	}
	if store == nil {
		return
	}
	defer closeStore()

	remoteID := rec.ID
	event := storage.OrderEvent{
		Action:    storage.ActionCancel,
		OrderType: string(rec.OrderType),
		RemoteID:  &remoteID,
		Outcome:   "ok",
	}
	if cancelErr != nil {
		event.Outcome = "error"
		msg := cancelErr.Error()
		event.Error = &msg
	}

	if _, err := store.InsertEvent(ctx, event); err != nil {
		a.Logger.Error().Err(err).Msg("failed to journal cancellation")
	}
}
