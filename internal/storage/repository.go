package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotConfigured indicates the storage pool was not initialised.
	ErrNotConfigured = errors.New("storage: pool not configured")
)

const (
	insertEventSQL = `INSERT INTO order_events (
        action,
        order_type,
        amount_kwh,
        price_per_kwh,
        start_time,
        end_time,
        remote_id,
        outcome,
        error
    ) VALUES (
        $1,$2,$3,$4,$5,$6,$7,$8,$9
    )
    RETURNING id, created_at;`

	listRecentEventsSQL = `SELECT
        id,
        action,
        order_type,
        amount_kwh::text,
        price_per_kwh::text,
        start_time,
        end_time,
        remote_id,
        outcome,
        error,
        created_at
    FROM order_events
    ORDER BY created_at DESC
    LIMIT $1;`

	countEventsSQL = `SELECT COUNT(*) FROM order_events;`

	insertSnapshotSQL = `INSERT INTO order_snapshots (
        fetched_at,
        remote_id,
        order_type,
        amount_kwh,
        price_per_kwh,
        start_time,
        end_time,
        status
    ) VALUES (
        $1,$2,$3,$4,$5,$6,$7,$8
    );`

	listSnapshotsBetweenSQL = `SELECT
        id,
        fetched_at,
        remote_id,
        order_type,
        amount_kwh::text,
        price_per_kwh::text,
        start_time,
        end_time,
        status,
        created_at
    FROM order_snapshots
    WHERE fetched_at >= $1
      AND fetched_at < $2
    ORDER BY fetched_at;`

	deleteSnapshotsBeforeSQL = `DELETE FROM order_snapshots WHERE fetched_at < $1;`
)

// EventJournal defines operations for the local action journal.
type EventJournal interface {
	InsertEvent(ctx context.Context, event OrderEvent) (OrderEvent, error)
	ListRecentEvents(ctx context.Context, limit int) ([]OrderEvent, error)
	CountEvents(ctx context.Context) (int64, error)
}

// SnapshotStore defines operations for journaled marketplace snapshots.
type SnapshotStore interface {
	InsertSnapshots(ctx context.Context, fetchedAt time.Time, snapshots []OrderSnapshot) error
	ListSnapshotsBetween(ctx context.Context, from, to time.Time) ([]OrderSnapshot, error)
	DeleteSnapshotsBefore(ctx context.Context, olderThan time.Time) error
}

// Store aggregates access to events and snapshots.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wires a pgx pool into a Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Close releases the underlying pool.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

func (s *Store) getPool() (*pgxpool.Pool, error) {
	if s.pool == nil {
		return nil, ErrNotConfigured
	}
	return s.pool, nil
}

// InsertEvent journals a submission or cancellation attempt.
func (s *Store) InsertEvent(ctx context.Context, event OrderEvent) (OrderEvent, error) {
	pool, err := s.getPool()
	if err != nil {
		return OrderEvent{}, err
	}

	var amount, price, errMsg, remoteID interface{}
	if event.AmountKwh != nil {
		amount = event.AmountKwh.String()
	}
	if event.PricePerKwh != nil {
		price = event.PricePerKwh.String()
	}
	if event.Error != nil {
		errMsg = *event.Error
	}
	if event.RemoteID != nil {
		remoteID = *event.RemoteID
	}

	row := pool.QueryRow(ctx, insertEventSQL,
		event.Action,
		event.OrderType,
		amount,
		price,
		event.StartTime,
		event.EndTime,
		remoteID,
		event.Outcome,
		errMsg,
	)

	if scanErr := row.Scan(&event.ID, &event.CreatedAt); scanErr != nil {
		return OrderEvent{}, fmt.Errorf("insert order event: %w", scanErr)
	}
	return event, nil
}

// ListRecentEvents returns the newest journal rows first.
func (s *Store) ListRecentEvents(ctx context.Context, limit int) ([]OrderEvent, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listRecentEventsSQL, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list order events: %w", queryErr)
	}
	defer rows.Close()

	events := make([]OrderEvent, 0)
	for rows.Next() {
		event, scanErr := scanOrderEvent(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

// CountEvents reports the journal size.
func (s *Store) CountEvents(ctx context.Context) (int64, error) {
	pool, err := s.getPool()
	if err != nil {
		return 0, err
	}

	var count int64
	if scanErr := pool.QueryRow(ctx, countEventsSQL).Scan(&count); scanErr != nil {
		return 0, fmt.Errorf("count order events: %w", scanErr)
	}
	return count, nil
}

// InsertSnapshots journals one fetched order set in a single transaction.
func (s *Store) InsertSnapshots(ctx context.Context, fetchedAt time.Time, snapshots []OrderSnapshot) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	if len(snapshots) == 0 {
		return nil
	}

	return pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error {
		for _, snap := range snapshots {
			if _, execErr := tx.Exec(ctx, insertSnapshotSQL,
				fetchedAt,
				snap.RemoteID,
				snap.OrderType,
				snap.AmountKwh.String(),
				snap.PricePerKwh.String(),
				snap.StartTime,
				snap.EndTime,
				snap.Status,
			); execErr != nil {
				return fmt.Errorf("insert order snapshot: %w", execErr)
			}
		}
		return nil
	})
}

// ListSnapshotsBetween returns snapshots in [from, to), oldest first.
func (s *Store) ListSnapshotsBetween(ctx context.Context, from, to time.Time) ([]OrderSnapshot, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listSnapshotsBetweenSQL, from, to)
	if queryErr != nil {
		return nil, fmt.Errorf("list order snapshots: %w", queryErr)
	}
	defer rows.Close()

	snapshots := make([]OrderSnapshot, 0)
	for rows.Next() {
		snap, scanErr := scanOrderSnapshot(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		snapshots = append(snapshots, snap)
	}
	return snapshots, rows.Err()
}

// DeleteSnapshotsBefore prunes old snapshot rows.
func (s *Store) DeleteSnapshotsBefore(ctx context.Context, olderThan time.Time) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	if _, execErr := pool.Exec(ctx, deleteSnapshotsBeforeSQL, olderThan); execErr != nil {
		return fmt.Errorf("delete order snapshots: %w", execErr)
	}
	return nil
}

func scanOrderEvent(rows pgx.Rows) (OrderEvent, error) {
	var (
		amountStr sql.NullString
		priceStr  sql.NullString
		start     sql.NullTime
		end       sql.NullTime
		remoteID  sql.NullInt64
		errMsg    sql.NullString
	)

	var event OrderEvent
	if err := rows.Scan(
		&event.ID,
		&event.Action,
		&event.OrderType,
		&amountStr,
		&priceStr,
		&start,
		&end,
		&remoteID,
		&event.Outcome,
		&errMsg,
		&event.CreatedAt,
	); err != nil {
		return OrderEvent{}, fmt.Errorf("scan order event: %w", err)
	}

	if amountStr.Valid {
		amount, convErr := decimal.NewFromString(amountStr.String)
		if convErr != nil {
			return OrderEvent{}, fmt.Errorf("parse amount: %w", convErr)
		}
		event.AmountKwh = &amount
	}
	if priceStr.Valid {
		price, convErr := decimal.NewFromString(priceStr.String)
		if convErr != nil {
			return OrderEvent{}, fmt.Errorf("parse price: %w", convErr)
		}
		event.PricePerKwh = &price
	}
	if start.Valid {
		value := start.Time
		event.StartTime = &value
	}
	if end.Valid {
		value := end.Time
		event.EndTime = &value
	}
	if remoteID.Valid {
		value := remoteID.Int64
		event.RemoteID = &value
	}
	if errMsg.Valid {
		msg := errMsg.String
		event.Error = &msg
	}

	return event, nil
}

func scanOrderSnapshot(rows pgx.Rows) (OrderSnapshot, error) {
	var (
		amountStr string
		priceStr  string
		start     sql.NullTime
		end       sql.NullTime
	)

	var snap OrderSnapshot
	if err := rows.Scan(
		&snap.ID,
		&snap.FetchedAt,
		&snap.RemoteID,
		&snap.OrderType,
		&amountStr,
		&priceStr,
		&start,
		&end,
		&snap.Status,
		&snap.CreatedAt,
	); err != nil {
		return OrderSnapshot{}, fmt.Errorf("scan order snapshot: %w", err)
	}

	amount, convErr := decimal.NewFromString(amountStr)
	if convErr != nil {
		return OrderSnapshot{}, fmt.Errorf("parse amount: %w", convErr)
	}
	snap.AmountKwh = amount

	price, convErr := decimal.NewFromString(priceStr)
	if convErr != nil {
		return OrderSnapshot{}, fmt.Errorf("parse price: %w", convErr)
	}
	snap.PricePerKwh = price

	if start.Valid {
		value := start.Time
		snap.StartTime = &value
	}
	if end.Valid {
		value := end.Time
		snap.EndTime = &value
	}

	return snap, nil
}

var (
	_ EventJournal  = (*Store)(nil)
	_ SnapshotStore = (*Store)(nil)
)
