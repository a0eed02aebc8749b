package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/uptrace/bun"

	"ticket-relay/internal/counter"
	"ticket-relay/internal/models"
)

// DB is the SQL-backed counter store. It runs on sqlite or postgres through
// bun; atomicity comes from a single conditional UPDATE per increment, so
// no dialect-specific row locking is needed.
type DB struct {
	Bun *bun.DB
}

// CreateSchema bootstraps the tickets table. SQLite deployments and tests
// use this directly; postgres deployments run versioned migrations instead.
func (d *DB) CreateSchema(ctx context.Context) error {
	_, err := d.Bun.NewCreateTable().
		Model((*models.EventCounter)(nil)).
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return storeErr(err)
	}
	return nil
}

// Increment atomically adds delta to the event's total, creating the record
// at zero first when absent. A result below zero aborts with
// ErrNegativeTotal and leaves the stored value untouched. Two concurrent
// increments on one event name serialize on the row; other names proceed
// independently.
func (d *DB) Increment(ctx context.Context, eventName string, delta int) (int, error) {
	var newTotal int

	err := d.Bun.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		for {
			res, err := tx.NewUpdate().
				Model((*models.EventCounter)(nil)).
				Set("total = total + ?", delta).
				Where("event_name = ?", eventName).
				Where("total + ? >= 0", delta).
				Exec(ctx)
			if err != nil {
				return err
			}
			if n, err := res.RowsAffected(); err != nil {
				return err
			} else if n > 0 {
				break
			}

			exists, err := tx.NewSelect().
				Model((*models.EventCounter)(nil)).
				Where("event_name = ?", eventName).
				Exists(ctx)
			if err != nil {
				return err
			}
			if exists || delta < 0 {
				// The row is there and the guard refused the update, or
				// the first delta for an unseen event is itself negative.
				return counter.ErrNegativeTotal
			}

			ins, err := tx.NewInsert().
				Model(&models.EventCounter{EventName: eventName, Total: delta}).
				On("CONFLICT (event_name) DO NOTHING").
				Exec(ctx)
			if err != nil {
				return err
			}
			if n, err := ins.RowsAffected(); err != nil {
				return err
			} else if n > 0 {
				break
			}
			// Lost the insert race to a concurrent first sale; retry the
			// conditional update against the now-existing row.
		}

		return tx.NewSelect().
			Model((*models.EventCounter)(nil)).
			Column("total").
			Where("event_name = ?", eventName).
			Scan(ctx, &newTotal)
	})
	if err != nil {
		if errors.Is(err, counter.ErrNegativeTotal) {
			return 0, counter.ErrNegativeTotal
		}
		return 0, storeErr(err)
	}
	return newTotal, nil
}

// SetAbsolute replaces the event's total in one upsert, creating the record
// when absent. The caller validates total >= 0.
func (d *DB) SetAbsolute(ctx context.Context, eventName string, total int) (int, error) {
	record := &models.EventCounter{EventName: eventName, Total: total}
	_, err := d.Bun.NewInsert().
		Model(record).
		On("CONFLICT (event_name) DO UPDATE").
		Set("total = EXCLUDED.total").
		Exec(ctx)
	if err != nil {
		return 0, storeErr(err)
	}
	return total, nil
}

// GetAll returns every counter as a name-to-total map.
func (d *DB) GetAll(ctx context.Context) (map[string]int, error) {
	var records []models.EventCounter
	if err := d.Bun.NewSelect().Model(&records).Scan(ctx); err != nil {
		return nil, storeErr(err)
	}
	totals := make(map[string]int, len(records))
	for _, r := range records {
		totals[r.EventName] = r.Total
	}
	return totals, nil
}

// Delete removes one counter and reports whether it existed.
func (d *DB) Delete(ctx context.Context, eventName string) (bool, error) {
	res, err := d.Bun.NewDelete().
		Model((*models.EventCounter)(nil)).
		Where("event_name = ?", eventName).
		Exec(ctx)
	if err != nil {
		return false, storeErr(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, storeErr(err)
	}
	return n > 0, nil
}

// ResetAll removes every counter.
func (d *DB) ResetAll(ctx context.Context) error {
	_, err := d.Bun.NewDelete().
		Model((*models.EventCounter)(nil)).
		Where("1 = 1").
		Exec(ctx)
	if err != nil {
		return storeErr(err)
	}
	return nil
}

func storeErr(err error) error {
	return fmt.Errorf("%w: %v", counter.ErrStoreUnavailable, err)
}
