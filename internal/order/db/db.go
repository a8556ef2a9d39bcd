package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"abitickets/internal/models"
)

const (
	counterOrderSeq     = "order_seq"
	counterTicketNumber = "ticket_number"
)

// DB is the bun-backed order ledger store. OrderPrefix and
// FirstTicketNumber come from configuration at construction.
type DB struct {
	Bun               *bun.DB
	OrderPrefix       string
	FirstTicketNumber int
}

// ---------------- ORDERS ----------------

// CreateOrder allocates the next order number and a contiguous block
// of ticket numbers, checks inventory and buyer uniqueness, and
// inserts order plus tickets, all in one transaction. The counter-row
// update runs first so concurrent purchases serialize on its row lock
// before either reads the sold total; the availability check can
// therefore never race another insert.
func (d *DB) CreateOrder(ctx context.Context, order *models.Order, maxTickets int) ([]models.Ticket, error) {
	var tickets []models.Ticket

	err := d.Bun.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		seq, err := nextCounter(ctx, tx, counterOrderSeq, 1)
		if err != nil {
			return fmt.Errorf("allocate order number: %w", err)
		}

		var sold int
		err = tx.NewSelect().
			Model((*models.Order)(nil)).
			ColumnExpr("COALESCE(SUM(anzahl_tickets), 0)").
			Scan(ctx, &sold)
		if err != nil {
			return fmt.Errorf("sum sold tickets: %w", err)
		}
		if order.AnzahlTickets > maxTickets-sold {
			return models.ErrSoldOut
		}

		exists, err := tx.NewSelect().
			Model((*models.Order)(nil)).
			Where("name = ?", order.Name).
			Where("email = ?", order.Email).
			Exists(ctx)
		if err != nil {
			return fmt.Errorf("check buyer: %w", err)
		}
		if exists {
			return models.ErrDuplicateBuyer
		}

		order.Bestellnummer = fmt.Sprintf("%s-%04d", d.OrderPrefix, seq)
		order.Token = models.OrderToken(order.Bestellnummer, order.Email)

		last, err := nextCounter(ctx, tx, counterTicketNumber, int64(order.AnzahlTickets))
		if err != nil {
			return fmt.Errorf("allocate ticket numbers: %w", err)
		}

		if _, err := tx.NewInsert().Model(order).Exec(ctx); err != nil {
			return fmt.Errorf("insert order: %w", err)
		}

		tickets = make([]models.Ticket, 0, order.AnzahlTickets)
		for n := last - int64(order.AnzahlTickets) + 1; n <= last; n++ {
			tickets = append(tickets, models.Ticket{
				Nummer:        int(n),
				Bestellnummer: order.Bestellnummer,
				Token:         models.TicketToken(order.Bestellnummer, order.Email, int(n)),
			})
		}
		if _, err := tx.NewInsert().Model(&tickets).Exec(ctx); err != nil {
			return fmt.Errorf("insert tickets: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return tickets, nil
}

// nextCounter advances a named counter by n and returns the new value.
// The UPDATE takes the row lock that serializes allocation.
func nextCounter(ctx context.Context, tx bun.Tx, name string, n int64) (int64, error) {
	res, err := tx.NewUpdate().
		Model((*models.Counter)(nil)).
		Set("value = value + ?", n).
		Where("name = ?", name).
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if rows == 0 {
		return 0, fmt.Errorf("counter %s not seeded", name)
	}

	var value int64
	err = tx.NewSelect().
		Model((*models.Counter)(nil)).
		Column("value").
		Where("name = ?", name).
		Scan(ctx, &value)
	return value, err
}

func (d *DB) GetOrderByNumber(ctx context.Context, bestellnummer string) (*models.Order, error) {
	var order models.Order
	err := d.Bun.NewSelect().
		Model(&order).
		Where("bestellnummer = ?", bestellnummer).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (d *DB) GetOrderByID(ctx context.Context, id int64) (*models.Order, error) {
	var order models.Order
	err := d.Bun.NewSelect().
		Model(&order).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (d *DB) ListOrders(ctx context.Context) ([]models.Order, error) {
	var orders []models.Order
	err := d.Bun.NewSelect().
		Model(&orders).
		Order("created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	if orders == nil {
		orders = []models.Order{}
	}
	return orders, nil
}

// SumTicketCount returns the number of tickets across all current
// orders, the basis of the remaining-inventory computation.
func (d *DB) SumTicketCount(ctx context.Context) (int, error) {
	var sold int
	err := d.Bun.NewSelect().
		Model((*models.Order)(nil)).
		ColumnExpr("COALESCE(SUM(anzahl_tickets), 0)").
		Scan(ctx, &sold)
	return sold, err
}

// MarkPaid flips gezahlt exactly once; the condition makes a repeated
// call report false instead of updating again.
func (d *DB) MarkPaid(ctx context.Context, bestellnummer string) (bool, error) {
	res, err := d.Bun.NewUpdate().
		Model((*models.Order)(nil)).
		Set("gezahlt = ?", true).
		Where("bestellnummer = ?", bestellnummer).
		Where("gezahlt = ?", false).
		Exec(ctx)
	if err != nil {
		return false, err
	}
	rows, err := res.RowsAffected()
	return rows > 0, err
}

func (d *DB) MarkEmailSent(ctx context.Context, bestellnummer string) error {
	_, err := d.Bun.NewUpdate().
		Model((*models.Order)(nil)).
		Set("email_sent = ?", true).
		Where("bestellnummer = ?", bestellnummer).
		Exec(ctx)
	return err
}

func (d *DB) MarkReminderSent(ctx context.Context, bestellnummer string) error {
	_, err := d.Bun.NewUpdate().
		Model((*models.Order)(nil)).
		Set("reminder_sent = ?", true).
		Where("bestellnummer = ?", bestellnummer).
		Exec(ctx)
	return err
}

func (d *DB) MarkOrderScanned(ctx context.Context, bestellnummer string) error {
	_, err := d.Bun.NewUpdate().
		Model((*models.Order)(nil)).
		Set("scanned = ?", true).
		Where("bestellnummer = ?", bestellnummer).
		Exec(ctx)
	return err
}

// ListUnnotified returns paid orders whose tickets have not been
// mailed yet; the notification sweep works through this set.
func (d *DB) ListUnnotified(ctx context.Context) ([]models.Order, error) {
	var orders []models.Order
	err := d.Bun.NewSelect().
		Model(&orders).
		Where("gezahlt = ?", true).
		Where("email_sent = ?", false).
		Order("created_at ASC").
		Scan(ctx)
	return orders, err
}

// DeleteOrderByNumber removes the order and its tickets in one
// transaction. Counter values are untouched, so the freed numbers are
// retired rather than recycled.
func (d *DB) DeleteOrderByNumber(ctx context.Context, bestellnummer string) (bool, error) {
	var deleted bool
	err := d.Bun.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().
			Model((*models.Ticket)(nil)).
			Where("bestellnummer = ?", bestellnummer).
			Exec(ctx); err != nil {
			return err
		}
		res, err := tx.NewDelete().
			Model((*models.Order)(nil)).
			Where("bestellnummer = ?", bestellnummer).
			Exec(ctx)
		if err != nil {
			return err
		}
		rows, err := res.RowsAffected()
		deleted = rows > 0
		return err
	})
	return deleted, err
}

func (d *DB) DeleteOrderByID(ctx context.Context, id int64) (bool, error) {
	order, err := d.GetOrderByID(ctx, id)
	if errors.Is(err, models.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return d.DeleteOrderByNumber(ctx, order.Bestellnummer)
}

// ---------------- TICKETS ----------------

func (d *DB) GetTicketByToken(ctx context.Context, token string) (*models.Ticket, error) {
	var ticket models.Ticket
	err := d.Bun.NewSelect().
		Model(&ticket).
		Where("token = ?", token).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (d *DB) TicketsByOrder(ctx context.Context, bestellnummer string) ([]models.Ticket, error) {
	var tickets []models.Ticket
	err := d.Bun.NewSelect().
		Model(&tickets).
		Where("bestellnummer = ?", bestellnummer).
		Order("nummer ASC").
		Scan(ctx)
	return tickets, err
}

// MarkTicketScanned is the scan-once gate: a single conditional update
// whose row count decides between accepted and already-scanned, so two
// racing scans of the same token cannot both succeed.
func (d *DB) MarkTicketScanned(ctx context.Context, token string) (bool, error) {
	res, err := d.Bun.NewUpdate().
		Model((*models.Ticket)(nil)).
		Set("scanned = ?", true).
		Set("scanned_at = ?", time.Now()).
		Where("token = ?", token).
		Where("scanned = ?", false).
		Exec(ctx)
	if err != nil {
		return false, err
	}
	rows, err := res.RowsAffected()
	return rows > 0, err
}

// DeleteOrphanTickets removes ticket rows whose owning order no longer
// exists. Repair pass run by the sweep.
func (d *DB) DeleteOrphanTickets(ctx context.Context) (int64, error) {
	res, err := d.Bun.NewDelete().
		Model((*models.Ticket)(nil)).
		Where("bestellnummer NOT IN (SELECT bestellnummer FROM orders)").
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
