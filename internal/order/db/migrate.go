package db

import (
	"context"
	"fmt"

	"abitickets/internal/models"
)

// Migrate creates the schema if it is missing and seeds the two
// counters. Safe to run on every startup.
func (d *DB) Migrate(ctx context.Context) error {
	tables := []interface{}{
		(*models.Order)(nil),
		(*models.Ticket)(nil),
		(*models.Counter)(nil),
	}
	for _, table := range tables {
		if _, err := d.Bun.NewCreateTable().
			Model(table).
			IfNotExists().
			Exec(ctx); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}

	// The ticket counter holds the last allocated number, so it starts
	// one below the first number handed out.
	seeds := []models.Counter{
		{Name: counterOrderSeq, Value: 0},
		{Name: counterTicketNumber, Value: int64(d.FirstTicketNumber - 1)},
	}
	for _, seed := range seeds {
		if _, err := d.Bun.NewInsert().
			Model(&seed).
			On("CONFLICT DO NOTHING").
			Exec(ctx); err != nil {
			return fmt.Errorf("seed counter %s: %w", seed.Name, err)
		}
	}
	return nil
}
