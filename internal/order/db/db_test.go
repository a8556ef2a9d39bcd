package db_test

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"abitickets/internal/models"
	"abitickets/internal/order/db"
)

func setupTestDB(t *testing.T) *db.DB {
	t.Helper()

	// One named in-memory DB per test; a single connection keeps the
	// pool from silently opening a second, empty database.
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	bunDB := bun.NewDB(sqldb, sqlitedialect.New())
	store := &db.DB{Bun: bunDB, OrderPrefix: "GFS2025", FirstTicketNumber: 25001}
	require.NoError(t, store.Migrate(context.Background()))

	t.Cleanup(func() { bunDB.Close() })
	return store
}

func place(t *testing.T, store *db.DB, vorname, name, email string, anzahl, maxTickets int) (*models.Order, []models.Ticket, error) {
	t.Helper()
	order := &models.Order{
		Vorname:       vorname,
		Name:          name,
		Email:         email,
		AnzahlTickets: anzahl,
		Gesamtpreis:   55 + float64(anzahl-1)*7.5,
		CreatedAt:     time.Now(),
	}
	tickets, err := store.CreateOrder(context.Background(), order, maxTickets)
	return order, tickets, err
}

func TestCreateOrderAllocatesSequentialNumbers(t *testing.T) {
	store := setupTestDB(t)

	first, firstTickets, err := place(t, store, "Frida", "Stein", "frida@example.com", 2, 100)
	require.NoError(t, err)
	second, secondTickets, err := place(t, store, "Jonas", "Beck", "jonas@example.com", 3, 100)
	require.NoError(t, err)

	assert.Equal(t, "GFS2025-0001", first.Bestellnummer)
	assert.Equal(t, "GFS2025-0002", second.Bestellnummer)

	assert.Equal(t, []int{25001, 25002}, ticketNumbers(firstTickets))
	assert.Equal(t, []int{25003, 25004, 25005}, ticketNumbers(secondTickets))

	// Tokens are unique across all tickets of all orders.
	seen := map[string]bool{}
	for _, ticket := range append(firstTickets, secondTickets...) {
		assert.False(t, seen[ticket.Token], "token reused: %s", ticket.Token)
		seen[ticket.Token] = true
	}
	assert.Equal(t, models.OrderToken(first.Bestellnummer, first.Email), first.Token)
}

func TestSoldOutScenario(t *testing.T) {
	store := setupTestDB(t)
	const maxTickets = 10

	_, _, err := place(t, store, "A", "Anders", "a@example.com", 6, maxTickets)
	require.NoError(t, err)

	sold, err := store.SumTicketCount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 6, sold)

	// 5 > remaining 4: rejected, nothing persisted.
	_, _, err = place(t, store, "B", "Berg", "b@example.com", 5, maxTickets)
	assert.ErrorIs(t, err, models.ErrSoldOut)

	sold, err = store.SumTicketCount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 6, sold)

	// Exactly the remaining 4 fits.
	_, _, err = place(t, store, "B", "Berg", "b@example.com", 4, maxTickets)
	require.NoError(t, err)

	sold, err = store.SumTicketCount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 10, sold)
}

func TestDuplicateBuyerRejected(t *testing.T) {
	store := setupTestDB(t)

	_, _, err := place(t, store, "Frida", "Stein", "frida@example.com", 2, 100)
	require.NoError(t, err)

	_, _, err = place(t, store, "Frida", "Stein", "frida@example.com", 1, 100)
	assert.ErrorIs(t, err, models.ErrDuplicateBuyer)

	// Same name, different email is a different buyer.
	_, _, err = place(t, store, "Frida", "Stein", "frida2@example.com", 1, 100)
	assert.NoError(t, err)
}

func TestMarkPaidOnce(t *testing.T) {
	store := setupTestDB(t)
	order, _, err := place(t, store, "Frida", "Stein", "frida@example.com", 2, 100)
	require.NoError(t, err)

	updated, err := store.MarkPaid(context.Background(), order.Bestellnummer)
	require.NoError(t, err)
	assert.True(t, updated)

	// Second confirmation is a no-op.
	updated, err = store.MarkPaid(context.Background(), order.Bestellnummer)
	require.NoError(t, err)
	assert.False(t, updated)

	updated, err = store.MarkPaid(context.Background(), "GFS2025-9999")
	require.NoError(t, err)
	assert.False(t, updated)
}

func TestMarkTicketScannedOnce(t *testing.T) {
	store := setupTestDB(t)
	_, tickets, err := place(t, store, "Frida", "Stein", "frida@example.com", 1, 100)
	require.NoError(t, err)

	scanned, err := store.MarkTicketScanned(context.Background(), tickets[0].Token)
	require.NoError(t, err)
	assert.True(t, scanned)

	scanned, err = store.MarkTicketScanned(context.Background(), tickets[0].Token)
	require.NoError(t, err)
	assert.False(t, scanned)
}

func TestDeleteRetiresNumbers(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	first, _, err := place(t, store, "Frida", "Stein", "frida@example.com", 2, 100)
	require.NoError(t, err)

	deleted, err := store.DeleteOrderByNumber(ctx, first.Bestellnummer)
	require.NoError(t, err)
	assert.True(t, deleted)

	remaining, err := store.TicketsByOrder(ctx, first.Bestellnummer)
	require.NoError(t, err)
	assert.Empty(t, remaining)

	// Numbers are never handed out twice, even after a delete.
	second, tickets, err := place(t, store, "Jonas", "Beck", "jonas@example.com", 1, 100)
	require.NoError(t, err)
	assert.Equal(t, "GFS2025-0002", second.Bestellnummer)
	assert.Equal(t, []int{25003}, ticketNumbers(tickets))

	deleted, err = store.DeleteOrderByNumber(ctx, "GFS2025-9999")
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestDeleteOrderByID(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	order, _, err := place(t, store, "Frida", "Stein", "frida@example.com", 1, 100)
	require.NoError(t, err)

	stored, err := store.GetOrderByNumber(ctx, order.Bestellnummer)
	require.NoError(t, err)

	deleted, err := store.DeleteOrderByID(ctx, stored.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	_, err = store.GetOrderByNumber(ctx, order.Bestellnummer)
	assert.ErrorIs(t, err, models.ErrNotFound)

	deleted, err = store.DeleteOrderByID(ctx, 424242)
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestDeleteOrphanTickets(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	_, tickets, err := place(t, store, "Frida", "Stein", "frida@example.com", 1, 100)
	require.NoError(t, err)

	orphan := models.Ticket{Nummer: 99999, Bestellnummer: "GFS2025-0042", Token: "orphan-token"}
	_, err = store.Bun.NewInsert().Model(&orphan).Exec(ctx)
	require.NoError(t, err)

	removed, err := store.DeleteOrphanTickets(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	// The legitimate ticket is untouched.
	_, err = store.GetTicketByToken(ctx, tickets[0].Token)
	assert.NoError(t, err)
}

func TestListUnnotified(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	paid, _, err := place(t, store, "Frida", "Stein", "frida@example.com", 1, 100)
	require.NoError(t, err)
	_, _, err = place(t, store, "Jonas", "Beck", "jonas@example.com", 1, 100)
	require.NoError(t, err)

	_, err = store.MarkPaid(ctx, paid.Bestellnummer)
	require.NoError(t, err)

	pending, err := store.ListUnnotified(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, paid.Bestellnummer, pending[0].Bestellnummer)

	require.NoError(t, store.MarkEmailSent(ctx, paid.Bestellnummer))

	pending, err = store.ListUnnotified(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestGetTicketByTokenNotFound(t *testing.T) {
	store := setupTestDB(t)
	_, err := store.GetTicketByToken(context.Background(), "does-not-exist")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func ticketNumbers(tickets []models.Ticket) []int {
	numbers := make([]int, len(tickets))
	for i, ticket := range tickets {
		numbers[i] = ticket.Nummer
	}
	return numbers
}
