package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Ticket is a single seat within an order. Nummer comes from the
// ticket_number counter and is unique across all orders ever placed.
type Ticket struct {
	bun.BaseModel `bun:"table:tickets"`

	Nummer        int       `bun:"nummer,pk" json:"nummer"`
	Bestellnummer string    `bun:"bestellnummer,notnull" json:"-"`
	Token         string    `bun:"token,notnull,unique" json:"qr_code"`
	Scanned       bool      `bun:"scanned,notnull,default:false" json:"-"`
	ScannedAt     time.Time `bun:"scanned_at,nullzero" json:"-"`
}

// Counter is a named monotonic sequence. Rows exist for the order
// number sequence and for the last allocated ticket number; values
// only ever increase, so numbers are never reused after a delete.
type Counter struct {
	bun.BaseModel `bun:"table:counters"`

	Name  string `bun:"name,pk"`
	Value int64  `bun:"value,notnull"`
}
