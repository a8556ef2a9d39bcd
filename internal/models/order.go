package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Order is one buyer's purchase. A buyer (name + email) can hold at
// most one order; the Bestellnummer is assigned once and never reused.
type Order struct {
	bun.BaseModel `bun:"table:orders"`

	ID            int64     `bun:"id,pk,autoincrement" json:"id"`
	Vorname       string    `bun:"vorname,notnull" json:"vorname"`
	Name          string    `bun:"name,notnull" json:"name"`
	Email         string    `bun:"email,notnull" json:"email"`
	AnzahlTickets int       `bun:"anzahl_tickets,notnull" json:"anzahl_tickets"`
	Bestellnummer string    `bun:"bestellnummer,notnull,unique" json:"bestellnummer"`
	Gesamtpreis   float64   `bun:"gesamtpreis,notnull" json:"gesamtpreis"`
	Token         string    `bun:"token,notnull" json:"token"`
	CreatedAt     time.Time `bun:"created_at,notnull" json:"zeitpunkt"`
	Gezahlt       bool      `bun:"gezahlt,notnull,default:false" json:"gezahlt"`
	EmailSent     bool      `bun:"email_sent,notnull,default:false" json:"email_sent"`
	ReminderSent  bool      `bun:"reminder_sent,notnull,default:false" json:"reminder_sent"`
	Scanned       bool      `bun:"scanned,notnull,default:false" json:"scanned"`
}

// OrderRequest is the purchase form body.
type OrderRequest struct {
	Vorname       string `json:"vorname"`
	Name          string `json:"name"`
	Email         string `json:"email"`
	AnzahlTickets int    `json:"anzahl_tickets"`
}

// PlacedOrder is the purchase response payload. EmailSent reports
// whether the confirmation mail went out; the order is persisted
// either way.
type PlacedOrder struct {
	Bestellnummer string   `json:"bestellnummer"`
	Vorname       string   `json:"vorname"`
	Name          string   `json:"name"`
	Email         string   `json:"email"`
	Gesamtpreis   float64  `json:"gesamtpreis"`
	Tickets       []Ticket `json:"tickets"`
	Token         string   `json:"token"`
	EmailSent     bool     `json:"email_sent"`
}
