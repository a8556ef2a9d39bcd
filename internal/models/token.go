package models

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// OrderToken derives the order-level security token from the fields
// that identify the order. Stable: the same order always yields the
// same token.
func OrderToken(bestellnummer, email string) string {
	sum := sha256.Sum256([]byte(bestellnummer + email))
	return hex.EncodeToString(sum[:])
}

// TicketToken derives the per-ticket scan token printed as a QR code.
func TicketToken(bestellnummer, email string, nummer int) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s-%s-%d", bestellnummer, email, nummer)))
	return hex.EncodeToString(sum[:])
}
