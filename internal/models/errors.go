package models

import "errors"

// Domain errors surfaced by the ledger. The HTTP layer maps them to
// status codes with errors.Is.
var (
	ErrInvalidTicketCount = errors.New("anzahl_tickets must be between 1 and 10")
	ErrMissingFields      = errors.New("all fields must be filled in")
	ErrDuplicateBuyer     = errors.New("buyer has already purchased tickets")
	ErrSoldOut            = errors.New("not enough tickets remaining")
	ErrNotFound           = errors.New("not found")
	ErrUnpaid             = errors.New("order has not been paid")
	ErrAlreadyScanned     = errors.New("ticket has already been scanned")
)
