package models

// Attachment is a rendered file handed to the mailer, one PDF ticket
// per entry.
type Attachment struct {
	Filename string
	Data     []byte
}
