package notifier

import (
	"fmt"
	"io"

	"gopkg.in/gomail.v2"

	"abitickets/internal/config"
	"abitickets/internal/models"
)

// SMTPMailer sends the three order mails over a plain SMTP dialer.
type SMTPMailer struct {
	dialer  *gomail.Dialer
	from    string
	tickets config.TicketConfig
}

func NewSMTPMailer(email config.EmailConfig, tickets config.TicketConfig) *SMTPMailer {
	return &SMTPMailer{
		dialer:  gomail.NewDialer(email.SMTPHost, email.SMTPPort, email.SMTPUsername, email.SMTPPassword),
		from:    email.From,
		tickets: tickets,
	}
}

// SendOrderConfirmation mails the bank transfer instructions. The
// Bestellnummer doubles as the payment reference the admin matches
// incoming transfers against.
func (m *SMTPMailer) SendOrderConfirmation(order models.Order) error {
	body := fmt.Sprintf(`Vielen Dank für die Bestellung!

Hier sind die Zahlungsinformationen um den Bestellvorgang abzuschließen:
Empfänger: %s
IBAN: %s
Verwendungszweck: %s

Bitte prüfe und überweise den Gesamtbetrag von %.2f € auf das oben genannte Konto.

Nach Eingang der Zahlung werden die Tickets per E-Mail zugeschickt.
Dieser Vorgang kann bis zu einer Woche dauern.

Vielen Dank und wir freuen uns aufs Feiern mit Euch!

Beste Grüße,
Euer Organisationsteam`,
		m.tickets.PaymentRecipient, m.tickets.PaymentIBAN, order.Bestellnummer, order.Gesamtpreis)

	return m.send(order.Email, "Ticketbestellung - "+m.tickets.EventName, body, nil)
}

// SendReminder nudges an unpaid order.
func (m *SMTPMailer) SendReminder(order models.Order) error {
	body := fmt.Sprintf(`Hallo %s,

für die Bestellung %s ist noch keine Zahlung eingegangen.

Bitte überweise den Gesamtbetrag von %.2f € an:
Empfänger: %s
IBAN: %s
Verwendungszweck: %s

Beste Grüße,
Euer Organisationsteam`,
		order.Vorname, order.Bestellnummer, order.Gesamtpreis,
		m.tickets.PaymentRecipient, m.tickets.PaymentIBAN, order.Bestellnummer)

	return m.send(order.Email, "Zahlungserinnerung - "+m.tickets.EventName, body, nil)
}

// SendTickets delivers the PDF tickets once the order is paid.
func (m *SMTPMailer) SendTickets(order models.Order, attachments []models.Attachment) error {
	body := fmt.Sprintf(`Hallo %s,

die Zahlung für die Bestellung %s ist eingegangen.

Im Anhang findest du %d Ticket(s) mit QR-Code. Bitte bringe sie
ausgedruckt oder auf dem Handy zum Einlass mit.

Beste Grüße,
Euer Organisationsteam`,
		order.Vorname, order.Bestellnummer, len(attachments))

	return m.send(order.Email, "Deine Tickets - "+m.tickets.EventName, body, attachments)
}

func (m *SMTPMailer) send(to, subject, body string, attachments []models.Attachment) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)

	for _, attachment := range attachments {
		data := attachment.Data
		msg.Attach(attachment.Filename, gomail.SetCopyFunc(func(w io.Writer) error {
			_, err := w.Write(data)
			return err
		}))
	}

	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("send mail to %s: %w", to, err)
	}
	return nil
}
