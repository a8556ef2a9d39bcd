package tickets

import (
	"fmt"

	"abitickets/internal/models"
	"abitickets/internal/tickets/qr"
	"abitickets/internal/tickets/template"
)

// Renderer turns a ticket into its deliverable PDF: QR code of the
// scan token embedded in the ticket layout.
type Renderer struct {
	QR  *qr.Generator
	PDF *template.TicketPDFGenerator
}

func NewRenderer(fontPath, eventName string) *Renderer {
	return &Renderer{
		QR:  qr.NewGenerator(),
		PDF: template.NewTicketPDFGenerator(fontPath, eventName),
	}
}

func (r *Renderer) Render(order models.Order, ticket models.Ticket) ([]byte, error) {
	qrPNG, err := r.QR.Encode(ticket.Token)
	if err != nil {
		return nil, fmt.Errorf("encode QR for ticket %d: %w", ticket.Nummer, err)
	}
	pdf, err := r.PDF.Generate(order, ticket, qrPNG)
	if err != nil {
		return nil, fmt.Errorf("render PDF for ticket %d: %w", ticket.Nummer, err)
	}
	return pdf, nil
}
