package template

import (
	"bytes"
	"fmt"
	"image/png"

	"github.com/signintech/gopdf"

	"abitickets/internal/models"
)

// TicketPDFGenerator renders one A4 PDF per ticket with the buyer
// details and the scan QR code.
type TicketPDFGenerator struct {
	FontPath  string
	EventName string
}

func NewTicketPDFGenerator(fontPath, eventName string) *TicketPDFGenerator {
	return &TicketPDFGenerator{FontPath: fontPath, EventName: eventName}
}

func (g *TicketPDFGenerator) Generate(order models.Order, ticket models.Ticket, qrCode []byte) ([]byte, error) {
	pdf := &gopdf.GoPdf{}
	pdf.Start(gopdf.Config{PageSize: *gopdf.PageSizeA4})
	pdf.AddPage()

	if err := pdf.AddTTFFont("dejavu", g.FontPath); err != nil {
		return nil, fmt.Errorf("failed to load font: %w", err)
	}

	if err := pdf.SetFont("dejavu", "", 18); err != nil {
		return nil, fmt.Errorf("failed to set font: %w", err)
	}
	pdf.SetX(40)
	pdf.SetY(40)
	pdf.Cell(nil, g.EventName)

	if err := pdf.SetFont("dejavu", "", 13); err != nil {
		return nil, fmt.Errorf("failed to set font: %w", err)
	}
	pdf.SetY(80)
	g.addTicketInfo(pdf, order, ticket)

	if len(qrCode) > 0 {
		pdf.SetY(pdf.GetY() + 20)
		addQRCode(pdf, qrCode)
	}

	pdf.SetY(780)
	pdf.SetX(40)
	pdf.Cell(nil, "Dieses Ticket ist nur mit gültigem QR-Code einlassberechtigt.")

	var buf bytes.Buffer
	if err := pdf.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to write PDF: %w", err)
	}
	return buf.Bytes(), nil
}

func (g *TicketPDFGenerator) addTicketInfo(pdf *gopdf.GoPdf, order models.Order, ticket models.Ticket) {
	info := []struct {
		Label string
		Value string
	}{
		{"Ticketnummer", fmt.Sprintf("%d", ticket.Nummer)},
		{"Bestellnummer", order.Bestellnummer},
		{"Name", order.Vorname + " " + order.Name},
		{"Preis (Bestellung)", fmt.Sprintf("%.2f EUR", order.Gesamtpreis)},
		{"Bestellt am", order.CreatedAt.Format("02.01.2006 15:04")},
	}

	for _, item := range info {
		pdf.SetX(40)
		pdf.Cell(nil, item.Label+": "+item.Value)
		pdf.Br(22)
	}
}

func addQRCode(pdf *gopdf.GoPdf, qrCode []byte) {
	img, err := png.Decode(bytes.NewReader(qrCode))
	if err != nil {
		pdf.SetX(40)
		pdf.Cell(nil, "Failed to load QR code")
		return
	}

	rect := &gopdf.Rect{W: 160, H: 160}
	if err := pdf.ImageFrom(img, 40, pdf.GetY(), rect); err != nil {
		pdf.SetX(40)
		pdf.Cell(nil, "Failed to draw QR code")
	}
}
