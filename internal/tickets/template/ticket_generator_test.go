package template_test

import (
	"bytes"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"abitickets/internal/models"
	"abitickets/internal/tickets/qr"
	"abitickets/internal/tickets/template"
)

const testFontPath = "../../../fonts/DejaVuSans.ttf"

func requireFont(t *testing.T) {
	t.Helper()
	if _, err := os.Stat(testFontPath); err != nil {
		t.Skipf("font %s not available: %v", testFontPath, err)
	}
}

func TestGenerateProducesPDF(t *testing.T) {
	requireFont(t)

	order := models.Order{
		Bestellnummer: "GFS2025-0001",
		Vorname:       "Frida",
		Name:          "Beispiel",
		Gesamtpreis:   62.5,
		CreatedAt:     time.Date(2025, 5, 12, 18, 30, 0, 0, time.UTC),
	}
	ticket := models.Ticket{Nummer: 25001, Bestellnummer: order.Bestellnummer, Token: "abc"}

	qrPNG, err := qr.NewGenerator().Encode(ticket.Token)
	require.NoError(t, err)

	generator := template.NewTicketPDFGenerator(testFontPath, "Abiball 2025")
	pdf, err := generator.Generate(order, ticket, qrPNG)
	require.NoError(t, err)

	assert.True(t, bytes.HasPrefix(pdf, []byte("%PDF")))
}

func TestGenerateMissingFontFails(t *testing.T) {
	generator := template.NewTicketPDFGenerator("does-not-exist.ttf", "Abiball 2025")
	_, err := generator.Generate(models.Order{}, models.Ticket{}, nil)
	assert.Error(t, err)
}
