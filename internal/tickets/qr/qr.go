package qr

import (
	"github.com/skip2/go-qrcode"
)

// Generator renders scan tokens as QR PNGs.
type Generator struct {
	size int
}

func NewGenerator() *Generator {
	return &Generator{size: 256}
}

// Encode returns a PNG containing the token. The scanner posts the
// decoded token back to /api/validate-ticket.
func (g *Generator) Encode(token string) ([]byte, error) {
	return qrcode.Encode(token, qrcode.Medium, g.size)
}
