package models_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"abitickets/internal/models"
)

func TestOrderTokenStable(t *testing.T) {
	first := models.OrderToken("GFS2025-0001", "frida@example.com")
	second := models.OrderToken("GFS2025-0001", "frida@example.com")

	assert.Equal(t, first, second)
	assert.Len(t, first, 64) // hex sha256

	other := models.OrderToken("GFS2025-0002", "frida@example.com")
	assert.NotEqual(t, first, other)
}

func TestTicketTokensDistinctPerTicket(t *testing.T) {
	a := models.TicketToken("GFS2025-0001", "frida@example.com", 25001)
	b := models.TicketToken("GFS2025-0001", "frida@example.com", 25002)

	assert.NotEqual(t, a, b)
	assert.Len(t, a, 64)
}
