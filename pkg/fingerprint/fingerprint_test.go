package fingerprint

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	assert.Equal(t, "booking confirmation maeu123456789",
		Normalize("  Booking\r\n Confirmation\t\tMAEU123456789  "))
	assert.Equal(t, "", Normalize(" \r\n\t "))
}

func TestOf(t *testing.T) {
	t.Run("whitespace and case variants collide", func(t *testing.T) {
		a := Of([]byte("Booking Confirmation\nMAEU123456789"))
		b := Of([]byte("  booking   confirmation MAEU123456789 "))
		assert.Equal(t, a, b)
	})

	t.Run("distinct content diverges", func(t *testing.T) {
		a := Of([]byte("MAEU123456789"))
		b := Of([]byte("MAEU123456780"))
		assert.NotEqual(t, a, b)
	})

	t.Run("deterministic across calls", func(t *testing.T) {
		content := []byte("SHIPPING INSTRUCTION DRAFT 2")
		assert.Equal(t, Of(content), Of(content))
	})

	t.Run("hex encoded 256 bit digest", func(t *testing.T) {
		assert.Len(t, Of([]byte("x")).String(), 64)
	})
}
