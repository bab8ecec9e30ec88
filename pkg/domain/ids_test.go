package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIDNilChecks(t *testing.T) {
	assert.True(t, ShipmentID{}.IsNil())
	assert.True(t, DocumentID(uuid.Nil).IsNil())
	assert.False(t, NewShipmentID().IsNil())
	assert.False(t, NewPartyID().IsNil())
}

func TestParseShipmentID(t *testing.T) {
	id := NewShipmentID()
	parsed, err := ParseShipmentID(id.String())
	require.NoError(t, err)
	assert.Equal(t, id, parsed)

	_, err = ParseShipmentID("not-a-uuid")
	assert.Error(t, err)
}
