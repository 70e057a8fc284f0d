package wallet

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSession(t *testing.T) {
	session, err := NewSession("0x1111111111111111111111111111111111111111", 1)
	require.NoError(t, err)
	assert.Equal(t, "0x1111111111111111111111111111111111111111", session.Address.Hex())
}

func TestNewSessionRejectsBadInput(t *testing.T) {
	tests := []struct {
		name    string
		address string
	}{
		{"not hex", "hello"},
		{"too short", "0x1234"},
		{"empty", ""},
		{"zero address", "0x0000000000000000000000000000000000000000"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewSession(tc.address, 1)
			require.ErrorIs(t, err, ErrNoSession)
		})
	}
}
