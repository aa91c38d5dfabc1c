// internal/utils/qr_test.go
package utils

import (
	"encoding/base64"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQRPayloadRoundTrip(t *testing.T) {
	ticketID := uuid.New()
	secret, err := GenerateSecretPhrase()
	require.NoError(t, err)

	payload := EncodeQRPayload(ticketID, secret)

	decodedID, decodedSecret, err := DecodeQRPayload(payload)
	require.NoError(t, err)
	assert.Equal(t, ticketID, decodedID)
	assert.Equal(t, secret, decodedSecret)
}

func TestDecodeQRPayloadRejectsGarbage(t *testing.T) {
	cases := []string{
		"",
		"not base64 at all!!!",
		base64.URLEncoding.EncodeToString([]byte("short")),
		// Valid length, wrong schema version.
		base64.URLEncoding.EncodeToString(append([]byte{0x7f}, make([]byte, 20)...)),
	}

	for _, payload := range cases {
		_, _, err := DecodeQRPayload(payload)
		assert.ErrorIs(t, err, ErrInvalidQRPayload, "payload %q", payload)
	}
}

func TestDecodeQRPayloadRequiresSecret(t *testing.T) {
	// Version byte plus a bare uuid but no secret bytes.
	ticketID := uuid.New()
	buf := append([]byte{0x01}, ticketID[:]...)

	_, _, err := DecodeQRPayload(base64.URLEncoding.EncodeToString(buf))
	assert.ErrorIs(t, err, ErrInvalidQRPayload)
}

func TestTicketRefRoundTrip(t *testing.T) {
	ticketID := uuid.New()

	ref := EncodeTicketRef(ticketID)
	decoded, err := DecodeTicketRef(ref)
	require.NoError(t, err)
	assert.Equal(t, ticketID, decoded)
}

func TestDecodeTicketRefRejectsBadLength(t *testing.T) {
	_, err := DecodeTicketRef(base64.URLEncoding.EncodeToString([]byte("tooshort")))
	assert.ErrorIs(t, err, ErrInvalidQRPayload)
}

func TestGenerateOrderCodeShape(t *testing.T) {
	code, err := GenerateOrderCode()
	require.NoError(t, err)
	assert.Len(t, code, 8)
	assert.NotContains(t, code, "0")
	assert.NotContains(t, code, "O")
	assert.NotContains(t, code, "1")
	assert.NotContains(t, code, "I")
}

func TestSecureCompare(t *testing.T) {
	assert.True(t, SecureCompare("phrase", "phrase"))
	assert.False(t, SecureCompare("phrase", "phrasf"))
	assert.False(t, SecureCompare("phrase", "phrase "))
}
