// internal/utils/qr.go
package utils

import (
	"encoding/base64"
	"errors"

	"github.com/google/uuid"
)

// QR payload layout, version 1:
//
//	[0]     schema version byte
//	[1:17]  e-ticket id (16 raw uuid bytes)
//	[17:]   secret phrase bytes
//
// The whole structure is base64url-encoded into an opaque string. Scanners
// submit the decoded id and secret separately; verification is a structured
// decode plus constant-time comparison, never string matching.
const qrSchemaVersion = 0x01

var ErrInvalidQRPayload = errors.New("invalid qr payload")

func EncodeQRPayload(ticketID uuid.UUID, secretPhrase string) string {
	buf := make([]byte, 0, 1+16+len(secretPhrase))
	buf = append(buf, qrSchemaVersion)
	buf = append(buf, ticketID[:]...)
	buf = append(buf, []byte(secretPhrase)...)
	return base64.URLEncoding.EncodeToString(buf)
}

func DecodeQRPayload(payload string) (uuid.UUID, string, error) {
	buf, err := base64.URLEncoding.DecodeString(payload)
	if err != nil {
		return uuid.Nil, "", ErrInvalidQRPayload
	}
	if len(buf) < 1+16+1 || buf[0] != qrSchemaVersion {
		return uuid.Nil, "", ErrInvalidQRPayload
	}

	id, err := uuid.FromBytes(buf[1:17])
	if err != nil {
		return uuid.Nil, "", ErrInvalidQRPayload
	}

	return id, string(buf[17:]), nil
}

// EncodeTicketRef encodes a ticket id into the id64 form scanners submit.
func EncodeTicketRef(ticketID uuid.UUID) string {
	return base64.URLEncoding.EncodeToString(ticketID[:])
}

func DecodeTicketRef(ref string) (uuid.UUID, error) {
	buf, err := base64.URLEncoding.DecodeString(ref)
	if err != nil || len(buf) != 16 {
		return uuid.Nil, ErrInvalidQRPayload
	}
	return uuid.FromBytes(buf)
}
