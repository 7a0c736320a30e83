// Package ussd turns raw modem payloads into readable text and pulls
// currency amounts and dial codes in and out of that text.
package ussd

import (
	"encoding/hex"
	"regexp"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

var (
	ucs2Pattern  = regexp.MustCompile(`^([0-9A-Fa-f]{4})+$`)
	octetPattern = regexp.MustCompile(`^([0-9A-Fa-f]{2})+$`)
)

// minOctetPayload is the shortest 2-hex-digit payload decoded as bytes.
// Shorter all-hex strings are indistinguishable from numeric plain text.
const minOctetPayload = 4

// Decode converts a modem payload to text. UCS-2 hex is tried first, then
// 8-bit hex for payloads longer than four characters; anything else is
// returned unchanged. Decode never fails.
func Decode(payload string) string {
	switch {
	case ucs2Pattern.MatchString(payload):
		return decodeHex(payload, unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM))
	case len(payload) > minOctetPayload && octetPattern.MatchString(payload):
		return decodeHex(payload, charmap.ISO8859_1)
	default:
		return payload
	}
}

// IsEncoded reports whether Decode would transform the payload.
func IsEncoded(payload string) bool {
	return ucs2Pattern.MatchString(payload) ||
		(len(payload) > minOctetPayload && octetPattern.MatchString(payload))
}

func decodeHex(payload string, enc encoding.Encoding) string {
	raw, err := hex.DecodeString(payload)
	if err != nil {
		return payload
	}
	text, err := enc.NewDecoder().Bytes(raw)
	if err != nil {
		return payload
	}
	return string(text)
}
