package ussd

import (
	"regexp"
	"strconv"
	"strings"
)

var amountPattern = regexp.MustCompile(`([\d.,]+)\s*(DA|DZD|Da|da)?`)

// Amount is a currency value found in a decoded USSD message.
type Amount struct {
	Value    float64
	Currency string
	Raw      string
}

// NormalizeAmount rewrites an amount using the carrier locale: dot is the
// thousands separator and comma the decimal separator.
func NormalizeAmount(raw string) string {
	return strings.ReplaceAll(strings.ReplaceAll(raw, ".", ""), ",", ".")
}

// ParseAmount normalizes raw and parses it as a float.
func ParseAmount(raw string) (float64, error) {
	return strconv.ParseFloat(NormalizeAmount(raw), 64)
}

// ExtractAmount returns the first parsable amount in text.
func ExtractAmount(text string) (Amount, bool) {
	for _, match := range amountPattern.FindAllStringSubmatch(text, -1) {
		value, err := ParseAmount(match[1])
		if err != nil {
			continue
		}
		return Amount{Value: value, Currency: match[2], Raw: match[1]}, true
	}
	return Amount{}, false
}
