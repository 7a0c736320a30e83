package ussd

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/simgate/sim-gateway/internal/domain"
)

var dialCodePattern = regexp.MustCompile(`^[0-9*#+]+$`)

// ValidateCode checks that code is a dial string the modem will accept.
func ValidateCode(code string) error {
	code = strings.TrimSpace(code)
	if code == "" {
		return fmt.Errorf("%w: empty code", domain.ErrMalformedRequest)
	}
	if !dialCodePattern.MatchString(code) {
		return fmt.Errorf("%w: invalid dial code %q", domain.ErrMalformedRequest, code)
	}
	return nil
}

// RenderTransfer fills {amount}, {recipient} and {pin} in an operator template.
func RenderTransfer(template string, amount float64, recipient, pin string) (string, error) {
	if strings.TrimSpace(template) == "" {
		return "", fmt.Errorf("%w: operator has no transfer template", domain.ErrMalformedRequest)
	}
	if amount <= 0 {
		return "", fmt.Errorf("%w: amount must be positive", domain.ErrMalformedRequest)
	}
	if amount != math.Trunc(amount) {
		return "", fmt.Errorf("%w: amount must be a whole number, got %s", domain.ErrMalformedRequest, strconv.FormatFloat(amount, 'f', -1, 64))
	}
	code := strings.NewReplacer(
		"{amount}", FormatAmount(amount),
		"{recipient}", recipient,
		"{pin}", pin,
	).Replace(template)
	if err := ValidateCode(code); err != nil {
		return "", err
	}
	return code, nil
}

// FormatAmount prints whole amounts without a fraction.
func FormatAmount(amount float64) string {
	if amount == float64(int64(amount)) {
		return strconv.FormatInt(int64(amount), 10)
	}
	return strconv.FormatFloat(amount, 'f', -1, 64)
}

// MaskCode hides the trailing PIN segment of a multi-segment dial code.
func MaskCode(code string) string {
	trimmed := strings.TrimSuffix(code, "#")
	parts := strings.Split(trimmed, "*")
	if len(parts) < 5 {
		return code
	}
	parts[len(parts)-1] = strings.Repeat("*", len(parts[len(parts)-1]))
	masked := strings.Join(parts, "*")
	if strings.HasSuffix(code, "#") {
		masked += "#"
	}
	return masked
}
