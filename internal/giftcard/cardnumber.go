package giftcard

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/luxspa/giftspa/internal/security"
	"github.com/shopspring/decimal"
)

// CardNumber formats a display card number: GC-<RR><amount><OO>-<suffix>.
//
// It is a non-secret identifier; suffix is expected to be four [A-Z0-9] characters.
func CardNumber(recipientName, occasion string, amount decimal.Decimal, suffix string) string {
	var sb strings.Builder
	sb.WriteString("GC-")
	sb.WriteString(first2(recipientName))
	sb.WriteString(strconv.FormatInt(amount.Abs().IntPart(), 10))
	sb.WriteString(first2(occasion))
	sb.WriteByte('-')
	sb.WriteString(suffix)
	return sb.String()
}

// NewCardNumber formats a card number for d with a random suffix.
func NewCardNumber(d Draft) (string, error) {
	suffix, err := security.GenerateCode(4)
	if err != nil {
		return "", err
	}
	return CardNumber(d.RecipientName, d.Occasion, d.Amount, suffix), nil
}

// RerollCardNumber keeps the prefix of number and draws a new random suffix.
func RerollCardNumber(number string) (string, error) {
	idx := strings.LastIndexByte(number, '-')
	if idx < 0 {
		return "", fmt.Errorf("giftcard: malformed card number %q", number)
	}
	suffix, err := security.GenerateCode(4)
	if err != nil {
		return "", err
	}
	return number[:idx+1] + suffix, nil
}

// first2 returns the first two ASCII letters of s upper-cased, padded with X.
func first2(s string) string {
	out := make([]byte, 0, 2)
	for _, r := range strings.ToUpper(s) {
		if r >= 'A' && r <= 'Z' {
			out = append(out, byte(r))
			if len(out) == 2 {
				break
			}
		}
	}
	for len(out) < 2 {
		out = append(out, 'X')
	}
	return string(out)
}

// PaymentMethodLast4 returns the last four characters of a payment token, or XXXX for short tokens.
func PaymentMethodLast4(token string) string {
	runes := []rune(strings.TrimSpace(token))
	if len(runes) < 4 {
		return "XXXX"
	}
	return string(runes[len(runes)-4:])
}
