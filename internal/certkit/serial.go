package certkit

import (
	"fmt"
	"io"
	"math/big"
	"strings"
)

// ParseSerial normalizes serial number text to an integer. Decimal is
// the default; an 0x/0X prefix switches to hex, as does any hex digit
// or colon separator in the text (colon-separated octet notation is
// what viewers print, so it round-trips).
func ParseSerial(text string) (*big.Int, error) {
	s := strings.TrimSpace(text)
	if s == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidSerial)
	}

	base := 10
	switch {
	case strings.HasPrefix(s, "0x"), strings.HasPrefix(s, "0X"):
		s = s[2:]
		base = 16
	case strings.ContainsAny(s, ":abcdefABCDEF"):
		s = strings.ReplaceAll(s, ":", "")
		base = 16
	}

	n, ok := new(big.Int).SetString(s, base)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSerial, text)
	}
	if n.Sign() <= 0 {
		return nil, fmt.Errorf("%w: must be positive", ErrInvalidSerial)
	}
	return n, nil
}

// RandomSerial draws a 128-bit positive serial from the given source.
func RandomSerial(random io.Reader) (*big.Int, error) {
	buf := make([]byte, 16)
	if _, err := io.ReadFull(random, buf); err != nil {
		return nil, fmt.Errorf("serial entropy: %w", err)
	}
	// Clear the top bit so the DER INTEGER stays positive without a
	// leading zero octet.
	buf[0] &= 0x7f
	n := new(big.Int).SetBytes(buf)
	if n.Sign() == 0 {
		n.SetInt64(1)
	}
	return n, nil
}

// FormatSerial renders a serial in the colon-separated octet notation
// viewers expect.
func FormatSerial(n *big.Int) string {
	raw := n.Bytes()
	if len(raw) == 0 {
		raw = []byte{0}
	}
	parts := make([]string, len(raw))
	for i, b := range raw {
		parts[i] = fmt.Sprintf("%02x", b)
	}
	return strings.Join(parts, ":")
}
