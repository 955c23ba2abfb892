// Package amount converts between satoshis and decimal BTC strings.
//
// Binary floating point cannot represent BTC amounts exactly, so the
// conversions work on decimal strings and integers only; anything that
// would lose precision is an error, never a rounding.
package amount

import (
	"fmt"
	"strings"
)

// Satoshi is a monetary amount in base units.
type Satoshi int64

// SatoshiPerBitcoin is the number of satoshis in one BTC.
const SatoshiPerBitcoin = 100_000_000

// MaxSatoshi is the money-range cap: 20_999_999.9769 BTC.
const MaxSatoshi Satoshi = 2_099_999_997_690_000

// FromBTC parses a decimal BTC string ("0.12345678") into satoshis.
// More than 8 decimals or an amount beyond the money range is an error.
func FromBTC(btc string) (Satoshi, error) {
	s := strings.TrimSpace(btc)
	if s == "" {
		return 0, fmt.Errorf("amount: empty BTC amount")
	}
	neg := false
	switch s[0] {
	case '+':
		s = s[1:]
	case '-':
		neg = true
		s = s[1:]
	}
	intPart, fracPart := s, ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		intPart, fracPart = s[:i], s[i+1:]
	}
	if intPart == "" && fracPart == "" {
		return 0, fmt.Errorf("amount: invalid BTC amount: %q", btc)
	}
	if len(fracPart) > 8 {
		if strings.TrimRight(fracPart[8:], "0") != "" {
			return 0, fmt.Errorf("amount: too many decimals for a BTC amount: %q", btc)
		}
		fracPart = fracPart[:8]
	}
	fracPart += strings.Repeat("0", 8-len(fracPart))

	var sats Satoshi
	for _, part := range []string{intPart, fracPart} {
		for i := 0; i < len(part); i++ {
			d := part[i]
			if d < '0' || d > '9' {
				return 0, fmt.Errorf("amount: invalid BTC amount: %q", btc)
			}
			sats = sats*10 + Satoshi(d-'0')
			if sats > MaxSatoshi {
				return 0, fmt.Errorf("amount: btc amount is too big: %q", btc)
			}
		}
	}
	if neg {
		sats = -sats
	}
	return sats, nil
}

// ToBTC formats sats as a decimal BTC string with trailing zeros
// trimmed ("0.1", "21.0").
func (s Satoshi) ToBTC() (string, error) {
	if s > MaxSatoshi || s < -MaxSatoshi {
		return "", fmt.Errorf("amount: too many satoshis: %d", int64(s))
	}
	sign := ""
	v := int64(s)
	if v < 0 {
		sign = "-"
		v = -v
	}
	whole := v / SatoshiPerBitcoin
	frac := v % SatoshiPerBitcoin
	fracStr := strings.TrimRight(fmt.Sprintf("%08d", frac), "0")
	if fracStr == "" {
		fracStr = "0"
	}
	return fmt.Sprintf("%s%d.%s", sign, whole, fracStr), nil
}

// Valid reports whether s is inside the money range.
func (s Satoshi) Valid() bool {
	return s >= -MaxSatoshi && s <= MaxSatoshi
}
