package types

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Decimals is the number of fractional digits an Amount carries.
const Decimals = 8

// Coin is one whole unit expressed in minor units.
const Coin Amount = 100_000_000

// MaxAmount is the largest representable Amount.
const MaxAmount Amount = math.MaxInt64

// Amount is a quantity of coin in minor units (1e-8 of a coin). Balances may
// go negative; transfer amounts and fees must not.
type Amount int64

var errAmountSyntax = errors.New("invalid amount")

// NewAmount converts a whole number of coins to an Amount.
func NewAmount(coins int64) Amount {
	return Amount(coins) * Coin
}

// ParseAmount parses a decimal string such as "10", "0.5" or "-3.25".
func ParseAmount(s string) (Amount, error) {
	s = strings.TrimSpace(s)
	neg := strings.HasPrefix(s, "-")
	digits := strings.TrimPrefix(s, "-")
	whole, frac, hasFrac := strings.Cut(digits, ".")
	if whole == "" && (!hasFrac || frac == "") {
		return 0, fmt.Errorf("%w: %q", errAmountSyntax, s)
	}
	if len(frac) > Decimals {
		return 0, fmt.Errorf("%w: %q has more than %d decimals", errAmountSyntax, s, Decimals)
	}
	if whole == "" {
		whole = "0"
	}

	w, err := strconv.ParseUint(whole, 10, 63)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", errAmountSyntax, s)
	}
	var f uint64
	if frac != "" {
		f, err = strconv.ParseUint(frac+strings.Repeat("0", Decimals-len(frac)), 10, 63)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", errAmountSyntax, s)
		}
	}
	if w > uint64(MaxAmount/Coin) || (w == uint64(MaxAmount/Coin) && f > uint64(MaxAmount%Coin)) {
		return 0, fmt.Errorf("%w: %q out of range", errAmountSyntax, s)
	}

	a := Amount(w)*Coin + Amount(f)
	if neg {
		a = -a
	}
	return a, nil
}

// String formats the amount as a decimal with trailing zeros removed.
func (a Amount) String() string {
	sign := ""
	u := uint64(a)
	if a < 0 {
		sign = "-"
		u = uint64(-(a + 1)) + 1
	}
	whole := u / uint64(Coin)
	frac := u % uint64(Coin)
	if frac == 0 {
		return sign + strconv.FormatUint(whole, 10)
	}
	fs := strings.TrimRight(fmt.Sprintf("%0*d", Decimals, frac), "0")
	return sign + strconv.FormatUint(whole, 10) + "." + fs
}

// MarshalText encodes the amount as its decimal string.
func (a Amount) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText decodes a decimal string produced by MarshalText.
func (a *Amount) UnmarshalText(text []byte) error {
	v, err := ParseAmount(string(text))
	if err != nil {
		return err
	}
	*a = v
	return nil
}
