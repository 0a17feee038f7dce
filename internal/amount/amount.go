// Package amount converts between decimal SUI strings and integer MIST.
//
// All arithmetic is integer; no float ever touches an amount.
package amount

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/bits"
	"strconv"
	"strings"
)

// Decimals is the number of fractional digits in one SUI.
const Decimals = 9

// MistPerSUI is 10^Decimals.
const MistPerSUI = 1_000_000_000

// MaxFeeBps is the largest fee rate, 100%.
const MaxFeeBps = 10_000

var (
	ErrEmpty    = errors.New("amount is empty")
	ErrSyntax   = errors.New("amount is not a non-negative decimal")
	ErrOverflow = errors.New("amount exceeds u64")
	ErrFeeRate  = errors.New("fee rate must be between 0 and 10000 bps")
)

// Mist is an on-chain u64 amount in the minor unit.
// It encodes to JSON as a decimal string so JavaScript clients keep precision.
type Mist uint64

// ParseDecimal parses a decimal SUI string such as "0.1" or "12.000000001".
// Fractional digits beyond Decimals are truncated, not rounded.
func ParseDecimal(s string) (Mist, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrEmpty
	}

	whole, frac, hasDot := strings.Cut(s, ".")
	if hasDot && strings.Contains(frac, ".") {
		return 0, fmt.Errorf("%w: %q", ErrSyntax, s)
	}
	if whole == "" && frac == "" {
		return 0, fmt.Errorf("%w: %q", ErrSyntax, s)
	}
	if whole == "" {
		whole = "0"
	}
	if !allDigits(whole) || !allDigits(frac) {
		return 0, fmt.Errorf("%w: %q", ErrSyntax, s)
	}

	if len(frac) > Decimals {
		frac = frac[:Decimals]
	}
	frac += strings.Repeat("0", Decimals-len(frac))

	w, err := strconv.ParseUint(whole, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrOverflow, s)
	}
	f, _ := strconv.ParseUint(frac, 10, 64)

	hi, lo := bits.Mul64(w, MistPerSUI)
	if hi != 0 {
		return 0, fmt.Errorf("%w: %q", ErrOverflow, s)
	}
	sum, carry := bits.Add64(lo, f, 0)
	if carry != 0 {
		return 0, fmt.Errorf("%w: %q", ErrOverflow, s)
	}
	return Mist(sum), nil
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// FormatDecimal renders m as a decimal SUI string with trailing zeros trimmed.
func FormatDecimal(m Mist) string {
	whole := uint64(m) / MistPerSUI
	frac := uint64(m) % MistPerSUI
	if frac == 0 {
		return strconv.FormatUint(whole, 10)
	}
	fs := fmt.Sprintf("%09d", frac)
	fs = strings.TrimRight(fs, "0")
	return strconv.FormatUint(whole, 10) + "." + fs
}

// String implements fmt.Stringer as the raw integer.
func (m Mist) String() string {
	return strconv.FormatUint(uint64(m), 10)
}

// MarshalJSON encodes m as a quoted integer.
func (m Mist) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

// UnmarshalJSON accepts either a quoted integer or a bare JSON number.
func (m *Mist) UnmarshalJSON(data []byte) error {
	var raw any
	dec := json.NewDecoder(strings.NewReader(string(data)))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	var s string
	switch v := raw.(type) {
	case string:
		s = v
	case json.Number:
		s = v.String()
	default:
		return fmt.Errorf("%w: %s", ErrSyntax, data)
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return fmt.Errorf("%w: %q", ErrSyntax, s)
	}
	*m = Mist(n)
	return nil
}

// ParseMist parses the integer string form used on the wire.
func ParseMist(s string) (Mist, error) {
	n, err := strconv.ParseUint(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrSyntax, s)
	}
	return Mist(n), nil
}

// SplitFee divides price between the fee recipient and the organizer.
// fee is floor(price*bps/10000), so fee+organizer always equals price.
func SplitFee(price Mist, bps uint16) (fee, organizer Mist, err error) {
	if bps > MaxFeeBps {
		return 0, 0, fmt.Errorf("%w: %d", ErrFeeRate, bps)
	}
	hi, lo := bits.Mul64(uint64(price), uint64(bps))
	q, _ := bits.Div64(hi, lo, MaxFeeBps)
	return Mist(q), price - Mist(q), nil
}

// CheckFeeBps validates an untyped fee rate before narrowing it to u16.
func CheckFeeBps(bps int64) (uint16, error) {
	if bps < 0 || bps > MaxFeeBps {
		return 0, fmt.Errorf("%w: %d", ErrFeeRate, bps)
	}
	return uint16(bps), nil
}
