package amount

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestParseDecimal(t *testing.T) {
	tests := []struct {
		in   string
		want Mist
	}{
		{"0", 0},
		{"1", 1_000_000_000},
		{"0.1", 100_000_000},
		{".5", 500_000_000},
		{"1.", 1_000_000_000},
		{" 2.25 ", 2_250_000_000},
		{"0.000000001", 1},
		{"0.0000000019", 1}, // truncated, not rounded
		{"18446744073.709551615", 18446744073709551615},
	}
	for _, tt := range tests {
		got, err := ParseDecimal(tt.in)
		if err != nil {
			t.Errorf("ParseDecimal(%q) error: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseDecimal(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestParseDecimal_Errors(t *testing.T) {
	tests := []struct {
		in   string
		want error
	}{
		{"", ErrEmpty},
		{"   ", ErrEmpty},
		{".", ErrSyntax},
		{"-1", ErrSyntax},
		{"+1", ErrSyntax},
		{"1.2.3", ErrSyntax},
		{"1e9", ErrSyntax},
		{"abc", ErrSyntax},
		{"18446744073.709551616", ErrOverflow},
		{"99999999999999999999", ErrOverflow},
	}
	for _, tt := range tests {
		_, err := ParseDecimal(tt.in)
		if !errors.Is(err, tt.want) {
			t.Errorf("ParseDecimal(%q) error = %v, want %v", tt.in, err, tt.want)
		}
	}
}

func TestFormatDecimal(t *testing.T) {
	tests := []struct {
		in   Mist
		want string
	}{
		{0, "0"},
		{1, "0.000000001"},
		{100_000_000, "0.1"},
		{1_000_000_000, "1"},
		{1_230_000_000, "1.23"},
	}
	for _, tt := range tests {
		if got := FormatDecimal(tt.in); got != tt.want {
			t.Errorf("FormatDecimal(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestDecimalRoundTrip(t *testing.T) {
	inputs := []string{"0", "0.1", "1.5", "3.000000007", "42.123456789", ".25", "7."}
	for _, in := range inputs {
		m, err := ParseDecimal(in)
		if err != nil {
			t.Fatalf("ParseDecimal(%q): %v", in, err)
		}
		again, err := ParseDecimal(FormatDecimal(m))
		if err != nil {
			t.Fatalf("ParseDecimal(FormatDecimal(%d)): %v", m, err)
		}
		if again != m {
			t.Errorf("round trip %q: %d != %d", in, again, m)
		}
	}
}

func TestSplitFee(t *testing.T) {
	fee, org, err := SplitFee(100_000_000, 300)
	if err != nil {
		t.Fatal(err)
	}
	if fee != 3_000_000 || org != 97_000_000 {
		t.Errorf("SplitFee = (%d, %d), want (3000000, 97000000)", fee, org)
	}

	// Floors and still sums exactly.
	fee, org, _ = SplitFee(999, 333)
	if fee != 33 || fee+org != 999 {
		t.Errorf("SplitFee(999, 333) = (%d, %d)", fee, org)
	}

	// Product exceeds 64 bits.
	max := Mist(^uint64(0))
	fee, org, _ = SplitFee(max, 10_000)
	if fee != max || org != 0 {
		t.Errorf("SplitFee(max, 10000) = (%d, %d)", fee, org)
	}

	if _, _, err := SplitFee(1, 10_001); !errors.Is(err, ErrFeeRate) {
		t.Errorf("expected ErrFeeRate, got %v", err)
	}
}

func TestCheckFeeBps(t *testing.T) {
	if v, err := CheckFeeBps(250); err != nil || v != 250 {
		t.Errorf("CheckFeeBps(250) = %d, %v", v, err)
	}
	for _, bad := range []int64{-1, 10_001, 70_000} {
		if _, err := CheckFeeBps(bad); !errors.Is(err, ErrFeeRate) {
			t.Errorf("CheckFeeBps(%d) error = %v", bad, err)
		}
	}
}

func TestMistJSON(t *testing.T) {
	b, err := json.Marshal(Mist(18446744073709551615))
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != `"18446744073709551615"` {
		t.Errorf("Marshal = %s", b)
	}

	var m Mist
	if err := json.Unmarshal([]byte(`"42"`), &m); err != nil || m != 42 {
		t.Errorf("Unmarshal string: %d, %v", m, err)
	}
	if err := json.Unmarshal([]byte(`43`), &m); err != nil || m != 43 {
		t.Errorf("Unmarshal number: %d, %v", m, err)
	}
	if err := json.Unmarshal([]byte(`"-1"`), &m); err == nil {
		t.Error("expected error for negative")
	}
}
