package core

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseGross(t *testing.T) {
	cases := []struct {
		in  string
		out string
		ok  bool
	}{
		{"100", "100", true},
		{"1250.50", "1250.5", true},
		{" 2.50 ", "2.5", true},
		{"0", "0", true},
		{"-5", "-5", true}, // rejected later by Validate
		{"abc", "", false},
		{"1.2.3", "", false},
		{"", "", false},
		{"   ", "", false},
		{"$100", "", false},
		{"NaN", "", false},
		{"Inf", "", false},
	}
	for _, tc := range cases {
		got, err := ParseGross(tc.in)
		if tc.ok {
			if err != nil || got.String() != tc.out {
				t.Fatalf("%q expected %s, got %s (err=%v)", tc.in, tc.out, got, err)
			}
		} else if err != ErrInvalidGross {
			t.Fatalf("%q expected ErrInvalidGross, got %v", tc.in, err)
		}
	}
}

func TestTotal(t *testing.T) {
	rows := []BillingEntry{
		{GrossBilling: decimal.NewFromInt(100)},
		{GrossBilling: decimal.NewFromInt(50)},
		{GrossBilling: decimal.NewFromInt(25)},
		{}, // missing amount
	}
	if got := Total(rows); !got.Equal(decimal.NewFromInt(175)) {
		t.Fatalf("total = %s, want 175", got)
	}
	if got := Total(nil); !got.IsZero() {
		t.Fatalf("empty total = %s", got)
	}
}

func TestFormatAUD(t *testing.T) {
	cases := map[string]string{
		"0":        "$0.00",
		"5":        "$5.00",
		"1234.5":   "$1,234.50",
		"1000000":  "$1,000,000.00",
		"999.999":  "$1,000.00",
		"-42.1":    "-$42.10",
		"123456.7": "$123,456.70",
	}
	for in, want := range cases {
		if got := FormatAUD(decimal.RequireFromString(in)); got != want {
			t.Errorf("FormatAUD(%s) = %q, want %q", in, got, want)
		}
	}
}
