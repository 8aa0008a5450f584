package core

import "testing"

func TestParseMoney(t *testing.T) {
	cases := []struct {
		in  string
		out int64
		ok  bool
	}{
		{"1", 100, true},
		{"1.0", 100, true},
		{"1.23", 123, true},
		{"1,23", 123, true},
		{"0.01", 1, true},
		{"1.005", 101, true}, // half-up rounding
		{" 2.50 ", 250, true},
		{"-1", -100, true}, // signed amounts pass the parser; forms reject them
		{"-3.50", -350, true},
		{"250", 25000, true},
		{"92233720368547757.99", 9223372036854775799, true}, // largest storable amount
		{"0", 0, false},
		{"92233720368547758.99", 0, false}, // would wrap past the int64 range
		{"99999999999999999999", 0, false},
		{"abc", 0, false},
		{"1.2.3", 0, false},
		{"", 0, false},
		{"-", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseMoney(tc.in)
		if tc.ok {
			if err != nil || got.Cents != tc.out {
				t.Fatalf("%q expected %d, got %d (err=%v)", tc.in, tc.out, got.Cents, err)
			}
		} else {
			if err == nil {
				t.Fatalf("%q expected error", tc.in)
			}
		}
	}
}

func TestMoneyDisplay(t *testing.T) {
	cases := []struct {
		cents int64
		want  string
	}{
		{25000, "₹250.00"},
		{123456789, "₹12,34,567.89"},
		{100000, "₹1,000.00"},
		{-350, "-₹3.50"},
		{5, "₹0.05"},
	}
	for _, tc := range cases {
		if got := (Money{Cents: tc.cents}).Display(); got != tc.want {
			t.Fatalf("cents=%d expected %q, got %q", tc.cents, tc.want, got)
		}
	}
}

func TestMoneyDecimal(t *testing.T) {
	if got := (Money{Cents: 25000}).Decimal(); got != "250.00" {
		t.Fatalf("expected 250.00, got %s", got)
	}
	if got := (Money{Cents: -101}).Decimal(); got != "-1.01" {
		t.Fatalf("expected -1.01, got %s", got)
	}
}
