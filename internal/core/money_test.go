package core

import "testing"

func TestTotalPrice(t *testing.T) {
	cases := []struct {
		qty   int64
		price float64
		want  float64
	}{
		{3, 10, 30},
		{2, 12.5, 25},
		{3, 0.1, 0.3},
		{7, 0, 0},
		{1, 19.99, 19.99},
		{3, 0.07, 0.21},
	}
	for _, tc := range cases {
		if got := TotalPrice(tc.qty, tc.price); got != tc.want {
			t.Fatalf("TotalPrice(%d, %v) = %v, want %v", tc.qty, tc.price, got, tc.want)
		}
	}
}

func TestIsWholeCents(t *testing.T) {
	cases := []struct {
		in   float64
		want bool
	}{
		{0, true},
		{10, true},
		{12.5, true},
		{0.1, true},
		{15.99, true},
		{0.125, false},
		{19.999, false},
		{0.001, false},
	}
	for _, tc := range cases {
		if got := IsWholeCents(tc.in); got != tc.want {
			t.Fatalf("IsWholeCents(%v) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in  string
		out float64
		ok  bool
	}{
		{"1", 1, true},
		{"1.23", 1.23, true},
		{"1,23", 1.23, true},
		{"0", 0, true},
		{"1.005", 1.01, true}, // half-up rounding
		{" 2.50 ", 2.5, true},
		{"-1", 0, false},
		{"abc", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.ok {
			if err != nil || got != tc.out {
				t.Fatalf("%q expected %v, got %v (err=%v)", tc.in, tc.out, got, err)
			}
		} else if err == nil {
			t.Fatalf("%q expected error", tc.in)
		}
	}
}

func TestFormatCurrency(t *testing.T) {
	if got := FormatCurrency(1234.5); got != "₹1234.50" {
		t.Fatalf("unexpected %q", got)
	}
	if got := FormatAmount(0); got != "0.00" {
		t.Fatalf("unexpected %q", got)
	}
}
