package models

import "testing"

func TestFormatTransactionNumber(t *testing.T) {
	cases := []struct {
		prefix string
		n      int
		want   string
	}{
		{"TRX", 1, "TRX-00001"},
		{"TRX", 42, "TRX-00042"},
		{"FC", 99999, "FC-99999"},
		{"TRX", 100000, "TRX-100000"},
	}
	for _, tc := range cases {
		if got := FormatTransactionNumber(tc.prefix, tc.n); got != tc.want {
			t.Errorf("FormatTransactionNumber(%q, %d) = %q, want %q", tc.prefix, tc.n, got, tc.want)
		}
	}
}

func TestParseNumberSuffix(t *testing.T) {
	cases := []struct {
		number string
		want   int
	}{
		{"TRX-00001", 1},
		{"TRX-00042", 42},
		{"FC-99999", 99999},
		{"", 0},
		{"TRX", 0},
		{"TRX-abc", 0},
	}
	for _, tc := range cases {
		if got := ParseNumberSuffix(tc.number); got != tc.want {
			t.Errorf("ParseNumberSuffix(%q) = %d, want %d", tc.number, got, tc.want)
		}
	}
}

func TestNumberRoundTrip(t *testing.T) {
	for _, n := range []int{1, 7, 500, 99999} {
		number := FormatTransactionNumber("TRX", n)
		if got := ParseNumberSuffix(number); got != n {
			t.Errorf("round trip %d -> %q -> %d", n, number, got)
		}
	}
}
