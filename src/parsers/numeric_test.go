package parsers

import (
	"errors"
	"testing"
)

func TestParseNumeric(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  float64
	}{
		{"plain integer", "12", 12},
		{"plain decimal", "12.50", 12.5},
		{"comma decimal", "-45,00", -45},
		{"space thousands separator", "1 234,56", 1234.56},
		{"non-breaking space separator", "1 234,56", 1234.56},
		{"unicode minus", "−5,00", -5},
		{"en-dash minus", "–5,00", -5},
		{"explicit plus", "+7", 7},
		{"leading zeros", "007", 7},
		{"zero fractional digits", "1500", 1500},
		{"surrounding whitespace", "  99,90 ", 99.9},
		{"multiple separators", "12 345 678,90", 12345678.9},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseNumeric(tt.input)
			if err != nil {
				t.Fatalf("ParseNumeric(%q): unexpected error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseNumeric(%q): got %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseNumericUnparsable(t *testing.T) {
	inputs := []string{
		"",
		"   ",
		"abc",
		"12,34,56x",
		"SEK 100", // residual non-numeric content
		"Inf",
		"NaN",
	}

	for _, input := range inputs {
		if _, err := ParseNumeric(input); !errors.Is(err, ErrUnparsable) {
			t.Errorf("ParseNumeric(%q): got err %v, want ErrUnparsable", input, err)
		}
	}
}

func TestParseNumericEquivalentNotations(t *testing.T) {
	// All locale variants of the same number must agree with the plain
	// ASCII form.
	plain, err := ParseNumeric("-1234.56")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	variants := []string{"−1 234,56", "-1 234,56", "–1 234,56"}
	for _, v := range variants {
		got, err := ParseNumeric(v)
		if err != nil {
			t.Fatalf("ParseNumeric(%q): unexpected error: %v", v, err)
		}
		if got != plain {
			t.Errorf("ParseNumeric(%q): got %v, want %v", v, got, plain)
		}
	}
}
