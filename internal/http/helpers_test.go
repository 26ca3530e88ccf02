package http

import (
	"testing"

	"bilancio/internal/core"
)

func TestFormatEuros(t *testing.T) {
	tests := []struct {
		cents int64
		want  string
	}{
		{0, "€0,00"},
		{5, "€0,05"},
		{100, "€1,00"},
		{1234, "€12,34"},
		{150000, "€1500,00"},
		{-1234, "-€12,34"},
	}

	for _, tt := range tests {
		if got := formatEuros(tt.cents); got != tt.want {
			t.Errorf("formatEuros(%d) = %q, want %q", tt.cents, got, tt.want)
		}
	}
}

func TestFormatDate(t *testing.T) {
	if got := formatDate(core.NewDate(2024, 3, 15)); got != "15/03/2024" {
		t.Errorf("formatDate() = %q, want 15/03/2024", got)
	}
	if got := formatDate(core.Date{}); got != "-" {
		t.Errorf("formatDate(zero) = %q, want -", got)
	}
}

func TestPercentOf(t *testing.T) {
	tests := []struct {
		name        string
		part, total int64
		want        float64
	}{
		{"half", 50, 100, 50},
		{"whole", 100, 100, 100},
		{"zero part", 0, 100, 0},
		{"zero total", 50, 0, 0},
		{"both zero", 0, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := percentOf(tt.part, tt.total); got != tt.want {
				t.Errorf("percentOf(%d, %d) = %v, want %v", tt.part, tt.total, got, tt.want)
			}
		})
	}
}

func TestBarWidth(t *testing.T) {
	tests := []struct {
		name            string
		cents, maxCents int64
		want            int
	}{
		{"largest bucket fills the bar", 1000, 1000, 100},
		{"half", 500, 1000, 50},
		{"rounds to nearest", 333, 1000, 33},
		{"tiny values stay visible", 1, 1000, 2},
		{"zero value has no bar", 0, 1000, 0},
		{"zero max has no bars", 500, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := barWidth(tt.cents, tt.maxCents); got != tt.want {
				t.Errorf("barWidth(%d, %d) = %d, want %d", tt.cents, tt.maxCents, got, tt.want)
			}
		})
	}
}

func TestSanitizeInput(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"trims whitespace", "  spesa  ", "spesa"},
		{"strips control characters", "ab\x00c\x1bd", "abcd"},
		{"keeps tabs and newlines", "a\tb\nc", "a\tb\nc"},
		{"plain text untouched", "Spesa al mercato", "Spesa al mercato"},
		{"empty stays empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sanitizeInput(tt.input); got != tt.want {
				t.Errorf("sanitizeInput(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
