package http

import (
	"fmt"
	"strings"

	"bilancio/internal/core"
)

// formatEuros renders cents as euros for the UI, comma decimal, as in
// "€12,34". The sign goes before the currency symbol.
func formatEuros(cents int64) string {
	sign := ""
	if cents < 0 {
		sign, cents = "-", -cents
	}
	return fmt.Sprintf("%s€%d,%02d", sign, cents/100, cents%100)
}

// formatDate renders a date for display as DD/MM/YYYY. The zero date has no
// meaningful calendar position and renders as a dash.
func formatDate(d core.Date) string {
	if d.IsZero() {
		return "-"
	}
	return d.Time.Format("02/01/2006")
}

// percentOf computes part/total as a percentage. A zero total would divide by
// zero; it yields 0 instead so empty summaries render as 0%.
func percentOf(part, total int64) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) / float64(total) * 100
}

// barWidth scales a bucket against the largest bucket as an integer percent.
// Non-zero values are kept at least 2 wide so small bars stay visible.
func barWidth(cents, maxCents int64) int {
	if maxCents <= 0 || cents <= 0 {
		return 0
	}
	width := int((cents*100 + maxCents/2) / maxCents)
	if width < 2 {
		width = 2
	}
	if width > 100 {
		width = 100
	}
	return width
}

// sanitizeInput trims surrounding space and strips control bytes, keeping
// tab and newlines since pasted descriptions may carry them.
func sanitizeInput(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '\t', '\n', '\r':
			return r
		}
		if r < 32 {
			return -1
		}
		return r
	}, strings.TrimSpace(s))
}
