package utils

import (
	"strings"
)

// NormalizeSpace collapses repeated whitespace into a single space.
func NormalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// NormalizeSeat trims and upper-cases a seat number: " s1" becomes "S1".
func NormalizeSeat(seat string) string {
	return strings.ToUpper(strings.TrimSpace(seat))
}

// SplitSeatList splits comma/semicolon separated seat strings into cleaned slices.
func SplitSeatList(raw string) []string {
	out := []string{}
	parts := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ';' || r == '\n'
	})
	for _, p := range parts {
		p = NormalizeSeat(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}

// JoinSeats renders seats the way tickets show them: "S1, S2".
func JoinSeats(seats []string) string {
	return strings.Join(seats, ", ")
}

// Duplicates returns values that occur more than once, in first-seen order.
func Duplicates(values []string) []string {
	seen := make(map[string]int, len(values))
	var dup []string
	for _, v := range values {
		seen[v]++
		if seen[v] == 2 {
			dup = append(dup, v)
		}
	}
	return dup
}
