// Package txnumber formats the human-readable borrow transaction numbers
// (BOR-YYYYMMDD-NNN) printed on borrow slips.
package txnumber

import (
	"fmt"
	"regexp"
	"time"
)

const Prefix = "BOR"

var numberRe = regexp.MustCompile(`^BOR-\d{8}-\d{3,}$`)

// DayKey returns the calendar-day key used to scope the sequence counter.
func DayKey(day time.Time) string {
	return day.UTC().Format("20060102")
}

// Format builds a transaction number for the given day and sequence value.
// The sequence is zero-padded to three digits but not capped at 999.
func Format(day time.Time, seq int) string {
	return fmt.Sprintf("%s-%s-%03d", Prefix, DayKey(day), seq)
}

// Valid reports whether s looks like a transaction number.
func Valid(s string) bool {
	return numberRe.MatchString(s)
}
