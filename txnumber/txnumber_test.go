package txnumber

import (
	"testing"
	"time"
)

func TestFormat(t *testing.T) {
	day := time.Date(2025, 1, 22, 15, 4, 5, 0, time.UTC)
	cases := []struct {
		seq  int
		want string
	}{
		{1, "BOR-20250122-001"},
		{42, "BOR-20250122-042"},
		{999, "BOR-20250122-999"},
		{1000, "BOR-20250122-1000"},
	}
	for _, c := range cases {
		if got := Format(day, c.seq); got != c.want {
			t.Errorf("Format(%d) = %q, want %q", c.seq, got, c.want)
		}
	}
}

func TestFormatUsesUTCDay(t *testing.T) {
	// 23:30 in UTC+2 is still the previous UTC day.
	loc := time.FixedZone("CEST", 2*3600)
	day := time.Date(2025, 1, 23, 0, 30, 0, 0, loc)
	if got := Format(day, 1); got != "BOR-20250122-001" {
		t.Fatalf("got %q", got)
	}
}

func TestValid(t *testing.T) {
	valid := []string{"BOR-20250122-001", "BOR-20250122-1042"}
	for _, s := range valid {
		if !Valid(s) {
			t.Errorf("Valid(%q) = false", s)
		}
	}
	invalid := []string{"", "BOR-2025-001", "BOR-20250122-01", "XYZ-20250122-001", "BOR-20250122-001x"}
	for _, s := range invalid {
		if Valid(s) {
			t.Errorf("Valid(%q) = true", s)
		}
	}
}
