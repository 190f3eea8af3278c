package models

import "testing"

func TestMonthsBetween(t *testing.T) {
	cases := []struct {
		from, to string
		want     int
	}{
		{"2024-01-15", "2024-02-15", 1},
		{"2024-01-15", "2024-02-14", 0},
		{"2024-01-31", "2024-02-29", 0},
		{"2024-01-01", "2025-01-01", 12},
		{"2024-04-15", "2025-01-01", 8},
		{"2025-03-01", "2025-01-01", -2},
		{"2024-03-10", "2024-01-20", -1},
		{"2024-05-05", "2024-05-30", 0},
	}

	for _, tc := range cases {
		got := MonthsBetween(date(t, tc.from), date(t, tc.to))
		if got != tc.want {
			t.Errorf("MonthsBetween(%s, %s) = %d, want %d", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestAddMonths(t *testing.T) {
	cases := []struct {
		from string
		n    int
		want string
	}{
		{"2024-01-31", 1, "2024-02-29"},
		{"2023-01-31", 1, "2023-02-28"},
		{"2024-11-30", 3, "2025-02-28"},
		{"2024-01-15", 12, "2025-01-15"},
		{"2024-03-31", -1, "2024-02-29"},
	}

	for _, tc := range cases {
		got := AddMonths(date(t, tc.from), tc.n)
		if got != date(t, tc.want) {
			t.Errorf("AddMonths(%s, %d) = %s, want %s", tc.from, tc.n, got, tc.want)
		}
	}
}

func TestParseKind(t *testing.T) {
	for _, s := range []string{"s", "S", "simple", " Simple "} {
		if k, err := ParseKind(s); err != nil || k != Simple {
			t.Errorf("ParseKind(%q) = %v, %v", s, k, err)
		}
	}
	for _, s := range []string{"c", "COMPOUND"} {
		if k, err := ParseKind(s); err != nil || k != Compound {
			t.Errorf("ParseKind(%q) = %v, %v", s, k, err)
		}
	}
	if _, err := ParseKind("g"); err == nil {
		t.Errorf("expected error for unknown kind")
	}
	if _, ok := KindFromTag("G"); ok {
		t.Errorf("tag G should not map to a kind")
	}
	if Compound.Tag() != "C" || Simple.Tag() != "S" {
		t.Errorf("unexpected tags %s %s", Simple.Tag(), Compound.Tag())
	}
}
