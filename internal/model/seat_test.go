package model

import "testing"

func TestSeatID_RoundTrip(t *testing.T) {
	for row := 0; row < 8; row++ {
		for n := 1; n <= 10; n++ {
			id := NewSeatID(row, n)
			gotRow, gotN, err := id.Parse()
			if err != nil {
				t.Fatalf("parse %s: %v", id, err)
			}
			if gotRow != row || gotN != n {
				t.Fatalf("%s parsed to (%d,%d), want (%d,%d)", id, gotRow, gotN, row, n)
			}
		}
	}
	if NewSeatID(2, 7) != "C7" {
		t.Fatalf("expected C7, got %s", NewSeatID(2, 7))
	}
}

func TestSeatID_ParseRejectsGarbage(t *testing.T) {
	for _, raw := range []string{"", "C", "7C", "c7", "C0", "C-1", "CX"} {
		if _, _, err := SeatID(raw).Parse(); err == nil {
			t.Fatalf("expected error for %q", raw)
		}
	}
}
