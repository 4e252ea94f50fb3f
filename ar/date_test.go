package ar_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/warp/tuition-engine/ar"
)

func TestDate_ParseAndFormat(t *testing.T) {
	date, err := ar.ParseDate("2025-03-09")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if date.String() != "2025-03-09" {
		t.Errorf("expected 2025-03-09, got %s", date.String())
	}
	if date.MonthLabel() != "2025-03" {
		t.Errorf("expected month label 2025-03, got %s", date.MonthLabel())
	}

	if _, err := ar.ParseDate("03/09/2025"); err == nil {
		t.Error("expected error for non-ISO format")
	}
}

func TestDate_DaysBetween(t *testing.T) {
	cases := []struct {
		from, to ar.Date
		want     int
	}{
		{ar.NewDate(2025, time.March, 1), ar.NewDate(2025, time.March, 1), 0},
		{ar.NewDate(2025, time.March, 1), ar.NewDate(2025, time.March, 31), 30},
		{ar.NewDate(2024, time.February, 28), ar.NewDate(2024, time.March, 1), 2}, // leap year
		{ar.NewDate(2025, time.February, 28), ar.NewDate(2025, time.March, 1), 1},
	}

	for _, tc := range cases {
		if got := ar.DaysBetween(tc.from, tc.to); got != tc.want {
			t.Errorf("DaysBetween(%s, %s): expected %d, got %d", tc.from, tc.to, tc.want, got)
		}
	}
}

func TestDate_JSONRoundtrip(t *testing.T) {
	date := ar.NewDate(2025, time.June, 30)

	raw, err := json.Marshal(date)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(raw) != `"2025-06-30"` {
		t.Errorf("expected quoted ISO date, got %s", raw)
	}

	var back ar.Date
	if err := json.Unmarshal(raw, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !back.Equal(date) {
		t.Errorf("roundtrip mismatch: %s != %s", back, date)
	}
}

func TestDate_AddDaysAndCompare(t *testing.T) {
	base := ar.NewDate(2025, time.June, 30)

	next := base.AddDays(1)
	if !next.After(base) || !base.Before(next) {
		t.Error("expected strict ordering after AddDays(1)")
	}
	if !base.AddDays(0).Equal(base) {
		t.Error("AddDays(0) must be identity")
	}

	var zero ar.Date
	if !zero.IsZero() {
		t.Error("zero value must report IsZero")
	}
	if base.IsZero() {
		t.Error("real date must not report IsZero")
	}
}
