package models

import (
	"testing"
	"time"
)

func TestNewMonthWindow_EndOfJune(t *testing.T) {
	ref := time.Date(2025, time.January, 15, 13, 45, 0, 0, time.UTC)
	w := NewMonthWindow(ref)

	wantFrom := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	wantTo := time.Date(2025, time.June, 30, 0, 0, 0, 0, time.UTC)

	if !w.From.Equal(wantFrom) {
		t.Fatalf("expected from %v, got %v", wantFrom, w.From)
	}
	if !w.To.Equal(wantTo) {
		t.Fatalf("expected to %v, got %v", wantTo, w.To)
	}
}

func TestNewMonthWindow_YearRollover(t *testing.T) {
	ref := time.Date(2024, time.December, 1, 0, 0, 0, 0, time.UTC)
	w := NewMonthWindow(ref)

	wantTo := time.Date(2025, time.May, 31, 0, 0, 0, 0, time.UTC)
	if !w.To.Equal(wantTo) {
		t.Fatalf("expected to %v, got %v", wantTo, w.To)
	}
}

func TestNewMonthWindow_ShortTargetMonth(t *testing.T) {
	// September + 5 months ends in February; the window must land on the
	// last day of February, not overflow into March.
	ref := time.Date(2024, time.September, 20, 0, 0, 0, 0, time.UTC)
	w := NewMonthWindow(ref)

	wantTo := time.Date(2025, time.February, 28, 0, 0, 0, 0, time.UTC)
	if !w.To.Equal(wantTo) {
		t.Fatalf("expected to %v, got %v", wantTo, w.To)
	}
}

func TestNewMonthWindow_NonUTCInput(t *testing.T) {
	loc := time.FixedZone("UTC+12", 12*3600)
	ref := time.Date(2025, time.March, 1, 2, 0, 0, 0, loc) // Feb 28 14:00 UTC
	w := NewMonthWindow(ref)

	wantFrom := time.Date(2025, time.February, 1, 0, 0, 0, 0, time.UTC)
	if !w.From.Equal(wantFrom) {
		t.Fatalf("expected from %v, got %v", wantFrom, w.From)
	}
}

func TestMonthWindow_MonthName(t *testing.T) {
	w := NewMonthWindow(time.Date(2024, time.December, 5, 0, 0, 0, 0, time.UTC))
	if got := w.MonthName(); got != "December 2024" {
		t.Fatalf("expected December 2024, got %s", got)
	}
}
