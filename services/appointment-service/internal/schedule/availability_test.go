package schedule

import (
	"testing"
	"time"
)

func TestMarkAvailability(t *testing.T) {
	cfg := testConfig(t)
	day := time.Date(2026, 1, 28, 0, 0, 0, 0, time.UTC)

	busy := []Interval{
		{Start: day.Add(10 * time.Hour), End: day.Add(10*time.Hour + 30*time.Minute)},
	}
	marked := MarkAvailability(cfg.Slots(day, day), busy)
	if len(marked) != 16 {
		t.Fatalf("expected 16 slots, got %d", len(marked))
	}

	unavailable := 0
	for _, s := range marked {
		if !s.Available {
			unavailable++
			if !s.Start.Equal(day.Add(10 * time.Hour)) {
				t.Fatalf("wrong slot marked busy: %s", s.Start.Format(time.RFC3339))
			}
		}
	}
	if unavailable != 1 {
		t.Fatalf("expected exactly 1 busy slot, got %d", unavailable)
	}
}

func TestMarkAvailability_DuplicateBookingsDoNotDoubleCount(t *testing.T) {
	cfg := testConfig(t)
	day := time.Date(2026, 1, 28, 0, 0, 0, 0, time.UTC)

	interval := Interval{Start: day.Add(10 * time.Hour), End: day.Add(10*time.Hour + 30*time.Minute)}
	once := MarkAvailability(cfg.Slots(day, day), []Interval{interval})
	twice := MarkAvailability(cfg.Slots(day, day), []Interval{interval, interval})

	for i := range once {
		if once[i].Available != twice[i].Available {
			t.Fatalf("slot %d availability differs with duplicated busy interval", i)
		}
	}
}

func TestMarkAvailability_PartialOverlapBlocksSlot(t *testing.T) {
	cfg := testConfig(t)
	day := time.Date(2026, 1, 28, 0, 0, 0, 0, time.UTC)

	// A booking straddling two slots blocks both.
	busy := []Interval{
		{Start: day.Add(10*time.Hour + 15*time.Minute), End: day.Add(10*time.Hour + 45*time.Minute)},
	}
	marked := MarkAvailability(cfg.Slots(day, day), busy)

	blocked := 0
	for _, s := range marked {
		if !s.Available {
			blocked++
		}
	}
	if blocked != 2 {
		t.Fatalf("expected straddling booking to block 2 slots, got %d", blocked)
	}
}

func TestMarkAvailability_NoBusyMeansAllAvailable(t *testing.T) {
	cfg := testConfig(t)
	day := time.Date(2026, 1, 28, 0, 0, 0, 0, time.UTC)

	for _, s := range MarkAvailability(cfg.Slots(day, day), nil) {
		if !s.Available {
			t.Fatalf("slot %s should be available", s.Start.Format(time.RFC3339))
		}
	}
}

func TestMarkAvailability_BusyInDifferentZone(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	cfg := testConfig(t)
	day := time.Date(2026, 1, 28, 0, 0, 0, 0, time.UTC)

	// 05:00 New York is 10:00 UTC on this date.
	busy := []Interval{{
		Start: time.Date(2026, 1, 28, 5, 0, 0, 0, ny),
		End:   time.Date(2026, 1, 28, 5, 30, 0, 0, ny),
	}}
	for _, s := range MarkAvailability(cfg.Slots(day, day), busy) {
		if s.Start.Equal(day.Add(10*time.Hour)) && s.Available {
			t.Fatal("10:00 UTC slot should be busy")
		}
	}
}
