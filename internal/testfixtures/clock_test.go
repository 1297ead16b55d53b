package testfixtures

import (
	"testing"
	"time"
)

func TestClockDefaultsToReferenceTime(t *testing.T) {
	clock := NewClock(time.Time{})
	if !clock.Now().Equal(ReferenceTime()) {
		t.Fatalf("expected ReferenceTime, got %v", clock.Now())
	}
}

func TestClockAdvanceAndSet(t *testing.T) {
	start := time.Date(2024, time.March, 14, 9, 26, 0, 0, time.UTC)
	clock := NewClock(start)

	updated := clock.Advance(90 * time.Minute)
	if !updated.Equal(start.Add(90 * time.Minute)) {
		t.Fatalf("advance returned %v", updated)
	}

	clock.Set(start.Add(2 * time.Hour))
	if got := clock.Now(); !got.Equal(start.Add(2 * time.Hour)) {
		t.Fatalf("expected %v, got %v", start.Add(2*time.Hour), got)
	}
}

func TestClockNextTickAlignsToInterval(t *testing.T) {
	clock := NewClock(time.Date(2024, time.March, 14, 9, 26, 0, 0, time.UTC))

	if got := clock.NextTick(30 * time.Minute); !got.Equal(time.Date(2024, time.March, 14, 9, 30, 0, 0, time.UTC)) {
		t.Fatalf("unexpected first tick %v", got)
	}
	if got := clock.NextTick(30 * time.Minute); !got.Equal(time.Date(2024, time.March, 14, 10, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected second tick %v", got)
	}
}

func TestClockNowFunc(t *testing.T) {
	clock := NewClock(time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC))
	nowFn := clock.NowFunc()

	clock.Advance(time.Minute)
	if got := nowFn(); !got.Equal(clock.Now()) {
		t.Fatalf("expected updated time %v, got %v", clock.Now(), got)
	}
}

func TestClockNextMidnightUsesLocation(t *testing.T) {
	tokyo, err := time.LoadLocation("Asia/Tokyo")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	// 16:30 UTC is already 01:30 on the 15th in Tokyo.
	clock := NewClock(time.Date(2024, time.March, 14, 16, 30, 0, 0, time.UTC))

	got := clock.NextMidnight(tokyo)
	want := time.Date(2024, time.March, 15, 15, 0, 0, 0, time.UTC)
	if !got.Equal(want) || !clock.Now().Equal(want) {
		t.Fatalf("expected %v, got %v (now %v)", want, got, clock.Now())
	}
}
