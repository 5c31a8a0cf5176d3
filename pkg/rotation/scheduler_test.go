package rotation

import (
	"os"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/clipscout/scraper/pkg/keyring"
)

func testLogger() zerolog.Logger {
	return zerolog.New(os.Stderr).Level(zerolog.Disabled)
}

func testRegistry(t *testing.T, keyCount int) *keyring.Registry {
	t.Helper()

	slots := make([]keyring.Slot, keyCount)
	for i := range slots {
		slots[i] = keyring.Slot{
			Name:   "key_" + string(rune('1'+i)),
			Secret: "secret",
		}
	}
	return keyring.New(slots, testLogger())
}

func TestIsPeakWindow(t *testing.T) {
	tests := []struct {
		name     string
		hour     int
		minute   int
		expected bool
	}{
		{"just before noon", 11, 59, false},
		{"noon boundary is peak", 12, 0, true},
		{"afternoon", 15, 30, true},
		{"just before midnight", 23, 59, true},
		{"after midnight", 1, 59, true},
		{"2am boundary is conserve", 2, 0, false},
		{"morning", 8, 15, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			at := time.Date(2025, 6, 10, tt.hour, tt.minute, 0, 0, time.Local)
			if got := IsPeakWindow(at); got != tt.expected {
				t.Errorf("IsPeakWindow(%02d:%02d) = %v, want %v", tt.hour, tt.minute, got, tt.expected)
			}
		})
	}
}

func TestSelect_DefaultPoolSizes(t *testing.T) {
	scheduler := NewScheduler(testRegistry(t, 5), testLogger())

	peak := scheduler.SelectForPeak(0)
	if len(peak) != DefaultPeakPoolSize {
		t.Errorf("SelectForPeak(0) returned %d keys, want %d", len(peak), DefaultPeakPoolSize)
	}

	conserve := scheduler.SelectForConserve(0)
	if len(conserve) != DefaultConservePoolSize {
		t.Errorf("SelectForConserve(0) returned %d keys, want %d", len(conserve), DefaultConservePoolSize)
	}
}

func TestSelect_NoRepeatsWithinSelection(t *testing.T) {
	scheduler := NewScheduler(testRegistry(t, 5), testLogger())

	selected := scheduler.SelectForPeak(4)
	seen := make(map[string]bool)
	for _, key := range selected {
		if seen[key.Name] {
			t.Errorf("key %s selected twice within one selection", key.Name)
		}
		seen[key.Name] = true
	}
}

func TestSelect_CursorAdvancesModuloActive(t *testing.T) {
	scheduler := NewScheduler(testRegistry(t, 5), testLogger())

	tests := []struct {
		take           int
		expectedCursor int
	}{
		{3, 3}, // 0+3 mod 5
		{3, 1}, // 3+3 mod 5
		{2, 3}, // 1+2 mod 5
		{5, 3}, // 3+5 mod 5
	}

	for _, tt := range tests {
		scheduler.SelectForPeak(tt.take)
		if got := scheduler.Cursor(); got != tt.expectedCursor {
			t.Errorf("cursor after selecting %d = %d, want %d", tt.take, got, tt.expectedCursor)
		}
	}
}

func TestSelect_WrapsAroundPool(t *testing.T) {
	scheduler := NewScheduler(testRegistry(t, 3), testLogger())

	first := scheduler.SelectForConserve(2)
	second := scheduler.SelectForConserve(2)

	if first[0].Name != "key_1" || first[1].Name != "key_2" {
		t.Errorf("first selection = [%s %s], want [key_1 key_2]", first[0].Name, first[1].Name)
	}
	// Second selection starts at key_3 and wraps back to key_1.
	if second[0].Name != "key_3" || second[1].Name != "key_1" {
		t.Errorf("second selection = [%s %s], want [key_3 key_1]", second[0].Name, second[1].Name)
	}
}

func TestSelect_DegradedPool(t *testing.T) {
	scheduler := NewScheduler(testRegistry(t, 2), testLogger())

	// Requesting 3 from a pool of 2 returns the 2 available keys.
	selected := scheduler.SelectForPeak(3)
	if len(selected) != 2 {
		t.Fatalf("degraded selection returned %d keys, want 2", len(selected))
	}
	if got := scheduler.Cursor(); got != 0 {
		t.Errorf("cursor after degraded selection = %d, want 0 ((0+2) mod 2)", got)
	}
}

func TestSelect_EmptyPool(t *testing.T) {
	scheduler := NewScheduler(testRegistry(t, 0), testLogger())

	if selected := scheduler.SelectForPeak(3); selected != nil {
		t.Errorf("selection from empty pool = %v, want nil", selected)
	}
}

func TestSelect_SpreadsUsageAcrossPool(t *testing.T) {
	scheduler := NewScheduler(testRegistry(t, 5), testLogger())

	// Ten selections of 2 touch every key exactly four times.
	counts := make(map[string]int)
	for i := 0; i < 10; i++ {
		for _, key := range scheduler.SelectForConserve(2) {
			counts[key.Name]++
		}
	}

	for name, count := range counts {
		if count != 4 {
			t.Errorf("key %s selected %d times, want 4 (even spread)", name, count)
		}
	}
}
