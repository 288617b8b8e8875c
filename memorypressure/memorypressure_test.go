package memorypressure

import "testing"

func TestLevelString(t *testing.T) {
	cases := map[Level]string{
		LevelLow:      "low",
		LevelNormal:   "normal",
		LevelElevated: "elevated",
		LevelHigh:     "high",
		LevelCritical: "critical",
	}
	for lvl, want := range cases {
		if got := lvl.String(); got != want {
			t.Errorf("Level(%d).String() = %q, want %q", lvl, got, want)
		}
	}
}

func TestRecommendedBatchSize(t *testing.T) {
	if got := RecommendedBatchSize(LevelLow, 1000); got != 1000 {
		t.Errorf("low: got %d, want 1000", got)
	}
	if got := RecommendedBatchSize(LevelNormal, 1000); got != 1000 {
		t.Errorf("normal: got %d, want 1000", got)
	}
	if got := RecommendedBatchSize(LevelElevated, 1000); got != 500 {
		t.Errorf("elevated: got %d, want 500", got)
	}
	if got := RecommendedBatchSize(LevelHigh, 1000); got != 250 {
		t.Errorf("high: got %d, want 250", got)
	}
	if got := RecommendedBatchSize(LevelCritical, 1000); got != 100 {
		t.Errorf("critical: got %d, want 100", got)
	}
	// Floors kick in once the fraction would drop below the minimum.
	if got := RecommendedBatchSize(LevelElevated, 100); got != 250 {
		t.Errorf("elevated floor: got %d, want 250", got)
	}
	if got := RecommendedBatchSize(LevelHigh, 100); got != 100 {
		t.Errorf("high floor: got %d, want 100", got)
	}
	if got := RecommendedBatchSize(LevelCritical, 0); got != 50 {
		t.Errorf("critical floor: got %d, want 50", got)
	}
}

func TestMonitorDefaultsToLowBeforeFirstSample(t *testing.T) {
	m := New(0, DefaultThresholds)
	if m.Level() != LevelLow {
		t.Fatalf("expected fresh unsampled monitor to read low (zero value), got %s", m.Level())
	}
}
