package repository

import (
	"testing"

	"github.com/andresuchdata/scamark/backend-go/internal/domain"
)

func TestBuildPalmaresCapsConsecutiveWalk(t *testing.T) {
	target := domain.WeekRef{Year: 2025, Week: 20}
	epoch := domain.WeekRef{Year: 2023, Week: 40}

	var candidates []domain.WeekRef
	referenced := make(map[domain.WeekRef]bool)
	for wk := target; !wk.Before(epoch); wk = wk.Previous() {
		candidates = append(candidates, wk)
		referenced[wk] = true
	}
	if len(candidates) <= maxConsecutiveSteps {
		t.Fatalf("need more than %d referenced weeks, got %d", maxConsecutiveSteps, len(candidates))
	}

	p := buildPalmares(candidates, referenced, target, epoch)
	if p.ConsecutiveWeeks != 52 {
		t.Errorf("ConsecutiveWeeks = %d, want 52", p.ConsecutiveWeeks)
	}
	if p.TotalReferences != len(candidates) || p.TotalWeeks != len(candidates) || p.Percentage != 100 {
		t.Errorf("palmares = %d/%d (%d%%)", p.TotalReferences, p.TotalWeeks, p.Percentage)
	}
}

func TestBuildPalmaresStopsAtGap(t *testing.T) {
	target := domain.WeekRef{Year: 2025, Week: 3}
	epoch := domain.WeekRef{Year: 2024, Week: 40}
	candidates := []domain.WeekRef{target, {Year: 2025, Week: 2}, {Year: 2025, Week: 1}, {Year: 2024, Week: 52}}
	referenced := map[domain.WeekRef]bool{
		target:                 true,
		{Year: 2025, Week: 2}:  true,
		{Year: 2024, Week: 52}: true,
	}

	p := buildPalmares(candidates, referenced, target, epoch)
	if p.ConsecutiveWeeks != 2 {
		t.Errorf("ConsecutiveWeeks = %d, want 2", p.ConsecutiveWeeks)
	}
	if p.TotalReferences != 3 || p.Percentage != 75 {
		t.Errorf("palmares = %d refs (%d%%)", p.TotalReferences, p.Percentage)
	}
}
