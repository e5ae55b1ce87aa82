package domain

import (
	"errors"
	"testing"
	"time"
)

func TestWeekRefPrevious(t *testing.T) {
	tests := []struct {
		in, want WeekRef
	}{
		{WeekRef{2024, 2}, WeekRef{2024, 1}},
		{WeekRef{2024, 1}, WeekRef{2023, 52}},
		{WeekRef{2025, 40}, WeekRef{2025, 39}},
	}
	for _, tt := range tests {
		if got := tt.in.Previous(); got != tt.want {
			t.Errorf("%s.Previous() = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestWeeksBetweenSpansYears(t *testing.T) {
	weeks := WeeksBetween(WeekRef{2024, 50}, WeekRef{2025, 2})
	want := []WeekRef{{2024, 50}, {2024, 51}, {2024, 52}, {2025, 1}, {2025, 2}}
	if len(weeks) != len(want) {
		t.Fatalf("expected %d weeks, got %d: %v", len(want), len(weeks), weeks)
	}
	for i := range want {
		if weeks[i] != want[i] {
			t.Errorf("week %d = %s, want %s", i, weeks[i], want[i])
		}
	}

	if got := WeeksBetween(WeekRef{2025, 3}, WeekRef{2025, 1}); len(got) != 0 {
		t.Errorf("expected empty range, got %v", got)
	}
}

func TestCurrentWeekUsesISOCalendar(t *testing.T) {
	// 2024-12-30 belongs to ISO week 1 of 2025.
	got := CurrentWeek(time.Date(2024, 12, 30, 12, 0, 0, 0, time.UTC))
	if got != (WeekRef{2025, 1}) {
		t.Errorf("CurrentWeek = %s, want 2025-W01", got)
	}
}

func TestNewWeekRefValidation(t *testing.T) {
	if _, err := NewWeekRef(2024, 0); !errors.Is(err, ErrInvalidWeek) {
		t.Errorf("expected ErrInvalidWeek for week 0, got %v", err)
	}
	if _, err := NewWeekRef(1999, 10); !errors.Is(err, ErrInvalidWeek) {
		t.Errorf("expected ErrInvalidWeek for year 1999, got %v", err)
	}
	if w, err := NewWeekRef(2024, 7); err != nil || w.TwoDigit() != "07" {
		t.Errorf("NewWeekRef(2024, 7) = %v, %v", w, err)
	}
}

func TestExpandSupplier(t *testing.T) {
	all, err := ExpandSupplier("", []string{SupplierSolagora, SupplierAnecoop})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(all) != 2 || all[0] != SupplierAnecoop {
		t.Errorf("expected sorted supplier set, got %v", all)
	}

	one, err := ExpandSupplier(" Anecoop ", DefaultSuppliers)
	if err != nil || len(one) != 1 || one[0] != SupplierAnecoop {
		t.Errorf("ExpandSupplier(Anecoop) = %v, %v", one, err)
	}

	if _, err := ExpandSupplier("unknown", DefaultSuppliers); !errors.Is(err, ErrInvalidSupplier) {
		t.Errorf("expected ErrInvalidSupplier, got %v", err)
	}
}
