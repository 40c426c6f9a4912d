package schedule

import (
	"errors"
	"testing"
	"time"

	"github.com/mmeshcher/messhall-system/internal/model"
)

var kolkata = time.FixedZone("IST", 5*3600+30*60)

func TestParseTimeOfDay(t *testing.T) {
	tests := []struct {
		in      string
		want    TimeOfDay
		wantErr bool
	}{
		{in: "23:00", want: TimeOfDay{Hour: 23}},
		{in: "07:30", want: TimeOfDay{Hour: 7, Minute: 30}},
		{in: "24:00", wantErr: true},
		{in: "12:60", wantErr: true},
		{in: "noon", wantErr: true},
	}

	for _, tt := range tests {
		got, err := ParseTimeOfDay(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Fatalf("ParseTimeOfDay(%q) expected error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Fatalf("ParseTimeOfDay(%q) error = %v", tt.in, err)
		}
		if got != tt.want {
			t.Fatalf("ParseTimeOfDay(%q) = %+v, want %+v", tt.in, got, tt.want)
		}
	}
}

func TestEarliestCutDate_CutoffBoundary(t *testing.T) {
	cutoff := TimeOfDay{Hour: 23}

	tests := []struct {
		name     string
		now      time.Time
		wantDate time.Time
	}{
		{
			name:     "one minute before cutoff",
			now:      time.Date(2025, 3, 10, 22, 59, 0, 0, kolkata),
			wantDate: time.Date(2025, 3, 11, 0, 0, 0, 0, kolkata),
		},
		{
			name:     "exactly at cutoff",
			now:      time.Date(2025, 3, 10, 23, 0, 0, 0, kolkata),
			wantDate: time.Date(2025, 3, 12, 0, 0, 0, 0, kolkata),
		},
		{
			name:     "after cutoff near midnight",
			now:      time.Date(2025, 3, 10, 23, 59, 0, 0, kolkata),
			wantDate: time.Date(2025, 3, 12, 0, 0, 0, 0, kolkata),
		},
		{
			name:     "just after midnight rolls back to tomorrow",
			now:      time.Date(2025, 3, 11, 0, 1, 0, 0, kolkata),
			wantDate: time.Date(2025, 3, 12, 0, 0, 0, 0, kolkata),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EarliestCutDate(tt.now, cutoff)
			if !got.Equal(tt.wantDate) {
				t.Fatalf("EarliestCutDate() = %s, want %s", got, tt.wantDate)
			}
		})
	}
}

func TestValidateCutRange(t *testing.T) {
	cutoff := TimeOfDay{Hour: 23}
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, kolkata)

	date := func(d int) time.Time {
		return time.Date(2025, 3, d, 0, 0, 0, 0, kolkata)
	}

	tests := []struct {
		name       string
		from, to   time.Time
		wantErr    bool
		wantCutoff bool
	}{
		{name: "tomorrow is allowed before cutoff", from: date(11), to: date(13)},
		{name: "today violates cutoff", from: date(10), to: date(12), wantErr: true, wantCutoff: true},
		{name: "past date violates cutoff", from: date(1), to: date(12), wantErr: true, wantCutoff: true},
		{name: "inverted range", from: date(15), to: date(12), wantErr: true, wantCutoff: true},
		{name: "too long", from: date(11), to: date(11).AddDate(0, 0, MaxCutDays), wantErr: true},
		{name: "exactly max days", from: date(11), to: date(11).AddDate(0, 0, MaxCutDays-1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateCutRange(tt.from, tt.to, now, cutoff)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ValidateCutRange() expected error")
				}
				if tt.wantCutoff && !errors.Is(err, ErrCutoffViolation) {
					t.Fatalf("ValidateCutRange() error = %v, want ErrCutoffViolation", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ValidateCutRange() error = %v", err)
			}
		})
	}
}

func TestValidateCutRange_AfterCutoff(t *testing.T) {
	cutoff := TimeOfDay{Hour: 23}
	now := time.Date(2025, 3, 10, 23, 0, 0, 0, kolkata)

	tomorrow := time.Date(2025, 3, 11, 0, 0, 0, 0, kolkata)
	dayAfter := time.Date(2025, 3, 12, 0, 0, 0, 0, kolkata)

	if err := ValidateCutRange(tomorrow, dayAfter, now, cutoff); !errors.Is(err, ErrCutoffViolation) {
		t.Fatalf("tomorrow after cutoff: error = %v, want ErrCutoffViolation", err)
	}
	if err := ValidateCutRange(dayAfter, dayAfter, now, cutoff); err != nil {
		t.Fatalf("day after tomorrow after cutoff: error = %v", err)
	}
}

func TestCurrentMealWindow(t *testing.T) {
	windows := map[model.Meal]Window{
		model.MealBreakfast: {Start: TimeOfDay{7, 30}, End: TimeOfDay{9, 30}},
		model.MealLunch:     {Start: TimeOfDay{12, 0}, End: TimeOfDay{14, 30}},
		model.MealDinner:    {Start: TimeOfDay{19, 0}, End: TimeOfDay{21, 30}},
	}

	tests := []struct {
		name     string
		now      time.Time
		wantMeal model.Meal
		wantOK   bool
	}{
		{name: "breakfast start", now: time.Date(2025, 3, 10, 7, 30, 0, 0, kolkata), wantMeal: model.MealBreakfast, wantOK: true},
		{name: "lunch end inclusive", now: time.Date(2025, 3, 10, 14, 30, 0, 0, kolkata), wantMeal: model.MealLunch, wantOK: true},
		{name: "dinner middle", now: time.Date(2025, 3, 10, 20, 0, 0, 0, kolkata), wantMeal: model.MealDinner, wantOK: true},
		{name: "between windows", now: time.Date(2025, 3, 10, 10, 0, 0, 0, kolkata), wantOK: false},
		{name: "late night", now: time.Date(2025, 3, 10, 23, 0, 0, 0, kolkata), wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			meal, ok := CurrentMealWindow(tt.now, windows)
			if ok != tt.wantOK {
				t.Fatalf("CurrentMealWindow() ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && meal != tt.wantMeal {
				t.Fatalf("CurrentMealWindow() = %s, want %s", meal, tt.wantMeal)
			}
		})
	}
}
