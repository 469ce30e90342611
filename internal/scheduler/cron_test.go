package scheduler

import (
	"testing"
	"time"

	"github.com/shaiso/Conductor/internal/domain"
)

func TestCalculateNextDue_Cron(t *testing.T) {
	sched := &domain.Schedule{
		CronExpr: "0 9 * * *", // каждый день в 9:00
		Timezone: "UTC",
	}

	from := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)

	next, err := CalculateNextDue(sched, from)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	if !next.Equal(expected) {
		t.Errorf("expected %v, got %v", expected, next)
	}
}

func TestCalculateNextDue_CronAfterDue(t *testing.T) {
	sched := &domain.Schedule{
		CronExpr: "0 9 * * *",
		Timezone: "UTC",
	}

	// Уже позже 9:00 — следующее срабатывание завтра
	from := time.Date(2026, 3, 10, 10, 30, 0, 0, time.UTC)

	next, err := CalculateNextDue(sched, from)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := time.Date(2026, 3, 11, 9, 0, 0, 0, time.UTC)
	if !next.Equal(expected) {
		t.Errorf("expected %v, got %v", expected, next)
	}
}

func TestCalculateNextDue_Interval(t *testing.T) {
	sched := &domain.Schedule{
		IntervalSec: 300, // каждые 5 минут
		Timezone:    "UTC",
	}

	from := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)

	next, err := CalculateNextDue(sched, from)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := from.Add(5 * time.Minute)
	if !next.Equal(expected) {
		t.Errorf("expected %v, got %v", expected, next)
	}
}

func TestCalculateNextDue_CronTakesPrecedence(t *testing.T) {
	// Если заданы и cron, и интервал — используется cron
	sched := &domain.Schedule{
		CronExpr:    "0 9 * * *",
		IntervalSec: 60,
		Timezone:    "UTC",
	}

	from := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)

	next, err := CalculateNextDue(sched, from)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	if !next.Equal(expected) {
		t.Errorf("expected %v, got %v", expected, next)
	}
}

func TestCalculateNextDue_InvalidTimezone(t *testing.T) {
	// Невалидный timezone — fallback на UTC, не ошибка
	sched := &domain.Schedule{
		IntervalSec: 60,
		Timezone:    "Mars/Olympus_Mons",
	}

	from := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)

	next, err := CalculateNextDue(sched, from)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !next.Equal(from.Add(time.Minute)) {
		t.Errorf("expected %v, got %v", from.Add(time.Minute), next)
	}
}

func TestCalculateNextDue_InvalidCron(t *testing.T) {
	sched := &domain.Schedule{
		CronExpr: "not a cron",
		Timezone: "UTC",
	}

	_, err := CalculateNextDue(sched, time.Now())
	if err == nil {
		t.Error("expected error for invalid cron expression")
	}
}

func TestCalculateNextDue_EmptySchedule(t *testing.T) {
	// Ни cron, ни интервала — расписание некорректно
	sched := &domain.Schedule{Timezone: "UTC"}

	_, err := CalculateNextDue(sched, time.Now())
	if err == nil {
		t.Error("expected error for schedule without cron and interval")
	}
}

func TestValidateCronExpr(t *testing.T) {
	tests := []struct {
		name    string
		expr    string
		wantErr bool
	}{
		{"каждый день в 9:00", "0 9 * * *", false},
		{"каждые 5 минут", "*/5 * * * *", false},
		{"воскресенье в полночь", "0 0 * * 0", false},
		{"пустое выражение", "", true},
		{"мусор", "not a cron", true},
		{"слишком много полей", "0 9 * * * *", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateCronExpr(tt.expr)
			if tt.wantErr && err == nil {
				t.Errorf("expected error for %q", tt.expr)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error for %q: %v", tt.expr, err)
			}
		})
	}
}
