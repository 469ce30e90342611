package domain

import (
	"time"

	"github.com/google/uuid"
)

// Schedule — расписание автоматического запуска плана.
//
// Schedule позволяет запускать план:
// - По cron-выражению: "0 9 * * *" (каждый день в 9:00)
// - По интервалу: каждые N секунд
//
// Scheduler проверяет next_due_at и ставит план в очередь, когда время
// подошло.
type Schedule struct {
	// ID — уникальный идентификатор schedule.
	ID uuid.UUID `json:"id"`

	// PlanID — ссылка на сохранённый план, который нужно запускать.
	PlanID uuid.UUID `json:"plan_id"`

	// Name — имя расписания для удобства.
	Name string `json:"name,omitempty"`

	// CronExpr — cron-выражение.
	// Формат: "минуты часы дни месяцы дни_недели"
	// Примеры:
	//   "0 9 * * *"     — каждый день в 9:00
	//   "*/5 * * * *"   — каждые 5 минут
	//   "0 0 * * 0"     — каждое воскресенье в полночь
	// Если задан CronExpr, IntervalSec игнорируется.
	CronExpr string `json:"cron_expr,omitempty"`

	// IntervalSec — интервал в секундах между запусками.
	// Используется если CronExpr не задан.
	IntervalSec int `json:"interval_sec,omitempty"`

	// Timezone — часовой пояс для вычисления времени.
	// По умолчанию: "UTC".
	// Примеры: "Europe/Moscow", "America/New_York"
	Timezone string `json:"timezone"`

	// Enabled — флаг активности расписания.
	// Если false, scheduler игнорирует это расписание.
	Enabled bool `json:"enabled"`

	// NextDueAt — время следующего запуска.
	// Scheduler ставит план в очередь, когда now >= NextDueAt,
	// после чего вычисляет новое NextDueAt.
	NextDueAt *time.Time `json:"next_due_at,omitempty"`

	// LastRunAt — время последнего запуска.
	LastRunAt *time.Time `json:"last_run_at,omitempty"`

	// LastExecutionID — ID последнего созданного запуска.
	LastExecutionID *uuid.UUID `json:"last_execution_id,omitempty"`

	// Input — вход плана. Передаётся в каждый созданный запуск.
	Input map[string]any `json:"input,omitempty"`

	// CreatedAt — время создания schedule.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt — время последнего обновления.
	UpdatedAt time.Time `json:"updated_at"`
}

// IsCron возвращает true, если расписание использует cron-выражение.
func (s *Schedule) IsCron() bool {
	return s.CronExpr != ""
}

// IsInterval возвращает true, если расписание использует интервал.
func (s *Schedule) IsInterval() bool {
	return s.CronExpr == "" && s.IntervalSec > 0
}

// IsDue проверяет, пора ли запускать.
func (s *Schedule) IsDue(now time.Time) bool {
	if !s.Enabled {
		return false
	}
	if s.NextDueAt == nil {
		return false
	}
	return now.After(*s.NextDueAt) || now.Equal(*s.NextDueAt)
}

// RecordRun записывает информацию о запуске.
func (s *Schedule) RecordRun(executionID uuid.UUID, nextDue time.Time) {
	now := time.Now()
	s.LastRunAt = &now
	s.LastExecutionID = &executionID
	s.NextDueAt = &nextDue
	s.UpdatedAt = now
}
