package domain

import (
	"time"

	"github.com/google/uuid"
)

// Execution — запись об одном запуске плана.
//
// Execution создаётся когда:
// - Пользователь запускает план вручную (через API/CLI)
// - Scheduler ставит план в очередь по расписанию
// - Другая подсистема кладёт план в очередь напрямую (тогда запись
//   создаёт воркер постфактум)
//
// Сам прогон плана выполняет воркер; запись хранит вход и итоговый
// OrchestrationResult целиком.
type Execution struct {
	// ID — уникальный идентификатор запуска.
	ID uuid.UUID `json:"id"`

	// PlanID — идентификатор плана из контракта. Для сохранённых планов
	// это их uuid, для inline-планов — что прислал источник.
	PlanID string `json:"plan_id"`

	// TenantID — тенант плана.
	TenantID string `json:"tenant_id"`

	// PlanName — имя плана на момент запуска.
	PlanName string `json:"plan_name"`

	// Status — текущий статус записи.
	Status ExecutionStatus `json:"status"`

	// Input — вход, переданный при запуске.
	Input map[string]any `json:"input,omitempty"`

	// Result — агрегированный результат; nil, пока прогон не завершён.
	Result *OrchestrationResult `json:"result,omitempty"`

	// Error — текст ошибки воркера, если прогон закончился неуспехом.
	Error string `json:"error,omitempty"`

	// IdempotencyKey — ключ идемпотентности для предотвращения дубликатов.
	// Например, для запусков по расписанию: "{schedule_id}_{due_unix}".
	IdempotencyKey string `json:"idempotency_key,omitempty"`

	// StartedAt — время, когда воркер взял план в работу.
	StartedAt *time.Time `json:"started_at,omitempty"`

	// FinishedAt — время завершения прогона.
	FinishedAt *time.Time `json:"finished_at,omitempty"`

	// CreatedAt — время создания записи.
	CreatedAt time.Time `json:"created_at"`
}

// IsFinished возвращает true, если прогон завершён (в любом статусе).
func (e *Execution) IsFinished() bool {
	return e.Status.IsTerminal()
}

// MarkRunning переводит запись в статус RUNNING.
func (e *Execution) MarkRunning() {
	now := time.Now()
	e.Status = ExecutionStatusRunning
	e.StartedAt = &now
}

// MarkFinished фиксирует результат прогона. Терминальный статус записи
// выводится из статуса результата.
func (e *Execution) MarkFinished(result *OrchestrationResult) {
	now := time.Now()
	e.Result = result
	e.FinishedAt = &now

	switch result.Status {
	case ResultStatusCompleted:
		e.Status = ExecutionStatusCompleted
	case ResultStatusPartiallyCompleted:
		e.Status = ExecutionStatusPartiallyCompleted
	default:
		e.Status = ExecutionStatusFailed
	}
}

// MarkFailed переводит запись в FAILED с ошибкой воркера (например,
// когда план не удалось даже разобрать).
func (e *Execution) MarkFailed(err string) {
	now := time.Now()
	e.Status = ExecutionStatusFailed
	e.FinishedAt = &now
	e.Error = err
}
