package domain

// StepStatus — терминальный статус шага плана. Других статусов у шага
// нет: до выполнения шаг просто числится в backlog-е цикла.
type StepStatus string

const (
	// StepStatusCompleted — обработчик шага отработал без ошибки.
	// Для action/approval это означает «задание принято очередью»,
	// а не «работа сделана».
	StepStatusCompleted StepStatus = "completed"

	// StepStatusFailed — обработчик вернул ошибку (ошибки конфигурации
	// шага тоже сюда).
	StepStatusFailed StepStatus = "failed"

	// StepStatusSkipped — шаг не выполнялся: нераспознанный тип либо
	// зависимости, которые уже не могут быть удовлетворены.
	StepStatusSkipped StepStatus = "skipped"
)

// ResultStatus — итоговый статус выполнения плана.
//
// Вычисляется из счётчиков шагов:
//
//	completed           — ни одного провалившегося шага
//	partially_completed — есть и завершённые, и провалившиеся шаги
//	failed              — провалы без единого завершённого шага
type ResultStatus string

const (
	ResultStatusCompleted          ResultStatus = "completed"
	ResultStatusPartiallyCompleted ResultStatus = "partially_completed"
	ResultStatusFailed             ResultStatus = "failed"
)

// ExecutionStatus — статус записи о запуске плана.
//
// Жизненный цикл:
//
//	QUEUED → RUNNING → COMPLETED
//	                 ↘ PARTIALLY_COMPLETED
//	                 ↘ FAILED
type ExecutionStatus string

const (
	// ExecutionStatusQueued — запуск создан и ждёт воркера.
	ExecutionStatusQueued ExecutionStatus = "QUEUED"

	// ExecutionStatusRunning — план выполняется воркером.
	ExecutionStatusRunning ExecutionStatus = "RUNNING"

	// ExecutionStatusCompleted — все шаги завершились успешно.
	ExecutionStatusCompleted ExecutionStatus = "COMPLETED"

	// ExecutionStatusPartiallyCompleted — часть шагов завершилась,
	// часть провалилась.
	ExecutionStatusPartiallyCompleted ExecutionStatus = "PARTIALLY_COMPLETED"

	// ExecutionStatusFailed — провал без завершённых шагов либо
	// инфраструктурная ошибка воркера.
	ExecutionStatusFailed ExecutionStatus = "FAILED"
)

// IsTerminal возвращает true, если статус финальный.
func (s ExecutionStatus) IsTerminal() bool {
	switch s {
	case ExecutionStatusCompleted, ExecutionStatusPartiallyCompleted, ExecutionStatusFailed:
		return true
	default:
		return false
	}
}
