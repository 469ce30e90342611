package worker

import "errors"

// Ошибки воркера.
var (
	// ErrExecutionFinished — запуск уже завершён (редоставка сообщения).
	ErrExecutionFinished = errors.New("execution already finished")

	// ErrExecutionNotQueued — запуск не в статусе QUEUED.
	ErrExecutionNotQueued = errors.New("execution is not in QUEUED status")

	// ErrPlanFailed — план выполнен, result.success == false.
	// Возвращается после фиксации результата в записи Execution.
	ErrPlanFailed = errors.New("plan execution unsuccessful")
)
