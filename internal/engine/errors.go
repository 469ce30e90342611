package engine

import "errors"

// Ошибки выполнения шагов.
var (
	// ErrMissingStepConfig — у шага нет блока конфигурации его типа
	// (например, action-шаг без action). Шаг завершается failed.
	ErrMissingStepConfig = errors.New("missing step config")

	// ErrNoJobQueue — движок собран без очереди заданий; шаги, которым
	// нужна постановка задания, завершаются failed.
	ErrNoJobQueue = errors.New("job queue is not configured")
)

// Ошибки вычисления выражений.
var (
	// ErrInvalidExpression — выражение не разобрано: нет оператора
	// сравнения либо пуста одна из сторон.
	ErrInvalidExpression = errors.New("invalid expression")
)

// Ошибки валидации плана.
var (
	// ErrEmptyPlanName — план без имени.
	ErrEmptyPlanName = errors.New("plan has empty name")

	// ErrEmptySteps — план не содержит шагов.
	ErrEmptySteps = errors.New("plan has no steps")

	// ErrEmptyStepID — шаг не имеет ID.
	ErrEmptyStepID = errors.New("step has empty ID")

	// ErrDuplicateStepID — несколько шагов с одинаковым ID.
	ErrDuplicateStepID = errors.New("duplicate step ID")
)

// ValidationError — ошибка валидации с контекстом.
type ValidationError struct {
	StepID  string // ID шага, где произошла ошибка
	Field   string // поле, вызвавшее ошибку
	Message string // описание ошибки
	Err     error  // базовая ошибка
}

// Error реализует интерфейс error.
func (e *ValidationError) Error() string {
	if e.StepID != "" {
		return "step " + e.StepID + ": " + e.Message
	}
	return e.Message
}

// Unwrap возвращает базовую ошибку.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// NewValidationError создаёт новую ошибку валидации.
func NewValidationError(stepID, field, message string, err error) *ValidationError {
	return &ValidationError{
		StepID:  stepID,
		Field:   field,
		Message: message,
		Err:     err,
	}
}
