package engine

import (
	"fmt"

	"github.com/shaiso/Conductor/internal/domain"
)

// ValidatePlan проверяет форму плана на границе сервиса.
//
// Проверка намеренно щадящая. Контракт позволяет зависимости на
// отсутствующие в плане шаги (на выполнении они разрешаются в skipped
// через deadlock-break) и нераспознанные типы шагов (тоже skipped),
// поэтому здесь это не ошибки. Жёстко проверяется лишь то, без чего
// план не имеет смысла: имя, непустой список шагов, непустые и
// уникальные идентификаторы.
//
// ExecutePlan валидацию не вызывает: движок обязан переварить любой
// план, пришедший из очереди.
func ValidatePlan(plan *domain.OrchestrationPlan) error {
	if plan.Name == "" {
		return NewValidationError("", "name", "plan has empty name", ErrEmptyPlanName)
	}
	if len(plan.Steps) == 0 {
		return NewValidationError("", "steps", "plan has no steps", ErrEmptySteps)
	}

	seen := make(map[string]struct{}, len(plan.Steps))
	for i := range plan.Steps {
		step := &plan.Steps[i]
		if step.ID == "" {
			return NewValidationError("", "id", fmt.Sprintf("step #%d has empty ID", i), ErrEmptyStepID)
		}
		if _, ok := seen[step.ID]; ok {
			return NewValidationError(step.ID, "id", fmt.Sprintf("duplicate step ID %q", step.ID), ErrDuplicateStepID)
		}
		seen[step.ID] = struct{}{}
	}

	return nil
}
