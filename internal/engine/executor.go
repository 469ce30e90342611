package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/shaiso/Conductor/internal/domain"
)

// PlanExecutor — верхнеуровневый исполнитель планов. Владеет циклом
// выполнения, контекстом прогона и агрегацией результата.
type PlanExecutor struct {
	steps  *StepExecutor
	comp   *CompensationCoordinator
	logger *slog.Logger
}

// Config — конфигурация PlanExecutor.
type Config struct {
	Queue  JobQueue     // внешняя очередь заданий (обязательно)
	Logger *slog.Logger // default: slog.Default()
}

// New создаёт новый PlanExecutor.
func New(cfg Config) *PlanExecutor {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &PlanExecutor{
		steps:  NewStepExecutor(cfg.Queue, logger),
		comp:   NewCompensationCoordinator(cfg.Queue, logger),
		logger: logger,
	}
}

// ExecutePlan выполняет план и возвращает агрегированный результат.
//
// Бизнес-провалы шагов не покидают ExecutePlan: они фиксируются в
// результатах шагов. Наружу уходит только паника (ошибка программиста).
//
// Цикл: пока есть необработанные шаги и план не прерван, берётся партия
// готовых шагов — тех, все зависимости которых уже в completedSteps, —
// и выполняется последовательно в порядке объявления. Пустая партия при
// непустом backlog-е означает deadlock: цикл останавливается, остаток
// фиксируется как skipped. Провал required-шага прерывает партию и
// план; для прерванного плана выполняется компенсация завершённых шагов.
//
// Success результата — это «ни одного провала», независимо от
// required-флагов: провал необязательного шага не прерывает план, но
// успех у плана отнимает.
func (e *PlanExecutor) ExecutePlan(ctx context.Context, plan *domain.OrchestrationPlan, input map[string]any) *domain.OrchestrationResult {
	startedAt := time.Now()
	ectx := NewExecutionContext(input)

	e.logger.Info("plan execution started",
		"plan_id", plan.ID,
		"plan_name", plan.Name,
		"tenant_id", plan.TenantID,
		"total_steps", len(plan.Steps),
	)

	completed := make(map[string]struct{}, len(plan.Steps))
	pending := make([]*domain.OrchestrationStep, len(plan.Steps))
	for i := range plan.Steps {
		pending[i] = &plan.Steps[i]
	}
	results := make([]domain.StepResult, 0, len(plan.Steps))

	for len(pending) > 0 && !ectx.Aborted {
		ready := readySteps(pending, completed)
		if len(ready) == 0 {
			// Истинный цикл зависимостей и зависимость от шага,
			// который провалился или отсутствует в плане, выглядят
			// отсюда одинаково.
			e.logger.Warn("plan deadlocked: no ready steps among pending",
				"plan_id", plan.ID,
				"pending_steps", len(pending),
			)
			break
		}

		for _, step := range ready {
			res := e.steps.Execute(ctx, plan, step, ectx)
			results = append(results, res)
			pending = withoutStep(pending, step.ID)

			switch res.Status {
			case domain.StepStatusCompleted, domain.StepStatusSkipped:
				completed[step.ID] = struct{}{}
				if res.Output != nil {
					ectx.RecordOutput(step.ID, res.Output)
				}
			case domain.StepStatusFailed:
				if step.Required {
					ectx.Abort()
				}
			}

			if ectx.Aborted {
				// Остаток партии не выполняется.
				break
			}
		}
	}

	// Шаги, до которых цикл не дошёл, фиксируются как skipped с
	// нулевой длительностью.
	now := time.Now()
	for _, step := range pending {
		results = append(results, domain.StepResult{
			StepID:      step.ID,
			StepName:    step.Name,
			Status:      domain.StepStatusSkipped,
			StartedAt:   now,
			CompletedAt: now,
		})
	}

	var actions []domain.CompensationAction
	if ectx.Aborted {
		actions = e.comp.Compensate(ctx, plan, completed, results)
	}

	result := e.aggregate(plan, results, actions, startedAt)

	e.logger.Info("plan execution finished",
		"plan_id", plan.ID,
		"plan_name", plan.Name,
		"status", result.Status,
		"success", result.Success,
		"completed_steps", result.CompletedSteps,
		"failed_steps", result.FailedSteps,
		"skipped_steps", result.SkippedSteps,
		"duration_ms", result.TotalDurationMs,
		"compensation_applied", result.CompensationApplied,
	)

	return result
}

// aggregate сводит результаты шагов в итоговый OrchestrationResult.
func (e *PlanExecutor) aggregate(plan *domain.OrchestrationPlan, results []domain.StepResult, actions []domain.CompensationAction, startedAt time.Time) *domain.OrchestrationResult {
	completedAt := time.Now()
	result := &domain.OrchestrationResult{
		PlanID:              plan.ID,
		PlanName:            plan.Name,
		StepResults:         results,
		TotalSteps:          len(plan.Steps),
		StartedAt:           startedAt,
		CompletedAt:         completedAt,
		TotalDurationMs:     completedAt.Sub(startedAt).Milliseconds(),
		CompensationApplied: len(actions) > 0,
		CompensationActions: actions,
	}

	for i := range results {
		switch results[i].Status {
		case domain.StepStatusCompleted:
			result.CompletedSteps++
		case domain.StepStatusFailed:
			result.FailedSteps++
		case domain.StepStatusSkipped:
			result.SkippedSteps++
		}
	}

	result.Success = result.FailedSteps == 0
	switch {
	case result.FailedSteps == 0:
		result.Status = domain.ResultStatusCompleted
	case result.CompletedSteps > 0:
		result.Status = domain.ResultStatusPartiallyCompleted
	default:
		result.Status = domain.ResultStatusFailed
	}

	return result
}

// readySteps отбирает шаги, все зависимости которых уже завершены.
// Порядок объявления сохраняется.
func readySteps(pending []*domain.OrchestrationStep, completed map[string]struct{}) []*domain.OrchestrationStep {
	var ready []*domain.OrchestrationStep
	for _, step := range pending {
		if depsSatisfied(step, completed) {
			ready = append(ready, step)
		}
	}
	return ready
}

// depsSatisfied — готовность как принадлежность множеству: шаг готов,
// когда каждый id из dependsOn есть в completed.
func depsSatisfied(step *domain.OrchestrationStep, completed map[string]struct{}) bool {
	for _, dep := range step.DependsOn {
		if _, ok := completed[dep]; !ok {
			return false
		}
	}
	return true
}

// withoutStep убирает шаг из backlog-а, сохраняя порядок остальных.
func withoutStep(pending []*domain.OrchestrationStep, id string) []*domain.OrchestrationStep {
	out := pending[:0]
	for _, s := range pending {
		if s.ID != id {
			out = append(out, s)
		}
	}
	return out
}
