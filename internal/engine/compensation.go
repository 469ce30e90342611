package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/shaiso/Conductor/internal/domain"
)

// CompensationCoordinator ставит в очередь действия отката, объявленные
// завершёнными шагами прерванного плана.
type CompensationCoordinator struct {
	queue  JobQueue
	logger *slog.Logger
}

// NewCompensationCoordinator создаёт координатор компенсации.
func NewCompensationCoordinator(queue JobQueue, logger *slog.Logger) *CompensationCoordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &CompensationCoordinator{queue: queue, logger: logger}
}

// Compensate обходит шаги плана в обратном порядке объявления (не в
// обратном порядке завершения) и для каждого шага из completed,
// объявившего блок compensation, ставит компенсационное задание с
// метаданными compensationFor.
//
// Полезная нагрузка уходит как объявлена, без интерполяции.
// CompensationAction записывается независимо от исхода постановки;
// ошибка очереди логируется, попадает в запись с success=false и не
// останавливает откат остальных шагов — гарантии «всё или ничего» нет.
// Соответствующий StepResult помечается compensated=true.
func (c *CompensationCoordinator) Compensate(ctx context.Context, plan *domain.OrchestrationPlan, completed map[string]struct{}, results []domain.StepResult) []domain.CompensationAction {
	byID := make(map[string]*domain.StepResult, len(results))
	for i := range results {
		byID[results[i].StepID] = &results[i]
	}

	var actions []domain.CompensationAction
	for i := len(plan.Steps) - 1; i >= 0; i-- {
		step := &plan.Steps[i]
		if step.Compensation == nil {
			continue
		}
		if _, ok := completed[step.ID]; !ok {
			continue
		}

		action := domain.CompensationAction{
			StepID:     step.ID,
			JobType:    step.Compensation.JobType,
			Payload:    step.Compensation.Payload,
			ExecutedAt: time.Now(),
		}

		if c.queue == nil {
			c.logger.Error("cannot enqueue compensation job, no job queue",
				"plan_id", plan.ID,
				"step_id", step.ID,
				"job_type", step.Compensation.JobType,
			)
			action.Error = ErrNoJobQueue.Error()
			if res, ok := byID[step.ID]; ok {
				res.Compensated = true
			}
			actions = append(actions, action)
			continue
		}

		job, err := c.queue.Enqueue(ctx, domain.JobDescriptor{
			Type:    step.Compensation.JobType,
			Payload: step.Compensation.Payload,
			Metadata: map[string]any{
				"compensationFor": step.ID,
				"planId":          plan.ID,
				"tenantId":        plan.TenantID,
			},
		}, domain.EnqueueOptions{Attempts: 1})
		if err != nil {
			c.logger.Error("failed to enqueue compensation job",
				"plan_id", plan.ID,
				"step_id", step.ID,
				"job_type", step.Compensation.JobType,
				"error", err,
			)
			action.Error = err.Error()
		} else {
			action.Success = true
			c.logger.Info("compensation job enqueued",
				"plan_id", plan.ID,
				"step_id", step.ID,
				"job_type", step.Compensation.JobType,
				"job_id", job.ID,
			)
		}

		if res, ok := byID[step.ID]; ok {
			res.Compensated = true
		}
		actions = append(actions, action)
	}

	return actions
}
