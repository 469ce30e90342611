package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shaiso/Conductor/internal/domain"
)

// stepHandler — обработчик одного варианта шага. Возвращает выход шага
// (nil, если выхода нет) либо ошибку, которую Execute зафиксирует как
// провал шага.
type stepHandler func(ctx context.Context, plan *domain.OrchestrationPlan, step *domain.OrchestrationStep, ectx *ExecutionContext) (any, error)

// StepExecutor выполняет один шаг плана: выбирает обработчик по типу,
// замеряет длительность и переводит ошибку обработчика в failed-результат.
type StepExecutor struct {
	queue  JobQueue
	logger *slog.Logger
}

// NewStepExecutor создаёт исполнитель шагов.
func NewStepExecutor(queue JobQueue, logger *slog.Logger) *StepExecutor {
	if logger == nil {
		logger = slog.Default()
	}
	return &StepExecutor{queue: queue, logger: logger}
}

// Execute выполняет шаг и возвращает его результат.
//
// Ошибка обработчика — ожидаемый исход: она фиксируется в результате
// со статусом failed и наружу не распространяется. Паника — ошибка
// программиста, здесь не перехватывается. Временные метки и
// длительность проставляются при любом исходе.
func (x *StepExecutor) Execute(ctx context.Context, plan *domain.OrchestrationPlan, step *domain.OrchestrationStep, ectx *ExecutionContext) domain.StepResult {
	startedAt := time.Now()
	result := domain.StepResult{
		StepID:      step.ID,
		StepName:    step.Name,
		StartedAt:   startedAt,
		CompletedAt: startedAt,
	}

	handler, known := x.handlerFor(step.Type)
	if !known {
		// Нераспознанный тип — не ошибка: шаг пропускается.
		x.logger.Warn("unknown step type, skipping step",
			"plan_id", plan.ID,
			"step_id", step.ID,
			"step_type", step.Type,
		)
		result.Status = domain.StepStatusSkipped
		return result
	}

	x.logger.Debug("executing step",
		"plan_id", plan.ID,
		"step_id", step.ID,
		"step_type", step.Type,
	)

	output, err := handler(ctx, plan, step, ectx)

	completedAt := time.Now()
	result.CompletedAt = completedAt
	result.DurationMs = completedAt.Sub(startedAt).Milliseconds()

	if err != nil {
		x.logger.Error("step failed",
			"plan_id", plan.ID,
			"step_id", step.ID,
			"step_type", step.Type,
			"required", step.Required,
			"error", err,
		)
		result.Status = domain.StepStatusFailed
		result.Error = err.Error()
		return result
	}

	result.Status = domain.StepStatusCompleted
	result.Output = output
	return result
}

// handlerFor возвращает обработчик варианта шага. По одному обработчику
// на вариант; неизвестному типу обработчик не полагается.
func (x *StepExecutor) handlerFor(t domain.StepType) (stepHandler, bool) {
	switch t {
	case domain.StepTypeAction:
		return x.runAction, true
	case domain.StepTypeCondition:
		return x.runCondition, true
	case domain.StepTypeParallel:
		return x.runParallel, true
	case domain.StepTypeDelay:
		return x.runDelay, true
	case domain.StepTypeApproval:
		return x.runApproval, true
	default:
		return nil, false
	}
}

// runAction интерполирует полезную нагрузку и ставит бизнес-задание в
// очередь. Завершение шага означает «задание принято очередью», а не
// «работа сделана» — действия fire-and-forget.
func (x *StepExecutor) runAction(ctx context.Context, plan *domain.OrchestrationPlan, step *domain.OrchestrationStep, ectx *ExecutionContext) (any, error) {
	cfg := step.Action
	if cfg == nil {
		return nil, fmt.Errorf("%w: action step %q has no action block", ErrMissingStepConfig, step.ID)
	}
	if x.queue == nil {
		return nil, ErrNoJobQueue
	}

	payload := InterpolatePayload(cfg.Payload, ectx)

	job, err := x.queue.Enqueue(ctx, domain.JobDescriptor{
		Type:    cfg.JobType,
		Payload: payload,
		Metadata: map[string]any{
			"planId":   plan.ID,
			"tenantId": plan.TenantID,
			"stepId":   step.ID,
		},
	}, domain.EnqueueOptions{
		TimeoutMs: cfg.TimeoutMs,
		// Retry-политика шагов принадлежит движку, а не очереди;
		// по умолчанию её нет.
		Attempts: 1,
	})
	if err != nil {
		return nil, fmt.Errorf("enqueue action job: %w", err)
	}

	x.logger.Info("action job enqueued",
		"plan_id", plan.ID,
		"step_id", step.ID,
		"job_id", job.ID,
		"job_type", cfg.JobType,
	)

	return map[string]any{
		"jobId":    job.ID,
		"jobType":  cfg.JobType,
		"enqueued": true,
	}, nil
}

// runCondition вычисляет булево выражение шага.
func (x *StepExecutor) runCondition(ctx context.Context, plan *domain.OrchestrationPlan, step *domain.OrchestrationStep, ectx *ExecutionContext) (any, error) {
	cfg := step.Condition
	if cfg == nil {
		return nil, fmt.Errorf("%w: condition step %q has no condition block", ErrMissingStepConfig, step.ID)
	}

	ok, err := EvaluateExpression(cfg.Expression, ectx)
	if err != nil {
		return nil, fmt.Errorf("evaluate condition: %w", err)
	}

	branch := "else"
	if ok {
		branch = "then"
	}
	return map[string]any{
		"result": ok,
		"branch": branch,
	}, nil
}

// runParallel строит по синтетическому action-подшагу на каждый
// идентификатор группы (пустая нагрузка, jobType = идентификатор) и
// запускает их конкурентно.
//
// Обе стратегии, включая fail_fast, ждут все подшаги: группа собирает
// только успешные результаты, отклонённые подшаги молча выпадают из
// выхода, а сам parallel-шаг завершается completed.
func (x *StepExecutor) runParallel(ctx context.Context, plan *domain.OrchestrationPlan, step *domain.OrchestrationStep, ectx *ExecutionContext) (any, error) {
	cfg := step.Parallel
	if cfg == nil {
		return nil, fmt.Errorf("%w: parallel step %q has no parallel block", ErrMissingStepConfig, step.ID)
	}

	// Scatter/gather: каждый подшаг пишет только в свой слот, общий
	// контекст во время разлёта лишь читается; сборка — после того,
	// как все подшаги завершились.
	slots := make([]*domain.StepResult, len(cfg.Steps))
	var wg sync.WaitGroup

	for i, ref := range cfg.Steps {
		wg.Add(1)
		go func(i int, ref string) {
			defer wg.Done()

			sub := domain.OrchestrationStep{
				ID:     ref,
				Name:   ref,
				Type:   domain.StepTypeAction,
				Action: &domain.ActionConfig{JobType: ref},
			}

			startedAt := time.Now()
			output, err := x.runAction(ctx, plan, &sub, ectx)
			completedAt := time.Now()
			if err != nil {
				x.logger.Warn("parallel sub-step rejected",
					"plan_id", plan.ID,
					"step_id", step.ID,
					"sub_step", ref,
					"error", err,
				)
				return
			}

			slots[i] = &domain.StepResult{
				StepID:      ref,
				StepName:    ref,
				Status:      domain.StepStatusCompleted,
				StartedAt:   startedAt,
				CompletedAt: completedAt,
				DurationMs:  completedAt.Sub(startedAt).Milliseconds(),
				Output:      output,
			}
		}(i, ref)
	}
	wg.Wait()

	collected := make([]domain.StepResult, 0, len(cfg.Steps))
	for _, r := range slots {
		if r != nil {
			collected = append(collected, *r)
		}
	}
	return collected, nil
}

// runDelay приостанавливает выполнение на заданное число миллисекунд.
// Единственная точка, где движок намеренно блокируется по часам.
func (x *StepExecutor) runDelay(ctx context.Context, plan *domain.OrchestrationPlan, step *domain.OrchestrationStep, ectx *ExecutionContext) (any, error) {
	cfg := step.Delay
	if cfg == nil {
		return nil, fmt.Errorf("%w: delay step %q has no delay block", ErrMissingStepConfig, step.ID)
	}

	if cfg.DurationMs <= 0 {
		return nil, nil
	}

	timer := time.NewTimer(time.Duration(cfg.DurationMs) * time.Millisecond)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// runApproval ставит высокоприоритетный запрос ручного подтверждения.
// Движок ответа человека не ждёт: completed означает «запрос отправлен».
func (x *StepExecutor) runApproval(ctx context.Context, plan *domain.OrchestrationPlan, step *domain.OrchestrationStep, ectx *ExecutionContext) (any, error) {
	if x.queue == nil {
		return nil, ErrNoJobQueue
	}

	payload := map[string]any{}
	if step.Approval != nil {
		payload = InterpolatePayload(step.Approval.Payload, ectx)
	}
	payload["stepId"] = step.ID
	payload["stepName"] = step.Name
	payload["tenantId"] = plan.TenantID

	job, err := x.queue.Enqueue(ctx, domain.JobDescriptor{
		Type:    domain.ApprovalJobType,
		Payload: payload,
		Metadata: map[string]any{
			"planId": plan.ID,
			"stepId": step.ID,
		},
	}, domain.EnqueueOptions{
		Attempts: 1,
		Priority: domain.PriorityHigh,
	})
	if err != nil {
		return nil, fmt.Errorf("enqueue approval job: %w", err)
	}

	x.logger.Info("approval requested",
		"plan_id", plan.ID,
		"step_id", step.ID,
		"tenant_id", plan.TenantID,
		"job_id", job.ID,
	)

	return map[string]any{
		"awaitingApproval": true,
		"jobId":            job.ID,
	}, nil
}
