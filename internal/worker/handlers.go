package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Conductor/internal/domain"
	"github.com/shaiso/Conductor/internal/mq"
	"github.com/shaiso/Conductor/internal/repo"
	"github.com/shaiso/Conductor/internal/telemetry"
)

// handlePlanExecute обрабатывает запрос на выполнение плана из очереди plans.execute.
func (w *Worker) handlePlanExecute(ctx context.Context, delivery *mq.Delivery) error {
	// Парсим payload
	payload, err := mq.ParsePayload[mq.PlanExecutePayload](&delivery.Message)
	if err != nil {
		w.logger.Error("failed to parse plan.execute payload", "error", err)
		return err
	}

	w.logger.Debug("received plan.execute request",
		"execution_id", payload.ExecutionID,
		"plan_id", payload.Plan.ID,
	)

	// Прогоняем план
	if err := w.processPlan(ctx, &payload); err != nil {
		// Ожидаемые ситуации (редоставка, гонка воркеров) — не возвращаем ошибку (ack)
		if errors.Is(err, ErrExecutionFinished) || errors.Is(err, ErrExecutionNotQueued) {
			w.logger.Debug("plan not processed",
				"execution_id", payload.ExecutionID,
				"reason", err,
			)
			return nil
		}
		// Бизнес-провал уже зафиксирован и залогирован; ошибка отдаётся
		// наружу — учёт ретраев ведёт система заданий. Редоставка упрётся
		// в завершённую запись и подтвердится без повторного прогона.
		if errors.Is(err, ErrPlanFailed) {
			return err
		}
		w.logger.Error("failed to process plan",
			"execution_id", payload.ExecutionID,
			"error", err,
		)
		return err
	}

	return nil
}

// processPlan загружает запись о запуске, прогоняет план через engine
// и фиксирует агрегированный результат.
//
// Неуспешный прогон (result.success == false) возвращает ErrPlanFailed
// с именем плана и статусом — после того как результат уже сохранён.
// Остальные ошибки означают, что прогон не удалось начать или
// зафиксировать.
func (w *Worker) processPlan(ctx context.Context, payload *mq.PlanExecutePayload) error {
	// Продюсер мог не проставить execution_id — генерируем локально
	if payload.ExecutionID == uuid.Nil {
		payload.ExecutionID = uuid.New()
	}

	// 1. Загружаем запись о запуске (или создаём постфактум)
	execution, err := w.loadOrCreateExecution(ctx, payload)
	if err != nil {
		return err
	}

	// 2. Проверяем статус
	if execution.IsFinished() {
		return fmt.Errorf("%w: %s", ErrExecutionFinished, execution.Status)
	}
	if execution.Status != domain.ExecutionStatusQueued {
		return fmt.Errorf("%w: %s", ErrExecutionNotQueued, execution.Status)
	}

	// 3. Помечаем как running. Переход атомарный: из двух конкурентных
	//    доставок одного запуска план прогонит только успевшая первой.
	execution.MarkRunning()
	if err := w.executionRepo.ClaimRunning(ctx, execution.ID, *execution.StartedAt); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return fmt.Errorf("%w: claimed by another worker", ErrExecutionNotQueued)
		}
		return fmt.Errorf("update execution to running: %w", err)
	}

	logger := telemetry.WithExecutionID(w.logger, execution.ID.String())
	logger = telemetry.WithPlanID(logger, payload.Plan.ID)

	logger.Info("plan execution started",
		"plan_name", payload.Plan.Name,
		"tenant_id", payload.Plan.TenantID,
		"steps", len(payload.Plan.Steps),
	)

	// 4. Прогоняем план. Бизнес-провалы шагов не покидают ExecutePlan —
	//    они уже учтены в результате.
	result := w.executor.ExecutePlan(ctx, &payload.Plan, payload.Input)

	// 5. Фиксируем результат
	execution.MarkFinished(result)
	if err := w.executionRepo.Update(ctx, execution); err != nil {
		return fmt.Errorf("update execution to %s: %w", execution.Status, err)
	}

	w.observeResult(&payload.Plan, result)

	if result.Success {
		logger.Info("plan execution completed",
			"status", result.Status,
			"completed_steps", result.CompletedSteps,
			"skipped_steps", result.SkippedSteps,
			"duration_ms", result.TotalDurationMs,
		)
		return nil
	}

	logger.Warn("plan execution finished with failures",
		"status", result.Status,
		"completed_steps", result.CompletedSteps,
		"failed_steps", result.FailedSteps,
		"skipped_steps", result.SkippedSteps,
		"compensation_applied", result.CompensationApplied,
		"duration_ms", result.TotalDurationMs,
	)

	return fmt.Errorf("%w: plan %q finished %s", ErrPlanFailed, payload.Plan.Name, result.Status)
}

// loadOrCreateExecution возвращает запись о запуске для сообщения.
//
// Если записи нет (план положили в очередь напрямую, минуя API и
// scheduler), запись создаётся постфактум — история запусков остаётся
// полной независимо от источника.
func (w *Worker) loadOrCreateExecution(ctx context.Context, payload *mq.PlanExecutePayload) (*domain.Execution, error) {
	execution, err := w.executionRepo.GetByID(ctx, payload.ExecutionID)
	if err == nil {
		return execution, nil
	}
	if !errors.Is(err, repo.ErrNotFound) {
		return nil, fmt.Errorf("get execution: %w", err)
	}

	execution = &domain.Execution{
		ID:        payload.ExecutionID,
		PlanID:    payload.Plan.ID,
		TenantID:  payload.Plan.TenantID,
		PlanName:  payload.Plan.Name,
		Status:    domain.ExecutionStatusQueued,
		Input:     payload.Input,
		CreatedAt: time.Now(),
	}

	if err := w.executionRepo.Create(ctx, execution); err != nil {
		// Гонка с другим воркером — запись уже появилась
		if errors.Is(err, repo.ErrAlreadyExists) {
			return w.executionRepo.GetByID(ctx, payload.ExecutionID)
		}
		return nil, fmt.Errorf("create execution: %w", err)
	}

	w.logger.Debug("execution record created post factum",
		"execution_id", execution.ID,
		"plan_id", execution.PlanID,
	)

	return execution, nil
}

// processStale выполняет зависший запуск напрямую, минуя очередь.
//
// Запись застревает в QUEUED, если сообщение plan.execute потерялось —
// например, процесс упал между созданием записи и публикацией. Для
// сохранённых планов план перечитывается из БД; inline-план восстановить
// неоткуда, такой запуск помечается FAILED.
func (w *Worker) processStale(ctx context.Context, execution *domain.Execution) error {
	planID, err := uuid.Parse(execution.PlanID)
	if err != nil {
		return w.failStale(ctx, execution, "plan message lost and plan is not stored")
	}

	plan, err := w.planRepo.GetByID(ctx, planID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return w.failStale(ctx, execution, "plan message lost and plan definition deleted")
		}
		return fmt.Errorf("get plan: %w", err)
	}

	payload := mq.PlanExecutePayload{
		ExecutionID: execution.ID,
		Plan:        *plan.ToOrchestration(),
		Input:       execution.Input,
	}

	return w.processPlan(ctx, &payload)
}

// failStale помечает зависший запуск как FAILED.
func (w *Worker) failStale(ctx context.Context, execution *domain.Execution, reason string) error {
	execution.MarkFailed(reason)
	if err := w.executionRepo.Update(ctx, execution); err != nil {
		return fmt.Errorf("update execution to failed: %w", err)
	}

	w.logger.Warn("stale execution failed",
		"execution_id", execution.ID,
		"plan_id", execution.PlanID,
		"reason", reason,
	)

	return nil
}

// observeResult обновляет метрики по агрегированному результату прогона.
func (w *Worker) observeResult(plan *domain.OrchestrationPlan, result *domain.OrchestrationResult) {
	telemetry.PlanExecutionsTotal.WithLabelValues(string(result.Status)).Inc()
	telemetry.PlanExecutionDuration.Observe(float64(result.TotalDurationMs) / 1000)

	for i := range result.StepResults {
		sr := &result.StepResults[i]

		// Нераспознанные типы в метку не попадают: их значения задаёт
		// источник плана, множество меток должно остаться закрытым.
		stepType := "unknown"
		if step := plan.Step(sr.StepID); step != nil && step.Type.Known() {
			stepType = string(step.Type)
		}

		telemetry.StepsTotal.WithLabelValues(stepType, string(sr.Status)).Inc()
	}

	for i := range result.CompensationActions {
		outcome := telemetry.CompensationOutcomeEnqueued
		if !result.CompensationActions[i].Success {
			outcome = telemetry.CompensationOutcomeFailed
		}
		telemetry.CompensationsTotal.WithLabelValues(outcome).Inc()
	}
}
