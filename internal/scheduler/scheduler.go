package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Conductor/internal/domain"
	"github.com/shaiso/Conductor/internal/mq"
	"github.com/shaiso/Conductor/internal/repo"
	"github.com/shaiso/Conductor/internal/telemetry"
)

// Scheduler — планировщик, обрабатывающий due schedules.
type Scheduler struct {
	scheduleRepo  *repo.ScheduleRepo
	planRepo      *repo.PlanRepo
	executionRepo *repo.ExecutionRepo
	publisher     *mq.Publisher
	logger        *slog.Logger
	batchSize     int
}

// Config — конфигурация Scheduler.
type Config struct {
	ScheduleRepo  *repo.ScheduleRepo
	PlanRepo      *repo.PlanRepo
	ExecutionRepo *repo.ExecutionRepo
	Publisher     *mq.Publisher
	Logger        *slog.Logger
	BatchSize     int // количество schedules за один тик (default: 100)
}

// New создаёт новый Scheduler.
func New(cfg Config) *Scheduler {
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 100
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Scheduler{
		scheduleRepo:  cfg.ScheduleRepo,
		planRepo:      cfg.PlanRepo,
		executionRepo: cfg.ExecutionRepo,
		publisher:     cfg.Publisher,
		logger:        logger,
		batchSize:     batchSize,
	}
}

// Tick выполняет один тик планировщика.
//
// 1. Находит due schedules (enabled=true, next_due_at <= now)
// 2. Для каждого schedule создаёт запись Execution
// 3. Обновляет next_due_at
// 4. Публикует plan.execute в RabbitMQ
//
// Ошибки одного schedule не блокируют обработку остальных.
func (s *Scheduler) Tick(ctx context.Context) error {
	now := time.Now()

	// 1. Находим due schedules
	schedules, err := s.scheduleRepo.ListDue(ctx, now, s.batchSize)
	if err != nil {
		return fmt.Errorf("list due schedules: %w", err)
	}

	if len(schedules) == 0 {
		return nil
	}

	s.logger.Debug("found due schedules", "count", len(schedules))

	// 2. Обрабатываем каждый schedule
	var processed, created int
	for i := range schedules {
		sched := &schedules[i]

		executionCreated, err := s.processSchedule(ctx, sched, now)
		if err != nil {
			s.logger.Error("failed to process schedule",
				"schedule_id", sched.ID,
				"schedule_name", sched.Name,
				"error", err,
			)
			// Продолжаем обработку остальных
			continue
		}

		processed++
		if executionCreated {
			created++
		}
	}

	s.logger.Info("scheduler tick completed",
		"due", len(schedules),
		"processed", processed,
		"executions_created", created,
	)

	return nil
}

// processSchedule обрабатывает один schedule.
// Возвращает true, если запуск был создан (не был дубликатом).
func (s *Scheduler) processSchedule(ctx context.Context, sched *domain.Schedule, now time.Time) (bool, error) {
	// 1. Проверяем, что план существует и активен
	plan, err := s.planRepo.GetByID(ctx, sched.PlanID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			s.logger.Warn("plan not found for schedule, skipping",
				"schedule_id", sched.ID,
				"plan_id", sched.PlanID,
			)
			// Не возвращаем ошибку — просто пропускаем
			return false, nil
		}
		return false, fmt.Errorf("get plan: %w", err)
	}

	if !plan.IsActive {
		s.logger.Warn("plan is inactive for schedule, skipping",
			"schedule_id", sched.ID,
			"plan_id", sched.PlanID,
		)
		return false, nil
	}

	// 2. Формируем idempotency key: "{schedule_id}_{next_due_at_unix}"
	// Это гарантирует, что для одного schedule и конкретного времени
	// будет создан только один запуск
	idempKey := fmt.Sprintf("%s_%d", sched.ID, sched.NextDueAt.Unix())

	// 3. Проверяем, не создан ли уже запуск (idempotency)
	existing, err := s.executionRepo.GetByIdempotencyKey(ctx, idempKey)
	if err != nil && !errors.Is(err, repo.ErrNotFound) {
		return false, fmt.Errorf("check idempotency: %w", err)
	}

	var executionCreated bool
	var executionID uuid.UUID

	if existing != nil {
		// Запуск уже существует — просто обновляем next_due_at
		s.logger.Debug("execution already exists (idempotency)",
			"schedule_id", sched.ID,
			"execution_id", existing.ID,
			"idempotency_key", idempKey,
		)
		executionID = existing.ID
		executionCreated = false
	} else {
		// 4. Создаём новый запуск
		execution := &domain.Execution{
			ID:             uuid.New(),
			PlanID:         plan.ID.String(),
			TenantID:       plan.TenantID,
			PlanName:       plan.Name,
			Status:         domain.ExecutionStatusQueued,
			Input:          sched.Input,
			IdempotencyKey: idempKey,
			CreatedAt:      now,
		}

		if err := s.executionRepo.Create(ctx, execution); err != nil {
			return false, fmt.Errorf("create execution: %w", err)
		}

		telemetry.ScheduledExecutionsTotal.Inc()

		s.logger.Info("created execution from schedule",
			"execution_id", execution.ID,
			"schedule_id", sched.ID,
			"schedule_name", sched.Name,
			"plan_id", sched.PlanID,
		)

		executionID = execution.ID
		executionCreated = true
	}

	// 5. Вычисляем следующее время выполнения
	nextDue, err := CalculateNextDue(sched, now)
	if err != nil {
		// Schedule некорректный — выключаем, чтобы не перебирать его
		// каждый тик
		s.logger.Error("failed to calculate next due, disabling schedule",
			"schedule_id", sched.ID,
			"error", err,
		)
		if err := s.scheduleRepo.SetEnabled(ctx, sched.ID, false); err != nil {
			return executionCreated, fmt.Errorf("disable schedule: %w", err)
		}
		return executionCreated, nil
	}

	// 6. Обновляем schedule
	sched.RecordRun(executionID, nextDue)
	if err := s.scheduleRepo.Update(ctx, sched); err != nil {
		return executionCreated, fmt.Errorf("update schedule: %w", err)
	}

	// 7. Публикуем запрос в RabbitMQ (если publisher настроен и запуск создан)
	if s.publisher != nil && executionCreated {
		payload := mq.PlanExecutePayload{
			ExecutionID: executionID,
			Plan:        *plan.ToOrchestration(),
			Input:       sched.Input,
		}

		if err := s.publisher.PublishPlanExecute(ctx, payload); err != nil {
			// Не фатальная ошибка — запись уже создана в БД,
			// worker подхватит её через polling
			s.logger.Warn("failed to publish plan.execute",
				"execution_id", executionID,
				"error", err,
			)
		}
	}

	return executionCreated, nil
}
