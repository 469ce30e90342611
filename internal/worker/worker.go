package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/shaiso/Conductor/internal/engine"
	"github.com/shaiso/Conductor/internal/mq"
	"github.com/shaiso/Conductor/internal/repo"
)

// Default configuration values.
const (
	defaultPollInterval = 30 * time.Second
	defaultBatchSize    = 50
	defaultConcurrency  = 4
	defaultStaleAfter   = time.Minute
)

// Worker выполняет планы оркестрации.
//
// Worker — stateless компонент системы, который:
//   - Получает запросы plan.execute из очереди RabbitMQ (event-driven)
//   - Периодически проверяет зависшие QUEUED-запуски в БД (polling fallback)
//   - Прогоняет план через engine.PlanExecutor
//   - Сохраняет агрегированный результат в записи Execution
//
// Workers масштабируются горизонтально — несколько экземпляров
// могут потреблять из одной очереди; внутри процесса планы прогоняются
// параллельно в Concurrency обработчиков (у каждого прогона свой
// ExecutionContext, общего состояния нет).
type Worker struct {
	// Repositories
	executionRepo *repo.ExecutionRepo
	planRepo      *repo.PlanRepo

	// MQ
	publisher *mq.Publisher
	conn      *mq.Connection

	// Engine
	executor *engine.PlanExecutor

	// Consumer
	consumer *mq.Consumer

	// Configuration
	pollInterval time.Duration
	batchSize    int
	concurrency  int
	staleAfter   time.Duration

	// Lifecycle
	logger     *slog.Logger
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
	stopped    bool
	stoppedMu  sync.RWMutex
}

// Config — конфигурация Worker.
type Config struct {
	// Repositories
	ExecutionRepo *repo.ExecutionRepo
	PlanRepo      *repo.PlanRepo

	// MQ
	Publisher *mq.Publisher
	Conn      *mq.Connection

	// Executor (опционально; если nil — собирается поверх Publisher)
	Executor *engine.PlanExecutor

	// Polling configuration
	PollInterval time.Duration // интервал проверки зависших запусков (default: 30s)
	BatchSize    int           // количество запусков за один poll (default: 50)
	StaleAfter   time.Duration // сколько запуск может провисеть в QUEUED (default: 1m)

	// Concurrency — количество параллельных прогонов планов (default: 4)
	Concurrency int

	// Logger
	Logger *slog.Logger
}

// New создаёт новый Worker.
func New(cfg Config) *Worker {
	pollInterval := cfg.PollInterval
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}

	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	staleAfter := cfg.StaleAfter
	if staleAfter <= 0 {
		staleAfter = defaultStaleAfter
	}

	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	executor := cfg.Executor
	if executor == nil {
		executor = engine.New(engine.Config{
			Queue:  cfg.Publisher,
			Logger: logger,
		})
	}

	return &Worker{
		executionRepo: cfg.ExecutionRepo,
		planRepo:      cfg.PlanRepo,
		publisher:     cfg.Publisher,
		conn:          cfg.Conn,
		executor:      executor,
		pollInterval:  pollInterval,
		batchSize:     batchSize,
		concurrency:   concurrency,
		staleAfter:    staleAfter,
		logger:        logger,
	}
}

// Start запускает Worker.
//
// Запускает:
//   - Consumer для plans.execute
//   - Polling горутину для восстановления зависших запусков
func (w *Worker) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	w.cancelFunc = cancel

	w.logger.Info("starting worker",
		"poll_interval", w.pollInterval,
		"batch_size", w.batchSize,
		"concurrency", w.concurrency,
		"stale_after", w.staleAfter,
	)

	// Без соединения с MQ воркер живёт на одном поллинге: запуски
	// подбираются из БД по stale-порогу.
	if w.conn != nil {
		// Prefetch равен числу обработчиков: больше неподтверждённых
		// сообщений процессу всё равно не переварить.
		w.consumer = mq.NewConsumer(w.conn, w.logger, mq.ConsumerConfig{
			Queue:       string(mq.QueuePlansExecute),
			Handler:     w.handlePlanExecute,
			Prefetch:    w.concurrency,
			Concurrency: w.concurrency,
		})

		w.wg.Add(1)
		go func() {
			defer w.wg.Done()
			if err := w.consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				w.logger.Error("plan consumer error", "error", err)
			}
		}()
	} else {
		w.logger.Warn("no MQ connection, consuming disabled, polling only")
	}

	// Запускаем polling
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.pollLoop(ctx)
	}()

	w.logger.Info("worker started")
	return nil
}

// Stop останавливает Worker.
func (w *Worker) Stop() {
	w.stoppedMu.Lock()
	w.stopped = true
	w.stoppedMu.Unlock()

	w.logger.Info("stopping worker...")

	if w.cancelFunc != nil {
		w.cancelFunc()
	}

	if w.consumer != nil {
		w.consumer.Stop()
	}

	// Ждём завершения горутин
	w.wg.Wait()

	w.logger.Info("worker stopped")
}

// IsStopped проверяет, остановлен ли Worker.
func (w *Worker) IsStopped() bool {
	w.stoppedMu.RLock()
	defer w.stoppedMu.RUnlock()
	return w.stopped
}

// pollLoop — цикл поиска зависших запусков.
func (w *Worker) pollLoop(ctx context.Context) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	// Первый poll сразу при старте (подхватываем запуски, потерянные
	// пока воркеры были выключены)
	w.poll(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.poll(ctx)
		}
	}
}

// poll выполняет один цикл поиска зависших запусков.
func (w *Worker) poll(ctx context.Context) {
	before := time.Now().Add(-w.staleAfter)

	executions, err := w.executionRepo.ListStaleQueued(ctx, before, w.batchSize)
	if err != nil {
		w.logger.Error("failed to list stale executions", "error", err)
		return
	}

	if len(executions) == 0 {
		return
	}

	w.logger.Debug("poll found stale executions", "count", len(executions))

	for i := range executions {
		execution := &executions[i]

		if err := w.processStale(ctx, execution); err != nil {
			// Конкурирующий воркер мог успеть раньше, а бизнес-провал
			// уже зафиксирован в записи — и то и другое не ошибка поллера
			if errors.Is(err, ErrExecutionFinished) ||
				errors.Is(err, ErrExecutionNotQueued) ||
				errors.Is(err, ErrPlanFailed) {
				continue
			}
			w.logger.Error("failed to process stale execution",
				"execution_id", execution.ID,
				"error", err,
			)
		}
	}
}
