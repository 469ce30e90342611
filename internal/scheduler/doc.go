// Package scheduler реализует запуск планов по расписанию.
//
// Scheduler периодически проверяет schedules с истекшим next_due_at,
// создаёт записи Execution и публикует запросы plan.execute.
//
// Структура:
//   - scheduler.go — основная логика Scheduler (Tick, processSchedule)
//   - cron.go      — парсинг cron-выражений и вычисление следующего времени
//
// Использование:
//
//	sched := scheduler.New(scheduler.Config{
//	    ScheduleRepo:  scheduleRepo,
//	    PlanRepo:      planRepo,
//	    ExecutionRepo: executionRepo,
//	    Publisher:     publisher,  // опционально
//	    Logger:        logger,
//	})
//
//	// Вызывается каждый тик (обычно раз в секунду)
//	if err := sched.Tick(ctx); err != nil {
//	    logger.Error("scheduler tick failed", "error", err)
//	}
//
// Дубликаты исключаются ключом идемпотентности "{schedule_id}_{due_unix}":
// для одного расписания и конкретного времени срабатывания создаётся
// ровно один запуск, сколько бы раз тик ни повторился.
//
// Leader Election:
//
// Scheduler не реализует leader election самостоятельно.
// Это делается в main.go через pg_try_advisory_lock.
// Метод Tick() вызывается только лидером.
package scheduler
