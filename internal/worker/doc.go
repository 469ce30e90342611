// Package worker выполняет планы оркестрации.
//
// # Обзор
//
// Worker — stateless компонент системы Conductor, который прогоняет
// планы оркестрации, поставленные в очередь API, scheduler'ом или
// внешним продюсером. Worker отвечает за:
//
//   - Получение запросов plan.execute из очереди RabbitMQ (event-driven)
//   - Периодическую проверку зависших QUEUED-запусков в БД (polling fallback)
//   - Прогон плана через engine.PlanExecutor (ready-set цикл, компенсация)
//   - Сохранение агрегированного результата в записи Execution
//   - Обновление Prometheus-метрик по итогам прогона
//
// Workers масштабируются горизонтально — несколько экземпляров
// потребляют из одной очереди plans.execute.
//
// # Ключевые компоненты
//
// ## Worker
//
// Основная структура, управляющая жизненным циклом.
// Создаётся через New(cfg Config) и запускается методом Start(ctx).
//
//	w := worker.New(worker.Config{
//	    ExecutionRepo: executionRepo,
//	    PlanRepo:      planRepo,
//	    Publisher:     publisher,
//	    Conn:          mqConn,
//	    Logger:        logger,
//	})
//
//	if err := w.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer w.Stop()
//
// Сам прогон плана (ready-set цикл, шаги, компенсация) живёт в пакете
// engine; worker отвечает за доставку, идемпотентность и персистентность.
//
// # Обработка запроса
//
//  1. Получение plan.execute (из очереди или polling)
//  2. Загрузка записи Execution из БД; если записи нет — создание постфактум
//  3. Проверка статуса QUEUED (редоставки уже выполненных запусков пропускаются)
//  4. Атомарный перевод QUEUED → RUNNING (конкурентная доставка отсеивается)
//  5. Прогон плана через engine.PlanExecutor
//  6. Фиксация результата → COMPLETED / PARTIALLY_COMPLETED / FAILED
//
// # Семантика ack/nack
//
// Пакет различает два уровня неуспеха:
//   - Бизнес-провал плана (result.Success == false) — исход сначала
//     фиксируется в записи Execution, затем воркер возвращает ошибку с
//     именем плана и статусом: учёт ретраев ведёт система заданий.
//     Редоставка упирается в уже завершённую запись и подтверждается
//     (ack) без повторного прогона — задания шагов не дублируются.
//   - Инфраструктурная ошибка (БД недоступна, payload не читается) —
//     сообщение возвращается в очередь (nack); повторная неудача уводит
//     его в DLQ, а застрявший в QUEUED запуск добирает polling.
//
// # Восстановление зависших запусков
//
// Запись Execution может застрять в QUEUED, если сообщение потерялось —
// например, процесс упал между созданием записи и публикацией. Polling
// находит записи старше StaleAfter и выполняет их напрямую: план
// перечитывается из БД по plan_id. Inline-планы (plan_id не uuid)
// восстановить неоткуда — такие запуски помечаются FAILED.
package worker
