// Package api содержит HTTP API сервер.
//
// Структура:
//   - handler.go           — Handler с DI (репозитории, publisher, logger)
//   - routes.go            — регистрация маршрутов
//   - middleware.go        — middleware (logging, recovery)
//   - response.go          — унифицированные JSON-ответы и обработка ошибок
//   - dto.go               — Data Transfer Objects (request/response)
//   - plan_handler.go      — обработчики для /plans
//   - execution_handler.go — обработчики для /executions
//   - schedule_handler.go  — обработчики для /schedules
//
// API предоставляет REST endpoints для управления планами, их запусками
// и расписаниями. Запуск плана здесь только ставится в очередь: саму
// работу выполняет worker, API сразу возвращает запись в статусе QUEUED.
package api
