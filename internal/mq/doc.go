// Package mq предоставляет инфраструктуру для работы с RabbitMQ.
//
// Структура:
//   - connection.go — управление соединением с RabbitMQ (reconnect, graceful shutdown)
//   - topology.go   — объявление exchanges, queues, bindings
//   - publisher.go  — публикация сообщений: запросы на выполнение планов и задания шагов
//   - consumer.go   — потребление сообщений из очередей
//
// Типы сообщений:
//   - plan.execute — запрос на выполнение плана оркестрации
//   - job.dispatch — бизнес-задание, поставленное шагом плана
//
// Exchanges:
//   - conductor.plans — запросы на выполнение планов (direct)
//   - conductor.jobs  — задания шагов, routing key = тип задания (topic)
//   - conductor.dlq   — dead letter queue
//
// Очередь jobs.ready объявляется с x-max-priority: задания ручного
// подтверждения уходят с повышенным приоритетом и обгоняют обычные.
package mq
