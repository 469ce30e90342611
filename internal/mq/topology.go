package mq

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Exchange — тип для имени обменника.
type Exchange string

// Queue — тип для имени очереди.
type Queue string

// RoutingKey — тип для ключа маршрутизации.
type RoutingKey string

// Exchanges — имена обменников.
const (
	ExchangePlans Exchange = "conductor.plans"
	ExchangeJobs  Exchange = "conductor.jobs"
	ExchangeDLQ   Exchange = "conductor.dlq"
)

// Queues — имена очередей.
const (
	QueuePlansExecute Queue = "plans.execute"
	QueueJobsReady    Queue = "jobs.ready"
	QueueDLQPlans     Queue = "dlq.plans"
	QueueDLQJobs      Queue = "dlq.jobs"
)

// Routing keys.
const (
	RoutingKeyExecute  RoutingKey = "execute"
	RoutingKeyDLQPlans RoutingKey = "plans"
	RoutingKeyDLQJobs  RoutingKey = "jobs"
)

// maxJobPriority — верхняя граница приоритета очереди заданий.
// domain.PriorityHigh обязан помещаться в этот диапазон.
const maxJobPriority = 10

func SetupTopology(ctx context.Context, conn *Connection) error {
	return conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		if err := declareExchanges(ch); err != nil {
			return err
		}
		if err := declareQueues(ch); err != nil {
			return err
		}
		if err := bindQueues(ch); err != nil {
			return err
		}
		return nil
	})
}

// declareExchanges создаёт обменники.
//
// conductor.jobs — topic: ключ маршрутизации у задания равен его типу,
// и бизнес-воркеры могут привязывать собственные очереди по маске типов.
func declareExchanges(ch *amqp.Channel) error {
	exchanges := []struct {
		name Exchange
		kind string
	}{
		{ExchangePlans, "direct"},
		{ExchangeJobs, "topic"},
		{ExchangeDLQ, "direct"},
	}

	for _, ex := range exchanges {
		err := ch.ExchangeDeclare(
			string(ex.name), // name
			ex.kind,         // type
			true,            // durable
			false,           // auto-deleted
			false,           // internal
			false,           // no-wait
			nil,             // arguments
		)
		if err != nil {
			return fmt.Errorf("declare exchange %s: %w", ex.name, err)
		}
	}

	return nil
}

// declareQueues создаёт очереди.
func declareQueues(ch *amqp.Channel) error {
	queues := []struct {
		name Queue
		args amqp.Table
	}{
		// plans.execute — запросы на выполнение планов; при исчерпании
		// retry уходят в dlq.plans.
		{QueuePlansExecute, amqp.Table{
			"x-dead-letter-exchange":    string(ExchangeDLQ),
			"x-dead-letter-routing-key": string(RoutingKeyDLQPlans),
		}},

		// jobs.ready — общий сток заданий шагов; приоритетная очередь,
		// задания ручного подтверждения обгоняют обычные.
		{QueueJobsReady, amqp.Table{
			"x-max-priority":            int32(maxJobPriority),
			"x-dead-letter-exchange":    string(ExchangeDLQ),
			"x-dead-letter-routing-key": string(RoutingKeyDLQJobs),
		}},

		// DLQ очереди — ручной разбор.
		{QueueDLQPlans, nil},
		{QueueDLQJobs, nil},
	}

	for _, q := range queues {
		_, err := ch.QueueDeclare(
			string(q.name), // name
			true,           // durable
			false,          // delete when unused
			false,          // exclusive
			false,          // no-wait
			q.args,         // arguments
		)
		if err != nil {
			return fmt.Errorf("declare queue %s: %w", q.name, err)
		}
	}

	return nil
}

// bindQueues привязывает очереди к обменникам.
func bindQueues(ch *amqp.Channel) error {
	bindings := []struct {
		queue      Queue
		routingKey RoutingKey
		exchange   Exchange
	}{
		{QueuePlansExecute, RoutingKeyExecute, ExchangePlans},
		// jobs.ready ловит задания всех типов; специализированные
		// воркеры привязываются своими масками поверх.
		{QueueJobsReady, RoutingKey("#"), ExchangeJobs},
		{QueueDLQPlans, RoutingKeyDLQPlans, ExchangeDLQ},
		{QueueDLQJobs, RoutingKeyDLQJobs, ExchangeDLQ},
	}

	for _, b := range bindings {
		err := ch.QueueBind(
			string(b.queue),      // queue name
			string(b.routingKey), // routing key
			string(b.exchange),   // exchange
			false,                // no-wait
			nil,                  // arguments
		)
		if err != nil {
			return fmt.Errorf("bind queue %s to %s: %w", b.queue, b.exchange, err)
		}
	}

	return nil
}

// TopologyInfo возвращает описание топологии для логирования.
func TopologyInfo() string {
	return `
  Conductor RabbitMQ Topology:

    conductor.plans (direct)
    └── plans.execute [routing: execute]
            Consumer: Worker
            DLQ: dlq.plans

    conductor.jobs (topic, routing key = job type)
    └── jobs.ready [binding: #] (x-max-priority: 10)
            Consumer: business workers
            DLQ: dlq.jobs

    conductor.dlq (direct)
    ├── dlq.plans [routing: plans]
    └── dlq.jobs [routing: jobs]
            Manual processing
  `
}
