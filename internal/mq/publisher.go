package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/shaiso/Conductor/internal/domain"
)

// MessageType — тип сообщения в очереди.
type MessageType string

// Типы сообщений.
const (
	MessageTypePlanExecute MessageType = "plan.execute"
	MessageTypeJobDispatch MessageType = "job.dispatch"
)

// Publisher публикует сообщения в RabbitMQ. Реализует engine.JobQueue:
// движок ставит задания шагов через него.
type Publisher struct {
	conn   *Connection
	logger *slog.Logger
}

// NewPublisher создаёт новый Publisher.
func NewPublisher(conn *Connection, logger *slog.Logger) *Publisher {
	return &Publisher{
		conn:   conn,
		logger: logger,
	}
}

// Message — конверт сообщения.
type Message struct {
	// ID — уникальный идентификатор сообщения.
	ID string `json:"id"`

	// Type — тип сообщения.
	Type MessageType `json:"type"`

	// Payload — полезная нагрузка.
	Payload any `json:"payload"`

	// Timestamp — время создания.
	Timestamp time.Time `json:"timestamp"`
}

// PlanExecutePayload — payload запроса на выполнение плана.
//
// План передаётся целиком, а не ссылкой: воркеру не нужен доступ к
// хранилищу планов, а API может выполнять планы, не сохранённые в нём.
type PlanExecutePayload struct {
	ExecutionID uuid.UUID                `json:"execution_id"`
	Plan        domain.OrchestrationPlan `json:"plan"`
	Input       map[string]any           `json:"input,omitempty"`
}

// JobDispatchPayload — payload бизнес-задания, поставленного шагом.
type JobDispatchPayload struct {
	JobID    string         `json:"job_id"`
	JobType  string         `json:"job_type"`
	Payload  map[string]any `json:"payload,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Publish публикует сообщение в указанный exchange с routing key.
func (p *Publisher) Publish(ctx context.Context, exchange Exchange, routingKey RoutingKey, msg *Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	return p.conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		err := ch.PublishWithContext(
			ctx,
			string(exchange),   // exchange
			string(routingKey), // routing key
			false,
			false,
			amqp.Publishing{
				ContentType:  "application/json",
				DeliveryMode: amqp.Persistent, // сообщение переживёт рестарт RabbitMQ
				MessageId:    msg.ID,
				Timestamp:    msg.Timestamp,
				Body:         body,
			},
		)
		if err != nil {
			return fmt.Errorf("publish to %s/%s: %w", exchange, routingKey, err)
		}

		p.logger.Debug("published message",
			"exchange", exchange,
			"routing_key", routingKey,
			"message_id", msg.ID,
			"type", msg.Type,
		)

		return nil
	})
}

// PublishPlanExecute публикует запрос на выполнение плана.
// Потребитель: Worker.
func (p *Publisher) PublishPlanExecute(ctx context.Context, payload PlanExecutePayload) error {
	msg := &Message{
		ID:        uuid.New().String(),
		Type:      MessageTypePlanExecute,
		Payload:   payload,
		Timestamp: time.Now(),
	}

	return p.Publish(ctx, ExchangePlans, RoutingKeyExecute, msg)
}

// Enqueue ставит бизнес-задание в обменник заданий. Ключ маршрутизации —
// тип задания; параметры постановки уезжают в приоритет доставки и
// заголовки, чтобы бизнес-воркеры видели их без разбора тела.
func (p *Publisher) Enqueue(ctx context.Context, job domain.JobDescriptor, opts domain.EnqueueOptions) (*domain.Job, error) {
	jobID := uuid.New().String()
	now := time.Now()

	msg := &Message{
		ID:   jobID,
		Type: MessageTypeJobDispatch,
		Payload: JobDispatchPayload{
			JobID:    jobID,
			JobType:  job.Type,
			Payload:  job.Payload,
			Metadata: job.Metadata,
		},
		Timestamp: now,
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("marshal job message: %w", err)
	}

	headers := amqp.Table{}
	if opts.TimeoutMs > 0 {
		headers["x-timeout-ms"] = opts.TimeoutMs
	}
	if opts.Attempts > 0 {
		headers["x-attempts"] = int32(opts.Attempts)
	}
	if opts.DelayMs > 0 {
		headers["x-delay-ms"] = opts.DelayMs
	}

	err = p.conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		return ch.PublishWithContext(
			ctx,
			string(ExchangeJobs),
			job.Type, // routing key
			false,
			false,
			amqp.Publishing{
				ContentType:  "application/json",
				DeliveryMode: amqp.Persistent,
				Priority:     opts.Priority,
				MessageId:    jobID,
				Timestamp:    now,
				Headers:      headers,
				Body:         body,
			},
		)
	})
	if err != nil {
		return nil, fmt.Errorf("enqueue job %s: %w", job.Type, err)
	}

	p.logger.Debug("job enqueued",
		"job_id", jobID,
		"job_type", job.Type,
		"priority", opts.Priority,
	)

	return &domain.Job{ID: jobID}, nil
}
