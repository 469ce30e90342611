package engine

import (
	"context"

	"github.com/shaiso/Conductor/internal/domain"
)

// JobQueue — внешняя durable-очередь заданий.
//
// Движку от очереди нужна единственная операция: принять задание и
// вернуть его идентификатор. Успешный Enqueue для action/approval и
// компенсационных заданий означает завершение шага — судьбу задания
// движок не отслеживает (fire-and-forget).
type JobQueue interface {
	Enqueue(ctx context.Context, job domain.JobDescriptor, opts domain.EnqueueOptions) (*domain.Job, error)
}
