package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shaiso/Conductor/internal/domain"
)

// ExecutionRepo — репозиторий для записей о запусках планов.
//
// plan_id хранится текстом, а не uuid: для inline-запусков идентификатор
// плана приходит от источника и может не быть uuid.
type ExecutionRepo struct {
	pool *pgxpool.Pool
}

// NewExecutionRepo создаёт новый ExecutionRepo.
func NewExecutionRepo(pool *pgxpool.Pool) *ExecutionRepo {
	return &ExecutionRepo{pool: pool}
}

// Create создаёт новую запись о запуске. Конфликт по ключу
// идемпотентности возвращается как ErrAlreadyExists.
func (r *ExecutionRepo) Create(ctx context.Context, execution *domain.Execution) error {
	inputJSON, err := json.Marshal(execution.Input)
	if err != nil {
		return fmt.Errorf("marshal input: %w", err)
	}

	query := `
		INSERT INTO executions (id, plan_id, tenant_id, plan_name, status, input,
		                        idempotency_key, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err = r.pool.Exec(ctx, query,
		execution.ID,
		execution.PlanID,
		execution.TenantID,
		execution.PlanName,
		execution.Status,
		inputJSON,
		nullString(execution.IdempotencyKey),
		execution.CreatedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: execution %s", ErrAlreadyExists, execution.ID)
	}
	if err != nil {
		return fmt.Errorf("insert execution: %w", err)
	}
	return nil
}

// GetByID возвращает запись о запуске по ID.
func (r *ExecutionRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Execution, error) {
	query := `
		SELECT id, plan_id, tenant_id, plan_name, status, input, result, error,
		       idempotency_key, started_at, finished_at, created_at
		FROM executions
		WHERE id = $1
	`
	return r.scanExecution(r.pool.QueryRow(ctx, query, id))
}

// GetByIdempotencyKey возвращает запись по ключу идемпотентности.
func (r *ExecutionRepo) GetByIdempotencyKey(ctx context.Context, key string) (*domain.Execution, error) {
	query := `
		SELECT id, plan_id, tenant_id, plan_name, status, input, result, error,
		       idempotency_key, started_at, finished_at, created_at
		FROM executions
		WHERE idempotency_key = $1
	`
	return r.scanExecution(r.pool.QueryRow(ctx, query, key))
}

// List возвращает список запусков с фильтрацией.
func (r *ExecutionRepo) List(ctx context.Context, filter ExecutionFilter) ([]domain.Execution, error) {
	query := `
		SELECT id, plan_id, tenant_id, plan_name, status, input, result, error,
		       idempotency_key, started_at, finished_at, created_at
		FROM executions
		WHERE ($1::text IS NULL OR plan_id = $1)
		  AND ($2::text IS NULL OR tenant_id = $2)
		  AND ($3::text IS NULL OR status = $3::execution_status)
		ORDER BY created_at DESC
		LIMIT $4 OFFSET $5
	`
	rows, err := r.pool.Query(ctx, query,
		nullString(filter.PlanID),
		nullString(filter.TenantID),
		nullString(string(filter.Status)),
		filter.Limit,
		filter.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list executions: %w", err)
	}
	defer rows.Close()

	var executions []domain.Execution
	for rows.Next() {
		execution, err := r.scanExecutionFromRows(rows)
		if err != nil {
			return nil, err
		}
		executions = append(executions, *execution)
	}
	return executions, rows.Err()
}

// ListStaleQueued возвращает запуски, которые находятся в QUEUED дольше
// порога before. Такие записи означают потерянное сообщение: воркер
// использует их для повторной публикации плана.
func (r *ExecutionRepo) ListStaleQueued(ctx context.Context, before time.Time, limit int) ([]domain.Execution, error) {
	query := `
		SELECT id, plan_id, tenant_id, plan_name, status, input, result, error,
		       idempotency_key, started_at, finished_at, created_at
		FROM executions
		WHERE status = 'QUEUED' AND created_at < $1
		ORDER BY created_at ASC
		LIMIT $2
	`
	rows, err := r.pool.Query(ctx, query, before, limit)
	if err != nil {
		return nil, fmt.Errorf("list stale queued executions: %w", err)
	}
	defer rows.Close()

	var executions []domain.Execution
	for rows.Next() {
		execution, err := r.scanExecutionFromRows(rows)
		if err != nil {
			return nil, err
		}
		executions = append(executions, *execution)
	}
	return executions, rows.Err()
}

// ClaimRunning атомарно переводит запуск из QUEUED в RUNNING.
// Если запись уже взял другой обработчик (или она удалена), условие
// WHERE не находит строку и возвращается ErrNotFound.
func (r *ExecutionRepo) ClaimRunning(ctx context.Context, id uuid.UUID, startedAt time.Time) error {
	query := `
		UPDATE executions
		SET status = 'RUNNING', started_at = $2
		WHERE id = $1 AND status = 'QUEUED'
	`
	result, err := r.pool.Exec(ctx, query, id, startedAt)
	if err != nil {
		return fmt.Errorf("claim execution: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Update обновляет статус и результат запуска.
func (r *ExecutionRepo) Update(ctx context.Context, execution *domain.Execution) error {
	var resultJSON []byte
	if execution.Result != nil {
		var err error
		resultJSON, err = json.Marshal(execution.Result)
		if err != nil {
			return fmt.Errorf("marshal result: %w", err)
		}
	}

	query := `
		UPDATE executions
		SET status = $2, result = $3, error = $4, started_at = $5, finished_at = $6
		WHERE id = $1
	`
	result, err := r.pool.Exec(ctx, query,
		execution.ID,
		execution.Status,
		resultJSON,
		nullString(execution.Error),
		execution.StartedAt,
		execution.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("update execution: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Helpers ---

// ExecutionFilter — параметры фильтрации запусков.
type ExecutionFilter struct {
	PlanID   string
	TenantID string
	Status   domain.ExecutionStatus
	Limit    int
	Offset   int
}

func (r *ExecutionRepo) scanExecution(row pgx.Row) (*domain.Execution, error) {
	var e domain.Execution
	var inputJSON, resultJSON []byte
	var execError, idempotencyKey *string

	err := row.Scan(
		&e.ID,
		&e.PlanID,
		&e.TenantID,
		&e.PlanName,
		&e.Status,
		&inputJSON,
		&resultJSON,
		&execError,
		&idempotencyKey,
		&e.StartedAt,
		&e.FinishedAt,
		&e.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan execution: %w", err)
	}

	if inputJSON != nil {
		if err := json.Unmarshal(inputJSON, &e.Input); err != nil {
			return nil, fmt.Errorf("unmarshal input: %w", err)
		}
	}
	if resultJSON != nil {
		if err := json.Unmarshal(resultJSON, &e.Result); err != nil {
			return nil, fmt.Errorf("unmarshal result: %w", err)
		}
	}
	if execError != nil {
		e.Error = *execError
	}
	if idempotencyKey != nil {
		e.IdempotencyKey = *idempotencyKey
	}

	return &e, nil
}

func (r *ExecutionRepo) scanExecutionFromRows(rows pgx.Rows) (*domain.Execution, error) {
	var e domain.Execution
	var inputJSON, resultJSON []byte
	var execError, idempotencyKey *string

	err := rows.Scan(
		&e.ID,
		&e.PlanID,
		&e.TenantID,
		&e.PlanName,
		&e.Status,
		&inputJSON,
		&resultJSON,
		&execError,
		&idempotencyKey,
		&e.StartedAt,
		&e.FinishedAt,
		&e.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("scan execution: %w", err)
	}

	if inputJSON != nil {
		if err := json.Unmarshal(inputJSON, &e.Input); err != nil {
			return nil, fmt.Errorf("unmarshal input: %w", err)
		}
	}
	if resultJSON != nil {
		if err := json.Unmarshal(resultJSON, &e.Result); err != nil {
			return nil, fmt.Errorf("unmarshal result: %w", err)
		}
	}
	if execError != nil {
		e.Error = *execError
	}
	if idempotencyKey != nil {
		e.IdempotencyKey = *idempotencyKey
	}

	return &e, nil
}
