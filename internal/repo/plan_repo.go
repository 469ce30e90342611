package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shaiso/Conductor/internal/domain"
)

// PlanRepo — репозиторий для работы с определениями планов.
//
// Шаги плана хранятся одним JSONB-документом в контрактной форме:
// определение — это и есть документ, отдельных строк по шагам нет.
type PlanRepo struct {
	pool *pgxpool.Pool
}

// NewPlanRepo создаёт новый PlanRepo.
func NewPlanRepo(pool *pgxpool.Pool) *PlanRepo {
	return &PlanRepo{pool: pool}
}

// Create создаёт новое определение плана. Имя уникально в пределах
// тенанта; конфликт возвращается как ErrAlreadyExists.
func (r *PlanRepo) Create(ctx context.Context, plan *domain.Plan) error {
	stepsJSON, err := json.Marshal(plan.Steps)
	if err != nil {
		return fmt.Errorf("marshal steps: %w", err)
	}

	query := `
		INSERT INTO plans (id, tenant_id, name, steps, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err = r.pool.Exec(ctx, query,
		plan.ID,
		plan.TenantID,
		plan.Name,
		stepsJSON,
		plan.IsActive,
		plan.CreatedAt,
		plan.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: plan %q for tenant %s", ErrAlreadyExists, plan.Name, plan.TenantID)
	}
	if err != nil {
		return fmt.Errorf("insert plan: %w", err)
	}
	return nil
}

// GetByID возвращает определение плана по ID.
func (r *PlanRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Plan, error) {
	query := `
		SELECT id, tenant_id, name, steps, is_active, created_at, updated_at
		FROM plans
		WHERE id = $1
	`
	return r.scanPlan(r.pool.QueryRow(ctx, query, id))
}

// List возвращает список определений с фильтрацией.
func (r *PlanRepo) List(ctx context.Context, filter PlanFilter) ([]domain.Plan, error) {
	query := `
		SELECT id, tenant_id, name, steps, is_active, created_at, updated_at
		FROM plans
		WHERE ($1::text IS NULL OR tenant_id = $1)
		  AND ($2::boolean IS NULL OR is_active = $2)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`
	rows, err := r.pool.Query(ctx, query,
		nullString(filter.TenantID),
		filter.IsActive,
		filter.Limit,
		filter.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list plans: %w", err)
	}
	defer rows.Close()

	var plans []domain.Plan
	for rows.Next() {
		plan, err := r.scanPlanFromRows(rows)
		if err != nil {
			return nil, err
		}
		plans = append(plans, *plan)
	}
	return plans, rows.Err()
}

// Update обновляет определение плана.
func (r *PlanRepo) Update(ctx context.Context, plan *domain.Plan) error {
	stepsJSON, err := json.Marshal(plan.Steps)
	if err != nil {
		return fmt.Errorf("marshal steps: %w", err)
	}

	query := `
		UPDATE plans
		SET name = $2, steps = $3, is_active = $4, updated_at = $5
		WHERE id = $1
	`
	result, err := r.pool.Exec(ctx, query,
		plan.ID,
		plan.Name,
		stepsJSON,
		plan.IsActive,
		plan.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: plan %q for tenant %s", ErrAlreadyExists, plan.Name, plan.TenantID)
	}
	if err != nil {
		return fmt.Errorf("update plan: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete удаляет определение плана (каскадно удалит его schedules).
func (r *PlanRepo) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM plans WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete plan: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Helpers ---

// PlanFilter — параметры фильтрации планов.
type PlanFilter struct {
	TenantID string
	IsActive *bool
	Limit    int
	Offset   int
}

func (r *PlanRepo) scanPlan(row pgx.Row) (*domain.Plan, error) {
	var plan domain.Plan
	var stepsJSON []byte

	err := row.Scan(
		&plan.ID,
		&plan.TenantID,
		&plan.Name,
		&stepsJSON,
		&plan.IsActive,
		&plan.CreatedAt,
		&plan.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan plan: %w", err)
	}

	if err := json.Unmarshal(stepsJSON, &plan.Steps); err != nil {
		return nil, fmt.Errorf("unmarshal steps: %w", err)
	}

	return &plan, nil
}

func (r *PlanRepo) scanPlanFromRows(rows pgx.Rows) (*domain.Plan, error) {
	var plan domain.Plan
	var stepsJSON []byte

	err := rows.Scan(
		&plan.ID,
		&plan.TenantID,
		&plan.Name,
		&stepsJSON,
		&plan.IsActive,
		&plan.CreatedAt,
		&plan.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("scan plan: %w", err)
	}

	if err := json.Unmarshal(stepsJSON, &plan.Steps); err != nil {
		return nil, fmt.Errorf("unmarshal steps: %w", err)
	}

	return &plan, nil
}

// nullString возвращает nil для пустой строки (для NULL в БД).
func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// isUniqueViolation распознаёт конфликт уникальности Postgres (23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
