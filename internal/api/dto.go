package api

import (
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Conductor/internal/domain"
)

// Plan DTOs

// CreatePlanRequest — запрос на создание плана.
// Шаги приходят в контрактной форме (camelCase).
type CreatePlanRequest struct {
	TenantID string                     `json:"tenant_id"`
	Name     string                     `json:"name"`
	Steps    []domain.OrchestrationStep `json:"steps"`
}

// UpdatePlanRequest — запрос на обновление плана.
type UpdatePlanRequest struct {
	Name     *string                     `json:"name,omitempty"`
	Steps    *[]domain.OrchestrationStep `json:"steps,omitempty"`
	IsActive *bool                       `json:"is_active,omitempty"`
}

// PlanResponse — ответ с планом.
type PlanResponse struct {
	ID        uuid.UUID                  `json:"id"`
	TenantID  string                     `json:"tenant_id"`
	Name      string                     `json:"name"`
	Steps     []domain.OrchestrationStep `json:"steps"`
	IsActive  bool                       `json:"is_active"`
	CreatedAt time.Time                  `json:"created_at"`
	UpdatedAt time.Time                  `json:"updated_at"`
}

// PlanFromDomain конвертирует domain.Plan в PlanResponse.
func PlanFromDomain(p domain.Plan) PlanResponse {
	return PlanResponse{
		ID:        p.ID,
		TenantID:  p.TenantID,
		Name:      p.Name,
		Steps:     p.Steps,
		IsActive:  p.IsActive,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

// Execution DTOs

// ExecutePlanRequest — запрос на запуск сохранённого плана.
type ExecutePlanRequest struct {
	Input          map[string]any `json:"input,omitempty"`
	IdempotencyKey string         `json:"idempotency_key,omitempty"`
}

// ExecuteInlineRequest — запрос на запуск плана, переданного в теле.
// План не сохраняется: он уезжает в очередь целиком.
type ExecuteInlineRequest struct {
	Plan           domain.OrchestrationPlan `json:"plan"`
	Input          map[string]any           `json:"input,omitempty"`
	IdempotencyKey string                   `json:"idempotency_key,omitempty"`
}

// ExecutionResponse — ответ с записью о запуске.
// Result внутри — контрактная форма результата (camelCase).
type ExecutionResponse struct {
	ID             uuid.UUID                   `json:"id"`
	PlanID         string                      `json:"plan_id"`
	TenantID       string                      `json:"tenant_id"`
	PlanName       string                      `json:"plan_name"`
	Status         string                      `json:"status"`
	Input          map[string]any              `json:"input,omitempty"`
	Result         *domain.OrchestrationResult `json:"result,omitempty"`
	Error          string                      `json:"error,omitempty"`
	IdempotencyKey string                      `json:"idempotency_key,omitempty"`
	StartedAt      *time.Time                  `json:"started_at,omitempty"`
	FinishedAt     *time.Time                  `json:"finished_at,omitempty"`
	CreatedAt      time.Time                   `json:"created_at"`
}

// ExecutionFromDomain конвертирует domain.Execution в ExecutionResponse.
func ExecutionFromDomain(e domain.Execution) ExecutionResponse {
	return ExecutionResponse{
		ID:             e.ID,
		PlanID:         e.PlanID,
		TenantID:       e.TenantID,
		PlanName:       e.PlanName,
		Status:         string(e.Status),
		Input:          e.Input,
		Result:         e.Result,
		Error:          e.Error,
		IdempotencyKey: e.IdempotencyKey,
		StartedAt:      e.StartedAt,
		FinishedAt:     e.FinishedAt,
		CreatedAt:      e.CreatedAt,
	}
}

// Schedule DTOs

// CreateScheduleRequest — запрос на создание schedule.
// Enabled по умолчанию true: отсутствие поля не выключает расписание.
type CreateScheduleRequest struct {
	PlanID      string         `json:"plan_id"`
	Name        string         `json:"name"`
	CronExpr    string         `json:"cron_expr,omitempty"`
	IntervalSec int            `json:"interval_sec,omitempty"`
	Timezone    string         `json:"timezone,omitempty"`
	Enabled     *bool          `json:"enabled,omitempty"`
	Input       map[string]any `json:"input,omitempty"`
}

// UpdateScheduleRequest — запрос на обновление schedule.
type UpdateScheduleRequest struct {
	Name        *string         `json:"name,omitempty"`
	CronExpr    *string         `json:"cron_expr,omitempty"`
	IntervalSec *int            `json:"interval_sec,omitempty"`
	Timezone    *string         `json:"timezone,omitempty"`
	Input       *map[string]any `json:"input,omitempty"`
}

// SetEnabledRequest — запрос на включение/выключение.
type SetEnabledRequest struct {
	Enabled bool `json:"enabled"`
}

// ScheduleResponse — ответ с schedule.
type ScheduleResponse struct {
	ID              uuid.UUID      `json:"id"`
	PlanID          uuid.UUID      `json:"plan_id"`
	Name            string         `json:"name"`
	CronExpr        string         `json:"cron_expr,omitempty"`
	IntervalSec     int            `json:"interval_sec,omitempty"`
	Timezone        string         `json:"timezone"`
	Enabled         bool           `json:"enabled"`
	NextDueAt       *time.Time     `json:"next_due_at,omitempty"`
	LastRunAt       *time.Time     `json:"last_run_at,omitempty"`
	LastExecutionID *uuid.UUID     `json:"last_execution_id,omitempty"`
	Input           map[string]any `json:"input,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// ScheduleFromDomain конвертирует domain.Schedule в ScheduleResponse.
func ScheduleFromDomain(s *domain.Schedule) ScheduleResponse {
	if s == nil {
		return ScheduleResponse{}
	}
	return ScheduleResponse{
		ID:              s.ID,
		PlanID:          s.PlanID,
		Name:            s.Name,
		CronExpr:        s.CronExpr,
		IntervalSec:     s.IntervalSec,
		Timezone:        s.Timezone,
		Enabled:         s.Enabled,
		NextDueAt:       s.NextDueAt,
		LastRunAt:       s.LastRunAt,
		LastExecutionID: s.LastExecutionID,
		Input:           s.Input,
		CreatedAt:       s.CreatedAt,
		UpdatedAt:       s.UpdatedAt,
	}
}
