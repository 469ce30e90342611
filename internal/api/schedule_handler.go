package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Conductor/internal/domain"
	"github.com/shaiso/Conductor/internal/repo"
	"github.com/shaiso/Conductor/internal/scheduler"
)

// ListSchedules возвращает список schedules с фильтрацией.
// GET /api/v1/schedules?plan_id=...&enabled=...&limit=...&offset=...
func (h *Handler) ListSchedules(w http.ResponseWriter, r *http.Request) {
	filter := repo.ScheduleFilter{}

	// Парсим query параметры
	if planIDStr := r.URL.Query().Get("plan_id"); planIDStr != "" {
		planID, err := uuid.Parse(planIDStr)
		if err != nil {
			BadRequest(w, "invalid plan_id")
			return
		}
		filter.PlanID = &planID
	}

	if enabledStr := r.URL.Query().Get("enabled"); enabledStr != "" {
		enabled := enabledStr == "true"
		filter.Enabled = &enabled
	}

	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		filter.Limit = int(mustParseInt(limitStr, 50))
	} else {
		filter.Limit = 50
	}

	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		filter.Offset = int(mustParseInt(offsetStr, 0))
	}

	schedules, err := h.scheduleRepo.List(r.Context(), filter)
	if HandleRepoError(w, h.logger, err, "") {
		return
	}

	result := make([]ScheduleResponse, len(schedules))
	for i := range schedules {
		result[i] = ScheduleFromDomain(&schedules[i])
	}

	List(w, result, len(result))
}

// CreateSchedule создаёт новый schedule для плана.
// POST /api/v1/schedules
func (h *Handler) CreateSchedule(w http.ResponseWriter, r *http.Request) {
	var req CreateScheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	// Валидация
	planID, err := uuid.Parse(req.PlanID)
	if err != nil {
		BadRequest(w, "invalid plan_id")
		return
	}

	if req.Name == "" {
		BadRequest(w, "name is required")
		return
	}

	if req.CronExpr == "" && req.IntervalSec <= 0 {
		BadRequest(w, "either cron_expr or interval_sec is required")
		return
	}

	if req.CronExpr != "" {
		if err := scheduler.ValidateCronExpr(req.CronExpr); err != nil {
			BadRequest(w, err.Error())
			return
		}
	}

	// Проверяем, что план существует
	_, err = h.planRepo.GetByID(r.Context(), planID)
	if HandleRepoError(w, h.logger, err, "plan not found") {
		return
	}

	timezone := req.Timezone
	if timezone == "" {
		timezone = "UTC"
	}

	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}

	now := time.Now()
	schedule := &domain.Schedule{
		ID:          uuid.New(),
		PlanID:      planID,
		Name:        req.Name,
		CronExpr:    req.CronExpr,
		IntervalSec: req.IntervalSec,
		Timezone:    timezone,
		Enabled:     enabled,
		Input:       req.Input,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	// Первое срабатывание считаем сразу: schedule без next_due_at
	// планировщик никогда не возьмёт
	nextDue, err := scheduler.CalculateInitialNextDue(schedule)
	if err != nil {
		BadRequest(w, err.Error())
		return
	}
	schedule.NextDueAt = &nextDue

	if err := h.scheduleRepo.Create(r.Context(), schedule); err != nil {
		InternalError(w, h.logger, err)
		return
	}

	Created(w, ScheduleFromDomain(schedule))
}

// GetSchedule возвращает schedule по ID.
// GET /api/v1/schedules/{id}
func (h *Handler) GetSchedule(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid schedule id")
		return
	}

	schedule, err := h.scheduleRepo.GetByID(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "schedule not found") {
		return
	}

	Success(w, ScheduleFromDomain(schedule))
}

// UpdateSchedule обновляет schedule.
// PUT /api/v1/schedules/{id}
func (h *Handler) UpdateSchedule(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid schedule id")
		return
	}

	var req UpdateScheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	schedule, err := h.scheduleRepo.GetByID(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "schedule not found") {
		return
	}

	timingChanged := false

	if req.Name != nil {
		schedule.Name = *req.Name
	}
	if req.CronExpr != nil {
		if *req.CronExpr != "" {
			if err := scheduler.ValidateCronExpr(*req.CronExpr); err != nil {
				BadRequest(w, err.Error())
				return
			}
		}
		schedule.CronExpr = *req.CronExpr
		timingChanged = true
	}
	if req.IntervalSec != nil {
		schedule.IntervalSec = *req.IntervalSec
		timingChanged = true
	}
	if req.Timezone != nil {
		schedule.Timezone = *req.Timezone
		timingChanged = true
	}
	if req.Input != nil {
		schedule.Input = *req.Input
	}

	// Изменилось расписание — пересчитываем следующее срабатывание
	if timingChanged {
		nextDue, err := scheduler.CalculateInitialNextDue(schedule)
		if err != nil {
			BadRequest(w, err.Error())
			return
		}
		schedule.NextDueAt = &nextDue
	}

	schedule.UpdatedAt = time.Now()

	if err := h.scheduleRepo.Update(r.Context(), schedule); err != nil {
		InternalError(w, h.logger, err)
		return
	}

	Success(w, ScheduleFromDomain(schedule))
}

// DeleteSchedule удаляет schedule.
// DELETE /api/v1/schedules/{id}
func (h *Handler) DeleteSchedule(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid schedule id")
		return
	}

	if err := h.scheduleRepo.Delete(r.Context(), id); err != nil {
		if HandleRepoError(w, h.logger, err, "schedule not found") {
			return
		}
		InternalError(w, h.logger, err)
		return
	}

	NoContent(w)
}

// SetScheduleEnabled включает или выключает schedule.
// PUT /api/v1/schedules/{id}/enabled
func (h *Handler) SetScheduleEnabled(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid schedule id")
		return
	}

	var req SetEnabledRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	if err := h.scheduleRepo.SetEnabled(r.Context(), id, req.Enabled); err != nil {
		if HandleRepoError(w, h.logger, err, "schedule not found") {
			return
		}
		InternalError(w, h.logger, err)
		return
	}

	// Возвращаем обновлённый schedule
	schedule, err := h.scheduleRepo.GetByID(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "schedule not found") {
		return
	}

	Success(w, ScheduleFromDomain(schedule))
}
