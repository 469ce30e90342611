package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Conductor/internal/domain"
	"github.com/shaiso/Conductor/internal/engine"
	"github.com/shaiso/Conductor/internal/repo"
)

// ListPlans возвращает список планов с фильтрацией.
// GET /api/v1/plans?tenant_id=...&is_active=...&limit=...&offset=...
func (h *Handler) ListPlans(w http.ResponseWriter, r *http.Request) {
	filter := repo.PlanFilter{}

	// Парсим query параметры
	filter.TenantID = r.URL.Query().Get("tenant_id")

	if activeStr := r.URL.Query().Get("is_active"); activeStr != "" {
		active := activeStr == "true"
		filter.IsActive = &active
	}

	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		filter.Limit = int(mustParseInt(limitStr, 50))
	} else {
		filter.Limit = 50
	}

	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		filter.Offset = int(mustParseInt(offsetStr, 0))
	}

	plans, err := h.planRepo.List(r.Context(), filter)
	if HandleRepoError(w, h.logger, err, "") {
		return
	}

	result := make([]PlanResponse, len(plans))
	for i, p := range plans {
		result[i] = PlanFromDomain(p)
	}

	List(w, result, len(result))
}

// CreatePlan создаёт новый план.
// POST /api/v1/plans
func (h *Handler) CreatePlan(w http.ResponseWriter, r *http.Request) {
	var req CreatePlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	if req.TenantID == "" {
		BadRequest(w, "tenant_id is required")
		return
	}

	now := time.Now()
	plan := &domain.Plan{
		ID:        uuid.New(),
		TenantID:  req.TenantID,
		Name:      req.Name,
		Steps:     req.Steps,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}

	// Проверяем контрактную форму: имя, шаги, уникальность id шагов
	if err := engine.ValidatePlan(plan.ToOrchestration()); err != nil {
		BadRequest(w, err.Error())
		return
	}

	if err := h.planRepo.Create(r.Context(), plan); err != nil {
		if HandleRepoError(w, h.logger, err, "") {
			return
		}
		InternalError(w, h.logger, err)
		return
	}

	Created(w, PlanFromDomain(*plan))
}

// GetPlan возвращает план по ID.
// GET /api/v1/plans/{id}
func (h *Handler) GetPlan(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid plan id")
		return
	}

	plan, err := h.planRepo.GetByID(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "plan not found") {
		return
	}

	Success(w, PlanFromDomain(*plan))
}

// UpdatePlan обновляет план.
// PUT /api/v1/plans/{id}
func (h *Handler) UpdatePlan(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid plan id")
		return
	}

	var req UpdatePlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	plan, err := h.planRepo.GetByID(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "plan not found") {
		return
	}

	if req.Name != nil {
		plan.Name = *req.Name
	}
	if req.Steps != nil {
		plan.Steps = *req.Steps
	}
	if req.IsActive != nil {
		plan.IsActive = *req.IsActive
	}

	if err := engine.ValidatePlan(plan.ToOrchestration()); err != nil {
		BadRequest(w, err.Error())
		return
	}

	plan.UpdatedAt = time.Now()

	if err := h.planRepo.Update(r.Context(), plan); err != nil {
		InternalError(w, h.logger, err)
		return
	}

	Success(w, PlanFromDomain(*plan))
}

// DeletePlan удаляет план.
// DELETE /api/v1/plans/{id}
func (h *Handler) DeletePlan(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid plan id")
		return
	}

	if err := h.planRepo.Delete(r.Context(), id); err != nil {
		if HandleRepoError(w, h.logger, err, "plan not found") {
			return
		}
		InternalError(w, h.logger, err)
		return
	}

	NoContent(w)
}
