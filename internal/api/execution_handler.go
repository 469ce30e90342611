package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Conductor/internal/domain"
	"github.com/shaiso/Conductor/internal/engine"
	"github.com/shaiso/Conductor/internal/mq"
	"github.com/shaiso/Conductor/internal/repo"
)

// ListExecutions возвращает список запусков с фильтрацией.
// GET /api/v1/executions?plan_id=...&tenant_id=...&status=...&limit=...&offset=...
func (h *Handler) ListExecutions(w http.ResponseWriter, r *http.Request) {
	filter := repo.ExecutionFilter{}

	// Парсим query параметры. plan_id — строка, а не uuid:
	// inline-планы приходят со своими идентификаторами.
	filter.PlanID = r.URL.Query().Get("plan_id")
	filter.TenantID = r.URL.Query().Get("tenant_id")

	if status := r.URL.Query().Get("status"); status != "" {
		filter.Status = domain.ExecutionStatus(status)
	}

	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		filter.Limit = int(mustParseInt(limitStr, 50))
	} else {
		filter.Limit = 50
	}

	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		filter.Offset = int(mustParseInt(offsetStr, 0))
	}

	executions, err := h.executionRepo.List(r.Context(), filter)
	if HandleRepoError(w, h.logger, err, "") {
		return
	}

	result := make([]ExecutionResponse, len(executions))
	for i, e := range executions {
		result[i] = ExecutionFromDomain(e)
	}

	List(w, result, len(result))
}

// ExecutePlan ставит сохранённый план в очередь на выполнение.
// POST /api/v1/plans/{id}/executions
func (h *Handler) ExecutePlan(w http.ResponseWriter, r *http.Request) {
	planID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid plan id")
		return
	}

	var req ExecutePlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	// Проверяем, что план существует и активен
	plan, err := h.planRepo.GetByID(r.Context(), planID)
	if HandleRepoError(w, h.logger, err, "plan not found") {
		return
	}

	if !plan.IsActive {
		InvalidState(w, "plan is not active")
		return
	}

	h.enqueueExecution(w, r, plan.ToOrchestration(), req.Input, req.IdempotencyKey)
}

// ExecuteInline ставит план из тела запроса в очередь, не сохраняя его.
// POST /api/v1/executions
func (h *Handler) ExecuteInline(w http.ResponseWriter, r *http.Request) {
	var req ExecuteInlineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	if err := engine.ValidatePlan(&req.Plan); err != nil {
		BadRequest(w, err.Error())
		return
	}

	// Inline-план может прийти со своим идентификатором; если его нет —
	// генерируем, чтобы запись о запуске было к чему привязать
	if req.Plan.ID == "" {
		req.Plan.ID = uuid.New().String()
	}

	h.enqueueExecution(w, r, &req.Plan, req.Input, req.IdempotencyKey)
}

// enqueueExecution создаёт запись о запуске и публикует plan.execute.
func (h *Handler) enqueueExecution(w http.ResponseWriter, r *http.Request, plan *domain.OrchestrationPlan, input map[string]any, idempKey string) {
	// Проверяем idempotency key
	if idempKey != "" {
		existing, err := h.executionRepo.GetByIdempotencyKey(r.Context(), idempKey)
		if err == nil && existing != nil {
			// Возвращаем существующий запуск
			Success(w, ExecutionFromDomain(*existing))
			return
		}
	}

	execution := &domain.Execution{
		ID:             uuid.New(),
		PlanID:         plan.ID,
		TenantID:       plan.TenantID,
		PlanName:       plan.Name,
		Status:         domain.ExecutionStatusQueued,
		Input:          input,
		IdempotencyKey: idempKey,
		CreatedAt:      time.Now(),
	}

	if err := h.executionRepo.Create(r.Context(), execution); err != nil {
		if HandleRepoError(w, h.logger, err, "") {
			return
		}
		InternalError(w, h.logger, err)
		return
	}

	// Публикуем запрос в очередь
	if h.publisher != nil {
		payload := mq.PlanExecutePayload{
			ExecutionID: execution.ID,
			Plan:        *plan,
			Input:       input,
		}

		if err := h.publisher.PublishPlanExecute(r.Context(), payload); err != nil {
			// Запись уже создана — worker подхватит её через polling
			h.logger.Warn("failed to publish plan.execute",
				"execution_id", execution.ID,
				"error", err,
			)
		}
	}

	Created(w, ExecutionFromDomain(*execution))
}

// GetExecution возвращает запись о запуске по ID.
// GET /api/v1/executions/{id}
func (h *Handler) GetExecution(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid execution id")
		return
	}

	execution, err := h.executionRepo.GetByID(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "execution not found") {
		return
	}

	Success(w, ExecutionFromDomain(*execution))
}

// mustParseInt парсит строку в int с дефолтным значением.
func mustParseInt(s string, defaultVal int64) int64 {
	if n, err := json.Number(s).Int64(); err == nil {
		return n
	}
	return defaultVal
}
