package api

import (
	"net/http"
)

// RegisterRoutes регистрирует все маршруты API.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	// Middleware chain
	chain := Chain(
		Recovery(h.logger),
		Logging(h.logger),
	)

	// Plans
	mux.Handle("GET /api/v1/plans", chain(http.HandlerFunc(h.ListPlans)))
	mux.Handle("POST /api/v1/plans", chain(http.HandlerFunc(h.CreatePlan)))
	mux.Handle("GET /api/v1/plans/{id}", chain(http.HandlerFunc(h.GetPlan)))
	mux.Handle("PUT /api/v1/plans/{id}", chain(http.HandlerFunc(h.UpdatePlan)))
	mux.Handle("DELETE /api/v1/plans/{id}", chain(http.HandlerFunc(h.DeletePlan)))

	// Executions
	mux.Handle("POST /api/v1/plans/{id}/executions", chain(http.HandlerFunc(h.ExecutePlan)))
	mux.Handle("POST /api/v1/executions", chain(http.HandlerFunc(h.ExecuteInline)))
	mux.Handle("GET /api/v1/executions", chain(http.HandlerFunc(h.ListExecutions)))
	mux.Handle("GET /api/v1/executions/{id}", chain(http.HandlerFunc(h.GetExecution)))

	// Schedules
	mux.Handle("GET /api/v1/schedules", chain(http.HandlerFunc(h.ListSchedules)))
	mux.Handle("POST /api/v1/schedules", chain(http.HandlerFunc(h.CreateSchedule)))
	mux.Handle("GET /api/v1/schedules/{id}", chain(http.HandlerFunc(h.GetSchedule)))
	mux.Handle("PUT /api/v1/schedules/{id}", chain(http.HandlerFunc(h.UpdateSchedule)))
	mux.Handle("DELETE /api/v1/schedules/{id}", chain(http.HandlerFunc(h.DeleteSchedule)))
	mux.Handle("PUT /api/v1/schedules/{id}/enabled", chain(http.HandlerFunc(h.SetScheduleEnabled)))
}
