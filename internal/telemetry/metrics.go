package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Метрики платформы. Коллекторы регистрируются в DefaultRegisterer,
// каждый сервис отдаёт их через promhttp на /metrics.
//
// Типы шагов и статусы — закрытые множества, тенанты и типы заданий в
// метки не попадают: кардинальность у них пользовательская.
var (
	// PlanExecutionsTotal — завершённые прогоны планов по статусу результата.
	PlanExecutionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "conductor_plan_executions_total",
		Help: "Plan executions finished, by result status",
	}, []string{"status"})

	// PlanExecutionDuration — длительность прогона плана.
	PlanExecutionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "conductor_plan_execution_duration_seconds",
		Help:    "Wall-clock duration of plan executions",
		Buckets: prometheus.ExponentialBuckets(0.01, 2, 14),
	})

	// StepsTotal — выполненные шаги по типу и статусу.
	StepsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "conductor_steps_total",
		Help: "Plan steps finished, by step type and status",
	}, []string{"type", "status"})

	// CompensationsTotal — компенсационные действия по исходу постановки.
	CompensationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "conductor_compensations_total",
		Help: "Compensation actions attempted, by enqueue outcome",
	}, []string{"outcome"})

	// ScheduledExecutionsTotal — запуски, созданные планировщиком.
	ScheduledExecutionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "conductor_scheduled_executions_total",
		Help: "Executions enqueued by the scheduler",
	})
)

// Значения метки outcome для CompensationsTotal.
const (
	CompensationOutcomeEnqueued = "enqueued"
	CompensationOutcomeFailed   = "failed"
)
