package api

import (
	"log/slog"

	"github.com/shaiso/Conductor/internal/mq"
	"github.com/shaiso/Conductor/internal/repo"
)

// Handler — главный обработчик API с зависимостями.
type Handler struct {
	planRepo      *repo.PlanRepo
	executionRepo *repo.ExecutionRepo
	scheduleRepo  *repo.ScheduleRepo
	publisher     *mq.Publisher
	logger        *slog.Logger
}

// Config — конфигурация для создания Handler.
type Config struct {
	PlanRepo      *repo.PlanRepo
	ExecutionRepo *repo.ExecutionRepo
	ScheduleRepo  *repo.ScheduleRepo
	Publisher     *mq.Publisher
	Logger        *slog.Logger
}

// NewHandler создаёт новый Handler.
func NewHandler(cfg Config) *Handler {
	return &Handler{
		planRepo:      cfg.PlanRepo,
		executionRepo: cfg.ExecutionRepo,
		scheduleRepo:  cfg.ScheduleRepo,
		publisher:     cfg.Publisher,
		logger:        cfg.Logger,
	}
}
