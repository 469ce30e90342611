package domain

// JobDescriptor — задание для внешней durable-очереди.
//
// Движок ставит задания трёх видов: бизнес-задания action-шагов,
// approval-запросы и компенсационные задания. Исполняют их внешние
// воркеры платформы; движок судьбу задания не отслеживает.
type JobDescriptor struct {
	// Type — тип задания; по нему воркеры выбирают обработчик.
	Type string `json:"type"`

	// Payload — полезная нагрузка задания.
	Payload map[string]any `json:"payload,omitempty"`

	// Metadata — служебные поля (planId, stepId, compensationFor, ...).
	Metadata map[string]any `json:"metadata,omitempty"`
}

// EnqueueOptions — параметры постановки задания. Движок их не
// интерпретирует: значения уходят очереди как есть.
type EnqueueOptions struct {
	// DelayMs — отложенный запуск задания.
	DelayMs int64

	// TimeoutMs — таймаут выполнения на стороне воркера очереди.
	TimeoutMs int64

	// Attempts — число попыток на стороне очереди. Движок всегда
	// передаёт 1: retry-политика шагов принадлежит движку, а у него
	// её по умолчанию нет.
	Attempts int

	// Priority — приоритет задания, 0..9 (9 — наивысший).
	Priority uint8
}

// Job — подтверждение приёма задания очередью.
type Job struct {
	ID string `json:"id"`
}

// PriorityHigh — приоритет заданий, требующих внимания человека.
const PriorityHigh uint8 = 9

// ApprovalJobType — фиксированный тип задания запроса подтверждения.
const ApprovalJobType = "orchestration-approval"
