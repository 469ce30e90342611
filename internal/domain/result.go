package domain

import "time"

// StepResult — результат одного шага плана.
//
// Статус назначается ровно один раз: шаг не переходит из
// completed/failed/skipped в какой-либо другой статус.
type StepResult struct {
	StepID   string     `json:"stepId"`
	StepName string     `json:"stepName"`
	Status   StepStatus `json:"status"`

	StartedAt   time.Time `json:"startedAt"`
	CompletedAt time.Time `json:"completedAt"`

	// DurationMs — длительность обработчика; фиксируется всегда,
	// независимо от исхода, и неотрицательна.
	DurationMs int64 `json:"durationMs"`

	// Output — выход обработчика. Складывается в контекст выполнения
	// и доступен последующим шагам по пути steps.<id>.
	Output any `json:"output,omitempty"`

	// Error — текст ошибки для failed-шагов.
	Error string `json:"error,omitempty"`

	// Compensated — true, если для шага ставилось компенсационное задание.
	Compensated bool `json:"compensated,omitempty"`
}

// CompensationAction — запись о попытке отката одного шага.
//
// Создаётся для каждого завершённого шага с блоком compensation,
// независимо от того, удалось ли поставить задание в очередь.
type CompensationAction struct {
	StepID     string         `json:"stepId"`
	JobType    string         `json:"jobType"`
	Payload    map[string]any `json:"payload,omitempty"`
	ExecutedAt time.Time      `json:"executedAt"`
	Success    bool           `json:"success"`
	Error      string         `json:"error,omitempty"`
}

// OrchestrationResult — агрегированный результат выполнения плана.
//
// Инварианты: len(StepResults) == len(plan.Steps);
// CompletedSteps+FailedSteps+SkippedSteps == TotalSteps;
// Success == (FailedSteps == 0) независимо от required-флагов шагов.
type OrchestrationResult struct {
	PlanID   string       `json:"planId"`
	PlanName string       `json:"planName"`
	Success  bool         `json:"success"`
	Status   ResultStatus `json:"status"`

	StepResults []StepResult `json:"stepResults"`

	TotalSteps     int `json:"totalSteps"`
	CompletedSteps int `json:"completedSteps"`
	FailedSteps    int `json:"failedSteps"`
	SkippedSteps   int `json:"skippedSteps"`

	StartedAt       time.Time `json:"startedAt"`
	CompletedAt     time.Time `json:"completedAt"`
	TotalDurationMs int64     `json:"totalDurationMs"`

	// CompensationApplied — была ли предпринята хотя бы одна попытка
	// компенсации (независимо от её исхода).
	CompensationApplied bool `json:"compensationApplied"`

	// CompensationActions — записи всех попыток отката в порядке
	// их выполнения (обратный порядок объявления шагов).
	CompensationActions []CompensationAction `json:"compensationActions,omitempty"`
}
