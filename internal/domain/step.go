package domain

// StepType — тип шага оркестрационного плана.
//
// Тип определяет обработчик шага и форму его конфигурации:
//
//	action    — постановка бизнес-задания во внешнюю очередь
//	condition — ветвление по булеву выражению
//	parallel  — конкурентный запуск группы синтетических action-подшагов
//	delay     — пауза на заданное число миллисекунд
//	approval  — запрос ручного подтверждения (высокоприоритетное задание)
//
// Нераспознанные значения типа движок не считает ошибкой: такой шаг
// помечается skipped.
type StepType string

const (
	StepTypeAction    StepType = "action"
	StepTypeCondition StepType = "condition"
	StepTypeParallel  StepType = "parallel"
	StepTypeDelay     StepType = "delay"
	StepTypeApproval  StepType = "approval"
)

// Known сообщает, является ли значение одним из распознаваемых типов.
func (t StepType) Known() bool {
	switch t {
	case StepTypeAction, StepTypeCondition, StepTypeParallel, StepTypeDelay, StepTypeApproval:
		return true
	}
	return false
}

// OrchestrationStep — один шаг плана.
//
// JSON-форма — контракт платформы (camelCase), менять имена полей нельзя.
type OrchestrationStep struct {
	// ID — идентификатор шага, уникальный в пределах плана.
	// Уникальность обеспечивает источник плана, движок её не проверяет.
	ID string `json:"id"`

	// Name — человекочитаемое имя шага.
	Name string `json:"name"`

	// Type — тип шага.
	Type StepType `json:"type"`

	// DependsOn — идентификаторы шагов, которые должны завершиться до
	// запуска этого. Могут ссылаться на отсутствующие в плане id:
	// такой шаг никогда не станет готовым и в итоге будет помечен skipped.
	DependsOn []string `json:"dependsOn,omitempty"`

	// Required — если true, провал шага прерывает план и запускает
	// компенсацию уже завершённых шагов.
	Required bool `json:"required,omitempty"`

	// Конфигурация, соответствующая Type. Отсутствие нужного блока —
	// ошибка конфигурации, шаг завершается failed.
	Action    *ActionConfig    `json:"action,omitempty"`
	Condition *ConditionConfig `json:"condition,omitempty"`
	Parallel  *ParallelConfig  `json:"parallel,omitempty"`
	Delay     *DelayConfig     `json:"delay,omitempty"`
	Approval  *ApprovalConfig  `json:"approval,omitempty"`

	// Compensation — необязательное действие отката. Ставится в очередь
	// координатором компенсации, если план был прерван после того, как
	// этот шаг завершился.
	Compensation *CompensationSpec `json:"compensation,omitempty"`
}

// ActionConfig — конфигурация action-шага.
type ActionConfig struct {
	// JobType — тип задания для внешней очереди.
	JobType string `json:"jobType"`

	// Payload — шаблон полезной нагрузки. Строковые значения вида
	// "{{ path }}" подставляются из контекста выполнения.
	Payload map[string]any `json:"payload,omitempty"`

	// TimeoutMs — таймаут задания. Движок его не контролирует,
	// значение уходит очереди как есть.
	TimeoutMs int64 `json:"timeoutMs,omitempty"`
}

// ConditionConfig — конфигурация condition-шага.
type ConditionConfig struct {
	// Expression — одно бинарное сравнение, например "input.amount > 100".
	Expression string `json:"expression"`
}

// ParallelConfig — конфигурация parallel-шага.
type ParallelConfig struct {
	// Steps — идентификаторы, по которым строятся синтетические
	// action-подшаги (jobType подшага = идентификатор).
	Steps []string `json:"steps"`

	// FailStrategy — "fail_fast" либо пусто (ждать всех). Сейчас обе
	// стратегии ждут все подшаги и отбрасывают отклонённые.
	FailStrategy string `json:"failStrategy,omitempty"`
}

// DelayConfig — конфигурация delay-шага.
type DelayConfig struct {
	// DurationMs — длительность паузы в миллисекундах.
	DurationMs int64 `json:"durationMs"`
}

// ApprovalConfig — конфигурация approval-шага.
type ApprovalConfig struct {
	// Payload — шаблон дополнительных данных запроса подтверждения.
	// Идентификация шага (stepId, stepName, tenantId) добавляется
	// движком поверх и перекрывает одноимённые ключи.
	Payload map[string]any `json:"payload,omitempty"`
}

// CompensationSpec — объявление действия отката шага.
type CompensationSpec struct {
	// JobType — тип компенсационного задания.
	JobType string `json:"jobType"`

	// Payload — полезная нагрузка. В отличие от action.payload не
	// интерполируется: уходит в очередь ровно как объявлена.
	Payload map[string]any `json:"payload,omitempty"`
}
