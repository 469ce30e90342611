package engine

// ExecutionContext — изменяемое состояние одного прогона плана.
//
// Контекст создаётся заново на каждый вызов ExecutePlan и принадлежит
// ему монопольно: он не сохраняется нигде дольше прогона и не
// разделяется между прогонами. Основной цикл последовательный, поэтому
// записи в контекст не требуют синхронизации; подшаги parallel-шага
// контекст только читают.
type ExecutionContext struct {
	// Input — исходный вход плана. Не мутируется после создания.
	Input map[string]any

	// StepOutputs — выходы завершённых шагов по их id.
	StepOutputs map[string]any

	// Aborted — флаг прерывания плана. Монотонный: однажды став true,
	// в пределах прогона не сбрасывается.
	Aborted bool
}

// NewExecutionContext создаёт контекст прогона. nil-вход заменяется
// пустой картой, чтобы разрешение путей не разыменовывало nil.
func NewExecutionContext(input map[string]any) *ExecutionContext {
	if input == nil {
		input = map[string]any{}
	}
	return &ExecutionContext{
		Input:       input,
		StepOutputs: make(map[string]any),
	}
}

// RecordOutput сохраняет выход завершённого шага.
func (c *ExecutionContext) RecordOutput(stepID string, output any) {
	c.StepOutputs[stepID] = output
}

// Abort взводит флаг прерывания.
func (c *ExecutionContext) Abort() {
	c.Aborted = true
}
