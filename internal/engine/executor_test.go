package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/shaiso/Conductor/internal/domain"
)

// --- Тестовая очередь ---

// fakeQueue запоминает поставленные задания и умеет отклонять задания
// заданных типов. Потокобезопасна: подшаги parallel-шага ставят задания
// конкурентно.
type fakeQueue struct {
	mu      sync.Mutex
	jobs    []enqueuedJob
	failFor map[string]bool
	seq     int
}

type enqueuedJob struct {
	desc domain.JobDescriptor
	opts domain.EnqueueOptions
}

func newFakeQueue() *fakeQueue {
	return &fakeQueue{failFor: make(map[string]bool)}
}

func (q *fakeQueue) failType(jobType string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.failFor[jobType] = true
}

func (q *fakeQueue) Enqueue(_ context.Context, job domain.JobDescriptor, opts domain.EnqueueOptions) (*domain.Job, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.failFor[job.Type] {
		return nil, errors.New("queue rejected job")
	}
	q.seq++
	q.jobs = append(q.jobs, enqueuedJob{desc: job, opts: opts})
	return &domain.Job{ID: fmt.Sprintf("job-%d", q.seq)}, nil
}

// typesInOrder возвращает типы принятых заданий в порядке постановки.
func (q *fakeQueue) typesInOrder() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	types := make([]string, len(q.jobs))
	for i, j := range q.jobs {
		types[i] = j.desc.Type
	}
	return types
}

func newTestExecutor(q JobQueue) *PlanExecutor {
	return New(Config{Queue: q})
}

func delayStep(id string, deps ...string) domain.OrchestrationStep {
	return domain.OrchestrationStep{
		ID:        id,
		Name:      id,
		Type:      domain.StepTypeDelay,
		DependsOn: deps,
		Delay:     &domain.DelayConfig{DurationMs: 0},
	}
}

func actionStep(id, jobType string, deps ...string) domain.OrchestrationStep {
	return domain.OrchestrationStep{
		ID:        id,
		Name:      id,
		Type:      domain.StepTypeAction,
		DependsOn: deps,
		Action:    &domain.ActionConfig{JobType: jobType},
	}
}

// --- ExecutePlan ---

func TestExecutePlan_NoDependencies_PreservesDeclarationOrder(t *testing.T) {
	plan := &domain.OrchestrationPlan{
		ID:       "plan-1",
		TenantID: "tenant-1",
		Name:     "ordered",
		Steps: []domain.OrchestrationStep{
			delayStep("first"),
			delayStep("second"),
			delayStep("third"),
		},
	}

	result := newTestExecutor(newFakeQueue()).ExecutePlan(context.Background(), plan, nil)

	if len(result.StepResults) != 3 {
		t.Fatalf("expected 3 step results, got %d", len(result.StepResults))
	}
	for i, want := range []string{"first", "second", "third"} {
		if result.StepResults[i].StepID != want {
			t.Errorf("step %d: expected %s, got %s", i, want, result.StepResults[i].StepID)
		}
		if result.StepResults[i].Status != domain.StepStatusCompleted {
			t.Errorf("step %s: expected completed, got %s", want, result.StepResults[i].Status)
		}
	}
	if !result.Success {
		t.Error("expected success")
	}
	if result.Status != domain.ResultStatusCompleted {
		t.Errorf("expected completed, got %s", result.Status)
	}
}

func TestExecutePlan_ChainedSteps(t *testing.T) {
	// A ставит задание, B проверяет его выход через контекст, C ждёт B.
	plan := &domain.OrchestrationPlan{
		ID:       "plan-chain",
		TenantID: "tenant-1",
		Name:     "chain",
		Steps: []domain.OrchestrationStep{
			actionStep("A", "send-notification"),
			{
				ID:        "B",
				Name:      "B",
				Type:      domain.StepTypeCondition,
				DependsOn: []string{"A"},
				Condition: &domain.ConditionConfig{Expression: "steps.A.enqueued == true"},
			},
			delayStep("C", "B"),
		},
	}

	result := newTestExecutor(newFakeQueue()).ExecutePlan(context.Background(), plan, map[string]any{})

	if result.TotalSteps != 3 {
		t.Errorf("expected 3 total steps, got %d", result.TotalSteps)
	}
	if result.FailedSteps != 0 {
		t.Errorf("expected 0 failed steps, got %d", result.FailedSteps)
	}
	if result.Status != domain.ResultStatusCompleted {
		t.Errorf("expected completed, got %s", result.Status)
	}
	if len(result.StepResults) != 3 {
		t.Fatalf("expected 3 step results, got %d", len(result.StepResults))
	}
	for _, res := range result.StepResults {
		if res.Status != domain.StepStatusCompleted {
			t.Errorf("step %s: expected completed, got %s", res.StepID, res.Status)
		}
	}

	// Условие должно увидеть выход A и выбрать ветку then.
	output, ok := result.StepResults[1].Output.(map[string]any)
	if !ok {
		t.Fatalf("condition output should be a map, got %T", result.StepResults[1].Output)
	}
	if output["result"] != true || output["branch"] != "then" {
		t.Errorf("expected {result:true, branch:then}, got %v", output)
	}
}

func TestExecutePlan_DependentNeverStartsBeforeDependency(t *testing.T) {
	// B зависит от A: если бы B выполнился до A, условие разрешилось бы
	// в else — выход A ещё не был бы записан в контекст.
	plan := &domain.OrchestrationPlan{
		ID:       "plan-dep",
		TenantID: "tenant-1",
		Name:     "dep",
		Steps: []domain.OrchestrationStep{
			{
				ID:        "B",
				Name:      "B",
				Type:      domain.StepTypeCondition,
				DependsOn: []string{"A"},
				Condition: &domain.ConditionConfig{Expression: "steps.A.enqueued == true"},
			},
			actionStep("A", "provision"),
		},
	}

	result := newTestExecutor(newFakeQueue()).ExecutePlan(context.Background(), plan, nil)

	if result.FailedSteps != 0 {
		t.Fatalf("expected no failures, got %d", result.FailedSteps)
	}

	var condOutput map[string]any
	for _, res := range result.StepResults {
		if res.StepID == "B" {
			condOutput = res.Output.(map[string]any)
		}
	}
	if condOutput == nil {
		t.Fatal("no result for step B")
	}
	if condOutput["result"] != true {
		t.Errorf("B ran before A completed: %v", condOutput)
	}
}

func TestExecutePlan_RequiredFailureAbortsAndCompensates(t *testing.T) {
	queue := newFakeQueue()
	queue.failType("charge-card")

	plan := &domain.OrchestrationPlan{
		ID:       "plan-comp",
		TenantID: "tenant-1",
		Name:     "checkout",
		Steps: []domain.OrchestrationStep{
			{
				ID:           "reserve",
				Name:         "reserve",
				Type:         domain.StepTypeAction,
				Action:       &domain.ActionConfig{JobType: "reserve-stock"},
				Compensation: &domain.CompensationSpec{JobType: "release-stock"},
			},
			{
				ID:           "invoice",
				Name:         "invoice",
				Type:         domain.StepTypeAction,
				DependsOn:    []string{"reserve"},
				Action:       &domain.ActionConfig{JobType: "create-invoice"},
				Compensation: &domain.CompensationSpec{JobType: "void-invoice"},
			},
			{
				ID:        "charge",
				Name:      "charge",
				Type:      domain.StepTypeAction,
				DependsOn: []string{"invoice"},
				Required:  true,
				Action:    &domain.ActionConfig{JobType: "charge-card"},
			},
			delayStep("notify", "charge"),
		},
	}

	result := newTestExecutor(queue).ExecutePlan(context.Background(), plan, nil)

	if result.Success {
		t.Error("expected success=false")
	}
	if result.Status != domain.ResultStatusPartiallyCompleted {
		t.Errorf("expected partially_completed, got %s", result.Status)
	}
	if !result.CompensationApplied {
		t.Error("expected compensation to be applied")
	}
	if result.CompletedSteps != 2 || result.FailedSteps != 1 || result.SkippedSteps != 1 {
		t.Errorf("unexpected totals: completed=%d failed=%d skipped=%d",
			result.CompletedSteps, result.FailedSteps, result.SkippedSteps)
	}

	// Компенсация идёт в обратном порядке объявления шагов.
	if len(result.CompensationActions) != 2 {
		t.Fatalf("expected 2 compensation actions, got %d", len(result.CompensationActions))
	}
	if result.CompensationActions[0].StepID != "invoice" || result.CompensationActions[1].StepID != "reserve" {
		t.Errorf("compensation out of order: %s, %s",
			result.CompensationActions[0].StepID, result.CompensationActions[1].StepID)
	}

	types := queue.typesInOrder()
	want := []string{"reserve-stock", "create-invoice", "void-invoice", "release-stock"}
	if len(types) != len(want) {
		t.Fatalf("expected %d enqueued jobs, got %d: %v", len(want), len(types), types)
	}
	for i := range want {
		if types[i] != want[i] {
			t.Errorf("job %d: expected %s, got %s", i, want[i], types[i])
		}
	}

	// Завершённые шаги с блоком compensation помечены.
	for _, res := range result.StepResults {
		switch res.StepID {
		case "reserve", "invoice":
			if !res.Compensated {
				t.Errorf("step %s should be marked compensated", res.StepID)
			}
		default:
			if res.Compensated {
				t.Errorf("step %s should not be marked compensated", res.StepID)
			}
		}
	}
}

func TestExecutePlan_MissingDependencySkipsCascade(t *testing.T) {
	plan := &domain.OrchestrationPlan{
		ID:       "plan-ghost",
		TenantID: "tenant-1",
		Name:     "ghost",
		Steps: []domain.OrchestrationStep{
			delayStep("ok"),
			delayStep("orphan", "ghost"),
			delayStep("child", "orphan"),
		},
	}

	result := newTestExecutor(newFakeQueue()).ExecutePlan(context.Background(), plan, nil)

	byID := make(map[string]domain.StepResult)
	for _, res := range result.StepResults {
		byID[res.StepID] = res
	}

	if byID["ok"].Status != domain.StepStatusCompleted {
		t.Errorf("ok: expected completed, got %s", byID["ok"].Status)
	}
	if byID["orphan"].Status != domain.StepStatusSkipped {
		t.Errorf("orphan: expected skipped, got %s", byID["orphan"].Status)
	}
	if byID["child"].Status != domain.StepStatusSkipped {
		t.Errorf("child: expected skipped, got %s", byID["child"].Status)
	}
	if byID["orphan"].DurationMs != 0 {
		t.Errorf("skipped step should have zero duration, got %d", byID["orphan"].DurationMs)
	}

	// Провалов нет — план успешен, несмотря на пропуски.
	if !result.Success {
		t.Error("expected success")
	}
	if result.SkippedSteps != 2 {
		t.Errorf("expected 2 skipped, got %d", result.SkippedSteps)
	}
}

func TestExecutePlan_OptionalFailureDoesNotAbort(t *testing.T) {
	queue := newFakeQueue()
	queue.failType("flaky")

	plan := &domain.OrchestrationPlan{
		ID:       "plan-opt",
		TenantID: "tenant-1",
		Name:     "optional",
		Steps: []domain.OrchestrationStep{
			actionStep("A", "flaky"),
			delayStep("B"),
			delayStep("C", "A"),
		},
	}

	result := newTestExecutor(queue).ExecutePlan(context.Background(), plan, nil)

	byID := make(map[string]domain.StepResult)
	for _, res := range result.StepResults {
		byID[res.StepID] = res
	}

	if byID["A"].Status != domain.StepStatusFailed {
		t.Errorf("A: expected failed, got %s", byID["A"].Status)
	}
	if byID["B"].Status != domain.StepStatusCompleted {
		t.Errorf("B: expected completed, got %s", byID["B"].Status)
	}
	// C зависит от провалившегося шага — он никогда не станет готовым.
	if byID["C"].Status != domain.StepStatusSkipped {
		t.Errorf("C: expected skipped, got %s", byID["C"].Status)
	}

	if result.Success {
		t.Error("optional failure still makes the plan unsuccessful")
	}
	if result.Status != domain.ResultStatusPartiallyCompleted {
		t.Errorf("expected partially_completed, got %s", result.Status)
	}
	if result.CompensationApplied {
		t.Error("no abort — no compensation")
	}
}

func TestExecutePlan_UnknownStepTypeSkippedAndUnblocksDependents(t *testing.T) {
	plan := &domain.OrchestrationPlan{
		ID:       "plan-unknown",
		TenantID: "tenant-1",
		Name:     "unknown",
		Steps: []domain.OrchestrationStep{
			{ID: "mystery", Name: "mystery", Type: "webhook"},
			delayStep("after", "mystery"),
		},
	}

	result := newTestExecutor(newFakeQueue()).ExecutePlan(context.Background(), plan, nil)

	byID := make(map[string]domain.StepResult)
	for _, res := range result.StepResults {
		byID[res.StepID] = res
	}

	if byID["mystery"].Status != domain.StepStatusSkipped {
		t.Errorf("mystery: expected skipped, got %s", byID["mystery"].Status)
	}
	if byID["mystery"].Error != "" {
		t.Errorf("unknown type is not an error, got %q", byID["mystery"].Error)
	}
	// Пропущенный шаг попадает в completedSteps и разблокирует зависимых.
	if byID["after"].Status != domain.StepStatusCompleted {
		t.Errorf("after: expected completed, got %s", byID["after"].Status)
	}
	if !result.Success {
		t.Error("expected success")
	}
}

func TestExecutePlan_AllStepsFailed(t *testing.T) {
	queue := newFakeQueue()
	queue.failType("doomed")

	plan := &domain.OrchestrationPlan{
		ID:       "plan-doom",
		TenantID: "tenant-1",
		Name:     "doom",
		Steps: []domain.OrchestrationStep{
			actionStep("A", "doomed"),
			actionStep("B", "doomed"),
		},
	}

	result := newTestExecutor(queue).ExecutePlan(context.Background(), plan, nil)

	if result.Status != domain.ResultStatusFailed {
		t.Errorf("expected failed, got %s", result.Status)
	}
	if result.Success {
		t.Error("expected success=false")
	}
	if result.FailedSteps != 2 {
		t.Errorf("expected 2 failed, got %d", result.FailedSteps)
	}
}

func TestExecutePlan_EmptyPlan(t *testing.T) {
	plan := &domain.OrchestrationPlan{
		ID:       "plan-empty",
		TenantID: "tenant-1",
		Name:     "empty",
	}

	result := newTestExecutor(newFakeQueue()).ExecutePlan(context.Background(), plan, nil)

	if len(result.StepResults) != 0 {
		t.Errorf("expected no step results, got %d", len(result.StepResults))
	}
	if !result.Success || result.Status != domain.ResultStatusCompleted {
		t.Errorf("empty plan should complete, got success=%v status=%s", result.Success, result.Status)
	}
}

func TestExecutePlan_StepCountsAlwaysAddUp(t *testing.T) {
	queue := newFakeQueue()
	queue.failType("charge-card")

	plans := []*domain.OrchestrationPlan{
		{
			ID: "p1", TenantID: "t", Name: "mixed",
			Steps: []domain.OrchestrationStep{
				delayStep("a"),
				{ID: "b", Name: "b", Type: domain.StepTypeAction, Required: true,
					Action: &domain.ActionConfig{JobType: "charge-card"}},
				delayStep("c", "b"),
				{ID: "d", Name: "d", Type: "alien"},
			},
		},
		{
			ID: "p2", TenantID: "t", Name: "ghosted",
			Steps: []domain.OrchestrationStep{
				delayStep("a", "nope"),
				delayStep("b", "a"),
			},
		},
	}

	for _, plan := range plans {
		result := newTestExecutor(queue).ExecutePlan(context.Background(), plan, nil)
		if len(result.StepResults) != len(plan.Steps) {
			t.Errorf("plan %s: expected %d results, got %d", plan.ID, len(plan.Steps), len(result.StepResults))
		}
		sum := result.CompletedSteps + result.FailedSteps + result.SkippedSteps
		if sum != result.TotalSteps {
			t.Errorf("plan %s: counts don't add up: %d+%d+%d != %d", plan.ID,
				result.CompletedSteps, result.FailedSteps, result.SkippedSteps, result.TotalSteps)
		}
		for _, res := range result.StepResults {
			if res.DurationMs < 0 {
				t.Errorf("plan %s step %s: negative duration", plan.ID, res.StepID)
			}
		}
	}
}

// --- ExecutionContext ---

func TestExecutionContext_NilInput(t *testing.T) {
	ectx := NewExecutionContext(nil)
	if ectx.Input == nil {
		t.Fatal("nil input should be replaced with an empty map")
	}
	if len(ectx.Input) != 0 {
		t.Errorf("expected empty input, got %v", ectx.Input)
	}
}

func TestExecutionContext_AbortIsMonotonic(t *testing.T) {
	ectx := NewExecutionContext(nil)
	if ectx.Aborted {
		t.Fatal("fresh context should not be aborted")
	}
	ectx.Abort()
	ectx.Abort()
	if !ectx.Aborted {
		t.Error("context should stay aborted")
	}
}
