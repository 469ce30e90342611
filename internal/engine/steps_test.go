package engine

import (
	"context"
	"strings"
	"testing"

	"github.com/shaiso/Conductor/internal/domain"
)

func testPlan() *domain.OrchestrationPlan {
	return &domain.OrchestrationPlan{ID: "plan-1", TenantID: "tenant-1", Name: "test"}
}

func TestStepExecutor_ActionEnqueuesInterpolatedPayload(t *testing.T) {
	queue := newFakeQueue()
	x := NewStepExecutor(queue, nil)
	ectx := NewExecutionContext(map[string]any{"bar": "baz"})

	step := &domain.OrchestrationStep{
		ID:   "notify",
		Name: "notify",
		Type: domain.StepTypeAction,
		Action: &domain.ActionConfig{
			JobType:   "send-notification",
			TimeoutMs: 30000,
			Payload: map[string]any{
				"foo":    "{{ input.bar }}",
				"static": "x-{{ input.bar }}",
			},
		},
	}

	result := x.Execute(context.Background(), testPlan(), step, ectx)

	if result.Status != domain.StepStatusCompleted {
		t.Fatalf("expected completed, got %s (%s)", result.Status, result.Error)
	}

	if len(queue.jobs) != 1 {
		t.Fatalf("expected 1 job, got %d", len(queue.jobs))
	}
	job := queue.jobs[0]

	if job.desc.Type != "send-notification" {
		t.Errorf("expected send-notification, got %s", job.desc.Type)
	}
	// Точный плейсхолдер подставлен, частичный оставлен как есть.
	if job.desc.Payload["foo"] != "baz" {
		t.Errorf("expected baz, got %v", job.desc.Payload["foo"])
	}
	if job.desc.Payload["static"] != "x-{{ input.bar }}" {
		t.Errorf("partial placeholder should stay literal, got %v", job.desc.Payload["static"])
	}
	if job.desc.Metadata["planId"] != "plan-1" || job.desc.Metadata["stepId"] != "notify" || job.desc.Metadata["tenantId"] != "tenant-1" {
		t.Errorf("unexpected metadata: %v", job.desc.Metadata)
	}
	if job.opts.TimeoutMs != 30000 {
		t.Errorf("expected timeout 30000, got %d", job.opts.TimeoutMs)
	}
	if job.opts.Attempts != 1 {
		t.Errorf("actions are enqueued with a single attempt, got %d", job.opts.Attempts)
	}

	output, ok := result.Output.(map[string]any)
	if !ok {
		t.Fatalf("expected map output, got %T", result.Output)
	}
	if output["enqueued"] != true || output["jobType"] != "send-notification" {
		t.Errorf("unexpected output: %v", output)
	}
	if output["jobId"] == "" || output["jobId"] == nil {
		t.Error("output should carry the job id")
	}
}

func TestStepExecutor_ActionMissingConfig(t *testing.T) {
	x := NewStepExecutor(newFakeQueue(), nil)

	step := &domain.OrchestrationStep{ID: "broken", Name: "broken", Type: domain.StepTypeAction}
	result := x.Execute(context.Background(), testPlan(), step, NewExecutionContext(nil))

	if result.Status != domain.StepStatusFailed {
		t.Fatalf("expected failed, got %s", result.Status)
	}
	if !strings.Contains(result.Error, "no action block") {
		t.Errorf("unexpected error: %s", result.Error)
	}
}

func TestStepExecutor_ActionEnqueueFailure(t *testing.T) {
	queue := newFakeQueue()
	queue.failType("charge-card")
	x := NewStepExecutor(queue, nil)

	step := &domain.OrchestrationStep{
		ID:     "charge",
		Name:   "charge",
		Type:   domain.StepTypeAction,
		Action: &domain.ActionConfig{JobType: "charge-card"},
	}
	result := x.Execute(context.Background(), testPlan(), step, NewExecutionContext(nil))

	if result.Status != domain.StepStatusFailed {
		t.Fatalf("expected failed, got %s", result.Status)
	}
	if !strings.Contains(result.Error, "enqueue action job") {
		t.Errorf("unexpected error: %s", result.Error)
	}
	if result.Output != nil {
		t.Errorf("failed step should have no output, got %v", result.Output)
	}
}

func TestStepExecutor_ConditionBranches(t *testing.T) {
	x := NewStepExecutor(newFakeQueue(), nil)

	step := &domain.OrchestrationStep{
		ID:        "check",
		Name:      "check",
		Type:      domain.StepTypeCondition,
		Condition: &domain.ConditionConfig{Expression: "amount > 100"},
	}

	tests := []struct {
		name   string
		amount float64
		result bool
		branch string
	}{
		{name: "over threshold", amount: 150, result: true, branch: "then"},
		{name: "under threshold", amount: 50, result: false, branch: "else"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ectx := NewExecutionContext(map[string]any{"amount": tt.amount})
			res := x.Execute(context.Background(), testPlan(), step, ectx)

			if res.Status != domain.StepStatusCompleted {
				t.Fatalf("expected completed, got %s (%s)", res.Status, res.Error)
			}
			output := res.Output.(map[string]any)
			if output["result"] != tt.result {
				t.Errorf("expected result=%v, got %v", tt.result, output["result"])
			}
			if output["branch"] != tt.branch {
				t.Errorf("expected branch=%s, got %v", tt.branch, output["branch"])
			}
		})
	}
}

func TestStepExecutor_ConditionMissingConfig(t *testing.T) {
	x := NewStepExecutor(newFakeQueue(), nil)

	step := &domain.OrchestrationStep{ID: "check", Name: "check", Type: domain.StepTypeCondition}
	result := x.Execute(context.Background(), testPlan(), step, NewExecutionContext(nil))

	if result.Status != domain.StepStatusFailed {
		t.Fatalf("expected failed, got %s", result.Status)
	}
	if !strings.Contains(result.Error, "no condition block") {
		t.Errorf("unexpected error: %s", result.Error)
	}
}

func TestStepExecutor_ConditionInvalidExpression(t *testing.T) {
	x := NewStepExecutor(newFakeQueue(), nil)

	step := &domain.OrchestrationStep{
		ID:        "check",
		Name:      "check",
		Type:      domain.StepTypeCondition,
		Condition: &domain.ConditionConfig{Expression: "no operator here"},
	}
	result := x.Execute(context.Background(), testPlan(), step, NewExecutionContext(nil))

	if result.Status != domain.StepStatusFailed {
		t.Fatalf("expected failed, got %s", result.Status)
	}
	if !strings.Contains(result.Error, "invalid expression") {
		t.Errorf("unexpected error: %s", result.Error)
	}
}

func TestStepExecutor_ParallelFansOut(t *testing.T) {
	queue := newFakeQueue()
	x := NewStepExecutor(queue, nil)

	step := &domain.OrchestrationStep{
		ID:       "fan",
		Name:     "fan",
		Type:     domain.StepTypeParallel,
		Parallel: &domain.ParallelConfig{Steps: []string{"resize", "watermark", "thumbnail"}},
	}
	result := x.Execute(context.Background(), testPlan(), step, NewExecutionContext(nil))

	if result.Status != domain.StepStatusCompleted {
		t.Fatalf("expected completed, got %s (%s)", result.Status, result.Error)
	}

	subResults, ok := result.Output.([]domain.StepResult)
	if !ok {
		t.Fatalf("expected []StepResult output, got %T", result.Output)
	}
	if len(subResults) != 3 {
		t.Fatalf("expected 3 sub-results, got %d", len(subResults))
	}
	// Слоты сохраняют порядок объявления, каким бы ни был порядок завершения.
	for i, want := range []string{"resize", "watermark", "thumbnail"} {
		if subResults[i].StepID != want {
			t.Errorf("sub-result %d: expected %s, got %s", i, want, subResults[i].StepID)
		}
		if subResults[i].Status != domain.StepStatusCompleted {
			t.Errorf("sub-result %s: expected completed, got %s", want, subResults[i].Status)
		}
	}

	if len(queue.jobs) != 3 {
		t.Errorf("expected 3 enqueued jobs, got %d", len(queue.jobs))
	}
}

func TestStepExecutor_ParallelDropsRejectedSubSteps(t *testing.T) {
	queue := newFakeQueue()
	queue.failType("watermark")
	x := NewStepExecutor(queue, nil)

	step := &domain.OrchestrationStep{
		ID:   "fan",
		Name: "fan",
		Type: domain.StepTypeParallel,
		Parallel: &domain.ParallelConfig{
			Steps:        []string{"resize", "watermark", "thumbnail"},
			FailStrategy: "fail_fast",
		},
	}
	result := x.Execute(context.Background(), testPlan(), step, NewExecutionContext(nil))

	// Отклонённый подшаг не роняет группу даже при fail_fast.
	if result.Status != domain.StepStatusCompleted {
		t.Fatalf("expected completed, got %s (%s)", result.Status, result.Error)
	}

	subResults := result.Output.([]domain.StepResult)
	if len(subResults) != 2 {
		t.Fatalf("expected 2 sub-results, got %d", len(subResults))
	}
	for _, sub := range subResults {
		if sub.StepID == "watermark" {
			t.Error("rejected sub-step should be dropped from the output")
		}
	}
}

func TestStepExecutor_ParallelMissingConfig(t *testing.T) {
	x := NewStepExecutor(newFakeQueue(), nil)

	step := &domain.OrchestrationStep{ID: "fan", Name: "fan", Type: domain.StepTypeParallel}
	result := x.Execute(context.Background(), testPlan(), step, NewExecutionContext(nil))

	if result.Status != domain.StepStatusFailed {
		t.Fatalf("expected failed, got %s", result.Status)
	}
	if !strings.Contains(result.Error, "no parallel block") {
		t.Errorf("unexpected error: %s", result.Error)
	}
}

func TestStepExecutor_DelayCompletesWithoutOutput(t *testing.T) {
	x := NewStepExecutor(newFakeQueue(), nil)

	step := &domain.OrchestrationStep{
		ID:    "pause",
		Name:  "pause",
		Type:  domain.StepTypeDelay,
		Delay: &domain.DelayConfig{DurationMs: 5},
	}
	result := x.Execute(context.Background(), testPlan(), step, NewExecutionContext(nil))

	if result.Status != domain.StepStatusCompleted {
		t.Fatalf("expected completed, got %s (%s)", result.Status, result.Error)
	}
	if result.Output != nil {
		t.Errorf("delay has no output, got %v", result.Output)
	}
	if result.DurationMs < 5 {
		t.Errorf("expected at least 5ms, got %d", result.DurationMs)
	}
}

func TestStepExecutor_DelayCancelled(t *testing.T) {
	x := NewStepExecutor(newFakeQueue(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	step := &domain.OrchestrationStep{
		ID:    "pause",
		Name:  "pause",
		Type:  domain.StepTypeDelay,
		Delay: &domain.DelayConfig{DurationMs: 60000},
	}
	result := x.Execute(ctx, testPlan(), step, NewExecutionContext(nil))

	if result.Status != domain.StepStatusFailed {
		t.Fatalf("expected failed on cancelled context, got %s", result.Status)
	}
	if !strings.Contains(result.Error, "context canceled") {
		t.Errorf("unexpected error: %s", result.Error)
	}
}

func TestStepExecutor_ApprovalEnqueuesHighPriorityRequest(t *testing.T) {
	queue := newFakeQueue()
	x := NewStepExecutor(queue, nil)
	ectx := NewExecutionContext(map[string]any{"amount": float64(9000)})

	step := &domain.OrchestrationStep{
		ID:   "review",
		Name: "manual review",
		Type: domain.StepTypeApproval,
		Approval: &domain.ApprovalConfig{
			Payload: map[string]any{"amount": "{{ input.amount }}"},
		},
	}
	result := x.Execute(context.Background(), testPlan(), step, ectx)

	if result.Status != domain.StepStatusCompleted {
		t.Fatalf("expected completed, got %s (%s)", result.Status, result.Error)
	}

	if len(queue.jobs) != 1 {
		t.Fatalf("expected 1 job, got %d", len(queue.jobs))
	}
	job := queue.jobs[0]

	if job.desc.Type != domain.ApprovalJobType {
		t.Errorf("expected %s, got %s", domain.ApprovalJobType, job.desc.Type)
	}
	if job.opts.Priority != domain.PriorityHigh {
		t.Errorf("expected high priority, got %d", job.opts.Priority)
	}
	if job.desc.Payload["stepId"] != "review" || job.desc.Payload["stepName"] != "manual review" || job.desc.Payload["tenantId"] != "tenant-1" {
		t.Errorf("payload missing identity fields: %v", job.desc.Payload)
	}
	if job.desc.Payload["amount"] != float64(9000) {
		t.Errorf("expected interpolated amount, got %v", job.desc.Payload["amount"])
	}

	output := result.Output.(map[string]any)
	if output["awaitingApproval"] != true {
		t.Errorf("expected awaitingApproval=true, got %v", output)
	}
}

func TestStepExecutor_ApprovalWithoutBlock(t *testing.T) {
	queue := newFakeQueue()
	x := NewStepExecutor(queue, nil)

	// Блок approval необязателен: запрос уходит с одними полями шага.
	step := &domain.OrchestrationStep{ID: "review", Name: "review", Type: domain.StepTypeApproval}
	result := x.Execute(context.Background(), testPlan(), step, NewExecutionContext(nil))

	if result.Status != domain.StepStatusCompleted {
		t.Fatalf("expected completed, got %s (%s)", result.Status, result.Error)
	}
	if len(queue.jobs) != 1 {
		t.Fatalf("expected 1 job, got %d", len(queue.jobs))
	}
	payload := queue.jobs[0].desc.Payload
	if payload["stepId"] != "review" {
		t.Errorf("payload missing step id: %v", payload)
	}
}

func TestStepExecutor_NoQueueFailsStep(t *testing.T) {
	// Движок без очереди: шаги, которым нужна постановка задания,
	// проваливаются, а не паникуют.
	x := NewStepExecutor(nil, nil)

	steps := []*domain.OrchestrationStep{
		{ID: "a", Name: "a", Type: domain.StepTypeAction, Action: &domain.ActionConfig{JobType: "t"}},
		{ID: "r", Name: "r", Type: domain.StepTypeApproval},
	}
	for _, step := range steps {
		result := x.Execute(context.Background(), testPlan(), step, NewExecutionContext(nil))
		if result.Status != domain.StepStatusFailed {
			t.Errorf("step %s: expected failed, got %s", step.ID, result.Status)
		}
		if !strings.Contains(result.Error, "job queue is not configured") {
			t.Errorf("step %s: unexpected error: %s", step.ID, result.Error)
		}
	}
}

func TestStepExecutor_UnknownTypeSkipped(t *testing.T) {
	queue := newFakeQueue()
	x := NewStepExecutor(queue, nil)

	step := &domain.OrchestrationStep{ID: "mystery", Name: "mystery", Type: "webhook"}
	result := x.Execute(context.Background(), testPlan(), step, NewExecutionContext(nil))

	if result.Status != domain.StepStatusSkipped {
		t.Fatalf("expected skipped, got %s", result.Status)
	}
	if result.Error != "" {
		t.Errorf("unknown type is not an error, got %q", result.Error)
	}
	if result.Output != nil {
		t.Errorf("skipped step has no output, got %v", result.Output)
	}
	if result.DurationMs != 0 {
		t.Errorf("skipped step has zero duration, got %d", result.DurationMs)
	}
	if len(queue.jobs) != 0 {
		t.Errorf("nothing should be enqueued, got %d jobs", len(queue.jobs))
	}
}
