package engine

import (
	"context"
	"testing"

	"github.com/shaiso/Conductor/internal/domain"
)

func compensablePlan() *domain.OrchestrationPlan {
	return &domain.OrchestrationPlan{
		ID:       "plan-1",
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
				ID:     "audit",
				Name:   "audit",
				Type:   domain.StepTypeAction,
				Action: &domain.ActionConfig{JobType: "write-audit"},
			},
			{
				ID:           "invoice",
				Name:         "invoice",
				Type:         domain.StepTypeAction,
				Action:       &domain.ActionConfig{JobType: "create-invoice"},
				Compensation: &domain.CompensationSpec{JobType: "void-invoice"},
			},
			{
				ID:           "charge",
				Name:         "charge",
				Type:         domain.StepTypeAction,
				Action:       &domain.ActionConfig{JobType: "charge-card"},
				Compensation: &domain.CompensationSpec{JobType: "refund-card"},
			},
		},
	}
}

func TestCompensate_ReverseDeclarationOrder(t *testing.T) {
	queue := newFakeQueue()
	c := NewCompensationCoordinator(queue, nil)

	plan := compensablePlan()
	completed := map[string]struct{}{
		"reserve": {},
		"audit":   {},
		"invoice": {},
	}
	results := []domain.StepResult{
		{StepID: "reserve", Status: domain.StepStatusCompleted},
		{StepID: "audit", Status: domain.StepStatusCompleted},
		{StepID: "invoice", Status: domain.StepStatusCompleted},
		{StepID: "charge", Status: domain.StepStatusFailed},
	}

	actions := c.Compensate(context.Background(), plan, completed, results)

	// Откатываются только завершённые шаги с блоком compensation:
	// charge провалился, audit блока не объявлял.
	if len(actions) != 2 {
		t.Fatalf("expected 2 actions, got %d", len(actions))
	}
	if actions[0].StepID != "invoice" || actions[1].StepID != "reserve" {
		t.Errorf("expected reverse declaration order, got %s, %s", actions[0].StepID, actions[1].StepID)
	}

	types := queue.typesInOrder()
	if len(types) != 2 || types[0] != "void-invoice" || types[1] != "release-stock" {
		t.Errorf("unexpected job order: %v", types)
	}

	// Помечаются только компенсированные результаты.
	for _, res := range results {
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

func TestCompensate_EnqueueFailureDoesNotStopOthers(t *testing.T) {
	queue := newFakeQueue()
	queue.failType("void-invoice")
	c := NewCompensationCoordinator(queue, nil)

	plan := compensablePlan()
	completed := map[string]struct{}{"reserve": {}, "invoice": {}}
	results := []domain.StepResult{
		{StepID: "reserve", Status: domain.StepStatusCompleted},
		{StepID: "invoice", Status: domain.StepStatusCompleted},
	}

	actions := c.Compensate(context.Background(), plan, completed, results)

	// Действие записывается независимо от исхода постановки.
	if len(actions) != 2 {
		t.Fatalf("expected 2 actions, got %d", len(actions))
	}
	if actions[0].Success {
		t.Error("rejected compensation should have success=false")
	}
	if actions[0].Error == "" {
		t.Error("rejected compensation should carry the error")
	}
	if !actions[1].Success {
		t.Errorf("second compensation should succeed: %s", actions[1].Error)
	}

	// Провал одного отката не мешает пометить оба результата.
	for _, res := range results {
		if !res.Compensated {
			t.Errorf("step %s should be marked compensated", res.StepID)
		}
	}
}

func TestCompensate_PayloadIsNotInterpolated(t *testing.T) {
	queue := newFakeQueue()
	c := NewCompensationCoordinator(queue, nil)

	plan := &domain.OrchestrationPlan{
		ID:       "plan-1",
		TenantID: "tenant-1",
		Name:     "literal",
		Steps: []domain.OrchestrationStep{
			{
				ID:     "reserve",
				Name:   "reserve",
				Type:   domain.StepTypeAction,
				Action: &domain.ActionConfig{JobType: "reserve-stock"},
				Compensation: &domain.CompensationSpec{
					JobType: "release-stock",
					Payload: map[string]any{"orderId": "{{ input.orderId }}"},
				},
			},
		},
	}
	completed := map[string]struct{}{"reserve": {}}
	results := []domain.StepResult{{StepID: "reserve", Status: domain.StepStatusCompleted}}

	c.Compensate(context.Background(), plan, completed, results)

	if len(queue.jobs) != 1 {
		t.Fatalf("expected 1 job, got %d", len(queue.jobs))
	}
	// Нагрузка компенсации уходит как объявлена — плейсхолдеры буквальны.
	if queue.jobs[0].desc.Payload["orderId"] != "{{ input.orderId }}" {
		t.Errorf("compensation payload must not be interpolated, got %v", queue.jobs[0].desc.Payload)
	}
	if queue.jobs[0].desc.Metadata["compensationFor"] != "reserve" {
		t.Errorf("expected compensationFor metadata, got %v", queue.jobs[0].desc.Metadata)
	}
}

func TestCompensate_NothingToCompensate(t *testing.T) {
	queue := newFakeQueue()
	c := NewCompensationCoordinator(queue, nil)

	plan := compensablePlan()

	actions := c.Compensate(context.Background(), plan, map[string]struct{}{}, nil)

	if len(actions) != 0 {
		t.Errorf("expected no actions, got %d", len(actions))
	}
	if len(queue.jobs) != 0 {
		t.Errorf("expected no jobs, got %d", len(queue.jobs))
	}
}
