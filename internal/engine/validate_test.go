package engine

import (
	"errors"
	"testing"

	"github.com/shaiso/Conductor/internal/domain"
)

func TestValidatePlan(t *testing.T) {
	tests := []struct {
		name    string
		plan    *domain.OrchestrationPlan
		wantErr error
	}{
		{
			name: "valid plan",
			plan: &domain.OrchestrationPlan{
				Name: "ok",
				Steps: []domain.OrchestrationStep{
					{ID: "a", Type: domain.StepTypeDelay, Delay: &domain.DelayConfig{}},
				},
			},
		},
		{
			name:    "empty name",
			plan:    &domain.OrchestrationPlan{Steps: []domain.OrchestrationStep{{ID: "a"}}},
			wantErr: ErrEmptyPlanName,
		},
		{
			name:    "no steps",
			plan:    &domain.OrchestrationPlan{Name: "empty"},
			wantErr: ErrEmptySteps,
		},
		{
			name: "empty step id",
			plan: &domain.OrchestrationPlan{
				Name:  "bad",
				Steps: []domain.OrchestrationStep{{ID: "a"}, {ID: ""}},
			},
			wantErr: ErrEmptyStepID,
		},
		{
			name: "duplicate step id",
			plan: &domain.OrchestrationPlan{
				Name:  "dup",
				Steps: []domain.OrchestrationStep{{ID: "a"}, {ID: "a"}},
			},
			wantErr: ErrDuplicateStepID,
		},
		{
			// Зависимость на отсутствующий шаг — не ошибка формы:
			// на выполнении она разрешится в skipped.
			name: "dependency on missing step is allowed",
			plan: &domain.OrchestrationPlan{
				Name:  "ghosted",
				Steps: []domain.OrchestrationStep{{ID: "a", DependsOn: []string{"ghost"}}},
			},
		},
		{
			// Нераспознанный тип шага пропускается на выполнении.
			name: "unknown step type is allowed",
			plan: &domain.OrchestrationPlan{
				Name:  "odd",
				Steps: []domain.OrchestrationStep{{ID: "a", Type: "webhook"}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePlan(tt.plan)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Errorf("expected *ValidationError, got %T", err)
			}
		})
	}
}
