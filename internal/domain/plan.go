package domain

import (
	"time"

	"github.com/google/uuid"
)

// OrchestrationPlan — декларативный план оркестрации: упорядоченный список
// шагов с рёбрами зависимостей, привязанный к тенанту.
//
// JSON-форма плана — контракт платформы (camelCase). Именно в этой форме
// планы передаются между подсистемами и кладутся в очередь на выполнение.
type OrchestrationPlan struct {
	ID       string              `json:"id"`
	TenantID string              `json:"tenantId"`
	Name     string              `json:"name"`
	Steps    []OrchestrationStep `json:"steps"`
}

// Step возвращает шаг плана по идентификатору или nil.
func (p *OrchestrationPlan) Step(id string) *OrchestrationStep {
	for i := range p.Steps {
		if p.Steps[i].ID == id {
			return &p.Steps[i]
		}
	}
	return nil
}

// Plan — сохранённое определение плана.
//
// Хранилище — внутреннее дело сервиса, поэтому записи следуют нашим
// соглашениям (snake_case), а не контракту платформы. В контрактную форму
// запись разворачивается методом ToOrchestration.
type Plan struct {
	// ID — уникальный идентификатор определения.
	ID uuid.UUID `json:"id"`

	// TenantID — тенант, которому принадлежит план.
	TenantID string `json:"tenant_id"`

	// Name — имя плана.
	Name string `json:"name"`

	// Steps — шаги плана в объявленном порядке.
	Steps []OrchestrationStep `json:"steps"`

	// IsActive — неактивные планы нельзя запустить через API.
	IsActive bool `json:"is_active"`

	// CreatedAt — время создания определения.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt — время последнего обновления.
	UpdatedAt time.Time `json:"updated_at"`
}

// ToOrchestration разворачивает сохранённое определение в контрактную
// форму, пригодную для постановки в очередь.
func (p *Plan) ToOrchestration() *OrchestrationPlan {
	return &OrchestrationPlan{
		ID:       p.ID.String(),
		TenantID: p.TenantID,
		Name:     p.Name,
		Steps:    p.Steps,
	}
}
