// Package models содержит доменные структуры GreenCore API: тарифы, API-ключи,
// платежи, пользователей с одноразовыми токенами входа и записи справочника растений.
package models

import "time"

// FreePlan — имя бесплатного тарифа, который не оплачивается через ЮKassa.
const FreePlan = "free"

// Plan описывает тариф: лимит запросов, размер страницы и доступные фильтры/поля.
type Plan struct {
	Name           string         `json:"name"`
	RequestQuota   *int           `json:"request_quota"`   // nil — без ограничений
	MaxPageSize    int            `json:"max_page_size"`   // потолок limit для /plants
	Price          float64        `json:"price"`           // стоимость в рублях
	AllowedFilters []string       `json:"allowed_filters"` // пусто — все фильтры
	AllowedFields  []string       `json:"allowed_fields"`  // пусто — все поля
	Cooldown       *time.Duration `json:"-"`               // пауза до выдачи нового ключа после исчерпания
}

// IsFree сообщает, что тариф не требует оплаты.
func (p *Plan) IsFree() bool {
	return p.Name == FreePlan || p.Price <= 0
}

// AllowsFilter проверяет, разрешён ли фильтр на тарифе.
func (p *Plan) AllowsFilter(name string) bool {
	if len(p.AllowedFilters) == 0 {
		return true
	}
	for _, f := range p.AllowedFilters {
		if f == name {
			return true
		}
	}
	return false
}
