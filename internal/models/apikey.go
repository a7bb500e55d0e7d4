package models

import "time"

// APIKey — учётная запись ключа доступа.
// Ключи никогда не удаляются физически, только деактивируются.
type APIKey struct {
	ID               int64
	Token            string
	Owner            string // email, IP или метка администратора
	PlanName         string
	Active           bool
	CreatedAt        time.Time
	ExpiresAt        *time.Time
	UsageCount       int
	MaxPageSize      *int // переопределение потолка страницы тарифа
	NextIssueAllowed *time.Time
}

// Expired сообщает, истёк ли ключ к моменту now.
func (k *APIKey) Expired(now time.Time) bool {
	return k.ExpiresAt != nil && !k.ExpiresAt.After(now)
}

// KeyWithPlan — ключ вместе с тарифом. Plan равен nil, если тариф ключа
// отсутствует в справочнике.
type KeyWithPlan struct {
	Key  APIKey
	Plan *Plan
}

// Exhausted сообщает, что лимит тарифа выбран полностью.
func (k *KeyWithPlan) Exhausted() bool {
	if k.Plan == nil || k.Plan.RequestQuota == nil {
		return false
	}
	return k.Key.UsageCount >= *k.Plan.RequestQuota
}

// Reservation — единица лимита, списанная при допуске запроса.
// Exhausted означает, что именно это списание исчерпало лимит и деактивировало ключ.
// PrevNextIssue хранит next_issue_allowed до списания, NextIssue — значение,
// оставленное списанием. По ним возврат отличает собственную деактивацию
// от изменений, сделанных после неё.
type Reservation struct {
	KeyID         int64
	Exhausted     bool
	PrevNextIssue *time.Time
	NextIssue     *time.Time
}

// IssuedKey — ответ на выдачу ключа.
type IssuedKey struct {
	APIKey    string     `json:"api_key"`
	Owner     string     `json:"owner"`
	Plan      string     `json:"plan"`
	ExpiresAt *time.Time `json:"expires_at"`
}

// Grant — права допущенного запроса: потолок страницы и разрешённые фильтры/поля.
// Пустые списки означают отсутствие ограничений.
type Grant struct {
	KeyID          int64
	PlanName       string
	PageCap        int
	AllowedFilters []string
	AllowedFields  []string
}
