package models

import "time"

// Статусы платежа.
const (
	PaymentPending   = "pending"
	PaymentSucceeded = "succeeded"
	PaymentFailed    = "failed"
	PaymentCanceled  = "canceled"
)

// PendingPayment — платёж, ожидающий подтверждения от ЮKassa.
// APIKey выставляется не более одного раза.
type PendingPayment struct {
	PaymentID string     `json:"payment_id"`
	PlanName  string     `json:"plan"`
	Email     string     `json:"email"`
	Amount    float64    `json:"amount"`
	Status    string     `json:"status"`
	APIKey    *string    `json:"api_key,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	PaidAt    *time.Time `json:"paid_at,omitempty"`
}

// PaymentSession — результат создания платежа.
type PaymentSession struct {
	PaymentID       string `json:"payment_id"`
	ConfirmationURL string `json:"confirmation_url"`
}

// Fulfillment — результат обработки вебхука.
type Fulfillment struct {
	PaymentID string
	Status    string
	Email     string
	PlanName  string
	Found     bool   // платёж известен
	Issued    bool   // в этой обработке выпущен новый ключ
	APIKey    string // выпущенный ключ, если Issued
}
