package paymentprovider

import "time"

// Amount — денежная сумма в формате ЮKassa ("490.00", "RUB").
type Amount struct {
	Value    string `json:"value"`
	Currency string `json:"currency"`
}

// Confirmation — способ подтверждения платежа.
type Confirmation struct {
	Type            string `json:"type"`
	ReturnURL       string `json:"return_url,omitempty"`
	ConfirmationURL string `json:"confirmation_url,omitempty"`
}

// CreatePaymentRequest — тело POST /payments.
type CreatePaymentRequest struct {
	Amount       Amount            `json:"amount"`
	Capture      bool              `json:"capture"`
	Confirmation Confirmation      `json:"confirmation"`
	Description  string            `json:"description,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

// Payment — объект платежа в ответах и уведомлениях ЮKassa.
type Payment struct {
	ID           string            `json:"id"`
	Status       string            `json:"status"`
	Amount       Amount            `json:"amount"`
	Confirmation *Confirmation     `json:"confirmation,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
}

// Notification — тело HTTP-уведомления (вебхука) ЮKassa.
type Notification struct {
	Type   string  `json:"type"`
	Event  string  `json:"event"`
	Object Payment `json:"object"`
}
