package dto

// MoveRequest representa o payload de debit/credit no wallet-service.
type MoveRequest struct {
	UserID      string `json:"userId"`
	AmountCents int64  `json:"amount_cents"`
	ExternalRef string `json:"external_ref"`
}

// MoveResponse representa a resposta de debit/credit do wallet-service.
type MoveResponse struct {
	BalanceCents int64  `json:"balance_cents"`
	Status       string `json:"status"`
}
