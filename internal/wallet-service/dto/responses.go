package dto

type WalletResponse struct {
	UserID       string `json:"userId"`
	WalletID     string `json:"walletId"`
	BalanceCents int64  `json:"balance_cents"`
}

type MoveResponse struct {
	UserID       string `json:"userId"`
	ExternalRef  string `json:"external_ref"`
	BalanceCents int64  `json:"balance_cents"`
	Status       string `json:"status"` // DEBITED | CREDITED
}

type ErrorResponse struct {
	Error string `json:"error"`
}
