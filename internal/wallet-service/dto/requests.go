package dto

type DepositRequest struct {
	UserID      string `json:"userId"`
	AmountCents int64  `json:"amount_cents"`
	ExternalRef string `json:"external_ref,omitempty"` // opcional p/ idempotência simples
}

// MoveRequest é usado por debit e credit. ExternalRef é obrigatório:
// a mesa manda "<table>:bet:<conta>", "<table>:payout:<conta>" ou "<table>:sweep".
type MoveRequest struct {
	UserID      string `json:"userId"`
	AmountCents int64  `json:"amount_cents"`
	ExternalRef string `json:"external_ref"`
}
