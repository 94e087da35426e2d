package dto

type PlaceBetRequest struct {
	Side   string `json:"side"` // "odd" | "even"
	Amount int64  `json:"amount"`
}

type SetOutcomeRequest struct {
	Outcome *int `json:"outcome"` // 0..36
}
