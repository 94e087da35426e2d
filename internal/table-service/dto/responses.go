package dto

type TableResponse struct {
	TableID        string `json:"tableId"`
	Stake          int64  `json:"stake"`
	Operator       string `json:"operator"`
	Phase          string `json:"phase"`
	WinningOutcome *int   `json:"winningOutcome,omitempty"`
	ActiveBets     int    `json:"activeBets"`
	Custody        int64  `json:"custody"`
	Version        uint64 `json:"version"`
}

type StakeResponse struct {
	Stake int64 `json:"stake"`
}

type OutcomeResponse struct {
	Outcome *int `json:"outcome"`
	Set     bool `json:"set"`
}

type HasBetResponse struct {
	Account string `json:"account"`
	HasBet  bool   `json:"hasBet"`
}

type AmountResponse struct {
	Account string `json:"account"`
	Amount  int64  `json:"amount"`
}

type CloseTableResponse struct {
	Swept int64 `json:"swept"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}
