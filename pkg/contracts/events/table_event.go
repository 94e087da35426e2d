package events

import "time"

// Tipos de evento publicados no tópico "table_events"
const (
	TypeBetPlaced         = "bet_placed"
	TypeBetsClosed        = "bets_closed"
	TypeOutcomeSet        = "outcome_set"
	TypeWinningsWithdrawn = "winnings_withdrawn"
	TypeTableClosed       = "table_closed"
)

// TableSnapshot é o estado da mesa logo após a mutação que gerou o evento.
type TableSnapshot struct {
	TableID        string `json:"table_id"`
	Stake          int64  `json:"stake"`
	Operator       string `json:"operator"`
	Phase          string `json:"phase"` // OPEN | CLOSED | SETTLED | TERMINATED
	WinningOutcome *int   `json:"winning_outcome,omitempty"`
	ActiveBets     int    `json:"active_bets"`
	Custody        int64  `json:"custody"`
	Version        uint64 `json:"version"`
}

// TableEvent é emitido pelo table-service a cada operação aceita pela mesa.
type TableEvent struct {
	EventID  string        `json:"event_id"`
	TableID  string        `json:"table_id"`
	Type     string        `json:"type"`
	Actor    string        `json:"actor"`
	Side     string        `json:"side,omitempty"`   // "odd" | "even"
	Amount   int64         `json:"amount,omitempty"` // aposta, prêmio ou valor varrido
	Outcome  *int          `json:"outcome,omitempty"`
	Version  uint64        `json:"version"` // incrementado a cada mutação
	Snapshot TableSnapshot `json:"snapshot"`
	Ts       time.Time     `json:"ts"`
}
