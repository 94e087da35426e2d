package table

import (
	"fmt"
	"strings"
	"time"
)

// Faixa de números da roleta europeia.
const (
	MinOutcome = 0
	MaxOutcome = 36
)

type Phase uint8

const (
	PhaseOpen Phase = iota
	PhaseClosed
	PhaseSettled
	PhaseTerminated
)

func (p Phase) String() string {
	switch p {
	case PhaseOpen:
		return "OPEN"
	case PhaseClosed:
		return "CLOSED"
	case PhaseSettled:
		return "SETTLED"
	case PhaseTerminated:
		return "TERMINATED"
	default:
		return fmt.Sprintf("Phase(%d)", uint8(p))
	}
}

type Side uint8

const (
	SideOdd Side = iota + 1
	SideEven
)

func (s Side) String() string {
	switch s {
	case SideOdd:
		return "odd"
	case SideEven:
		return "even"
	default:
		return ""
	}
}

// ParseSide aceita "odd" ou "even", sem diferenciar maiúsculas.
func ParseSide(v string) (Side, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "odd":
		return SideOdd, nil
	case "even":
		return SideEven, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidSide, v)
	}
}

// Wins diz se o lado é pago pelo número sorteado. O zero não é par nem
// ímpar para a mesa: fica com a casa.
func (s Side) Wins(outcome int) bool {
	if outcome == 0 {
		return false
	}
	if outcome%2 == 1 {
		return s == SideOdd
	}
	return s == SideEven
}

// Bet é a aposta de um participante. Settled marca que o prêmio já saiu.
type Bet struct {
	Bettor   string
	Side     Side
	Amount   int64
	PlacedAt time.Time
	Settled  bool
}

// Snapshot é a visão de leitura da mesa num dado momento.
type Snapshot struct {
	TableID        string
	Stake          int64
	Operator       string
	Phase          Phase
	WinningOutcome *int
	ActiveBets     int
	Custody        int64
	Version        uint64
}
