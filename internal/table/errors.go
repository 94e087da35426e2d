package table

import (
	"errors"
	"fmt"
)

// Tipos de erro da mesa. Mensagens específicas embrulham um destes com %w,
// então o chamador compara com errors.Is.
var (
	ErrUnauthorized        = errors.New("unauthorized")
	ErrInvalidPhase        = errors.New("invalid phase")
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrDuplicateBet        = errors.New("duplicate bet")
	ErrInvalidOutcome      = errors.New("invalid outcome")
	ErrNothingToWithdraw   = errors.New("nothing to withdraw")
	ErrInsufficientCustody = errors.New("insufficient custody")
	ErrTerminated          = errors.New("table terminated")
	ErrInvalidStake        = errors.New("invalid stake")
	ErrInvalidSide         = errors.New("invalid side")

	// ErrInsufficientFunds é devolvido pelo Ledger quando a carteira do
	// apostador não cobre a aposta.
	ErrInsufficientFunds = errors.New("insufficient funds")
)

var (
	errMissingCaller      = fmt.Errorf("%w: caller identity required", ErrUnauthorized)
	errHouseMayNotWager   = fmt.Errorf("%w: house may not wager", ErrUnauthorized)
	errOperatorOnly       = fmt.Errorf("%w: operator only", ErrUnauthorized)
	errHouseMayNotDraw    = fmt.Errorf("%w: house may not withdraw winnings", ErrUnauthorized)
	errBettingNotOpen     = fmt.Errorf("%w: betting not open", ErrInvalidPhase)
	errTableMustBeClosed  = fmt.Errorf("%w: table must be closed", ErrInvalidPhase)
	errPayoutInFlight     = fmt.Errorf("%w: payout in flight", ErrInvalidPhase)
	errStakeMismatch      = fmt.Errorf("%w: must match table stake", ErrInvalidAmount)
	errAlreadyPlaced      = fmt.Errorf("%w: already placed a bet", ErrDuplicateBet)
	errOutcomeAlreadySet  = fmt.Errorf("%w: outcome already set", ErrInvalidOutcome)
	errOutcomeOutOfRange  = fmt.Errorf("%w: outcome must be between %d and %d", ErrInvalidOutcome, MinOutcome, MaxOutcome)
	errNoWithdrawable     = fmt.Errorf("%w: no withdrawable winnings", ErrNothingToWithdraw)
	errPoolCannotCoverWin = fmt.Errorf("%w: pool cannot cover payout", ErrInsufficientCustody)
)

var kinds = []struct {
	err  error
	name string
}{
	{ErrTerminated, "terminated"},
	{ErrUnauthorized, "unauthorized"},
	{ErrInvalidPhase, "invalid_phase"},
	{ErrInvalidAmount, "invalid_amount"},
	{ErrDuplicateBet, "duplicate_bet"},
	{ErrInvalidOutcome, "invalid_outcome"},
	{ErrNothingToWithdraw, "nothing_to_withdraw"},
	{ErrInsufficientCustody, "insufficient_custody"},
	{ErrInvalidStake, "invalid_stake"},
	{ErrInvalidSide, "invalid_side"},
	{ErrInsufficientFunds, "insufficient_funds"},
}

// Kind devolve o nome do tipo de erro, usado em respostas HTTP e métricas.
// Erros que não vêm da mesa (ledger, rede) são "internal".
func Kind(err error) string {
	if err == nil {
		return ""
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.name
		}
	}
	return "internal"
}
