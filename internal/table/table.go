package table

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/radieske/roulette-table-poc/pkg/contracts/events"
)

// Ledger movimenta o dinheiro real entre as carteiras e a custódia da mesa.
// ref é estável por operação, então o outro lado pode tratar repetição.
type Ledger interface {
	Hold(ctx context.Context, account string, amount int64, ref string) error
	Release(ctx context.Context, account string, amount int64, ref string) error
}

// Publisher recebe os eventos das operações aceitas.
type Publisher interface {
	Publish(ctx context.Context, e events.TableEvent) error
}

// Hooks são callbacks de métricas; todos opcionais.
type Hooks struct {
	OnBetPlaced func(side Side)
	OnRejected  func(op, kind string)
	OnPayout    func(amount int64)
	OnCustody   func(balance int64)
	OnPhase     func(p Phase)
}

// Deps agrupa os colaboradores da mesa. Campos nil viram no-op.
type Deps struct {
	Ledger    Ledger
	Publisher Publisher
	Log       *zap.Logger
	Hooks     Hooks
	Now       func() time.Time
}

// Table é a mesa única de par/ímpar. Toda mutação passa pelo mu em modo
// escrita; consultas usam modo leitura.
type Table struct {
	mu sync.RWMutex

	id       string
	stake    int64
	operator string

	phase      Phase
	outcome    int
	outcomeSet bool
	bets       map[string]*Bet
	custody    int64
	inflight   int
	version    uint64
	outbox     []events.TableEvent

	pubMu sync.Mutex // serializa flush; nunca pego com mu em mãos

	ledger Ledger
	publ   Publisher
	log    *zap.Logger
	hooks  Hooks
	now    func() time.Time
}

// New cria a mesa aberta para apostas. stake precisa ser positivo.
func New(id string, stake int64, operator string, d Deps) (*Table, error) {
	if stake <= 0 {
		return nil, fmt.Errorf("%w: stake must be positive, got %d", ErrInvalidStake, stake)
	}
	if operator == "" {
		return nil, fmt.Errorf("%w: operator identity required", ErrUnauthorized)
	}
	if id == "" {
		id = uuid.NewString()
	}
	t := &Table{
		id:       id,
		stake:    stake,
		operator: operator,
		phase:    PhaseOpen,
		bets:     make(map[string]*Bet),
		ledger:   d.Ledger,
		publ:     d.Publisher,
		log:      d.Log,
		hooks:    d.Hooks,
		now:      d.Now,
	}
	if t.ledger == nil {
		t.ledger = nopLedger{}
	}
	if t.log == nil {
		t.log = zap.NewNop()
	}
	if t.now == nil {
		t.now = time.Now
	}
	t.log = t.log.With(zap.String("table_id", id))
	return t, nil
}

// ID identifica a mesa; também prefixa as refs enviadas ao ledger.
func (t *Table) ID() string { return t.id }

// Operator devolve a identidade da casa.
func (t *Table) Operator() string { return t.operator }

// Stake devolve o valor fixo de aposta da mesa.
func (t *Table) Stake() (int64, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.phase == PhaseTerminated {
		return 0, ErrTerminated
	}
	return t.stake, nil
}

// HasBet diz se a identidade tem aposta ativa (não sacada).
func (t *Table) HasBet(identity string) (bool, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.phase == PhaseTerminated {
		return false, ErrTerminated
	}
	b, ok := t.bets[identity]
	return ok && !b.Settled, nil
}

// WinningOutcome devolve o número sorteado e se ele já foi definido.
func (t *Table) WinningOutcome() (int, bool, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.phase == PhaseTerminated {
		return 0, false, ErrTerminated
	}
	return t.outcome, t.outcomeSet, nil
}

// Withdrawable calcula o prêmio sacável, função pura do estado.
func (t *Table) Withdrawable(identity string) (int64, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.phase == PhaseTerminated {
		return 0, ErrTerminated
	}
	return t.payoutLocked(identity), nil
}

// Snapshot devolve a visão de leitura atual da mesa.
func (t *Table) Snapshot() (Snapshot, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.phase == PhaseTerminated {
		return Snapshot{}, ErrTerminated
	}
	return t.snapshotLocked(), nil
}

// PlaceBet registra a aposta de caller e leva o valor para a custódia.
func (t *Table) PlaceBet(ctx context.Context, caller string, side Side, amount int64) error {
	t.mu.Lock()
	err := t.checkParticipant(caller, errHouseMayNotWager)
	if err == nil && t.phase != PhaseOpen {
		err = errBettingNotOpen
	}
	if err == nil && side != SideOdd && side != SideEven {
		err = fmt.Errorf("%w: side must be odd or even", ErrInvalidSide)
	}
	if err == nil && amount != t.stake {
		err = errStakeMismatch
	}
	if err == nil {
		if _, ok := t.bets[caller]; ok {
			err = errAlreadyPlaced
		}
	}
	if err == nil {
		ref := fmt.Sprintf("%s:bet:%s", t.id, caller)
		if herr := t.ledger.Hold(ctx, caller, amount, ref); herr != nil {
			err = fmt.Errorf("hold stake: %w", herr)
		}
	}
	if err != nil {
		t.mu.Unlock()
		t.reject("place_bet", caller, err)
		return err
	}

	t.bets[caller] = &Bet{Bettor: caller, Side: side, Amount: amount, PlacedAt: t.now()}
	t.custody += amount
	ev := t.eventLocked(events.TypeBetPlaced, caller)
	ev.Side = side.String()
	ev.Amount = amount
	t.enqueueLocked(ev)
	balance := t.custody
	t.mu.Unlock()

	t.log.Info("bet placed", zap.String("bettor", caller), zap.Stringer("side", side), zap.Int64("amount", amount))
	if t.hooks.OnBetPlaced != nil {
		t.hooks.OnBetPlaced(side)
	}
	t.custodyChanged(balance)
	t.flush(ctx)
	return nil
}

// CloseBets congela as apostas. Mesa sem apostas também pode fechar.
func (t *Table) CloseBets(ctx context.Context, caller string) error {
	t.mu.Lock()
	err := t.checkOperator(caller)
	if err == nil && t.phase != PhaseOpen {
		err = errBettingNotOpen
	}
	if err != nil {
		t.mu.Unlock()
		t.reject("close_bets", caller, err)
		return err
	}

	t.phase = PhaseClosed
	ev := t.eventLocked(events.TypeBetsClosed, caller)
	t.enqueueLocked(ev)
	t.mu.Unlock()

	t.log.Info("bets closed", zap.Int("bets", ev.Snapshot.ActiveBets))
	t.phaseChanged(PhaseClosed)
	t.flush(ctx)
	return nil
}

// SetWinningOutcome fixa o número sorteado e libera os saques.
func (t *Table) SetWinningOutcome(ctx context.Context, caller string, n int) error {
	t.mu.Lock()
	err := t.checkOperator(caller)
	if err == nil {
		switch {
		case t.phase == PhaseOpen:
			err = errTableMustBeClosed
		case t.outcomeSet:
			err = errOutcomeAlreadySet
		case n < MinOutcome || n > MaxOutcome:
			err = errOutcomeOutOfRange
		}
	}
	if err != nil {
		t.mu.Unlock()
		t.reject("set_outcome", caller, err)
		return err
	}

	t.outcome = n
	t.outcomeSet = true
	t.phase = PhaseSettled
	ev := t.eventLocked(events.TypeOutcomeSet, caller)
	ev.Outcome = &n
	t.enqueueLocked(ev)
	t.mu.Unlock()

	t.log.Info("winning outcome set", zap.Int("outcome", n))
	t.phaseChanged(PhaseSettled)
	t.flush(ctx)
	return nil
}

// Withdraw paga o prêmio de caller em duas etapas: primeiro grava a marca de
// pago e debita a custódia sob o lock, depois solta o lock e transfere.
// Se a transferência falhar a marca é desfeita.
func (t *Table) Withdraw(ctx context.Context, caller string) (int64, error) {
	t.mu.Lock()
	err := t.checkParticipant(caller, errHouseMayNotDraw)
	var payout int64
	if err == nil {
		payout = t.payoutLocked(caller)
		switch {
		case payout == 0:
			err = errNoWithdrawable
		case payout > t.custody:
			err = errPoolCannotCoverWin
		}
	}
	if err != nil {
		t.mu.Unlock()
		t.reject("withdraw", caller, err)
		return 0, err
	}

	// etapa 1: commit
	bet := t.bets[caller]
	bet.Settled = true
	t.custody -= payout
	t.inflight++
	t.mu.Unlock()

	// etapa 2: transferência
	ref := fmt.Sprintf("%s:payout:%s", t.id, caller)
	if rerr := t.ledger.Release(ctx, caller, payout, ref); rerr != nil {
		t.mu.Lock()
		bet.Settled = false
		t.custody += payout
		t.inflight--
		t.mu.Unlock()
		err = fmt.Errorf("release payout: %w", rerr)
		t.reject("withdraw", caller, err)
		return 0, err
	}

	t.mu.Lock()
	t.inflight--
	ev := t.eventLocked(events.TypeWinningsWithdrawn, caller)
	ev.Side = bet.Side.String()
	ev.Amount = payout
	t.enqueueLocked(ev)
	balance := t.custody
	t.mu.Unlock()

	t.log.Info("winnings withdrawn", zap.String("bettor", caller), zap.Int64("amount", payout))
	if t.hooks.OnPayout != nil {
		t.hooks.OnPayout(payout)
	}
	t.custodyChanged(balance)
	t.flush(ctx)
	return payout, nil
}

// CloseTable encerra a mesa e varre o que sobrou na custódia para o operador.
func (t *Table) CloseTable(ctx context.Context, caller string) (int64, error) {
	t.mu.Lock()
	err := t.checkOperator(caller)
	if err == nil && t.inflight > 0 {
		err = errPayoutInFlight
	}
	swept := t.custody
	if err == nil && swept > 0 {
		ref := fmt.Sprintf("%s:sweep", t.id)
		if rerr := t.ledger.Release(ctx, t.operator, swept, ref); rerr != nil {
			err = fmt.Errorf("sweep custody: %w", rerr)
		}
	}
	if err != nil {
		t.mu.Unlock()
		t.reject("close_table", caller, err)
		return 0, err
	}

	t.custody = 0
	t.phase = PhaseTerminated
	ev := t.eventLocked(events.TypeTableClosed, caller)
	ev.Amount = swept
	t.enqueueLocked(ev)
	t.mu.Unlock()

	t.log.Info("table closed", zap.Int64("swept", swept))
	t.custodyChanged(0)
	t.phaseChanged(PhaseTerminated)
	t.flush(ctx)
	return swept, nil
}

// checkOperator e checkParticipant rodam sob o lock. Término vem antes do
// papel; o papel vem antes de qualquer outra validação.
func (t *Table) checkOperator(caller string) error {
	if t.phase == PhaseTerminated {
		return ErrTerminated
	}
	if caller == "" {
		return errMissingCaller
	}
	if caller != t.operator {
		return errOperatorOnly
	}
	return nil
}

func (t *Table) checkParticipant(caller string, houseErr error) error {
	if t.phase == PhaseTerminated {
		return ErrTerminated
	}
	if caller == "" {
		return errMissingCaller
	}
	if caller == t.operator {
		return houseErr
	}
	return nil
}

func (t *Table) payoutLocked(identity string) int64 {
	if t.phase != PhaseSettled || !t.outcomeSet {
		return 0
	}
	b, ok := t.bets[identity]
	if !ok || b.Settled || !b.Side.Wins(t.outcome) {
		return 0
	}
	return 2 * t.stake
}

func (t *Table) snapshotLocked() Snapshot {
	s := Snapshot{
		TableID:  t.id,
		Stake:    t.stake,
		Operator: t.operator,
		Phase:    t.phase,
		Custody:  t.custody,
		Version:  t.version,
	}
	if t.outcomeSet {
		n := t.outcome
		s.WinningOutcome = &n
	}
	for _, b := range t.bets {
		if !b.Settled {
			s.ActiveBets++
		}
	}
	return s
}

// eventLocked incrementa a versão e monta o evento com o snapshot novo.
func (t *Table) eventLocked(typ, actor string) events.TableEvent {
	t.version++
	s := t.snapshotLocked()
	return events.TableEvent{
		EventID: uuid.NewString(),
		TableID: t.id,
		Type:    typ,
		Actor:   actor,
		Version: t.version,
		Snapshot: events.TableSnapshot{
			TableID:        s.TableID,
			Stake:          s.Stake,
			Operator:       s.Operator,
			Phase:          s.Phase.String(),
			WinningOutcome: s.WinningOutcome,
			ActiveBets:     s.ActiveBets,
			Custody:        s.Custody,
			Version:        s.Version,
		},
		Ts: t.now(),
	}
}

// enqueueLocked guarda o evento na fila de saída, já em ordem de versão.
func (t *Table) enqueueLocked(e events.TableEvent) {
	if t.publ == nil {
		return
	}
	t.outbox = append(t.outbox, e)
}

// flush drena a fila de saída. pubMu garante que só um flush publica por
// vez, então os eventos saem na ordem das versões mesmo com operações
// concorrentes. Ordem de locks: pubMu antes de mu.
// Falha de publish nunca falha a operação; o evento perdido só é logado.
func (t *Table) flush(ctx context.Context) {
	if t.publ == nil {
		return
	}
	t.pubMu.Lock()
	defer t.pubMu.Unlock()

	t.mu.Lock()
	pending := t.outbox
	t.outbox = nil
	t.mu.Unlock()

	// eventos de outras operações podem estar no lote; não herdam o cancelamento de quem drena
	ctx = context.WithoutCancel(ctx)
	for _, e := range pending {
		if err := t.publ.Publish(ctx, e); err != nil {
			t.log.Warn("publish table event failed", zap.String("type", e.Type), zap.Uint64("version", e.Version), zap.Error(err))
		}
	}
}

func (t *Table) reject(op, caller string, err error) {
	kind := Kind(err)
	if kind == "internal" {
		t.log.Error("operation failed", zap.String("op", op), zap.String("caller", caller), zap.Error(err))
	} else {
		t.log.Debug("operation rejected", zap.String("op", op), zap.String("caller", caller), zap.String("kind", kind), zap.Error(err))
	}
	if t.hooks.OnRejected != nil {
		t.hooks.OnRejected(op, kind)
	}
}

func (t *Table) custodyChanged(balance int64) {
	if t.hooks.OnCustody != nil {
		t.hooks.OnCustody(balance)
	}
}

func (t *Table) phaseChanged(p Phase) {
	if t.hooks.OnPhase != nil {
		t.hooks.OnPhase(p)
	}
}

// nopLedger mantém a custódia só no estado da mesa.
type nopLedger struct{}

func (nopLedger) Hold(context.Context, string, int64, string) error    { return nil }
func (nopLedger) Release(context.Context, string, int64, string) error { return nil }
