package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/radieske/roulette-table-poc/internal/table"
	"github.com/radieske/roulette-table-poc/internal/table-service/dto"
	"github.com/radieske/roulette-table-poc/pkg/contracts/events"
)

// CallerHeader carrega a identidade de quem chama, já resolvida pela camada
// de apresentação.
const CallerHeader = "X-Account-ID"

// Snapshots lê a projeção mantida pelo table-projector (cache Redis)
type Snapshots interface {
	GetSnapshot(ctx context.Context, tableID string) (events.TableSnapshot, bool, error)
}

type Server struct {
	log   *zap.Logger
	table *table.Table
	ws    http.Handler
	snaps Snapshots
}

// NewServer recebe a mesa e, opcionalmente, o handler do feed websocket e
// o leitor da projeção.
func NewServer(log *zap.Logger, t *table.Table, ws http.Handler, snaps Snapshots) *Server {
	return &Server{log: log, table: t, ws: ws, snaps: snaps}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Route("/v1/table", func(r chi.Router) {
		r.Get("/", s.getTable)
		r.Get("/stake", s.getStake)
		r.Get("/outcome", s.getOutcome)
		r.Post("/outcome", s.setOutcome) // operador
		r.Post("/bets", s.placeBet)
		r.Get("/bets/{account}", s.hasBet)
		r.Post("/close-bets", s.closeBets) // operador
		r.Get("/withdrawable/{account}", s.withdrawable)
		r.Post("/withdraw", s.withdraw)
		r.Post("/close", s.closeTable) // operador
		if s.ws != nil {
			r.Get("/ws", s.ws.ServeHTTP)
		}
	})

	// projeção de qualquer mesa, inclusive de boots anteriores já encerrados
	if s.snaps != nil {
		r.Get("/v1/tables/{id}", s.getProjected)
	}
	return r
}

func (s *Server) getProjected(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	snap, ok, err := s.snaps.GetSnapshot(r.Context(), id)
	if err != nil {
		s.log.Error("snapshot cache read failed", zap.String("table_id", id), zap.Error(err))
		writeJSON(w, http.StatusBadGateway, dto.ErrorResponse{Error: "snapshot cache unavailable", Kind: "internal"})
		return
	}
	if !ok {
		writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "table not projected", Kind: "not_found"})
		return
	}
	writeJSON(w, http.StatusOK, dto.TableResponse{
		TableID:        snap.TableID,
		Stake:          snap.Stake,
		Operator:       snap.Operator,
		Phase:          snap.Phase,
		WinningOutcome: snap.WinningOutcome,
		ActiveBets:     snap.ActiveBets,
		Custody:        snap.Custody,
		Version:        snap.Version,
	})
}

func (s *Server) getTable(w http.ResponseWriter, r *http.Request) {
	snap, err := s.table.Snapshot()
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.TableResponse{
		TableID:        snap.TableID,
		Stake:          snap.Stake,
		Operator:       snap.Operator,
		Phase:          snap.Phase.String(),
		WinningOutcome: snap.WinningOutcome,
		ActiveBets:     snap.ActiveBets,
		Custody:        snap.Custody,
		Version:        snap.Version,
	})
}

func (s *Server) getStake(w http.ResponseWriter, r *http.Request) {
	stake, err := s.table.Stake()
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.StakeResponse{Stake: stake})
}

func (s *Server) getOutcome(w http.ResponseWriter, r *http.Request) {
	n, set, err := s.table.WinningOutcome()
	if err != nil {
		s.fail(w, err)
		return
	}
	resp := dto.OutcomeResponse{Set: set}
	if set {
		resp.Outcome = &n
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) placeBet(w http.ResponseWriter, r *http.Request) {
	var req dto.PlaceBetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "bad json", Kind: "bad_request"})
		return
	}
	side, err := table.ParseSide(req.Side)
	if err != nil {
		s.fail(w, err)
		return
	}
	if err := s.table.PlaceBet(r.Context(), caller(r), side, req.Amount); err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, dto.HasBetResponse{Account: caller(r), HasBet: true})
}

func (s *Server) hasBet(w http.ResponseWriter, r *http.Request) {
	account := chi.URLParam(r, "account")
	ok, err := s.table.HasBet(account)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.HasBetResponse{Account: account, HasBet: ok})
}

func (s *Server) closeBets(w http.ResponseWriter, r *http.Request) {
	if err := s.table.CloseBets(r.Context(), caller(r)); err != nil {
		s.fail(w, err)
		return
	}
	s.getTable(w, r)
}

func (s *Server) setOutcome(w http.ResponseWriter, r *http.Request) {
	var req dto.SetOutcomeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Outcome == nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "outcome required", Kind: "bad_request"})
		return
	}
	if err := s.table.SetWinningOutcome(r.Context(), caller(r), *req.Outcome); err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.OutcomeResponse{Outcome: req.Outcome, Set: true})
}

func (s *Server) withdrawable(w http.ResponseWriter, r *http.Request) {
	account := chi.URLParam(r, "account")
	amount, err := s.table.Withdrawable(account)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.AmountResponse{Account: account, Amount: amount})
}

func (s *Server) withdraw(w http.ResponseWriter, r *http.Request) {
	who := caller(r)
	amount, err := s.table.Withdraw(r.Context(), who)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.AmountResponse{Account: who, Amount: amount})
}

func (s *Server) closeTable(w http.ResponseWriter, r *http.Request) {
	swept, err := s.table.CloseTable(r.Context(), caller(r))
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.CloseTableResponse{Swept: swept})
}

func (s *Server) fail(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.log.Error("table operation failed", zap.Error(err))
	}
	writeJSON(w, status, dto.ErrorResponse{Error: err.Error(), Kind: table.Kind(err)})
}

// statusFor traduz o tipo de erro da mesa para HTTP. Saldo insuficiente é
// 402; demais erros de ledger (wallet fora) viram 502.
func statusFor(err error) int {
	switch {
	case errors.Is(err, table.ErrTerminated):
		return http.StatusGone
	case errors.Is(err, table.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, table.ErrInvalidAmount), errors.Is(err, table.ErrInvalidSide):
		return http.StatusBadRequest
	case errors.Is(err, table.ErrInsufficientFunds):
		return http.StatusPaymentRequired
	case errors.Is(err, table.ErrInvalidOutcome):
		return http.StatusUnprocessableEntity
	case errors.Is(err, table.ErrInvalidPhase),
		errors.Is(err, table.ErrDuplicateBet),
		errors.Is(err, table.ErrNothingToWithdraw),
		errors.Is(err, table.ErrInsufficientCustody):
		return http.StatusConflict
	default:
		return http.StatusBadGateway
	}
}

func caller(r *http.Request) string { return r.Header.Get(CallerHeader) }

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
