package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/radieske/roulette-table-poc/internal/table"
	"github.com/radieske/roulette-table-poc/internal/table-service/dto"
	"github.com/radieske/roulette-table-poc/pkg/contracts/events"
)

const house = "croupier"

type stubLedger struct{ err error }

func (l stubLedger) Hold(context.Context, string, int64, string) error    { return l.err }
func (l stubLedger) Release(context.Context, string, int64, string) error { return l.err }

func newHandler(t *testing.T, l table.Ledger) http.Handler {
	t.Helper()
	tb, err := table.New("t1", 10, house, table.Deps{Ledger: l})
	require.NoError(t, err)
	return NewServer(zap.NewNop(), tb, nil, nil).Router()
}

func call(t *testing.T, h http.Handler, method, path, who, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if who != "" {
		req.Header.Set(CallerHeader, who)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v))
	return v
}

func TestRound(t *testing.T) {
	h := newHandler(t, stubLedger{})

	rec := call(t, h, http.MethodGet, "/v1/table/stake", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(10), decode[dto.StakeResponse](t, rec).Stake)

	require.Equal(t, http.StatusCreated, call(t, h, http.MethodPost, "/v1/table/bets", "alice", `{"side":"odd","amount":10}`).Code)
	require.Equal(t, http.StatusCreated, call(t, h, http.MethodPost, "/v1/table/bets", "bob", `{"side":"even","amount":10}`).Code)
	require.Equal(t, http.StatusCreated, call(t, h, http.MethodPost, "/v1/table/bets", "carol", `{"side":"even","amount":10}`).Code)

	rec = call(t, h, http.MethodGet, "/v1/table/bets/alice", "", "")
	assert.True(t, decode[dto.HasBetResponse](t, rec).HasBet)

	require.Equal(t, http.StatusOK, call(t, h, http.MethodPost, "/v1/table/close-bets", house, "").Code)
	require.Equal(t, http.StatusOK, call(t, h, http.MethodPost, "/v1/table/outcome", house, `{"outcome":5}`).Code)

	rec = call(t, h, http.MethodGet, "/v1/table/outcome", "", "")
	out := decode[dto.OutcomeResponse](t, rec)
	require.NotNil(t, out.Outcome)
	assert.Equal(t, 5, *out.Outcome)

	for who, want := range map[string]int64{"alice": 20, "bob": 0, "carol": 0} {
		rec = call(t, h, http.MethodGet, "/v1/table/withdrawable/"+who, "", "")
		assert.Equal(t, want, decode[dto.AmountResponse](t, rec).Amount, who)
	}

	rec = call(t, h, http.MethodPost, "/v1/table/withdraw", "alice", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(20), decode[dto.AmountResponse](t, rec).Amount)

	rec = call(t, h, http.MethodPost, "/v1/table/withdraw", "alice", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "nothing_to_withdraw", decode[dto.ErrorResponse](t, rec).Kind)

	rec = call(t, h, http.MethodGet, "/v1/table", "", "")
	snap := decode[dto.TableResponse](t, rec)
	assert.Equal(t, "SETTLED", snap.Phase)
	assert.Equal(t, int64(10), snap.Custody)

	rec = call(t, h, http.MethodPost, "/v1/table/close", house, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(10), decode[dto.CloseTableResponse](t, rec).Swept)

	rec = call(t, h, http.MethodGet, "/v1/table/stake", "", "")
	assert.Equal(t, http.StatusGone, rec.Code)
}

func TestErrorStatus(t *testing.T) {
	h := newHandler(t, stubLedger{})

	cases := []struct {
		name   string
		method string
		path   string
		who    string
		body   string
		status int
		kind   string
	}{
		{"house bets", http.MethodPost, "/v1/table/bets", house, `{"side":"odd","amount":10}`, http.StatusForbidden, "unauthorized"},
		{"no caller", http.MethodPost, "/v1/table/bets", "", `{"side":"odd","amount":10}`, http.StatusForbidden, "unauthorized"},
		{"wrong amount", http.MethodPost, "/v1/table/bets", "bob", `{"side":"odd","amount":11}`, http.StatusBadRequest, "invalid_amount"},
		{"wrong side", http.MethodPost, "/v1/table/bets", "bob", `{"side":"red","amount":10}`, http.StatusBadRequest, "invalid_side"},
		{"outcome while open", http.MethodPost, "/v1/table/outcome", house, `{"outcome":5}`, http.StatusConflict, "invalid_phase"},
		{"participant closes", http.MethodPost, "/v1/table/close-bets", "bob", "", http.StatusForbidden, "unauthorized"},
		{"house withdraws", http.MethodPost, "/v1/table/withdraw", house, "", http.StatusForbidden, "unauthorized"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := call(t, h, tc.method, tc.path, tc.who, tc.body)
			assert.Equal(t, tc.status, rec.Code)
			assert.Equal(t, tc.kind, decode[dto.ErrorResponse](t, rec).Kind)
		})
	}

	rec := call(t, h, http.MethodPost, "/v1/table/outcome", house, `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	require.Equal(t, http.StatusCreated, call(t, h, http.MethodPost, "/v1/table/bets", "bob", `{"side":"odd","amount":10}`).Code)
	rec = call(t, h, http.MethodPost, "/v1/table/bets", "bob", `{"side":"even","amount":10}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "duplicate_bet", decode[dto.ErrorResponse](t, rec).Kind)

	require.Equal(t, http.StatusOK, call(t, h, http.MethodPost, "/v1/table/close-bets", house, "").Code)
	rec = call(t, h, http.MethodPost, "/v1/table/outcome", house, `{"outcome":40}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestLedgerFailure(t *testing.T) {
	h := newHandler(t, stubLedger{err: errors.New("wallet down")})

	rec := call(t, h, http.MethodPost, "/v1/table/bets", "bob", `{"side":"odd","amount":10}`)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "internal", decode[dto.ErrorResponse](t, rec).Kind)

	rec = call(t, h, http.MethodGet, "/v1/table/bets/bob", "", "")
	assert.False(t, decode[dto.HasBetResponse](t, rec).HasBet)
}

func TestInsufficientFunds(t *testing.T) {
	h := newHandler(t, stubLedger{err: fmt.Errorf("wallet: %w", table.ErrInsufficientFunds)})

	rec := call(t, h, http.MethodPost, "/v1/table/bets", "bob", `{"side":"odd","amount":10}`)
	assert.Equal(t, http.StatusPaymentRequired, rec.Code)
	assert.Equal(t, "insufficient_funds", decode[dto.ErrorResponse](t, rec).Kind)
}

type memSnapshots struct {
	err  error
	byID map[string]events.TableSnapshot
}

func (m memSnapshots) GetSnapshot(_ context.Context, id string) (events.TableSnapshot, bool, error) {
	if m.err != nil {
		return events.TableSnapshot{}, false, m.err
	}
	s, ok := m.byID[id]
	return s, ok, nil
}

func TestProjectedSnapshot(t *testing.T) {
	tb, err := table.New("t2", 10, house, table.Deps{})
	require.NoError(t, err)
	n := 7
	snaps := memSnapshots{byID: map[string]events.TableSnapshot{
		"t1": {TableID: "t1", Stake: 10, Operator: house, Phase: "TERMINATED", WinningOutcome: &n, Version: 8},
	}}
	h := NewServer(zap.NewNop(), tb, nil, snaps).Router()

	rec := call(t, h, http.MethodGet, "/v1/tables/t1", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[dto.TableResponse](t, rec)
	assert.Equal(t, "TERMINATED", got.Phase)
	assert.Equal(t, uint64(8), got.Version)
	require.NotNil(t, got.WinningOutcome)
	assert.Equal(t, 7, *got.WinningOutcome)

	rec = call(t, h, http.MethodGet, "/v1/tables/nope", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", decode[dto.ErrorResponse](t, rec).Kind)

	h = NewServer(zap.NewNop(), tb, nil, memSnapshots{err: errors.New("redis down")}).Router()
	rec = call(t, h, http.MethodGet, "/v1/tables/t1", "", "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)

	rec = call(t, newHandler(t, stubLedger{}), http.MethodGet, "/v1/tables/t1", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
