package repository

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/radieske/roulette-table-poc/pkg/contracts/events"
)

// PostgresRepo persiste a projeção da mesa (estado atual + histórico de eventos)
type PostgresRepo struct {
	DB *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{DB: db}
}

// UpsertTable grava o snapshot atual. A cláusula WHERE ignora snapshots
// mais antigos que o já gravado, então reprocessar o tópico não volta estado.
func (r *PostgresRepo) UpsertTable(ctx context.Context, s events.TableSnapshot) error {
	const q = `
		INSERT INTO table_state
		  (table_id, stake, operator, phase, winning_outcome, active_bets, custody, version, updated_at)
		VALUES
		  ($1,$2,$3,$4,$5,$6,$7,$8,NOW())
		ON CONFLICT (table_id) DO UPDATE SET
		  phase           = EXCLUDED.phase,
		  winning_outcome = EXCLUDED.winning_outcome,
		  active_bets     = EXCLUDED.active_bets,
		  custody         = EXCLUDED.custody,
		  version         = EXCLUDED.version,
		  updated_at      = EXCLUDED.updated_at
		WHERE table_state.version < EXCLUDED.version
	`
	var outcome sql.NullInt64
	if s.WinningOutcome != nil {
		outcome = sql.NullInt64{Int64: int64(*s.WinningOutcome), Valid: true}
	}
	_, err := r.DB.ExecContext(ctx, q,
		s.TableID, s.Stake, s.Operator, s.Phase, outcome,
		s.ActiveBets, s.Custody, int64(s.Version),
	)
	return err
}

// InsertEvent grava o evento no histórico; event_id repetido é ignorado
func (r *PostgresRepo) InsertEvent(ctx context.Context, e events.TableEvent) error {
	const q = `
		INSERT INTO table_events
		  (event_id, table_id, type, actor, side, amount, outcome, version, payload, ts)
		VALUES
		  ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		ON CONFLICT (event_id) DO NOTHING
	`
	payload, err := json.Marshal(e)
	if err != nil {
		return err
	}
	var outcome sql.NullInt64
	if e.Outcome != nil {
		outcome = sql.NullInt64{Int64: int64(*e.Outcome), Valid: true}
	}
	_, err = r.DB.ExecContext(ctx, q,
		e.EventID, e.TableID, e.Type, e.Actor, e.Side, e.Amount, outcome,
		int64(e.Version), payload, e.Ts,
	)
	return err
}
