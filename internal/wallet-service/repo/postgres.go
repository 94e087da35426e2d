package repo

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
)

// Postgres implementa operações de carteira em banco
type Postgres struct{ db *sql.DB }

func NewPostgres(db *sql.DB) *Postgres { return &Postgres{db: db} }

var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrNotFound          = errors.New("not found")
)

// Tipos de lançamento no wallet_ledger
const (
	OpCredit = "CREDIT"
	OpDebit  = "DEBIT"
)

// GetOrCreateWallet retorna o walletId e saldo de um usuário, criando a carteira se não existir
// Usa transação para garantir atomicidade
func (p *Postgres) GetOrCreateWallet(ctx context.Context, userID string) (walletID string, balance int64, err error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return "", 0, err
	}
	defer tx.Rollback()

	walletID, balance, err = lockWallet(ctx, tx, userID, true)
	if err != nil {
		return "", 0, err
	}

	if err = tx.Commit(); err != nil {
		return "", 0, err
	}
	return walletID, balance, nil
}

// Deposit incrementa o saldo da carteira (criando se preciso) e registra no ledger
func (p *Postgres) Deposit(ctx context.Context, userID string, amount int64, externalRef string) (walletID string, newBalance int64, err error) {
	if externalRef == "" {
		externalRef = "deposit:" + uuid.NewString()
	}
	return p.move(ctx, userID, OpCredit, amount, externalRef, true)
}

// Debit tira saldo do usuário para a custódia da mesa
// Idempotente por (wallet_id, DEBIT, external_ref)
func (p *Postgres) Debit(ctx context.Context, userID string, amount int64, externalRef string) (newBalance int64, err error) {
	_, newBalance, err = p.move(ctx, userID, OpDebit, amount, externalRef, false)
	return newBalance, err
}

// Credit devolve saldo ao usuário (prêmio ou varredura da mesa), criando a carteira se preciso
// Idempotente por (wallet_id, CREDIT, external_ref)
func (p *Postgres) Credit(ctx context.Context, userID string, amount int64, externalRef string) (newBalance int64, err error) {
	_, newBalance, err = p.move(ctx, userID, OpCredit, amount, externalRef, true)
	return newBalance, err
}

// move aplica um lançamento com lock pessimista na linha da carteira
func (p *Postgres) move(ctx context.Context, userID, op string, amount int64, externalRef string, create bool) (string, int64, error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return "", 0, err
	}
	defer tx.Rollback()

	walletID, balance, err := lockWallet(ctx, tx, userID, create)
	if err != nil {
		return "", 0, err
	}

	// Idempotência: mesmo external_ref já lançado devolve o saldo atual
	var exists int64
	err = tx.QueryRowContext(ctx,
		`SELECT id FROM wallet_ledger WHERE wallet_id=$1 AND operation_type=$2 AND external_ref=$3`,
		walletID, op, externalRef).Scan(&exists)
	if err == nil {
		return walletID, balance, tx.Commit()
	} else if !errors.Is(err, sql.ErrNoRows) {
		return "", 0, err
	}

	delta := amount
	if op == OpDebit {
		if balance < amount {
			return "", 0, ErrInsufficientFunds
		}
		delta = -amount
	}

	if _, err = tx.ExecContext(ctx,
		`UPDATE wallets SET balance_cents = balance_cents + $1, version = version + 1 WHERE id=$2`,
		delta, walletID); err != nil {
		return "", 0, err
	}

	if _, err = tx.ExecContext(ctx,
		`INSERT INTO wallet_ledger(wallet_id, operation_type, amount_cents, external_ref) VALUES($1,$2,$3,$4)`,
		walletID, op, amount, externalRef); err != nil {
		return "", 0, err
	}

	if err = tx.Commit(); err != nil {
		return "", 0, err
	}
	return walletID, balance + delta, nil
}

// lockWallet seleciona a carteira com FOR UPDATE; com create=true insere se não existir
func lockWallet(ctx context.Context, tx *sql.Tx, userID string, create bool) (string, int64, error) {
	var id string
	var bal int64
	err := tx.QueryRowContext(ctx,
		`SELECT id, balance_cents FROM wallets WHERE user_id=$1 FOR UPDATE`, userID).Scan(&id, &bal)
	if errors.Is(err, sql.ErrNoRows) {
		if !create {
			return "", 0, ErrNotFound
		}
		id = uuid.NewString()
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO wallets(id, user_id, balance_cents, version) VALUES($1,$2,0,1)`,
			id, userID); err != nil {
			return "", 0, err
		}
		return id, 0, nil
	}
	if err != nil {
		return "", 0, err
	}
	return id, bal, nil
}
