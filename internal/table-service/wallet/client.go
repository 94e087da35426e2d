package wallet

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/radieske/roulette-table-poc/internal/table"
	walletdto "github.com/radieske/roulette-table-poc/internal/table-service/wallet/dto"
)

var (
	// ErrInsufficientFunds embrulha table.ErrInsufficientFunds para a mesa
	// tratar saldo baixo como recusa do apostador, não falha do ledger.
	ErrInsufficientFunds = fmt.Errorf("wallet: %w", table.ErrInsufficientFunds)
	ErrWalletNotFound    = errors.New("wallet: not found")
)

// Client fala com o wallet-service e implementa table.Ledger:
// Hold debita a carteira do apostador, Release credita prêmio ou varredura.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func New(base string) *Client {
	return &Client{
		BaseURL: base,
		HTTP:    &http.Client{Timeout: 2 * time.Second},
	}
}

func (c *Client) Hold(ctx context.Context, account string, amount int64, ref string) error {
	return c.move(ctx, "/wallet/debit", account, amount, ref)
}

func (c *Client) Release(ctx context.Context, account string, amount int64, ref string) error {
	return c.move(ctx, "/wallet/credit", account, amount, ref)
}

func (c *Client) move(ctx context.Context, path, account string, amount int64, ref string) error {
	body, err := json.Marshal(walletdto.MoveRequest{UserID: account, AmountCents: amount, ExternalRef: ref})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	res, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	switch {
	case res.StatusCode == http.StatusConflict:
		return ErrInsufficientFunds
	case res.StatusCode == http.StatusNotFound:
		return ErrWalletNotFound
	case res.StatusCode >= 300:
		return fmt.Errorf("wallet %s http %d", path, res.StatusCode)
	}

	var out walletdto.MoveResponse
	return json.NewDecoder(res.Body).Decode(&out)
}
