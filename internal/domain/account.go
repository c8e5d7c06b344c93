package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type Account struct {
	Username  string          `json:"username"`
	Balance   decimal.Decimal `json:"balance"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

type AccountRepository interface {
	CreateAccount(ctx context.Context, username string) (*Account, error)
	GetAccount(ctx context.Context, username string) (*Account, error)
	GetAccountForUpdate(ctx context.Context, username string) (*Account, error)
	UpdateAccountBalance(ctx context.Context, username string, newBalance decimal.Decimal) error
}
