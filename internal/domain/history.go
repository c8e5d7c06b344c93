package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Action is the kind of balance change a history entry records.
type Action string

const (
	Earn  Action = "earn"
	Spend Action = "spend"
)

func (a Action) Valid() bool {
	return a == Earn || a == Spend
}

// Amount limits. Eight fractional digits fit DECIMAL(38,8) columns on every backend.
const MaxAmountScale = 8

var (
	MaxAmount  = decimal.NewFromInt(1_000_000_000_000)
	MaxBalance = decimal.New(1, 20)
)

// HistoryEntry is one committed earn or spend. Balance is the account balance
// right after the entry was applied.
type HistoryEntry struct {
	ID        int64           `json:"id"`
	Username  string          `json:"username"`
	Action    Action          `json:"action"`
	Amount    decimal.Decimal `json:"amount"`
	Balance   decimal.Decimal `json:"balance"`
	Timestamp time.Time       `json:"timestamp"`
}

type HistoryRepository interface {
	AppendEntry(ctx context.Context, entry *HistoryEntry) error
	ListEntries(ctx context.Context, username string) ([]HistoryEntry, error)
	SumByAction(ctx context.Context, username string) (earned, spent decimal.Decimal, err error)
}

// Snapshot is a stored balance and the history totals behind it, read together
// so no concurrent commit can fall between them.
type Snapshot struct {
	Account Account
	Earned  decimal.Decimal
	Spent   decimal.Decimal
}

// LedgerStore is the persistence boundary of the ledger engine. Every method is
// atomic and durable once it returns.
type LedgerStore interface {
	CreateAccount(ctx context.Context, username string) (*Account, error)
	GetBalance(ctx context.Context, username string) (*Account, error)
	ApplyDelta(ctx context.Context, username string, action Action, amount decimal.Decimal) (*HistoryEntry, error)
	ListHistory(ctx context.Context, username string) ([]HistoryEntry, error)
	Snapshot(ctx context.Context, username string) (*Snapshot, error)
	Ping(ctx context.Context) error
	Close() error
}
