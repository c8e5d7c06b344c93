// Package events publishes notifications about committed ledger entries.
package events

import (
	"context"
	"time"

	"points-ledger/internal/domain"
)

// EntryCommitted is emitted after an earn or spend has been durably committed.
type EntryCommitted struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Action    string    `json:"action"`
	Amount    string    `json:"amount"`
	Balance   string    `json:"balance"`
	Timestamp time.Time `json:"timestamp"`
}

func NewEntryCommitted(entry *domain.HistoryEntry) EntryCommitted {
	return EntryCommitted{
		ID:        entry.ID,
		Username:  entry.Username,
		Action:    string(entry.Action),
		Amount:    entry.Amount.String(),
		Balance:   entry.Balance.String(),
		Timestamp: entry.Timestamp,
	}
}

// Publisher delivers events. Implementations must be safe for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, event EntryCommitted) error
	Close() error
}

// NopPublisher drops every event. It is used when no broker is configured.
type NopPublisher struct{}

var _ Publisher = NopPublisher{}

func (NopPublisher) Publish(context.Context, EntryCommitted) error { return nil }

func (NopPublisher) Close() error { return nil }
