package service

import (
	"context"
	stderrors "errors"
	"time"

	"points-ledger/internal/domain"
	"points-ledger/internal/errors"
	"points-ledger/internal/events"
	"points-ledger/internal/lock"
	"points-ledger/internal/metrics"

	"github.com/rs/zerolog"
)

// LedgerService is the balance-mutation engine. Mutations on one account are
// serialized by an in-process lock; the store's row lock covers other processes.
// Committed entries are handed to a Dispatcher, so the broker is never awaited
// while an account is locked.
type LedgerService struct {
	store      domain.LedgerStore
	locks      *lock.KeyedMutex
	dispatcher *events.Dispatcher
	logger     zerolog.Logger
}

func NewLedgerService(store domain.LedgerStore, locks *lock.KeyedMutex, publisher events.Publisher, logger zerolog.Logger) *LedgerService {
	if locks == nil {
		locks = lock.NewKeyedMutex()
	}
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &LedgerService{
		store:      store,
		locks:      locks,
		dispatcher: events.NewDispatcher(publisher, events.DefaultQueueSize, logger),
		logger:     logger.With().Str("component", "ledger").Logger(),
	}
}

// Shutdown flushes pending entry events, giving up when ctx ends, and closes
// the publisher. The store is left open.
func (s *LedgerService) Shutdown(ctx context.Context) error {
	return s.dispatcher.Shutdown(ctx)
}

func (s *LedgerService) Close() error {
	return s.dispatcher.Close()
}

func (s *LedgerService) Register(ctx context.Context, username string) (account *domain.Account, err error) {
	defer s.observe("register", username, time.Now(), &err)

	if err := ValidateUsername(username); err != nil {
		return nil, err
	}

	return s.store.CreateAccount(ctx, username)
}

func (s *LedgerService) GetBalance(ctx context.Context, username string) (account *domain.Account, err error) {
	defer s.observe("get_balance", username, time.Now(), &err)

	err = s.withAccountLock(ctx, username, func() error {
		var err error
		account, err = s.store.GetBalance(ctx, username)
		return err
	})
	if err != nil {
		return nil, err
	}
	return account, nil
}

// withAccountLock runs fn while this process holds username's lock.
func (s *LedgerService) withAccountLock(ctx context.Context, username string, fn func() error) error {
	err := s.locks.WithLockContext(ctx, username, fn)
	if stderrors.Is(err, lock.ErrLockTimeout) || stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
		return errors.NewAppError(errors.InternalError, "request ended while waiting for the account").WithDetails(err.Error())
	}
	return err
}

// observe records metrics for an operation and logs its outcome. Domain
// outcomes are expected traffic and stay at debug; anything else is an error.
func (s *LedgerService) observe(op, username string, start time.Time, errp *error) {
	metrics.LedgerOperationDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())

	err := *errp
	outcome := outcomeOf(err)
	metrics.LedgerOperations.WithLabelValues(op, outcome).Inc()

	switch outcome {
	case metrics.OutcomeOK:
		s.logger.Debug().Str("operation", op).Str("username", username).Msg("Operation succeeded")
	case metrics.OutcomeError:
		s.logger.Error().Err(err).Str("operation", op).Str("username", username).Msg("Operation failed")
	default:
		s.logger.Debug().Err(err).Str("operation", op).Str("username", username).Msg("Operation rejected")
	}
}

func outcomeOf(err error) string {
	if err == nil {
		return metrics.OutcomeOK
	}
	switch errors.As(err).Code {
	case errors.InvalidInput:
		return metrics.OutcomeInvalidInput
	case errors.AccountExists:
		return metrics.OutcomeAccountExists
	case errors.AccountNotFound:
		return metrics.OutcomeNotFound
	case errors.InsufficientFunds:
		return metrics.OutcomeInsufficientFunds
	default:
		return metrics.OutcomeError
	}
}
