package eventstore

import (
	"context"
	"errors"
)

var (
	// ErrTransactionActive is returned by BeginTransaction inside a transaction.
	ErrTransactionActive = errors.New("transaction already active")

	// ErrNoActiveTransaction is returned by Commit or Rollback outside a transaction.
	ErrNoActiveTransaction = errors.New("no active transaction")
)

// BeginTransaction moves the store into a transaction and runs OnBegin.
// If the hook fails the store stays idle.
func (s *EventStore) BeginTransaction(ctx context.Context) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	if s.inTx {
		return ErrTransactionActive
	}
	if err := runHook(ctx, s.hooks.OnBegin); err != nil {
		return err
	}
	s.inTx = true
	s.logger.Debug("transaction started", "op", "begin")
	return nil
}

// Commit ends the transaction and runs OnCommit. Writes made inside the
// transaction were persisted as they happened.
func (s *EventStore) Commit(ctx context.Context) error {
	return s.end(ctx, "commit", s.hooks.OnCommit)
}

// Rollback ends the transaction and runs OnRollback. It does not undo writes.
func (s *EventStore) Rollback(ctx context.Context) error {
	return s.end(ctx, "rollback", s.hooks.OnRollback)
}

// InTransaction reports whether a transaction is active.
func (s *EventStore) InTransaction() bool {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	return s.inTx
}

// end leaves the transaction even when the hook fails.
func (s *EventStore) end(ctx context.Context, op string, hook func(context.Context) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	if !s.inTx {
		return ErrNoActiveTransaction
	}
	s.inTx = false
	s.logger.Debug("transaction ended", "op", op)
	return runHook(ctx, hook)
}

func runHook(ctx context.Context, hook func(context.Context) error) error {
	if hook == nil {
		return nil
	}
	return hook(ctx)
}
