package eventmock

import (
	domain "collateral-ledger/internal/domain/event"
	"context"
)

// Repo is a function-backed mock that satisfies domain.Repository.
type Repo struct {
	AppendFn     func(ctx context.Context, e *domain.Event) error
	ListByLoanFn func(ctx context.Context, loanID uint64) ([]*domain.Event, error)
	ListAfterFn  func(ctx context.Context, after uint64, limit int) ([]*domain.Event, error)
}

var _ domain.Repository = (*Repo)(nil)

func (m *Repo) Append(ctx context.Context, e *domain.Event) error {
	if m.AppendFn != nil {
		return m.AppendFn(ctx, e)
	}
	return nil
}

func (m *Repo) ListByLoan(ctx context.Context, loanID uint64) ([]*domain.Event, error) {
	if m.ListByLoanFn != nil {
		return m.ListByLoanFn(ctx, loanID)
	}
	return nil, context.Canceled
}

func (m *Repo) ListAfter(ctx context.Context, after uint64, limit int) ([]*domain.Event, error) {
	if m.ListAfterFn != nil {
		return m.ListAfterFn(ctx, after, limit)
	}
	return nil, context.Canceled
}
