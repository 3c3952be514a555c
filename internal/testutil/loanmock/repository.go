package loanmock

import (
	domain "collateral-ledger/internal/domain/loan"
	"context"
)

// Repo is a function-backed mock that satisfies domain.Repository.
// Unset read methods return context.Canceled; unset writes are no-ops.
type Repo struct {
	NextIDFn           func(ctx context.Context) (uint64, error)
	CreateFn           func(ctx context.Context, l *domain.Loan) error
	GetByIDFn          func(ctx context.Context, id uint64) (*domain.Loan, error)
	GetByIDForUpdateFn func(ctx context.Context, id uint64) (*domain.Loan, error)
	SaveFn             func(ctx context.Context, l *domain.Loan) error
	ListByBorrowerFn   func(ctx context.Context, borrower string) ([]*domain.Loan, error)
}

var _ domain.Repository = (*Repo)(nil)

func (m *Repo) NextID(ctx context.Context) (uint64, error) {
	if m.NextIDFn != nil {
		return m.NextIDFn(ctx)
	}
	return 0, context.Canceled
}

func (m *Repo) Create(ctx context.Context, l *domain.Loan) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, l)
	}
	return nil
}

func (m *Repo) GetByID(ctx context.Context, id uint64) (*domain.Loan, error) {
	if m.GetByIDFn != nil {
		return m.GetByIDFn(ctx, id)
	}
	return nil, context.Canceled
}

func (m *Repo) GetByIDForUpdate(ctx context.Context, id uint64) (*domain.Loan, error) {
	if m.GetByIDForUpdateFn != nil {
		return m.GetByIDForUpdateFn(ctx, id)
	}
	return nil, context.Canceled
}

func (m *Repo) Save(ctx context.Context, l *domain.Loan) error {
	if m.SaveFn != nil {
		return m.SaveFn(ctx, l)
	}
	return nil
}

func (m *Repo) ListByBorrower(ctx context.Context, borrower string) ([]*domain.Loan, error) {
	if m.ListByBorrowerFn != nil {
		return m.ListByBorrowerFn(ctx, borrower)
	}
	return nil, context.Canceled
}
