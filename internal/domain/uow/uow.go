package uow

import (
	"context"

	"collateral-ledger/internal/domain/event"
	"collateral-ledger/internal/domain/loan"
)

type Repos struct {
	Loans  loan.Repository
	Events event.Repository
}

// UnitOfWork runs fn atomically: if fn returns an error nothing it wrote is kept.
type UnitOfWork interface {
	// plain tx
	WithinTx(ctx context.Context, fn func(r Repos) error) error
	// lock the loan first, then pass it in
	WithinLoanTx(ctx context.Context, loanID uint64, fn func(r Repos, l *loan.Loan) error) error
}
