package memory

import (
	"context"

	"collateral-ledger/internal/domain/loan"
	"collateral-ledger/internal/domain/uow"
)

type UoW struct{ s *Store }

func NewUoW(s *Store) *UoW { return &UoW{s: s} }

func (u *UoW) repos(tx *txState) uow.Repos {
	return uow.Repos{
		Loans:  &LoanRepository{s: u.s, tx: tx},
		Events: &EventRepository{s: u.s, tx: tx},
	}
}

func (u *UoW) WithinTx(ctx context.Context, fn func(r uow.Repos) error) error {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}

	tx := u.s.begin()
	if err := fn(u.repos(tx)); err != nil {
		return err
	}
	u.s.commit(tx)
	return nil
}

func (u *UoW) WithinLoanTx(ctx context.Context, loanID uint64, fn func(r uow.Repos, l *loan.Loan) error) error {
	return u.WithinTx(ctx, func(r uow.Repos) error {
		l, err := r.Loans.GetByIDForUpdate(ctx, loanID)
		if err != nil {
			return err
		}
		return fn(r, l)
	})
}
