package memory

import (
	"context"
	"fmt"
	"sort"

	loanDomain "collateral-ledger/internal/domain/loan"
)

type LoanRepository struct {
	s  *Store
	tx *txState
}

func NewLoanRepository(s *Store) *LoanRepository { return &LoanRepository{s: s} }

// lock is a no-op inside a transaction: the UoW already holds the mutex.
func (r *LoanRepository) lock() func() {
	if r.tx != nil {
		return func() {}
	}
	r.s.mu.Lock()
	return r.s.mu.Unlock
}

func (r *LoanRepository) NextID(ctx context.Context) (uint64, error) {
	defer r.lock()()
	if r.tx != nil {
		id := r.tx.nextID
		r.tx.nextID++
		return id, nil
	}
	id := r.s.nextID
	r.s.nextID++
	return id, nil
}

func (r *LoanRepository) find(id uint64) (*loanDomain.Loan, bool) {
	if r.tx != nil {
		if l, ok := r.tx.loans[id]; ok {
			return l, true
		}
	}
	l, ok := r.s.loans[id]
	return l, ok
}

func (r *LoanRepository) put(l *loanDomain.Loan) {
	if r.tx != nil {
		r.tx.loans[l.ID] = l.Clone()
		return
	}
	r.s.loans[l.ID] = l.Clone()
}

func (r *LoanRepository) Create(ctx context.Context, l *loanDomain.Loan) error {
	defer r.lock()()
	if _, ok := r.find(l.ID); ok {
		return fmt.Errorf("memory: loan %d already exists", l.ID)
	}
	r.put(l)
	return nil
}

func (r *LoanRepository) Save(ctx context.Context, l *loanDomain.Loan) error {
	defer r.lock()()
	if _, ok := r.find(l.ID); !ok {
		return loanDomain.ErrLoanNotFound
	}
	r.put(l)
	return nil
}

func (r *LoanRepository) GetByID(ctx context.Context, id uint64) (*loanDomain.Loan, error) {
	defer r.lock()()
	l, ok := r.find(id)
	if !ok {
		return nil, loanDomain.ErrLoanNotFound
	}
	return l.Clone(), nil
}

// GetByIDForUpdate is GetByID: the store-wide mutex is the row lock.
func (r *LoanRepository) GetByIDForUpdate(ctx context.Context, id uint64) (*loanDomain.Loan, error) {
	return r.GetByID(ctx, id)
}

func (r *LoanRepository) ListByBorrower(ctx context.Context, borrower string) ([]*loanDomain.Loan, error) {
	defer r.lock()()
	seen := make(map[uint64]struct{})
	var out []*loanDomain.Loan
	if r.tx != nil {
		for id, l := range r.tx.loans {
			seen[id] = struct{}{}
			if l.Borrower == borrower {
				out = append(out, l.Clone())
			}
		}
	}
	for id, l := range r.s.loans {
		if _, ok := seen[id]; ok {
			continue
		}
		if l.Borrower == borrower {
			out = append(out, l.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
