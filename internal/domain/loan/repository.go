package loan

import "context"

// Repository implementations must return ErrLoanNotFound for missing ids.
type Repository interface {
	// NextID reserves the next sequential loan id. Call inside a transaction.
	NextID(ctx context.Context) (uint64, error)
	Create(ctx context.Context, l *Loan) error
	GetByID(ctx context.Context, id uint64) (*Loan, error)
	// GetByIDForUpdate loads the record and holds its lock until the transaction ends.
	GetByIDForUpdate(ctx context.Context, id uint64) (*Loan, error)
	Save(ctx context.Context, l *Loan) error
	ListByBorrower(ctx context.Context, borrower string) ([]*Loan, error)
}
