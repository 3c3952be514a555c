package event

import "context"

type Repository interface {
	// Append stores e and sets e.Seq. Ordering follows call order.
	Append(ctx context.Context, e *Event) error

	// All events of one loan, oldest first.
	ListByLoan(ctx context.Context, loanID uint64) ([]*Event, error)

	// Up to limit events with Seq > after, oldest first.
	ListAfter(ctx context.Context, after uint64, limit int) ([]*Event, error)
}
