package memory

import (
	"context"

	"collateral-ledger/internal/domain/event"
)

type EventRepository struct {
	s  *Store
	tx *txState
}

func NewEventRepository(s *Store) *EventRepository { return &EventRepository{s: s} }

func (r *EventRepository) lock() func() {
	if r.tx != nil {
		return func() {}
	}
	r.s.mu.Lock()
	return r.s.mu.Unlock
}

// all returns committed events followed by staged ones, in Seq order.
func (r *EventRepository) all() []*event.Event {
	if r.tx == nil || len(r.tx.events) == 0 {
		return r.s.events
	}
	out := make([]*event.Event, 0, len(r.s.events)+len(r.tx.events))
	out = append(out, r.s.events...)
	return append(out, r.tx.events...)
}

func (r *EventRepository) Append(ctx context.Context, e *event.Event) error {
	defer r.lock()()
	e.Seq = uint64(len(r.all())) + 1
	if r.tx != nil {
		r.tx.events = append(r.tx.events, e.Clone())
		return nil
	}
	r.s.events = append(r.s.events, e.Clone())
	return nil
}

func (r *EventRepository) ListByLoan(ctx context.Context, loanID uint64) ([]*event.Event, error) {
	defer r.lock()()
	var out []*event.Event
	for _, e := range r.all() {
		if e.LoanID == loanID {
			out = append(out, e.Clone())
		}
	}
	return out, nil
}

func (r *EventRepository) ListAfter(ctx context.Context, after uint64, limit int) ([]*event.Event, error) {
	defer r.lock()()
	all := r.all()
	var out []*event.Event
	// Seq n lives at index n-1.
	for i := after; i < uint64(len(all)); i++ {
		if limit > 0 && len(out) >= limit {
			break
		}
		out = append(out, all[i].Clone())
	}
	return out, nil
}
