package mysql

import (
	"context"

	eventDomain "collateral-ledger/internal/domain/event"

	"gorm.io/gorm"
)

type EventRepository struct{ db *gorm.DB }

func NewEventRepository(db *gorm.DB) *EventRepository { return &EventRepository{db: db} }

// Append takes the event's seq from the events sequence. Inside a unit of work
// the sequence row stays locked to commit, so a reader paging by seq never
// sees seq N+1 before seq N is visible.
func (r *EventRepository) Append(ctx context.Context, e *eventDomain.Event) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		seq, err := reserve(ctx, tx, eventSequence)
		if err != nil {
			return err
		}
		row := toEventRow(e)
		row.Seq = seq
		if err := tx.Create(row).Error; err != nil {
			return err
		}
		e.Seq = seq
		return nil
	})
}

func (r *EventRepository) ListByLoan(ctx context.Context, loanID uint64) ([]*eventDomain.Event, error) {
	var rows []eventRow
	res := r.db.WithContext(ctx).
		Where("loan_id = ?", loanID).
		Order("seq ASC").
		Find(&rows)
	if res.Error != nil {
		return nil, res.Error
	}
	return toEvents(rows)
}

func (r *EventRepository) ListAfter(ctx context.Context, after uint64, limit int) ([]*eventDomain.Event, error) {
	q := r.db.WithContext(ctx).Where("seq > ?", after).Order("seq ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var rows []eventRow
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	return toEvents(rows)
}

func toEvents(rows []eventRow) ([]*eventDomain.Event, error) {
	out := make([]*eventDomain.Event, 0, len(rows))
	for i := range rows {
		e, err := rows[i].toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}
