// Package publisher forwards committed ledger events to external observers.
package publisher

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"collateral-ledger/internal/domain/event"
)

// RedisStream appends each event to a capped Redis stream, one entry per event.
type RedisStream struct {
	rdb    *redis.Client
	stream string
	maxLen int64
}

func NewRedisStream(rdb *redis.Client, stream string, maxLen int64) *RedisStream {
	return &RedisStream{rdb: rdb, stream: stream, maxLen: maxLen}
}

func (p *RedisStream) Publish(ctx context.Context, events []*event.Event) error {
	if len(events) == 0 {
		return nil
	}
	_, err := p.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, e := range events {
			pipe.XAdd(ctx, &redis.XAddArgs{
				Stream: p.stream,
				MaxLen: p.maxLen,
				Approx: p.maxLen > 0,
				Values: Fields(e),
			})
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("xadd %s: %w", p.stream, err)
	}
	return nil
}

// Fields flattens an event into stream entry fields. Amounts are wei decimal
// strings and times are unix seconds; fields that do not apply to the event
// name are omitted.
func Fields(e *event.Event) map[string]any {
	f := map[string]any{
		"seq":         strconv.FormatUint(e.Seq, 10),
		"event_id":    e.EventID,
		"name":        string(e.Name),
		"loan_id":     strconv.FormatUint(e.LoanID, 10),
		"occurred_at": strconv.FormatInt(e.OccurredAt.Unix(), 10),
	}
	if e.Borrower != "" {
		f["borrower"] = e.Borrower
	}
	if e.Lender != "" {
		f["lender"] = e.Lender
	}
	if e.Name == event.NameLoanRequested {
		f["collateral_amount"] = e.CollateralAmount.Dec()
		f["loan_amount"] = e.LoanAmount.Dec()
		f["interest_rate"] = strconv.FormatUint(uint64(e.InterestRate), 10)
		f["due_date"] = strconv.FormatInt(e.DueDate.Unix(), 10)
	}
	return f
}
