package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"collateral-ledger/internal/domain/loan"
)

// pendingTTL bounds how long a reservation survives a handler that never settles.
const pendingTTL = 60 * time.Second

var errNoOutcome = errors.New("idempotency: no outcome")

// outcome is what the store remembers about one (caller, route, request id).
// A settled success also records the loan and event seqs it produced, so a
// replayed response can be matched against the event log.
type outcome struct {
	Pending     bool      `json:"pending"`
	Fingerprint string    `json:"fingerprint"`
	Status      int       `json:"status,omitempty"`
	Body        []byte    `json:"body,omitempty"`
	LoanID      *uint64   `json:"loan_id,omitempty"`
	Seqs        []uint64  `json:"seqs,omitempty"`
	Kind        loan.Kind `json:"kind,omitempty"`
	At          time.Time `json:"at"`
}

// ReplayStore keeps the outcome of mutating ledger calls in Redis.
type ReplayStore struct {
	rdb *redis.Client
	ttl time.Duration
	now func() time.Time
}

func NewReplayStore(rdb *redis.Client, ttl time.Duration) *ReplayStore {
	return &ReplayStore{rdb: rdb, ttl: ttl, now: func() time.Time { return time.Now().UTC() }}
}

// reserve claims key for a call in flight. false means someone else holds it.
func (s *ReplayStore) reserve(ctx context.Context, key, fingerprint string) (bool, error) {
	b, err := json.Marshal(outcome{Pending: true, Fingerprint: fingerprint, At: s.now()})
	if err != nil {
		return false, err
	}
	return s.rdb.SetNX(ctx, key, b, pendingTTL).Result()
}

func (s *ReplayStore) load(ctx context.Context, key string) (outcome, error) {
	var o outcome
	b, err := s.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return o, errNoOutcome
	}
	if err != nil {
		return o, err
	}
	if err := json.Unmarshal(b, &o); err != nil {
		return o, fmt.Errorf("idempotency: decode %s: %w", key, err)
	}
	return o, nil
}

func (s *ReplayStore) settle(ctx context.Context, key string, o outcome) error {
	o.Pending = false
	o.At = s.now()
	b, err := json.Marshal(o)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, key, b, s.ttl).Err()
}

func (s *ReplayStore) release(ctx context.Context, key string) error {
	return s.rdb.Del(ctx, key).Err()
}

// Rejections a later identical call may not repeat: the loan can still come
// into existence, get funded, or pass its due date.
var unsettledKinds = map[loan.Kind]bool{
	loan.KindLoanNotFound: true,
	loan.KindNotFunded:    true,
	loan.KindNotOverdue:   true,
}

// ledgerBody is the part of a ledger response the store inspects.
type ledgerBody struct {
	LoanID *uint64 `json:"loan_id"`
	Kind   string  `json:"kind"`
	Events []struct {
		Seq uint64 `json:"seq"`
	} `json:"events"`
}

// outcomeOf decides whether a finished response is kept for replay.
// Server errors and rejections listed in unsettledKinds are not.
func outcomeOf(fingerprint string, status int, body []byte) (outcome, bool) {
	if status >= http.StatusInternalServerError {
		return outcome{}, false
	}
	o := outcome{Fingerprint: fingerprint, Status: status, Body: body}
	var lb ledgerBody
	if err := json.Unmarshal(body, &lb); err != nil {
		return o, true
	}
	o.Kind = loan.Kind(lb.Kind)
	if unsettledKinds[o.Kind] {
		return outcome{}, false
	}
	if status < http.StatusMultipleChoices {
		o.LoanID = lb.LoanID
		for _, e := range lb.Events {
			o.Seqs = append(o.Seqs, e.Seq)
		}
	}
	return o, true
}
