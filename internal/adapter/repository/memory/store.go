// Package memory keeps the ledger in process memory. A single mutex
// serialises every transaction; writes are staged and applied on success.
package memory

import (
	"sync"

	"collateral-ledger/internal/domain/event"
	"collateral-ledger/internal/domain/loan"
)

type Store struct {
	mu     sync.Mutex
	loans  map[uint64]*loan.Loan
	events []*event.Event
	nextID uint64
}

func NewStore() *Store { return &Store{loans: make(map[uint64]*loan.Loan)} }

// txState holds writes made inside one UoW call until it commits.
type txState struct {
	loans  map[uint64]*loan.Loan
	events []*event.Event
	nextID uint64
}

func (s *Store) begin() *txState {
	return &txState{loans: make(map[uint64]*loan.Loan), nextID: s.nextID}
}

func (s *Store) commit(tx *txState) {
	for id, l := range tx.loans {
		s.loans[id] = l
	}
	s.events = append(s.events, tx.events...)
	s.nextID = tx.nextID
}
