package loan

import (
	"time"

	"github.com/holiman/uint256"
)

type State string

const (
	StateRequested State = "requested"
	StateFunded    State = "funded"
	StateRepaid    State = "repaid"
	StateDefaulted State = "defaulted"
)

// Terminal reports whether no further transition may leave s.
func (s State) Terminal() bool { return s == StateRepaid || s == StateDefaulted }

// Loan is a single collateralized loan record. Amounts are in wei.
type Loan struct {
	ID               uint64
	Borrower         string
	Lender           string
	CollateralAmount *uint256.Int
	LoanAmount       *uint256.Int
	InterestRate     uint32
	DueDate          time.Time
	IsFunded         bool
	IsRepaid         bool
	IsClaimed        bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (l *Loan) State() State {
	switch {
	case !l.IsFunded:
		return StateRequested
	case l.IsRepaid:
		return StateRepaid
	case l.IsClaimed:
		return StateDefaulted
	default:
		return StateFunded
	}
}

// Overdue is true once now has passed the due date of a funded, unresolved loan.
func (l *Loan) Overdue(now time.Time) bool {
	return l.State() == StateFunded && now.After(l.DueDate)
}

// RepaymentDue returns principal plus flat interest. The bool is false on overflow.
func (l *Loan) RepaymentDue() (*uint256.Int, bool) {
	return RepaymentDue(l.LoanAmount, l.InterestRate)
}

// Clone returns a deep copy so callers never share amount pointers with the store.
func (l *Loan) Clone() *Loan {
	if l == nil {
		return nil
	}
	c := *l
	if l.CollateralAmount != nil {
		c.CollateralAmount = l.CollateralAmount.Clone()
	}
	if l.LoanAmount != nil {
		c.LoanAmount = l.LoanAmount.Clone()
	}
	return &c
}
