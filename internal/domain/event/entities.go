package event

import (
	"time"

	"github.com/holiman/uint256"

	"collateral-ledger/internal/domain/loan"
	"collateral-ledger/pkg/id"
)

type Name string

const (
	NameLoanRequested     Name = "LoanRequested"
	NameLoanFunded        Name = "LoanFunded"
	NameLoanRepaid        Name = "LoanRepaid"
	NameCollateralClaimed Name = "CollateralClaimed"
)

// Event is one entry of the append-only ledger log. Which payload fields are
// set depends on Name:
//
//	LoanRequested:     Borrower, CollateralAmount, LoanAmount, InterestRate, DueDate
//	LoanFunded:        Lender
//	LoanRepaid:        Borrower
//	CollateralClaimed: Lender
type Event struct {
	// Seq is assigned by the repository on Append, starting at 1.
	Seq              uint64
	EventID          string
	Name             Name
	LoanID           uint64
	Borrower         string
	Lender           string
	CollateralAmount *uint256.Int
	LoanAmount       *uint256.Int
	InterestRate     uint32
	DueDate          time.Time
	OccurredAt       time.Time
}

func Requested(l *loan.Loan, at time.Time) *Event {
	return &Event{
		EventID:          id.NewID32(),
		Name:             NameLoanRequested,
		LoanID:           l.ID,
		Borrower:         l.Borrower,
		CollateralAmount: l.CollateralAmount.Clone(),
		LoanAmount:       l.LoanAmount.Clone(),
		InterestRate:     l.InterestRate,
		DueDate:          l.DueDate,
		OccurredAt:       at,
	}
}

func Funded(l *loan.Loan, at time.Time) *Event {
	return &Event{EventID: id.NewID32(), Name: NameLoanFunded, LoanID: l.ID, Lender: l.Lender, OccurredAt: at}
}

func Repaid(l *loan.Loan, at time.Time) *Event {
	return &Event{EventID: id.NewID32(), Name: NameLoanRepaid, LoanID: l.ID, Borrower: l.Borrower, OccurredAt: at}
}

func Claimed(l *loan.Loan, at time.Time) *Event {
	return &Event{EventID: id.NewID32(), Name: NameCollateralClaimed, LoanID: l.ID, Lender: l.Lender, OccurredAt: at}
}

// Clone returns a deep copy.
func (e *Event) Clone() *Event {
	if e == nil {
		return nil
	}
	c := *e
	if e.CollateralAmount != nil {
		c.CollateralAmount = e.CollateralAmount.Clone()
	}
	if e.LoanAmount != nil {
		c.LoanAmount = e.LoanAmount.Clone()
	}
	return &c
}
