package ledger

import (
	"time"

	"github.com/holiman/uint256"

	"collateral-ledger/internal/domain/event"
	"collateral-ledger/internal/domain/loan"
)

// MaxDuration caps a loan term at 100 years of seconds.
const MaxDuration uint64 = 100 * 365 * 24 * 60 * 60

// RequestLoanInput: Value is the collateral physically deposited with the
// call and must equal CollateralAmount. LoanAmount is the principal the
// borrower expects the lender to disburse.
type RequestLoanInput struct {
	Caller           string
	InterestRate     uint32
	Duration         uint64 // seconds
	CollateralAmount *uint256.Int
	LoanAmount       *uint256.Int
	Value            *uint256.Int
}

type FundLoanInput struct {
	Caller string
	LoanID uint64
	Value  *uint256.Int
}

type RepayLoanInput struct {
	Caller string
	LoanID uint64
	Value  *uint256.Int
}

type ClaimCollateralInput struct {
	Caller string
	LoanID uint64
}

// Result is what a successful transition emitted. Events are in emission
// order; Transfers must be executed by the caller's payment backend.
type Result struct {
	LoanID    uint64
	Events    []*event.Event
	Transfers []loan.ValueTransfer
}

// LoanView is a read-only snapshot plus values derived at read time.
type LoanView struct {
	Loan         *loan.Loan
	State        loan.State
	RepaymentDue *uint256.Int
	Overdue      bool
	AsOf         time.Time
}
