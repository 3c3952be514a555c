package loan

import "errors"

// Kind is the stable, machine-checkable class of a ledger failure.
type Kind string

const (
	KindLoanNotFound    Kind = "LoanNotFound"
	KindInvalidAmount   Kind = "InvalidAmount"
	KindInvalidDuration Kind = "InvalidDuration"
	KindInvalidCaller   Kind = "InvalidCaller"
	KindAlreadyFunded   Kind = "AlreadyFunded"
	KindNotFunded       Kind = "NotFunded"
	KindAlreadyRepaid   Kind = "AlreadyRepaid"
	KindAlreadyResolved Kind = "AlreadyResolved"
	KindNotBorrower     Kind = "NotBorrower"
	KindNotLender       Kind = "NotLender"
	KindIncorrectAmount Kind = "IncorrectAmount"
	KindNotOverdue      Kind = "NotOverdue"
)

// Error is a precondition failure. Two errors match under errors.Is when
// their kinds are equal, so callers may wrap or re-message freely.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

var (
	ErrLoanNotFound    = &Error{Kind: KindLoanNotFound, Message: "Loan does not exist."}
	ErrInvalidAmount   = &Error{Kind: KindInvalidAmount, Message: "Invalid amount."}
	ErrInvalidDuration = &Error{Kind: KindInvalidDuration, Message: "Duration must be positive."}
	ErrInvalidCaller   = &Error{Kind: KindInvalidCaller, Message: "Caller identity is required."}
	ErrAlreadyFunded   = &Error{Kind: KindAlreadyFunded, Message: "Loan is already funded."}
	ErrNotFunded       = &Error{Kind: KindNotFunded, Message: "Loan is not funded."}
	ErrAlreadyRepaid   = &Error{Kind: KindAlreadyRepaid, Message: "Loan is already repaid."}
	ErrAlreadyResolved = &Error{Kind: KindAlreadyResolved, Message: "Loan is already resolved."}
	ErrNotBorrower     = &Error{Kind: KindNotBorrower, Message: "Only the borrower can repay the loan."}
	ErrNotLender       = &Error{Kind: KindNotLender, Message: "Only the lender can claim collateral."}
	ErrIncorrectAmount = &Error{Kind: KindIncorrectAmount, Message: "Incorrect amount."}
	ErrNotOverdue      = &Error{Kind: KindNotOverdue, Message: "Loan is not overdue."}
)

// ErrIncorrectRepayment carries the observable repayment message but matches ErrIncorrectAmount.
var ErrIncorrectRepayment = &Error{Kind: KindIncorrectAmount, Message: "Incorrect repayment amount."}

// ErrIncorrectFunding matches ErrIncorrectAmount.
var ErrIncorrectFunding = &Error{Kind: KindIncorrectAmount, Message: "Incorrect funding amount."}

// KindOf extracts the kind of a ledger error, or "" for anything else.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
