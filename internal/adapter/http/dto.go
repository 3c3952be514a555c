package http

import (
	"time"

	"github.com/holiman/uint256"

	"collateral-ledger/internal/domain/event"
	"collateral-ledger/internal/domain/loan"
	"collateral-ledger/internal/usecase/ledger"
	"collateral-ledger/pkg/amount"
)

// Amounts go out twice: exact wei as a decimal string, and an ether rendering for humans.
type Amount struct {
	Wei   string `json:"wei"`
	Ether string `json:"ether"`
}

func toAmount(v *uint256.Int) *Amount {
	if v == nil {
		return nil
	}
	return &Amount{Wei: v.Dec(), Ether: amount.FormatEther(v)}
}

type LoanResponse struct {
	LoanID           uint64  `json:"loan_id"`
	Borrower         string  `json:"borrower"`
	Lender           string  `json:"lender,omitempty"`
	CollateralAmount *Amount `json:"collateral_amount"`
	LoanAmount       *Amount `json:"loan_amount"`
	InterestRate     uint32  `json:"interest_rate"`
	DueDate          int64   `json:"due_date"`
	IsFunded         bool    `json:"is_funded"`
	IsRepaid         bool    `json:"is_repaid"`
	IsClaimed        bool    `json:"is_claimed"`
	State            string  `json:"state"`
	RepaymentDue     *Amount `json:"repayment_due,omitempty"`
	Overdue          bool    `json:"overdue"`
	AsOf             string  `json:"as_of"`
}

func toLoanResponse(v *ledger.LoanView) LoanResponse {
	l := v.Loan
	return LoanResponse{
		LoanID:           l.ID,
		Borrower:         l.Borrower,
		Lender:           l.Lender,
		CollateralAmount: toAmount(l.CollateralAmount),
		LoanAmount:       toAmount(l.LoanAmount),
		InterestRate:     l.InterestRate,
		DueDate:          l.DueDate.Unix(),
		IsFunded:         l.IsFunded,
		IsRepaid:         l.IsRepaid,
		IsClaimed:        l.IsClaimed,
		State:            string(v.State),
		RepaymentDue:     toAmount(v.RepaymentDue),
		Overdue:          v.Overdue,
		AsOf:             v.AsOf.UTC().Format(time.RFC3339),
	}
}

// EventResponse: times are unix seconds; fields that do not apply to Name are omitted.
type EventResponse struct {
	Seq              uint64  `json:"seq"`
	EventID          string  `json:"event_id"`
	Name             string  `json:"name"`
	LoanID           uint64  `json:"loan_id"`
	Borrower         string  `json:"borrower,omitempty"`
	Lender           string  `json:"lender,omitempty"`
	CollateralAmount *Amount `json:"collateral_amount,omitempty"`
	LoanAmount       *Amount `json:"loan_amount,omitempty"`
	InterestRate     *uint32 `json:"interest_rate,omitempty"`
	DueDate          *int64  `json:"due_date,omitempty"`
	OccurredAt       int64   `json:"occurred_at"`
}

func toEventResponse(e *event.Event) EventResponse {
	out := EventResponse{
		Seq:        e.Seq,
		EventID:    e.EventID,
		Name:       string(e.Name),
		LoanID:     e.LoanID,
		Borrower:   e.Borrower,
		Lender:     e.Lender,
		OccurredAt: e.OccurredAt.Unix(),
	}
	if e.Name == event.NameLoanRequested {
		rate, due := e.InterestRate, e.DueDate.Unix()
		out.CollateralAmount = toAmount(e.CollateralAmount)
		out.LoanAmount = toAmount(e.LoanAmount)
		out.InterestRate = &rate
		out.DueDate = &due
	}
	return out
}

func toEventResponses(evs []*event.Event) []EventResponse {
	out := make([]EventResponse, 0, len(evs))
	for _, e := range evs {
		out = append(out, toEventResponse(e))
	}
	return out
}

type TransferResponse struct {
	Kind   string  `json:"kind"`
	From   string  `json:"from"`
	To     string  `json:"to"`
	Amount *Amount `json:"amount"`
}

// ResultResponse is the body of every successful transition.
type ResultResponse struct {
	LoanID    uint64             `json:"loan_id"`
	Events    []EventResponse    `json:"events"`
	Transfers []TransferResponse `json:"transfers"`
}

func toResultResponse(r *ledger.Result) ResultResponse {
	out := ResultResponse{
		LoanID:    r.LoanID,
		Events:    toEventResponses(r.Events),
		Transfers: make([]TransferResponse, 0, len(r.Transfers)),
	}
	for _, t := range r.Transfers {
		out.Transfers = append(out.Transfers, toTransferResponse(t))
	}
	return out
}

func toTransferResponse(t loan.ValueTransfer) TransferResponse {
	return TransferResponse{Kind: string(t.Kind), From: t.From, To: t.To, Amount: toAmount(t.Amount)}
}
