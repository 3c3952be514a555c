package ledger

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/holiman/uint256"

	"collateral-ledger/internal/domain/event"
	"collateral-ledger/internal/domain/loan"
	"collateral-ledger/internal/domain/uow"
)

const (
	OpRequest = "request"
	OpFund    = "fund"
	OpRepay   = "repay"
	OpClaim   = "claim"
)

const (
	DefaultEventPage = 100
	MaxEventPage     = 500
)

// Clock returns the ledger's notion of "now" (block time in the original model).
type Clock func() time.Time

// Publisher forwards committed events to external observers.
type Publisher interface {
	Publish(ctx context.Context, events []*event.Event) error
}

// Metrics records the outcome of each transition.
type Metrics interface {
	ObserveOperation(op string, err error, elapsed time.Duration)
}

type Usecase struct {
	loans   loan.Repository
	events  event.Repository
	uow     uow.UnitOfWork
	now     Clock
	pub     Publisher
	metrics Metrics
	log     *slog.Logger
}

type Option func(*Usecase)

func WithClock(c Clock) Option         { return func(u *Usecase) { u.now = c } }
func WithPublisher(p Publisher) Option { return func(u *Usecase) { u.pub = p } }
func WithMetrics(m Metrics) Option     { return func(u *Usecase) { u.metrics = m } }
func WithLogger(l *slog.Logger) Option { return func(u *Usecase) { u.log = l } }

// NewUsecase: loans/events serve reads, tx serves every state transition.
func NewUsecase(loans loan.Repository, events event.Repository, tx uow.UnitOfWork, opts ...Option) *Usecase {
	u := &Usecase{
		loans:  loans,
		events: events,
		uow:    tx,
		now:    func() time.Time { return time.Now().UTC() },
		log:    slog.Default(),
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// clock truncates to whole seconds, matching block timestamps.
func (u *Usecase) clock() time.Time { return u.now().UTC().Truncate(time.Second) }

func validCaller(c string) bool { return strings.TrimSpace(c) != "" }

func isZero(v *uint256.Int) bool { return v == nil || v.IsZero() }

func sameAmount(a, b *uint256.Int) bool { return a != nil && b != nil && a.Eq(b) }

func (u *Usecase) RequestLoan(ctx context.Context, in RequestLoanInput) (*Result, error) {
	started := time.Now()
	res, err := u.requestLoan(ctx, in)
	u.finish(ctx, OpRequest, res, err, started)
	return res, err
}

func (u *Usecase) requestLoan(ctx context.Context, in RequestLoanInput) (*Result, error) {
	if !validCaller(in.Caller) {
		return nil, loan.ErrInvalidCaller
	}
	if in.Duration == 0 || in.Duration > MaxDuration {
		return nil, loan.ErrInvalidDuration
	}
	if isZero(in.CollateralAmount) || isZero(in.LoanAmount) {
		return nil, loan.ErrInvalidAmount
	}
	if !sameAmount(in.Value, in.CollateralAmount) {
		return nil, loan.ErrInvalidAmount
	}
	if _, ok := loan.RepaymentDue(in.LoanAmount, in.InterestRate); !ok {
		return nil, loan.ErrInvalidAmount
	}

	now := u.clock()
	var res *Result
	err := u.uow.WithinTx(ctx, func(r uow.Repos) error {
		id, err := r.Loans.NextID(ctx)
		if err != nil {
			return err
		}
		l := &loan.Loan{
			ID:               id,
			Borrower:         in.Caller,
			CollateralAmount: in.CollateralAmount.Clone(),
			LoanAmount:       in.LoanAmount.Clone(),
			InterestRate:     in.InterestRate,
			DueDate:          now.Add(time.Duration(in.Duration) * time.Second),
			CreatedAt:        now,
			UpdatedAt:        now,
		}
		if err := r.Loans.Create(ctx, l); err != nil {
			return err
		}
		ev := event.Requested(l, now)
		if err := r.Events.Append(ctx, ev); err != nil {
			return err
		}
		res = &Result{
			LoanID: l.ID,
			Events: []*event.Event{ev},
			Transfers: []loan.ValueTransfer{{
				Kind:   loan.TransferCollateralDeposit,
				LoanID: l.ID,
				From:   l.Borrower,
				To:     loan.Escrow,
				Amount: l.CollateralAmount.Clone(),
			}},
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (u *Usecase) FundLoan(ctx context.Context, in FundLoanInput) (*Result, error) {
	started := time.Now()
	res, err := u.fundLoan(ctx, in)
	u.finish(ctx, OpFund, res, err, started)
	return res, err
}

func (u *Usecase) fundLoan(ctx context.Context, in FundLoanInput) (*Result, error) {
	if !validCaller(in.Caller) {
		return nil, loan.ErrInvalidCaller
	}
	now := u.clock()
	var res *Result
	err := u.uow.WithinLoanTx(ctx, in.LoanID, func(r uow.Repos, l *loan.Loan) error {
		if l.IsFunded {
			return loan.ErrAlreadyFunded
		}
		if !sameAmount(in.Value, l.LoanAmount) {
			return loan.ErrIncorrectFunding
		}

		l.Lender = in.Caller
		l.IsFunded = true
		l.UpdatedAt = now
		if err := r.Loans.Save(ctx, l); err != nil {
			return err
		}
		ev := event.Funded(l, now)
		if err := r.Events.Append(ctx, ev); err != nil {
			return err
		}
		res = &Result{
			LoanID: l.ID,
			Events: []*event.Event{ev},
			Transfers: []loan.ValueTransfer{{
				Kind:   loan.TransferPrincipalDisbursement,
				LoanID: l.ID,
				From:   l.Lender,
				To:     l.Borrower,
				Amount: l.LoanAmount.Clone(),
			}},
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (u *Usecase) RepayLoan(ctx context.Context, in RepayLoanInput) (*Result, error) {
	started := time.Now()
	res, err := u.repayLoan(ctx, in)
	u.finish(ctx, OpRepay, res, err, started)
	return res, err
}

func (u *Usecase) repayLoan(ctx context.Context, in RepayLoanInput) (*Result, error) {
	if !validCaller(in.Caller) {
		return nil, loan.ErrInvalidCaller
	}
	now := u.clock()
	var res *Result
	err := u.uow.WithinLoanTx(ctx, in.LoanID, func(r uow.Repos, l *loan.Loan) error {
		switch {
		case !l.IsFunded:
			return loan.ErrNotFunded
		case l.IsRepaid:
			return loan.ErrAlreadyRepaid
		case l.IsClaimed:
			return loan.ErrAlreadyResolved
		case l.Borrower != in.Caller:
			return loan.ErrNotBorrower
		}
		due, ok := l.RepaymentDue()
		if !ok {
			return loan.ErrInvalidAmount
		}
		if !sameAmount(in.Value, due) {
			return loan.ErrIncorrectRepayment
		}

		l.IsRepaid = true
		l.UpdatedAt = now
		if err := r.Loans.Save(ctx, l); err != nil {
			return err
		}
		ev := event.Repaid(l, now)
		if err := r.Events.Append(ctx, ev); err != nil {
			return err
		}
		res = &Result{
			LoanID: l.ID,
			Events: []*event.Event{ev},
			Transfers: []loan.ValueTransfer{
				{Kind: loan.TransferRepayment, LoanID: l.ID, From: l.Borrower, To: l.Lender, Amount: due},
				{Kind: loan.TransferCollateralRelease, LoanID: l.ID, From: loan.Escrow, To: l.Borrower, Amount: l.CollateralAmount.Clone()},
			},
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (u *Usecase) ClaimCollateral(ctx context.Context, in ClaimCollateralInput) (*Result, error) {
	started := time.Now()
	res, err := u.claimCollateral(ctx, in)
	u.finish(ctx, OpClaim, res, err, started)
	return res, err
}

func (u *Usecase) claimCollateral(ctx context.Context, in ClaimCollateralInput) (*Result, error) {
	if !validCaller(in.Caller) {
		return nil, loan.ErrInvalidCaller
	}
	now := u.clock()
	var res *Result
	err := u.uow.WithinLoanTx(ctx, in.LoanID, func(r uow.Repos, l *loan.Loan) error {
		switch {
		case !l.IsFunded:
			return loan.ErrNotFunded
		case l.IsRepaid || l.IsClaimed:
			return loan.ErrAlreadyResolved
		case l.Lender != in.Caller:
			return loan.ErrNotLender
		case !now.After(l.DueDate):
			return loan.ErrNotOverdue
		}

		l.IsClaimed = true
		l.UpdatedAt = now
		if err := r.Loans.Save(ctx, l); err != nil {
			return err
		}
		ev := event.Claimed(l, now)
		if err := r.Events.Append(ctx, ev); err != nil {
			return err
		}
		res = &Result{
			LoanID: l.ID,
			Events: []*event.Event{ev},
			Transfers: []loan.ValueTransfer{{
				Kind:   loan.TransferCollateralSeizure,
				LoanID: l.ID,
				From:   loan.Escrow,
				To:     l.Lender,
				Amount: l.CollateralAmount.Clone(),
			}},
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (u *Usecase) GetLoan(ctx context.Context, loanID uint64) (*LoanView, error) {
	l, err := u.loans.GetByID(ctx, loanID)
	if err != nil {
		return nil, err
	}
	return u.view(l), nil
}

func (u *Usecase) ListBorrowerLoans(ctx context.Context, borrower string) ([]*LoanView, error) {
	ls, err := u.loans.ListByBorrower(ctx, borrower)
	if err != nil {
		return nil, err
	}
	out := make([]*LoanView, 0, len(ls))
	for _, l := range ls {
		out = append(out, u.view(l))
	}
	return out, nil
}

func (u *Usecase) view(l *loan.Loan) *LoanView {
	now := u.clock()
	due, _ := l.RepaymentDue()
	return &LoanView{Loan: l, State: l.State(), RepaymentDue: due, Overdue: l.Overdue(now), AsOf: now}
}

// LoanEvents returns the event history of one loan, oldest first.
func (u *Usecase) LoanEvents(ctx context.Context, loanID uint64) ([]*event.Event, error) {
	if _, err := u.loans.GetByID(ctx, loanID); err != nil {
		return nil, err
	}
	return u.events.ListByLoan(ctx, loanID)
}

// ListEvents pages through the ledger-wide log for indexers.
func (u *Usecase) ListEvents(ctx context.Context, after uint64, limit int) ([]*event.Event, error) {
	switch {
	case limit <= 0:
		limit = DefaultEventPage
	case limit > MaxEventPage:
		limit = MaxEventPage
	}
	return u.events.ListAfter(ctx, after, limit)
}

func (u *Usecase) finish(ctx context.Context, op string, res *Result, err error, started time.Time) {
	if u.metrics != nil {
		u.metrics.ObserveOperation(op, err, time.Since(started))
	}
	if err != nil {
		var le *loan.Error
		if errors.As(err, &le) {
			u.log.WarnContext(ctx, "ledger: transition rejected", "op", op, "kind", le.Kind, "error", le.Message)
		} else {
			u.log.ErrorContext(ctx, "ledger: transition failed", "op", op, "error", err)
		}
		return
	}
	for _, ev := range res.Events {
		u.log.InfoContext(ctx, "ledger: event", "op", op, "event", ev.Name, "loan_id", ev.LoanID, "seq", ev.Seq)
	}
	if u.pub == nil {
		return
	}
	// The event log is already committed; a failed publish is only logged.
	if perr := u.pub.Publish(ctx, res.Events); perr != nil {
		u.log.ErrorContext(ctx, "ledger: publish events", "op", op, "loan_id", res.LoanID, "error", perr)
	}
}
