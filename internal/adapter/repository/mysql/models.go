package mysql

import (
	"context"
	"fmt"
	"time"

	"github.com/holiman/uint256"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	eventDomain "collateral-ledger/internal/domain/event"
	loanDomain "collateral-ledger/internal/domain/loan"
)

const (
	loanSequence  = "loans"
	eventSequence = "events"
)

// loanRow keeps the public loan id apart from the surrogate key so that
// loan id 0 is never mistaken for an unset auto-increment column.
type loanRow struct {
	PK               uint64    `gorm:"primaryKey;column:pk"`
	LoanID           uint64    `gorm:"column:loan_id;not null;uniqueIndex:ux_loans_loan_id"`
	Borrower         string    `gorm:"column:borrower;size:64;not null;index:idx_loans_borrower"`
	Lender           string    `gorm:"column:lender;size:64"`
	CollateralAmount string    `gorm:"column:collateral_amount;type:varchar(78);not null"`
	LoanAmount       string    `gorm:"column:loan_amount;type:varchar(78);not null"`
	InterestRate     uint32    `gorm:"column:interest_rate;not null"`
	DueDate          time.Time `gorm:"column:due_date;not null"`
	IsFunded         bool      `gorm:"column:is_funded;not null;default:false"`
	IsRepaid         bool      `gorm:"column:is_repaid;not null;default:false"`
	IsClaimed        bool      `gorm:"column:is_claimed;not null;default:false"`
	CreatedAt        time.Time `gorm:"column:created_at"`
	UpdatedAt        time.Time `gorm:"column:updated_at"`
}

func (loanRow) TableName() string { return "loans" }

type eventRow struct {
	Seq              uint64     `gorm:"primaryKey;autoIncrement:false;column:seq"`
	EventID          string     `gorm:"column:event_id;type:char(32);not null;uniqueIndex:ux_ledger_events_event_id"`
	Name             string     `gorm:"column:name;size:32;not null"`
	LoanID           uint64     `gorm:"column:loan_id;not null;index:idx_ledger_events_loan"`
	Borrower         string     `gorm:"column:borrower;size:64"`
	Lender           string     `gorm:"column:lender;size:64"`
	CollateralAmount *string    `gorm:"column:collateral_amount;type:varchar(78)"`
	LoanAmount       *string    `gorm:"column:loan_amount;type:varchar(78)"`
	InterestRate     uint32     `gorm:"column:interest_rate"`
	DueDate          *time.Time `gorm:"column:due_date"`
	OccurredAt       time.Time  `gorm:"column:occurred_at;not null"`
}

func (eventRow) TableName() string { return "ledger_events" }

// sequenceRow is a named counter, locked FOR UPDATE while a value is reserved.
// The lock is held to commit, so values are handed out in commit order.
type sequenceRow struct {
	Name string `gorm:"primaryKey;column:name;size:32"`
	Next uint64 `gorm:"column:next;not null"`
}

func (sequenceRow) TableName() string { return "ledger_sequences" }

// Migrate creates the ledger tables and seeds the sequences: loan ids from 0,
// event seqs from 1 or past the highest seq already stored.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&loanRow{}, &eventRow{}, &sequenceRow{}); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	var maxSeq uint64
	if err := db.Model(&eventRow{}).Select("COALESCE(MAX(seq), 0)").Scan(&maxSeq).Error; err != nil {
		return fmt.Errorf("scan event seq: %w", err)
	}
	seeds := []sequenceRow{
		{Name: loanSequence, Next: 0},
		{Name: eventSequence, Next: maxSeq + 1},
	}
	return db.Clauses(clause.OnConflict{DoNothing: true}).Create(&seeds).Error
}

// reserve takes the next value of the named sequence. Callers run it inside a
// transaction; the row stays locked until that transaction ends.
func reserve(ctx context.Context, db *gorm.DB, name string) (uint64, error) {
	var seq sequenceRow
	res := db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("name = ?", name).
		First(&seq)
	if res.Error != nil {
		return 0, fmt.Errorf("load %s sequence: %w", name, res.Error)
	}
	res = db.WithContext(ctx).Model(&sequenceRow{}).
		Where("name = ?", name).
		Update("next", seq.Next+1)
	if res.Error != nil {
		return 0, fmt.Errorf("advance %s sequence: %w", name, res.Error)
	}
	return seq.Next, nil
}

func toLoanRow(l *loanDomain.Loan) *loanRow {
	return &loanRow{
		LoanID:           l.ID,
		Borrower:         l.Borrower,
		Lender:           l.Lender,
		CollateralAmount: l.CollateralAmount.Dec(),
		LoanAmount:       l.LoanAmount.Dec(),
		InterestRate:     l.InterestRate,
		DueDate:          l.DueDate.UTC(),
		IsFunded:         l.IsFunded,
		IsRepaid:         l.IsRepaid,
		IsClaimed:        l.IsClaimed,
		CreatedAt:        l.CreatedAt.UTC(),
		UpdatedAt:        l.UpdatedAt.UTC(),
	}
}

func (r *loanRow) toDomain() (*loanDomain.Loan, error) {
	collateral, err := uint256.FromDecimal(r.CollateralAmount)
	if err != nil {
		return nil, fmt.Errorf("loan %d collateral_amount: %w", r.LoanID, err)
	}
	principal, err := uint256.FromDecimal(r.LoanAmount)
	if err != nil {
		return nil, fmt.Errorf("loan %d loan_amount: %w", r.LoanID, err)
	}
	return &loanDomain.Loan{
		ID:               r.LoanID,
		Borrower:         r.Borrower,
		Lender:           r.Lender,
		CollateralAmount: collateral,
		LoanAmount:       principal,
		InterestRate:     r.InterestRate,
		DueDate:          r.DueDate.UTC(),
		IsFunded:         r.IsFunded,
		IsRepaid:         r.IsRepaid,
		IsClaimed:        r.IsClaimed,
		CreatedAt:        r.CreatedAt.UTC(),
		UpdatedAt:        r.UpdatedAt.UTC(),
	}, nil
}

func optDec(v *uint256.Int) *string {
	if v == nil {
		return nil
	}
	s := v.Dec()
	return &s
}

func toEventRow(e *eventDomain.Event) *eventRow {
	row := &eventRow{
		EventID:          e.EventID,
		Name:             string(e.Name),
		LoanID:           e.LoanID,
		Borrower:         e.Borrower,
		Lender:           e.Lender,
		CollateralAmount: optDec(e.CollateralAmount),
		LoanAmount:       optDec(e.LoanAmount),
		InterestRate:     e.InterestRate,
		OccurredAt:       e.OccurredAt.UTC(),
	}
	if !e.DueDate.IsZero() {
		due := e.DueDate.UTC()
		row.DueDate = &due
	}
	return row
}

func (r *eventRow) toDomain() (*eventDomain.Event, error) {
	e := &eventDomain.Event{
		Seq:          r.Seq,
		EventID:      r.EventID,
		Name:         eventDomain.Name(r.Name),
		LoanID:       r.LoanID,
		Borrower:     r.Borrower,
		Lender:       r.Lender,
		InterestRate: r.InterestRate,
		OccurredAt:   r.OccurredAt.UTC(),
	}
	if r.DueDate != nil {
		e.DueDate = r.DueDate.UTC()
	}
	var err error
	if r.CollateralAmount != nil {
		if e.CollateralAmount, err = uint256.FromDecimal(*r.CollateralAmount); err != nil {
			return nil, fmt.Errorf("event %d collateral_amount: %w", r.Seq, err)
		}
	}
	if r.LoanAmount != nil {
		if e.LoanAmount, err = uint256.FromDecimal(*r.LoanAmount); err != nil {
			return nil, fmt.Errorf("event %d loan_amount: %w", r.Seq, err)
		}
	}
	return e, nil
}
