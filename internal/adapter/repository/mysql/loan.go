package mysql

import (
	"context"
	"errors"
	"time"

	loanDomain "collateral-ledger/internal/domain/loan"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type LoanRepository struct{ db *gorm.DB }

func NewLoanRepository(db *gorm.DB) *LoanRepository { return &LoanRepository{db: db} }

func (r *LoanRepository) NextID(ctx context.Context) (uint64, error) {
	return reserve(ctx, r.db, loanSequence)
}

func (r *LoanRepository) Create(ctx context.Context, l *loanDomain.Loan) error {
	return r.db.WithContext(ctx).Create(toLoanRow(l)).Error
}

// Save persists the mutable part of a record; the rest is immutable after creation.
func (r *LoanRepository) Save(ctx context.Context, l *loanDomain.Loan) error {
	updatedAt := l.UpdatedAt.UTC()
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}
	res := r.db.WithContext(ctx).Model(&loanRow{}).
		Where("loan_id = ?", l.ID).
		Updates(map[string]any{
			"lender":     l.Lender,
			"is_funded":  l.IsFunded,
			"is_repaid":  l.IsRepaid,
			"is_claimed": l.IsClaimed,
			"updated_at": updatedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		// MySQL reports zero affected rows for a no-op update; tell that apart from a missing row.
		var n int64
		if err := r.db.WithContext(ctx).Model(&loanRow{}).Where("loan_id = ?", l.ID).Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			return loanDomain.ErrLoanNotFound
		}
	}
	return nil
}

func (r *LoanRepository) GetByID(ctx context.Context, id uint64) (*loanDomain.Loan, error) {
	return r.get(r.db.WithContext(ctx), id)
}

func (r *LoanRepository) GetByIDForUpdate(ctx context.Context, id uint64) (*loanDomain.Loan, error) {
	return r.get(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

func (r *LoanRepository) get(q *gorm.DB, id uint64) (*loanDomain.Loan, error) {
	var out loanRow
	res := q.Where("loan_id = ?", id).First(&out)
	if errors.Is(res.Error, gorm.ErrRecordNotFound) {
		return nil, loanDomain.ErrLoanNotFound
	}
	if res.Error != nil {
		return nil, res.Error
	}
	return out.toDomain()
}

func (r *LoanRepository) ListByBorrower(ctx context.Context, borrower string) ([]*loanDomain.Loan, error) {
	var rows []loanRow
	res := r.db.WithContext(ctx).
		Where("borrower = ?", borrower).
		Order("loan_id ASC").
		Find(&rows)
	if res.Error != nil {
		return nil, res.Error
	}
	out := make([]*loanDomain.Loan, 0, len(rows))
	for i := range rows {
		l, err := rows[i].toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, nil
}
