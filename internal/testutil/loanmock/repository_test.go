package loanmock

import (
	"context"
	"errors"
	"testing"

	domain "collateral-ledger/internal/domain/loan"
)

func TestRepo_NextID(t *testing.T) {
	ctx := context.Background()
	m := &Repo{NextIDFn: func(context.Context) (uint64, error) { return 41, nil }}
	got, err := m.NextID(ctx)
	if err != nil || got != 41 {
		t.Fatalf("NextID: got %d, %v", got, err)
	}

	// Default (nil func) → context.Canceled
	m = &Repo{}
	if _, err := m.NextID(ctx); err != context.Canceled {
		t.Fatalf("NextID default: want context.Canceled, got %v", err)
	}
}

func TestRepo_Create(t *testing.T) {
	ctx := context.Background()
	l := &domain.Loan{ID: 1}

	// Uses provided func
	called := false
	wantErr := errors.New("boom")
	m := &Repo{
		CreateFn: func(gotCtx context.Context, got *domain.Loan) error {
			called = true
			if gotCtx != ctx {
				t.Fatalf("Create ctx mismatch")
			}
			if got != l {
				t.Fatalf("Create arg mismatch")
			}
			return wantErr
		},
	}
	if err := m.Create(ctx, l); !errors.Is(err, wantErr) {
		t.Fatalf("Create: want %v, got %v", wantErr, err)
	}
	if !called {
		t.Fatalf("CreateFn not called")
	}

	// Default (nil func) → no-op, nil error
	m = &Repo{}
	if err := m.Create(ctx, l); err != nil {
		t.Fatalf("Create default: want nil, got %v", err)
	}
}

func TestRepo_GetByID(t *testing.T) {
	ctx := context.Background()
	want := &domain.Loan{ID: 2}

	called := false
	m := &Repo{
		GetByIDFn: func(gotCtx context.Context, id uint64) (*domain.Loan, error) {
			called = true
			if id != 2 {
				t.Fatalf("GetByID id mismatch: got %d", id)
			}
			return want, nil
		},
	}
	got, err := m.GetByID(ctx, 2)
	if err != nil {
		t.Fatalf("GetByID: unexpected err: %v", err)
	}
	if got != want {
		t.Fatalf("GetByID: want %+v, got %+v", want, got)
	}
	if !called {
		t.Fatalf("GetByIDFn not called")
	}

	m = &Repo{}
	got, err = m.GetByID(ctx, 2)
	if err != context.Canceled {
		t.Fatalf("GetByID default: want context.Canceled, got %v", err)
	}
	if got != nil {
		t.Fatalf("GetByID default: want nil loan, got %+v", got)
	}
}

func TestRepo_GetByIDForUpdate(t *testing.T) {
	ctx := context.Background()
	want := &domain.Loan{ID: 5}

	m := &Repo{
		GetByIDForUpdateFn: func(_ context.Context, id uint64) (*domain.Loan, error) {
			if id != 5 {
				t.Fatalf("GetByIDForUpdate id mismatch: got %d", id)
			}
			return want, nil
		},
	}
	got, err := m.GetByIDForUpdate(ctx, 5)
	if err != nil || got != want {
		t.Fatalf("GetByIDForUpdate: got %+v, %v", got, err)
	}

	m = &Repo{}
	if _, err := m.GetByIDForUpdate(ctx, 5); err != context.Canceled {
		t.Fatalf("GetByIDForUpdate default: want context.Canceled, got %v", err)
	}
}

func TestRepo_Save(t *testing.T) {
	ctx := context.Background()
	l := &domain.Loan{ID: 3}

	wantErr := errors.New("save-fail")
	m := &Repo{
		SaveFn: func(_ context.Context, got *domain.Loan) error {
			if got != l {
				t.Fatalf("Save arg mismatch")
			}
			return wantErr
		},
	}
	if err := m.Save(ctx, l); !errors.Is(err, wantErr) {
		t.Fatalf("Save: want %v, got %v", wantErr, err)
	}

	// Default (nil func) → no-op, nil error
	m = &Repo{}
	if err := m.Save(ctx, l); err != nil {
		t.Fatalf("Save default: want nil, got %v", err)
	}
}

func TestRepo_ListByBorrower(t *testing.T) {
	ctx := context.Background()
	want := []*domain.Loan{{ID: 4}}

	m := &Repo{
		ListByBorrowerFn: func(_ context.Context, borrower string) ([]*domain.Loan, error) {
			if borrower != "BR-1" {
				t.Fatalf("ListByBorrower borrower mismatch: got %s", borrower)
			}
			return want, nil
		},
	}
	got, err := m.ListByBorrower(ctx, "BR-1")
	if err != nil || len(got) != 1 || got[0] != want[0] {
		t.Fatalf("ListByBorrower: got %+v, %v", got, err)
	}

	m = &Repo{}
	if _, err := m.ListByBorrower(ctx, "BR-1"); err != context.Canceled {
		t.Fatalf("ListByBorrower default: want context.Canceled, got %v", err)
	}
}
