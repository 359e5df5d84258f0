package db

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
)

type fakeTx struct {
	pgx.Tx
	committed  bool
	rolledBack bool
}

func (f *fakeTx) Commit(context.Context) error {
	f.committed = true
	return nil
}

func (f *fakeTx) Rollback(context.Context) error {
	if !f.committed {
		f.rolledBack = true
	}
	return nil
}

type fakeBeginner struct {
	tx     *fakeTx
	begins int
}

func (f *fakeBeginner) BeginTx(context.Context, pgx.TxOptions) (pgx.Tx, error) {
	f.begins++
	f.tx = &fakeTx{}
	return f.tx, nil
}

func TestTxFromContext_Empty(t *testing.T) {
	if TxFromContext(context.Background()) != nil {
		t.Error("expected nil transaction")
	}
}

func TestWithTx_Commits(t *testing.T) {
	b := &fakeBeginner{}
	err := WithTx(context.Background(), b, func(ctx context.Context) error {
		if TxFromContext(ctx) == nil {
			t.Error("expected transaction in context")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !b.tx.committed || b.tx.rolledBack {
		t.Errorf("expected commit, got %+v", b.tx)
	}
}

func TestWithTx_RollsBackOnError(t *testing.T) {
	b := &fakeBeginner{}
	want := errors.New("insufficient balance")
	err := WithTx(context.Background(), b, func(context.Context) error { return want })
	if !errors.Is(err, want) {
		t.Fatalf("expected %v, got %v", want, err)
	}
	if b.tx.committed || !b.tx.rolledBack {
		t.Errorf("expected rollback, got %+v", b.tx)
	}
}

func TestWithTx_NestedReusesOuter(t *testing.T) {
	b := &fakeBeginner{}
	r := NewRunner(b)
	err := r.InTx(context.Background(), func(ctx context.Context) error {
		outer := TxFromContext(ctx)
		return r.InTx(ctx, func(inner context.Context) error {
			if TxFromContext(inner) != outer {
				t.Error("expected nested call to reuse outer transaction")
			}
			return nil
		})
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b.begins != 1 {
		t.Errorf("expected one BeginTx, got %d", b.begins)
	}
}

func TestConn_FallsBackToQuerier(t *testing.T) {
	var q Querier = &fakeTx{}
	if Conn(context.Background(), q) != q {
		t.Error("expected fallback querier")
	}
	tx := &fakeTx{}
	ctx := context.WithValue(context.Background(), DBTxKey, pgx.Tx(tx))
	if Conn(ctx, q) != Querier(tx) {
		t.Error("expected transaction from context")
	}
}
