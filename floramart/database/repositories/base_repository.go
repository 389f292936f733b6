package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/uptrace/bun"
)

type txKey struct{}

// TxRunner runs a function inside a single database transaction. The
// transaction travels in the context so that every repository call made from
// fn joins it; nested calls reuse the outer transaction.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// TxManager is the bun-backed TxRunner shared by all repositories.
// Transactions run serializable: bid placement re-validates price bounds
// under the auction row lock and must not see stale state.
type TxManager struct {
	db *bun.DB
}

func NewTxManager(db *bun.DB) *TxManager {
	return &TxManager{db: db}
}

func (m *TxManager) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(bun.Tx); ok {
		return fn(ctx)
	}

	tx, err := m.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		return err
	}
	return tx.Commit()
}

// idb resolves the query target: the ambient transaction when one is
// running, the plain connection otherwise.
func idb(ctx context.Context, db *bun.DB) bun.IDB {
	if tx, ok := ctx.Value(txKey{}).(bun.Tx); ok {
		return tx
	}
	return db
}
