package database

import (
	"context"
	"database/sql"

	"github.com/cockroachdb/cockroach-go/v2/crdb/crdbgorm"
	"gorm.io/gorm"
)

// WithTx runs fn inside a single transaction. On Postgres the transaction is
// serializable and retried by crdbgorm when the server reports a
// serialization failure (SQLSTATE 40001); fn must therefore be safe to re-run.
// Other dialects use a plain GORM transaction.
func WithTx(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) error {
	if db.Dialector.Name() == "postgres" {
		return crdbgorm.ExecuteTx(ctx, db, &sql.TxOptions{Isolation: sql.LevelSerializable}, fn)
	}
	return db.WithContext(ctx).Transaction(fn)
}
