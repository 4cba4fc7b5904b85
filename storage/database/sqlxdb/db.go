// Package sqlxrepos implements the repositories on PostgreSQL, with sqlx & squirrel.
package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/biilasha/biilasha/core"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

type baseRepository struct {
	db *sqlx.DB
}

// getExec returns the service's executor (eg. a transaction) if any, the DB otherwise.
func (repo baseRepository) getExec(svcExec []core.DBExecutor) sqlx.ExtContext {
	if len(svcExec) > 0 && svcExec[0] != nil {
		if ext, ok := svcExec[0].(sqlx.ExtContext); ok {
			return ext
		}
	}
	return repo.db
}

func (repo baseRepository) get(ctx context.Context, exec []core.DBExecutor, dest interface{}, qb sq.Sqlizer) error {
	query, args, err := qb.ToSql()
	if err != nil {
		return errors.Wrap(err, "building query")
	}
	return sqlx.GetContext(ctx, repo.getExec(exec), dest, query, args...)
}

func (repo baseRepository) selectAll(ctx context.Context, exec []core.DBExecutor, dest interface{}, qb sq.Sqlizer) error {
	query, args, err := qb.ToSql()
	if err != nil {
		return errors.Wrap(err, "building query")
	}
	return sqlx.SelectContext(ctx, repo.getExec(exec), dest, query, args...)
}

func (repo baseRepository) exec(ctx context.Context, exec []core.DBExecutor, qb sq.Sqlizer) (sql.Result, error) {
	query, args, err := qb.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}
	return repo.getExec(exec).ExecContext(ctx, query, args...)
}

// trapNoRowsErr maps the "no rows" error to notFound and any other to a core.StoreError.
func trapNoRowsErr(err error, notFound error, op string) error {
	if errors.Cause(err) == sql.ErrNoRows {
		return notFound
	}
	return core.NewStoreError(op, err)
}

// orderBy renders orderings with their qualified columns, falling back to defaults.
func orderBy(ordering []core.DBOrdering, columns map[string]string, defaults ...string) []string {
	clauses := make([]string, 0, len(ordering)+len(defaults))
	for _, ord := range ordering {
		if col, ok := columns[ord.Field]; ok {
			ord.Field = col
			clauses = append(clauses, ord.String())
		}
	}
	if len(clauses) == 0 {
		return defaults
	}
	return clauses
}

func likeValue(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(s) + "%"
}

// Transactor runs functions inside database transactions.
type Transactor struct {
	db *sqlx.DB
}

var _ core.Transactor = (*Transactor)(nil)

func NewTransactor(db *sqlx.DB) *Transactor {
	return &Transactor{db: db}
}

func (t *Transactor) WithinTx(ctx context.Context, fn func(exec core.DBExecutor) error) (err error) {
	tx, err := t.db.BeginTxx(ctx, nil)
	if err != nil {
		return core.NewStoreError("beginning transaction", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err = fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err = tx.Commit(); err != nil {
		return core.NewStoreError("committing transaction", err)
	}
	return nil
}
