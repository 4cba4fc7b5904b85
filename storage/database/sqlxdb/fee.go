package sqlxrepos

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/volatiletech/null/v8"

	"github.com/biilasha/biilasha/core"
	"github.com/biilasha/biilasha/core/fee"
)

const feeColumns = "id, fee_name, description, created_at"

var feeOrderColumns = map[string]string{
	"id":         "id",
	"fee_name":   "fee_name",
	"created_at": "created_at",
}

type feeRow struct {
	ID          int         `db:"id"`
	FeeName     string      `db:"fee_name"`
	Description null.String `db:"description"`
	CreatedAt   time.Time   `db:"created_at"`
}

func (r feeRow) fee() fee.Fee {
	return fee.Fee{ID: r.ID, Name: r.FeeName, Description: r.Description, CreatedAt: r.CreatedAt.UTC()}
}

type feeRepository struct {
	baseRepository
}

var _ fee.Repository = (*feeRepository)(nil) // interface compliance check

func NewFeeRepository(db *sqlx.DB) fee.Repository {
	return &feeRepository{baseRepository{db: db}}
}

func (repo feeRepository) CreateFee(ctx context.Context, fe fee.Fee, exec ...core.DBExecutor) (fee.Fee, error) {
	qb := psql.Insert("fees").
		Columns("fee_name", "description", "created_at").
		Values(fe.Name, fe.Description, fe.CreatedAt.UTC()).
		Suffix("RETURNING " + feeColumns)

	var row feeRow
	if err := repo.get(ctx, exec, &row, qb); err != nil {
		return fee.Fee{}, core.NewStoreError("inserting fee", err)
	}
	return row.fee(), nil
}

func (repo feeRepository) UpdateFee(ctx context.Context, fe fee.Fee, exec ...core.DBExecutor) (fee.Fee, error) {
	qb := psql.Update("fees").
		Set("fee_name", fe.Name).
		Set("description", fe.Description).
		Where(sq.Eq{"id": fe.ID}).
		Suffix("RETURNING " + feeColumns)

	var row feeRow
	if err := repo.get(ctx, exec, &row, qb); err != nil {
		return fee.Fee{}, trapNoRowsErr(err, fee.ErrNotFound, "updating fee")
	}
	return row.fee(), nil
}

func (repo feeRepository) GetFeeByID(ctx context.Context, id int, exec ...core.DBExecutor) (fee.Fee, error) {
	qb := psql.Select(feeColumns).From("fees").Where(sq.Eq{"id": id})

	var row feeRow
	if err := repo.get(ctx, exec, &row, qb); err != nil {
		return fee.Fee{}, trapNoRowsErr(err, fee.ErrNotFound, "finding fee by ID")
	}
	return row.fee(), nil
}

func (repo feeRepository) QueryFees(
	ctx context.Context,
	filter *fee.QueryFilter,
	ordering []core.DBOrdering,
	exec ...core.DBExecutor,
) ([]fee.Fee, error) {
	qb := psql.Select(feeColumns).From("fees")
	if filter != nil && filter.Search != "" {
		qb = qb.Where(sq.ILike{"fee_name": likeValue(filter.Search)})
	}
	qb = qb.OrderBy(orderBy(ordering, feeOrderColumns, "created_at DESC", "id DESC")...)

	var rows []feeRow
	if err := repo.selectAll(ctx, exec, &rows, qb); err != nil {
		return nil, core.NewStoreError("querying fees", err)
	}
	fees := make([]fee.Fee, 0, len(rows))
	for _, r := range rows {
		fees = append(fees, r.fee())
	}
	return fees, nil
}
