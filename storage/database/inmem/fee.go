package inmemdb

import (
	"context"

	"github.com/biilasha/biilasha/core"
	"github.com/biilasha/biilasha/core/fee"
)

type feeRepository struct {
	db *DB
}

var _ fee.Repository = (*feeRepository)(nil) // interface compliance check

func NewFeeRepository(db *DB) fee.Repository {
	return &feeRepository{db: db}
}

func (repo *feeRepository) CreateFee(_ context.Context, fe fee.Fee, exec ...core.DBExecutor) (fee.Fee, error) {
	defer repo.db.lockWrites(exec)()

	fe.ID = repo.db.nextID("fees")
	repo.db.fees[fe.ID] = fe
	return fe, nil
}

func (repo *feeRepository) UpdateFee(_ context.Context, fe fee.Fee, exec ...core.DBExecutor) (fee.Fee, error) {
	defer repo.db.lockWrites(exec)()

	orig, ok := repo.db.fees[fe.ID]
	if !ok {
		return fee.Fee{}, fee.ErrNotFound
	}
	orig.Name = fe.Name
	orig.Description = fe.Description
	repo.db.fees[fe.ID] = orig
	return orig, nil
}

func (repo *feeRepository) GetFeeByID(_ context.Context, id int, _ ...core.DBExecutor) (fee.Fee, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if fe, ok := repo.db.fees[id]; ok {
		return fe, nil
	}
	return fee.Fee{}, fee.ErrNotFound
}

func (repo *feeRepository) QueryFees(
	_ context.Context,
	filter *fee.QueryFilter,
	ordering []core.DBOrdering,
	_ ...core.DBExecutor,
) ([]fee.Fee, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	fees := make([]fee.Fee, 0, len(repo.db.fees))
	for _, fe := range repo.db.fees {
		if filter != nil && filter.Search != "" && !contains(filter.Search, fe.Name) {
			continue
		}
		fees = append(fees, fe)
	}

	sortRows(fees, ordering, map[string]func(i, j int) int{
		"id":         func(i, j int) int { return compareInts(fees[i].ID, fees[j].ID) },
		"fee_name":   func(i, j int) int { return compareStrings(fees[i].Name, fees[j].Name) },
		"created_at": func(i, j int) int { return compareTimes(fees[i].CreatedAt, fees[j].CreatedAt) },
	}, newestFirst...)
	return fees, nil
}
