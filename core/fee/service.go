package fee

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/biilasha/biilasha/core"
)

var ErrNotFound = errors.New("fee not found")

// Orderings maps the accepted `ordering` fields to their column.
var Orderings = map[string]string{
	"id":         "id",
	"fee_name":   "fee_name",
	"created_at": "created_at",
}

type (
	Repository interface {
		CreateFee(ctx context.Context, fee Fee, exec ...core.DBExecutor) (Fee, error)
		UpdateFee(ctx context.Context, fee Fee, exec ...core.DBExecutor) (Fee, error)
		GetFeeByID(ctx context.Context, id int, exec ...core.DBExecutor) (Fee, error)
		// QueryFees does a case-insensitive match of QueryFilter.Search on Fee.Name.
		// Newest first unless ordered otherwise.
		QueryFees(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Fee, error)
	}

	Service interface {
		Create(ctx context.Context, nf NewFee) (Fee, error)
		Update(ctx context.Context, id int, uf UpdateFee) (Fee, error)
		GetByID(ctx context.Context, id int) (Fee, error)
		Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Fee, error)
	}

	service struct {
		repo  Repository
		cache *core.Cache
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, cache *core.Cache) Service {
	return &service{repo: repo, cache: cache}
}

func (svc *service) Create(ctx context.Context, nf NewFee) (Fee, error) {
	fee, err := svc.repo.CreateFee(ctx, Fee{
		Name:        nf.Name,
		Description: descriptionOf(nf.Description),
		CreatedAt:   time.Now().UTC(),
	})
	if err != nil {
		return Fee{}, errors.Wrap(err, "creating fee")
	}
	svc.cache.Invalidate(core.ResourceFees)
	return fee, nil
}

func (svc *service) Update(ctx context.Context, id int, uf UpdateFee) (Fee, error) {
	fee, err := svc.repo.GetFeeByID(ctx, id)
	if err != nil {
		return Fee{}, errors.Wrap(err, "finding fee by ID")
	}
	fee.Name = uf.Name
	fee.Description = descriptionOf(uf.Description)

	fee, err = svc.repo.UpdateFee(ctx, fee)
	if err != nil {
		return Fee{}, errors.Wrap(err, "updating fee")
	}
	svc.cache.Invalidate(core.ResourceFees)
	return fee, nil
}

func (svc *service) GetByID(ctx context.Context, id int) (Fee, error) {
	return svc.repo.GetFeeByID(ctx, id)
}

func (svc *service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Fee, error) {
	return svc.repo.QueryFees(ctx, filter, core.MapOrderings(ordering, Orderings))
}
