package inventory_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/Zhima-Mochi/minishop-orchestrator/internal/application/failure"
	appinventory "github.com/Zhima-Mochi/minishop-orchestrator/internal/application/inventory"
	dominv "github.com/Zhima-Mochi/minishop-orchestrator/internal/domain/inventory"
	domorder "github.com/Zhima-Mochi/minishop-orchestrator/internal/domain/order"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCatalog struct {
	products  map[uuid.UUID]*dominv.Product
	lookupErr map[uuid.UUID]error
	reduceErr map[uuid.UUID]error
	lookups   []uuid.UUID
	reduced   map[uuid.UUID]int
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{
		products:  map[uuid.UUID]*dominv.Product{},
		lookupErr: map[uuid.UUID]error{},
		reduceErr: map[uuid.UUID]error{},
		reduced:   map[uuid.UUID]int{},
	}
}

func (f *fakeCatalog) add(price string, stock int) uuid.UUID {
	id := uuid.New()
	f.products[id] = &dominv.Product{ID: id, Name: "Item", Brand: "Brand", Price: decimal.RequireFromString(price), Stock: stock}
	return id
}

func (f *fakeCatalog) GetProduct(_ context.Context, id uuid.UUID) (*dominv.Product, error) {
	f.lookups = append(f.lookups, id)
	if err := f.lookupErr[id]; err != nil {
		return nil, err
	}
	p, ok := f.products[id]
	if !ok {
		return nil, fmt.Errorf("%w: status 404", dominv.ErrUnavailable)
	}
	return p, nil
}

func (f *fakeCatalog) ReduceStock(_ context.Context, id uuid.UUID, quantity int) error {
	if err := f.reduceErr[id]; err != nil {
		return err
	}
	f.reduced[id] += quantity
	return nil
}

func TestVerifyStockReportsShortLines(t *testing.T) {
	cat := newFakeCatalog()
	p1 := cat.add("10.00", 10)
	p2 := cat.add("3.50", 1)
	p3 := cat.add("1.00", 0)
	uc := appinventory.NewVerifyStockUseCase(cat, nil)

	report, err := uc.Execute(context.Background(), appinventory.VerifyStockInput{Lines: []domorder.CartLine{
		{ProductID: p1, Quantity: 2},
		{ProductID: p2, Quantity: 2},
		{ProductID: p3, Quantity: 1},
	}})

	require.NoError(t, err)
	assert.False(t, report.Success)
	assert.Equal(t, []uuid.UUID{p2, p3}, report.Insufficient())
	require.Len(t, report.Lines, 3)
	assert.True(t, decimal.RequireFromString("10.00").Equal(report.Lines[0].Item.UnitPrice()))
	assert.Equal(t, []uuid.UUID{p1, p2, p3}, cat.lookups)
}

func TestVerifyStockAllCovered(t *testing.T) {
	cat := newFakeCatalog()
	p1 := cat.add("10.00", 2)
	uc := appinventory.NewVerifyStockUseCase(cat, nil)

	report, err := uc.Execute(context.Background(), appinventory.VerifyStockInput{Lines: []domorder.CartLine{{ProductID: p1, Quantity: 2}}})

	require.NoError(t, err)
	assert.True(t, report.Success)
	assert.Empty(t, report.Insufficient())
	assert.Len(t, report.Items(), 1)
}

func TestVerifyStockClassifiesLookupFailures(t *testing.T) {
	cat := newFakeCatalog()
	down := uuid.New()
	broken := uuid.New()
	cat.lookupErr[down] = fmt.Errorf("%w: dial tcp: refused", dominv.ErrUnavailable)
	cat.lookupErr[broken] = fmt.Errorf("%w: missing priceInSGD", dominv.ErrMalformedProduct)
	uc := appinventory.NewVerifyStockUseCase(cat, nil)

	_, err := uc.Execute(context.Background(), appinventory.VerifyStockInput{Lines: []domorder.CartLine{{ProductID: down, Quantity: 1}}})
	assert.Equal(t, failure.InventoryUnavailable, failure.KindOf(err))

	_, err = uc.Execute(context.Background(), appinventory.VerifyStockInput{Lines: []domorder.CartLine{{ProductID: broken, Quantity: 1}}})
	assert.Equal(t, failure.InventoryContract, failure.KindOf(err))
}

func TestVerifyStockStopsAtFirstFailure(t *testing.T) {
	cat := newFakeCatalog()
	down := uuid.New()
	cat.lookupErr[down] = dominv.ErrUnavailable
	later := cat.add("1", 1)
	uc := appinventory.NewVerifyStockUseCase(cat, nil)

	_, err := uc.Execute(context.Background(), appinventory.VerifyStockInput{Lines: []domorder.CartLine{
		{ProductID: down, Quantity: 1},
		{ProductID: later, Quantity: 1},
	}})

	require.Error(t, err)
	assert.Equal(t, []uuid.UUID{down}, cat.lookups)
}

func TestCommitStockReducesEveryItem(t *testing.T) {
	cat := newFakeCatalog()
	p1, p2 := uuid.New(), uuid.New()
	i1, _ := domorder.NewItem(p1, 2, decimal.NewFromInt(1), "", "")
	i2, _ := domorder.NewItem(p2, 3, decimal.NewFromInt(1), "", "")
	uc := appinventory.NewCommitStockUseCase(cat, nil)

	res, err := uc.Execute(context.Background(), appinventory.CommitStockInput{Items: []domorder.Item{i1, i2}})

	require.NoError(t, err)
	assert.Equal(t, []string{p1.String(), p2.String()}, res.Committed)
	assert.Equal(t, map[uuid.UUID]int{p1: 2, p2: 3}, cat.reduced)
}

func TestCommitStockReportsPartialProgress(t *testing.T) {
	cat := newFakeCatalog()
	p1, p2, p3 := uuid.New(), uuid.New(), uuid.New()
	cat.reduceErr[p2] = errors.New("503 from inventory")
	items := make([]domorder.Item, 0, 3)
	for _, id := range []uuid.UUID{p1, p2, p3} {
		it, _ := domorder.NewItem(id, 1, decimal.NewFromInt(1), "", "")
		items = append(items, it)
	}
	uc := appinventory.NewCommitStockUseCase(cat, nil)

	res, err := uc.Execute(context.Background(), appinventory.CommitStockInput{Items: items})

	require.Error(t, err)
	assert.ErrorIs(t, err, appinventory.ErrCommitIncomplete)
	assert.Equal(t, failure.InventoryUnavailable, failure.KindOf(err))
	assert.Equal(t, []string{p1.String()}, res.Committed)
	assert.NotContains(t, cat.reduced, p3)
}
