package repositories_test

import (
	"context"
	"errors"
	"io"
	"log"
	"math"
	"os"
	"sync"
	"testing"

	"marketplace/internal/apperr"
	"marketplace/internal/database"
	"marketplace/internal/models"
	"marketplace/internal/repositories"
	"marketplace/internal/services"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestMain(m *testing.M) {
	log.SetOutput(io.Discard)
	os.Exit(m.Run())
}

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.OpenInMemory()
	require.NoError(t, err)
	return db
}

func seedProduct(t *testing.T, db *gorm.DB, vendorID, price string, stock int) *models.Product {
	t.Helper()
	product := &models.Product{
		VendorID: vendorID,
		Name:     "product of " + vendorID,
		Price:    decimal.RequireFromString(price),
		Stock:    stock,
	}
	require.NoError(t, repositories.NewGORMProductRepository(db).Create(context.Background(), product))
	return product
}

func stockOf(t *testing.T, db *gorm.DB, id string) int {
	t.Helper()
	product, err := repositories.NewGORMProductRepository(db).GetByID(context.Background(), id)
	require.NoError(t, err)
	return product.Stock
}

func countRows(t *testing.T, db *gorm.DB, model interface{}) int64 {
	t.Helper()
	var count int64
	require.NoError(t, db.Model(model).Count(&count).Error)
	return count
}

func TestPlaceComputesTotalAndDecrementsStock(t *testing.T) {
	db := setupDB(t)
	repo := repositories.NewGORMOrderRepository(db)
	p := seedProduct(t, db, "vendor-1", "10.00", 5)
	q := seedProduct(t, db, "vendor-2", "5.00", 3)

	order := &models.Order{CustomerID: "customer-1", Items: []models.OrderItem{
		{ProductID: p.ID, Quantity: 2},
		{ProductID: q.ID, Quantity: 1},
	}}
	vendorIDs, err := repo.Place(context.Background(), order)
	require.NoError(t, err)

	assert.NotEmpty(t, order.ID)
	assert.Equal(t, models.OrderStatusPending, order.Status)
	assert.True(t, decimal.RequireFromString("25.00").Equal(order.TotalPrice), "total %s", order.TotalPrice)
	assert.ElementsMatch(t, []string{"vendor-1", "vendor-2"}, vendorIDs)
	assert.Equal(t, 3, stockOf(t, db, p.ID))
	assert.Equal(t, 2, stockOf(t, db, q.ID))

	stored, err := repo.GetByID(context.Background(), order.ID)
	require.NoError(t, err)
	require.Len(t, stored.Items, 2)
	assert.True(t, stored.ComputeTotal().Equal(stored.TotalPrice))
}

func TestPlaceReportsDistinctVendors(t *testing.T) {
	db := setupDB(t)
	repo := repositories.NewGORMOrderRepository(db)
	a := seedProduct(t, db, "vendor-1", "1.00", 5)
	b := seedProduct(t, db, "vendor-1", "2.00", 5)

	vendorIDs, err := repo.Place(context.Background(), &models.Order{CustomerID: "c", Items: []models.OrderItem{
		{ProductID: a.ID, Quantity: 1},
		{ProductID: b.ID, Quantity: 1},
	}})
	require.NoError(t, err)
	assert.Equal(t, []string{"vendor-1"}, vendorIDs)
}

func TestPlaceOutOfStockLeavesStoreUnchanged(t *testing.T) {
	db := setupDB(t)
	repo := repositories.NewGORMOrderRepository(db)
	p := seedProduct(t, db, "vendor-1", "10.00", 5)
	q := seedProduct(t, db, "vendor-2", "5.00", 1)

	_, err := repo.Place(context.Background(), &models.Order{CustomerID: "c", Items: []models.OrderItem{
		{ProductID: p.ID, Quantity: 2},
		{ProductID: q.ID, Quantity: 2},
	}})
	require.Error(t, err)

	var stockErr *apperr.OutOfStockError
	require.True(t, errors.As(err, &stockErr))
	assert.Equal(t, q.ID, stockErr.ProductID)
	assert.Equal(t, 1, stockErr.Available)

	assert.Equal(t, 5, stockOf(t, db, p.ID), "earlier decrement must roll back")
	assert.Equal(t, 1, stockOf(t, db, q.ID))
	assert.Zero(t, countRows(t, db, &models.Order{}))
	assert.Zero(t, countRows(t, db, &models.OrderItem{}))
}

func TestPlaceRejectsNonPositiveQuantity(t *testing.T) {
	db := setupDB(t)
	repo := repositories.NewGORMOrderRepository(db)
	p := seedProduct(t, db, "vendor-1", "10.00", 5)

	for _, quantity := range []int{0, -2} {
		_, err := repo.Place(context.Background(), &models.Order{CustomerID: "c", Items: []models.OrderItem{
			{ProductID: p.ID, Quantity: 1},
			{ProductID: p.ID, Quantity: quantity},
		}})
		assert.ErrorIs(t, err, apperr.ErrValidation, "quantity %d", quantity)
	}

	assert.Equal(t, 5, stockOf(t, db, p.ID))
	assert.Zero(t, countRows(t, db, &models.Order{}))
	assert.Zero(t, countRows(t, db, &models.OrderItem{}))
}

func TestCreateOrderMergedQuantityAboveStock(t *testing.T) {
	db := setupDB(t)
	service := services.NewOrderService(repositories.NewGORMOrderRepository(db), nil)
	p := seedProduct(t, db, "vendor-1", "10.00", 5)
	buyer := services.Viewer{UserID: "customer-1"}

	_, err := service.CreateOrder(context.Background(), buyer, []models.ItemRequest{
		{ProductID: p.ID, Quantity: 3},
		{ProductID: p.ID, Quantity: 3},
	})
	var stockErr *apperr.OutOfStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, 6, stockErr.Requested)
	assert.Equal(t, 5, stockErr.Available)

	_, err = service.CreateOrder(context.Background(), buyer, []models.ItemRequest{
		{ProductID: p.ID, Quantity: math.MaxInt},
		{ProductID: p.ID, Quantity: math.MaxInt},
	})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	assert.Equal(t, 5, stockOf(t, db, p.ID))
	assert.Zero(t, countRows(t, db, &models.Order{}))
	assert.Zero(t, countRows(t, db, &models.OrderItem{}))
}

func TestPlaceUnknownProduct(t *testing.T) {
	db := setupDB(t)
	repo := repositories.NewGORMOrderRepository(db)
	p := seedProduct(t, db, "vendor-1", "10.00", 5)

	_, err := repo.Place(context.Background(), &models.Order{CustomerID: "c", Items: []models.OrderItem{
		{ProductID: p.ID, Quantity: 1},
		{ProductID: "missing", Quantity: 1},
	}})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.Equal(t, 5, stockOf(t, db, p.ID))
	assert.Zero(t, countRows(t, db, &models.Order{}))
}

func TestPlaceSnapshotsPrice(t *testing.T) {
	db := setupDB(t)
	orders := repositories.NewGORMOrderRepository(db)
	products := repositories.NewGORMProductRepository(db)
	p := seedProduct(t, db, "vendor-1", "10.00", 5)

	order := &models.Order{CustomerID: "c", Items: []models.OrderItem{{ProductID: p.ID, Quantity: 1}}}
	_, err := orders.Place(context.Background(), order)
	require.NoError(t, err)

	p.Price = decimal.RequireFromString("99.00")
	p.Stock = 4
	require.NoError(t, products.Update(context.Background(), p))

	stored, err := orders.GetByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("10.00").Equal(stored.Items[0].Price))
	assert.True(t, decimal.RequireFromString("10.00").Equal(stored.TotalPrice))
}

func TestPlaceConcurrentOrdersNeverOversell(t *testing.T) {
	db := setupDB(t)
	repo := repositories.NewGORMOrderRepository(db)
	p := seedProduct(t, db, "vendor-1", "10.00", 5)

	const workers = 2
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = repo.Place(context.Background(), &models.Order{
				CustomerID: "c",
				Items:      []models.OrderItem{{ProductID: p.ID, Quantity: 3}},
			})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, apperr.ErrOutOfStock)
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 2, stockOf(t, db, p.ID))
	assert.Equal(t, int64(1), countRows(t, db, &models.Order{}))
}

func TestListVisibleTo(t *testing.T) {
	db := setupDB(t)
	repo := repositories.NewGORMOrderRepository(db)
	ctx := context.Background()
	p := seedProduct(t, db, "vendor-1", "1.00", 10)
	q := seedProduct(t, db, "vendor-1", "1.00", 10)
	other := seedProduct(t, db, "vendor-2", "1.00", 10)

	both := &models.Order{CustomerID: "customer-1", Items: []models.OrderItem{
		{ProductID: p.ID, Quantity: 1}, {ProductID: q.ID, Quantity: 1},
	}}
	_, err := repo.Place(ctx, both)
	require.NoError(t, err)
	unrelated := &models.Order{CustomerID: "customer-2", Items: []models.OrderItem{{ProductID: other.ID, Quantity: 1}}}
	_, err = repo.Place(ctx, unrelated)
	require.NoError(t, err)
	own := &models.Order{CustomerID: "vendor-1", Items: []models.OrderItem{{ProductID: other.ID, Quantity: 1}}}
	_, err = repo.Place(ctx, own)
	require.NoError(t, err)

	customerOrders, err := repo.ListVisibleTo(ctx, "customer-1", false)
	require.NoError(t, err)
	require.Len(t, customerOrders, 1)
	assert.Equal(t, both.ID, customerOrders[0].ID)
	assert.Len(t, customerOrders[0].Items, 2)

	vendorOrders, err := repo.ListVisibleTo(ctx, "vendor-1", true)
	require.NoError(t, err)
	ids := make([]string, 0, len(vendorOrders))
	for _, o := range vendorOrders {
		ids = append(ids, o.ID)
	}
	assert.ElementsMatch(t, []string{both.ID, own.ID}, ids, "two items from one vendor must not duplicate the order")

	involved, err := repo.HasVendorItem(ctx, both.ID, "vendor-1")
	require.NoError(t, err)
	assert.True(t, involved)
	involved, err = repo.HasVendorItem(ctx, both.ID, "vendor-2")
	require.NoError(t, err)
	assert.False(t, involved)
}

func TestUpdateStatus(t *testing.T) {
	db := setupDB(t)
	repo := repositories.NewGORMOrderRepository(db)
	ctx := context.Background()
	p := seedProduct(t, db, "vendor-1", "1.00", 10)
	order := &models.Order{CustomerID: "c", Items: []models.OrderItem{{ProductID: p.ID, Quantity: 1}}}
	_, err := repo.Place(ctx, order)
	require.NoError(t, err)

	changed, err := repo.UpdateStatus(ctx, order.ID, models.OrderStatusPaid)
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = repo.UpdateStatus(ctx, order.ID, models.OrderStatusPaid)
	require.NoError(t, err)
	assert.False(t, changed, "repeating a transition is a no-op")

	_, err = repo.UpdateStatus(ctx, order.ID, models.OrderStatusCancelled, models.OrderStatusPending)
	assert.ErrorIs(t, err, apperr.ErrValidation)

	changed, err = repo.UpdateStatus(ctx, order.ID, models.OrderStatusShipped, models.OrderStatusPaid)
	require.NoError(t, err)
	assert.True(t, changed)

	_, err = repo.UpdateStatus(ctx, "missing", models.OrderStatusPaid)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestCancelRestocks(t *testing.T) {
	db := setupDB(t)
	repo := repositories.NewGORMOrderRepository(db)
	ctx := context.Background()
	p := seedProduct(t, db, "vendor-1", "1.00", 4)
	order := &models.Order{CustomerID: "c", Items: []models.OrderItem{{ProductID: p.ID, Quantity: 3}}}
	_, err := repo.Place(ctx, order)
	require.NoError(t, err)
	require.Equal(t, 1, stockOf(t, db, p.ID))

	cancelled, err := repo.Cancel(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCancelled, cancelled.Status)
	assert.Equal(t, 4, stockOf(t, db, p.ID))

	_, err = repo.Cancel(ctx, order.ID)
	assert.ErrorIs(t, err, apperr.ErrValidation)
	assert.Equal(t, 4, stockOf(t, db, p.ID))
}
