package usecase_test

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"

	"smartplant/internal/domain/model"
	"smartplant/internal/infra/events"
	infraRepo "smartplant/internal/infra/repository"
	"smartplant/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type storeEnv struct {
	db        *gorm.DB
	cart      *usecase.CartUsecase
	orders    *usecase.OrderUsecase
	admin     *usecase.AdminOrderUsecase
	publisher *recordingPublisher
}

func newStoreEnv(t *testing.T) storeEnv {
	t.Helper()

	gdb := newTestDB(t)
	cartRepo := infraRepo.NewCartGormRepository(gdb)
	productRepo := infraRepo.NewProductGormRepository(gdb)
	orderRepo := infraRepo.NewOrderGormRepository(gdb)
	addressRepo := infraRepo.NewAddressGormRepository(gdb)
	txm := infraRepo.NewTxManagerGorm(gdb)
	pub := &recordingPublisher{}

	return storeEnv{
		db:        gdb,
		cart:      usecase.NewCartUsecase(cartRepo, cartRepo, productRepo),
		orders:    usecase.NewOrderUsecase(txm, orderRepo, addressRepo, pub, nopLogger()),
		admin:     usecase.NewAdminOrderUsecase(txm, orderRepo, pub, nopLogger()),
		publisher: pub,
	}
}

func (e storeEnv) addToCart(t *testing.T, userID, productID, qty int64) {
	t.Helper()
	_, err := e.cart.AddItem(context.Background(), userID, usecase.AddCartInput{ProductID: productID, Quantity: qty})
	require.NoError(t, err)
}

func TestCheckout_Success_SnapshotsPricesAndDecrementsStock(t *testing.T) {
	ctx := context.Background()
	env := newStoreEnv(t)

	u := seedUser(t, env.db, "buyer@example.com", true)
	cat := seedCategory(t, env.db, "indoor")
	fern := seedProduct(t, env.db, cat.ID, "fern", 1000, 5)
	pot := seedProduct(t, env.db, cat.ID, "pot", 500, 2)

	env.addToCart(t, u.ID, fern.ID, 2)
	env.addToCart(t, u.ID, pot.ID, 1)

	out, created, err := env.orders.Checkout(ctx, u.ID, usecase.CheckoutInput{ShippingAddress: "1 Green St"})
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, int64(2500), out.TotalPrice)
	assert.Equal(t, string(model.OrderStatusPending), out.Status)
	assert.Equal(t, "1 Green St", out.ShippingAddress)
	require.Len(t, out.Items, 2)

	var sum int64
	for _, it := range out.Items {
		sum += it.Subtotal
	}
	assert.Equal(t, out.TotalPrice, sum)

	assert.Equal(t, int64(3), stockOf(t, env.db, fern.ID))
	assert.Equal(t, int64(1), stockOf(t, env.db, pot.ID))

	// カートは空になる（行は残る）
	cart, err := env.cart.GetCart(ctx, u.ID)
	require.NoError(t, err)
	assert.Empty(t, cart.Items)

	assert.Equal(t, []string{events.OrderPlaced}, env.publisher.types())
}

func TestCheckout_PriceChangeAfterOrder_DoesNotAffectSnapshot(t *testing.T) {
	ctx := context.Background()
	env := newStoreEnv(t)

	u := seedUser(t, env.db, "buyer@example.com", true)
	cat := seedCategory(t, env.db, "indoor")
	fern := seedProduct(t, env.db, cat.ID, "fern", 1000, 5)
	env.addToCart(t, u.ID, fern.ID, 1)

	out, _, err := env.orders.Checkout(ctx, u.ID, usecase.CheckoutInput{ShippingAddress: "addr"})
	require.NoError(t, err)

	require.NoError(t, env.db.Model(&model.Product{}).Where("id = ?", fern.ID).Update("price", 9999).Error)

	got, err := env.orders.Get(ctx, u.ID, out.ID)
	require.NoError(t, err)
	require.Len(t, got.Items, 1)
	assert.Equal(t, int64(1000), got.Items[0].Price)
	assert.Equal(t, int64(1000), got.TotalPrice)
}

func TestCheckout_InsufficientStock_LeavesNoPartialState(t *testing.T) {
	ctx := context.Background()
	env := newStoreEnv(t)

	u := seedUser(t, env.db, "buyer@example.com", true)
	cat := seedCategory(t, env.db, "indoor")
	fern := seedProduct(t, env.db, cat.ID, "fern", 1000, 5)
	pot := seedProduct(t, env.db, cat.ID, "pot", 500, 3)

	env.addToCart(t, u.ID, fern.ID, 2)
	env.addToCart(t, u.ID, pot.ID, 3)

	// カート投入後に在庫が減った
	require.NoError(t, env.db.Model(&model.Product{}).Where("id = ?", pot.ID).Update("stock", 1).Error)

	_, created, err := env.orders.Checkout(ctx, u.ID, usecase.CheckoutInput{ShippingAddress: "addr"})
	require.Error(t, err)
	assert.False(t, created)

	ise, ok := usecase.AsInsufficientStock(err)
	require.True(t, ok)
	assert.Equal(t, pot.ID, ise.ProductID)
	assert.Equal(t, "Not enough stock for pot", ise.Error())

	assert.Equal(t, int64(0), countRows(t, env.db, &model.Order{}))
	assert.Equal(t, int64(0), countRows(t, env.db, &model.OrderItem{}))
	assert.Equal(t, int64(5), stockOf(t, env.db, fern.ID))
	assert.Equal(t, int64(1), stockOf(t, env.db, pot.ID))

	cart, err := env.cart.GetCart(ctx, u.ID)
	require.NoError(t, err)
	assert.Len(t, cart.Items, 2)
	assert.Empty(t, env.publisher.types())
}

func TestCheckout_EmptyCart(t *testing.T) {
	ctx := context.Background()
	env := newStoreEnv(t)

	u := seedUser(t, env.db, "buyer@example.com", true)

	// カート未作成
	_, _, err := env.orders.Checkout(ctx, u.ID, usecase.CheckoutInput{ShippingAddress: "addr"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, usecase.ErrEmptyCart))
	assert.Equal(t, http.StatusBadRequest, statusOf(t, err))

	// 作成済みで空
	_, err = env.cart.GetCart(ctx, u.ID)
	require.NoError(t, err)
	_, _, err = env.orders.Checkout(ctx, u.ID, usecase.CheckoutInput{ShippingAddress: "addr"})
	assert.True(t, errors.Is(err, usecase.ErrEmptyCart))

	assert.Equal(t, int64(0), countRows(t, env.db, &model.Order{}))
}

func TestCheckout_ShippingAddressRequired(t *testing.T) {
	env := newStoreEnv(t)
	u := seedUser(t, env.db, "buyer@example.com", true)

	_, _, err := env.orders.Checkout(context.Background(), u.ID, usecase.CheckoutInput{ShippingAddress: "  "})
	assert.Equal(t, http.StatusBadRequest, statusOf(t, err))
}

func TestCheckout_UsesSavedAddress(t *testing.T) {
	ctx := context.Background()
	env := newStoreEnv(t)

	u := seedUser(t, env.db, "buyer@example.com", true)
	other := seedUser(t, env.db, "other@example.com", true)
	cat := seedCategory(t, env.db, "indoor")
	fern := seedProduct(t, env.db, cat.ID, "fern", 1000, 5)
	env.addToCart(t, u.ID, fern.ID, 1)

	addr := model.Address{UserID: u.ID, PostalCode: "100-0001", Region: "Tokyo", City: "Chiyoda", Line1: "1-1", Name: "Taro"}
	require.NoError(t, env.db.Create(&addr).Error)

	// 他人の住所は404
	_, _, err := env.orders.Checkout(ctx, other.ID, usecase.CheckoutInput{AddressID: addr.ID})
	assert.Equal(t, http.StatusNotFound, statusOf(t, err))

	out, created, err := env.orders.Checkout(ctx, u.ID, usecase.CheckoutInput{AddressID: addr.ID})
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, addr.Format(), out.ShippingAddress)
}

func TestCheckout_InactiveProduct(t *testing.T) {
	ctx := context.Background()
	env := newStoreEnv(t)

	u := seedUser(t, env.db, "buyer@example.com", true)
	cat := seedCategory(t, env.db, "indoor")
	fern := seedProduct(t, env.db, cat.ID, "fern", 1000, 5)
	env.addToCart(t, u.ID, fern.ID, 1)

	require.NoError(t, env.db.Model(&model.Product{}).Where("id = ?", fern.ID).Update("is_active", false).Error)

	_, _, err := env.orders.Checkout(ctx, u.ID, usecase.CheckoutInput{ShippingAddress: "addr"})
	assert.Equal(t, http.StatusBadRequest, statusOf(t, err))
	assert.Equal(t, int64(5), stockOf(t, env.db, fern.ID))
}

func TestCheckout_IdempotencyKey_ReturnsSameOrder(t *testing.T) {
	ctx := context.Background()
	env := newStoreEnv(t)

	u := seedUser(t, env.db, "buyer@example.com", true)
	cat := seedCategory(t, env.db, "indoor")
	fern := seedProduct(t, env.db, cat.ID, "fern", 1000, 5)
	env.addToCart(t, u.ID, fern.ID, 1)

	in := usecase.CheckoutInput{ShippingAddress: "addr", IdempotencyKey: "key-1"}

	first, created, err := env.orders.Checkout(ctx, u.ID, in)
	require.NoError(t, err)
	assert.True(t, created)

	second, created, err := env.orders.Checkout(ctx, u.ID, in)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)

	assert.Equal(t, int64(1), countRows(t, env.db, &model.Order{}))
	assert.Equal(t, int64(4), stockOf(t, env.db, fern.ID))
	assert.Equal(t, []string{events.OrderPlaced}, env.publisher.types())
}

// 最後の1個を2人が同時に買う：片方だけ成功し在庫は0で止まる
func TestCheckout_Concurrent_LastUnit(t *testing.T) {
	ctx := context.Background()
	env := newStoreEnv(t)

	cat := seedCategory(t, env.db, "indoor")
	fern := seedProduct(t, env.db, cat.ID, "fern", 1000, 1)

	buyers := []model.User{
		seedUser(t, env.db, "a@example.com", true),
		seedUser(t, env.db, "b@example.com", true),
	}
	for _, b := range buyers {
		env.addToCart(t, b.ID, fern.ID, 1)
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		shortage  int
	)
	for _, b := range buyers {
		wg.Add(1)
		go func(userID int64) {
			defer wg.Done()
			_, _, err := env.orders.Checkout(ctx, userID, usecase.CheckoutInput{ShippingAddress: "addr"})
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				succeeded++
				return
			}
			if _, ok := usecase.AsInsufficientStock(err); ok {
				shortage++
			}
		}(b.ID)
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, shortage)
	assert.Equal(t, int64(0), stockOf(t, env.db, fern.ID))
	assert.Equal(t, int64(1), countRows(t, env.db, &model.Order{}))
}

func TestOrder_ListAndGet_OwnerScoped(t *testing.T) {
	ctx := context.Background()
	env := newStoreEnv(t)

	u := seedUser(t, env.db, "buyer@example.com", true)
	other := seedUser(t, env.db, "other@example.com", true)
	cat := seedCategory(t, env.db, "indoor")
	fern := seedProduct(t, env.db, cat.ID, "fern", 1000, 10)

	var ids []int64
	for i := 0; i < 3; i++ {
		env.addToCart(t, u.ID, fern.ID, 1)
		out, _, err := env.orders.Checkout(ctx, u.ID, usecase.CheckoutInput{ShippingAddress: "addr"})
		require.NoError(t, err)
		ids = append(ids, out.ID)
	}

	list, err := env.orders.List(ctx, u.ID, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), list.Total)
	require.Len(t, list.Items, 2)
	// 新しい順
	assert.Equal(t, ids[2], list.Items[0].ID)

	_, err = env.orders.Get(ctx, other.ID, ids[0])
	assert.Equal(t, http.StatusNotFound, statusOf(t, err))
}
