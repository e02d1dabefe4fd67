package usecase_test

import (
	"context"
	"net/http"
	"testing"

	"smartplant/internal/domain/model"
	infraRepo "smartplant/internal/infra/repository"
	"smartplant/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newProductUC(t *testing.T) (*usecase.ProductUsecase, *gorm.DB) {
	t.Helper()
	gdb := newTestDB(t)
	uc := usecase.NewProductUsecase(
		infraRepo.NewTxManagerGorm(gdb),
		infraRepo.NewCategoryGormRepository(gdb),
		infraRepo.NewProductGormRepository(gdb),
	)
	return uc, gdb
}

func int64p(v int64) *int64 { return &v }
func boolp(v bool) *bool    { return &v }

func TestProduct_CreateCategoryAndProduct_SlugFromName(t *testing.T) {
	ctx := context.Background()
	uc, _ := newProductUC(t)

	cat, err := uc.CreateCategory(ctx, usecase.CategoryInput{Name: "Indoor Plants"})
	require.NoError(t, err)
	assert.Equal(t, "indoor-plants", cat.Slug)

	p, err := uc.AdminCreateProduct(ctx, usecase.ProductInput{CategoryID: cat.ID, Name: "Boston Fern", Price: 1200, Stock: 3})
	require.NoError(t, err)
	assert.Equal(t, "boston-fern", p.Slug)
	assert.True(t, p.IsActive)

	_, err = uc.AdminCreateProduct(ctx, usecase.ProductInput{CategoryID: cat.ID, Name: "Boston Fern", Price: 1200})
	assert.Equal(t, http.StatusBadRequest, statusOf(t, err))

	_, err = uc.AdminCreateProduct(ctx, usecase.ProductInput{CategoryID: cat.ID, Name: "Free", Price: 0})
	assert.Equal(t, http.StatusBadRequest, statusOf(t, err))
}

func TestProduct_ListPublic_FiltersAndHidesInactive(t *testing.T) {
	ctx := context.Background()
	uc, gdb := newProductUC(t)

	indoor := seedCategory(t, gdb, "indoor")
	outdoor := seedCategory(t, gdb, "outdoor")
	seedProduct(t, gdb, indoor.ID, "fern", 1000, 1)
	seedProduct(t, gdb, indoor.ID, "ficus", 3000, 1)
	seedProduct(t, gdb, outdoor.ID, "rose", 2000, 1)
	hidden := seedProduct(t, gdb, indoor.ID, "hidden", 1500, 1)
	require.NoError(t, gdb.Model(&model.Product{}).Where("id = ?", hidden.ID).Update("is_active", false).Error)

	all, err := uc.ListPublicProducts(ctx, usecase.ListProductsInput{Sort: "price_asc"})
	require.NoError(t, err)
	assert.Equal(t, int64(3), all.Total)
	require.Len(t, all.Items, 3)
	assert.Equal(t, "fern", all.Items[0].Slug)
	assert.Equal(t, "ficus", all.Items[2].Slug)

	byCat, err := uc.ListPublicProducts(ctx, usecase.ListProductsInput{Category: "indoor", MinPrice: int64p(2000)})
	require.NoError(t, err)
	require.Len(t, byCat.Items, 1)
	assert.Equal(t, "ficus", byCat.Items[0].Slug)

	search, err := uc.ListPublicProducts(ctx, usecase.ListProductsInput{Q: "RO"})
	require.NoError(t, err)
	require.Len(t, search.Items, 1)
	assert.Equal(t, "rose", search.Items[0].Slug)

	_, err = uc.ListPublicProducts(ctx, usecase.ListProductsInput{MinPrice: int64p(10), MaxPrice: int64p(5)})
	assert.Equal(t, http.StatusBadRequest, statusOf(t, err))
	_, err = uc.ListPublicProducts(ctx, usecase.ListProductsInput{Sort: "name"})
	assert.Equal(t, http.StatusBadRequest, statusOf(t, err))

	_, err = uc.GetProductDetail(ctx, "hidden")
	assert.Equal(t, http.StatusNotFound, statusOf(t, err))
}

func TestProduct_UpdateIsPartial(t *testing.T) {
	ctx := context.Background()
	uc, gdb := newProductUC(t)

	cat := seedCategory(t, gdb, "indoor")
	seedProduct(t, gdb, cat.ID, "fern", 1000, 4)

	p, err := uc.AdminUpdateProduct(ctx, "fern", usecase.ProductInput{Price: 1500, IsActive: boolp(false)})
	require.NoError(t, err)
	assert.Equal(t, int64(1500), p.Price)
	assert.False(t, p.IsActive)
	assert.Equal(t, "fern", p.Name)
	assert.Equal(t, int64(4), stockOf(t, gdb, p.ID))
}

func TestProduct_SetStock_WritesAdjustmentAndAudit(t *testing.T) {
	ctx := context.Background()
	uc, gdb := newProductUC(t)

	admin := seedUser(t, gdb, "admin@example.com", true)
	cat := seedCategory(t, gdb, "indoor")
	fern := seedProduct(t, gdb, cat.ID, "fern", 1000, 4)

	p, err := uc.AdminSetStock(ctx, admin.ID, "fern", 10, "restock")
	require.NoError(t, err)
	assert.Equal(t, int64(10), p.Stock)
	assert.Equal(t, int64(10), stockOf(t, gdb, fern.ID))

	var adj model.InventoryAdjustment
	require.NoError(t, gdb.First(&adj).Error)
	assert.Equal(t, int64(6), adj.Delta)
	assert.Equal(t, int64(10), adj.StockAfter)
	assert.Equal(t, "restock", adj.Reason)

	var audit model.AuditLog
	require.NoError(t, gdb.First(&audit).Error)
	assert.Equal(t, model.AuditActionUpdateStock, audit.Action)
	assert.JSONEq(t, `{"stock":4}`, string(audit.Before))
	assert.JSONEq(t, `{"stock":10}`, string(audit.After))

	_, err = uc.AdminSetStock(ctx, admin.ID, "fern", -1, "oops")
	assert.Equal(t, http.StatusBadRequest, statusOf(t, err))
	_, err = uc.AdminSetStock(ctx, admin.ID, "fern", 1, " ")
	assert.Equal(t, http.StatusBadRequest, statusOf(t, err))
	_, err = uc.AdminSetStock(ctx, admin.ID, "missing", 1, "x")
	assert.Equal(t, http.StatusNotFound, statusOf(t, err))
}

func TestProduct_DeleteReferencedByOrder_Conflict(t *testing.T) {
	ctx := context.Background()
	uc, gdb := newProductUC(t)

	u := seedUser(t, gdb, "buyer@example.com", true)
	cat := seedCategory(t, gdb, "indoor")
	fern := seedProduct(t, gdb, cat.ID, "fern", 1000, 4)
	seedProduct(t, gdb, cat.ID, "ficus", 1000, 4)

	order := model.Order{UserID: u.ID, Status: model.OrderStatusPending, TotalPrice: 1000, ShippingAddress: "addr"}
	require.NoError(t, gdb.Omit("Items").Create(&order).Error)
	require.NoError(t, gdb.Create(&model.OrderItem{OrderID: order.ID, ProductID: fern.ID, ProductName: "fern", Price: 1000, Quantity: 1}).Error)

	err := uc.AdminDeleteProduct(ctx, "fern")
	assert.Equal(t, http.StatusConflict, statusOf(t, err))

	require.NoError(t, uc.AdminDeleteProduct(ctx, "ficus"))
	_, err = uc.GetProductDetail(ctx, "ficus")
	assert.Equal(t, http.StatusNotFound, statusOf(t, err))
}

// 注文済みの商品を抱えるカテゴリは消せない
func TestCategory_DeleteWithOrderedProduct_Conflict(t *testing.T) {
	ctx := context.Background()
	uc, gdb := newProductUC(t)

	u := seedUser(t, gdb, "buyer@example.com", true)
	cat := seedCategory(t, gdb, "indoor")
	fern := seedProduct(t, gdb, cat.ID, "fern", 1000, 4)
	seedProduct(t, gdb, cat.ID, "ficus", 1000, 4)

	order := model.Order{UserID: u.ID, Status: model.OrderStatusPending, TotalPrice: 1000, ShippingAddress: "addr"}
	require.NoError(t, gdb.Omit("Items").Create(&order).Error)
	require.NoError(t, gdb.Create(&model.OrderItem{OrderID: order.ID, ProductID: fern.ID, ProductName: "fern", Price: 1000, Quantity: 1}).Error)

	err := uc.DeleteCategory(ctx, "indoor")
	assert.Equal(t, http.StatusConflict, statusOf(t, err))

	// 何も消えていない
	_, err = uc.GetCategory(ctx, "indoor")
	require.NoError(t, err)
	assert.Equal(t, int64(2), countRows(t, gdb, &model.Product{}))
	assert.Equal(t, int64(1), countRows(t, gdb, &model.OrderItem{}))
}

// カテゴリ削除で配下の商品も消える
func TestCategory_DeleteCascadesProducts(t *testing.T) {
	ctx := context.Background()
	uc, gdb := newProductUC(t)

	cat := seedCategory(t, gdb, "indoor")
	seedProduct(t, gdb, cat.ID, "fern", 1000, 4)

	require.NoError(t, uc.DeleteCategory(ctx, "indoor"))
	assert.Equal(t, int64(0), countRows(t, gdb, &model.Product{}))

	_, err := uc.GetCategory(ctx, "indoor")
	assert.Equal(t, http.StatusNotFound, statusOf(t, err))
}
