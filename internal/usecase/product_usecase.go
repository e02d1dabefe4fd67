package usecase

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"
	"unicode"

	"smartplant/internal/domain/model"
	repo "smartplant/internal/repository"
)

type ProductUsecase struct {
	tx           repo.TransactionManager
	categoryRepo repo.CategoryRepository
	productRepo  repo.ProductRepository
}

// DI
func NewProductUsecase(
	tx repo.TransactionManager,
	categoryRepo repo.CategoryRepository,
	productRepo repo.ProductRepository,
) *ProductUsecase {
	return &ProductUsecase{
		tx:           tx,
		categoryRepo: categoryRepo,
		productRepo:  productRepo,
	}
}

// GET /store/productsの入力DTO
type ListProductsInput struct {
	Page     int
	Limit    int
	Category string
	Q        string
	MinPrice *int64
	MaxPrice *int64
	Sort     string
}

type ProductListOutput struct {
	Items []model.Product `json:"items"`
	Total int64           `json:"total"`
	Page  int             `json:"page"`
	Limit int             `json:"limit"`
}

type CategoryInput struct {
	Name        string
	Slug        string
	Description string
}

// IsActive未指定なら公開
type ProductInput struct {
	CategoryID  int64
	Name        string
	Slug        string
	Description string
	Price       int64
	Stock       int64
	ImageURL    string
	IsActive    *bool
}

func (u *ProductUsecase) ListCategories(ctx context.Context) ([]model.Category, error) {
	return u.categoryRepo.List(ctx)
}

func (u *ProductUsecase) GetCategory(ctx context.Context, slug string) (model.Category, error) {
	c, err := u.categoryRepo.FindBySlug(ctx, slug)
	if errors.Is(err, repo.ErrNotFound) {
		return model.Category{}, NewHTTPError(http.StatusNotFound, "Category not found")
	}
	return c, err
}

func (u *ProductUsecase) CreateCategory(ctx context.Context, in CategoryInput) (model.Category, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return model.Category{}, NewHTTPError(http.StatusBadRequest, "name is required")
	}
	slug := slugOrName(in.Slug, name)
	if slug == "" {
		return model.Category{}, NewHTTPError(http.StatusBadRequest, "invalid slug")
	}

	c, err := u.categoryRepo.Create(ctx, model.Category{
		Name:        name,
		Slug:        slug,
		Description: in.Description,
	})
	if errors.Is(err, repo.ErrDuplicate) {
		return model.Category{}, NewHTTPError(http.StatusBadRequest, "category with this slug already exists.")
	}
	return c, err
}

func (u *ProductUsecase) UpdateCategory(ctx context.Context, slug string, in CategoryInput) (model.Category, error) {
	c, err := u.GetCategory(ctx, slug)
	if err != nil {
		return model.Category{}, err
	}

	if name := strings.TrimSpace(in.Name); name != "" {
		c.Name = name
	}
	if in.Slug != "" {
		if c.Slug = slugify(in.Slug); c.Slug == "" {
			return model.Category{}, NewHTTPError(http.StatusBadRequest, "invalid slug")
		}
	}
	c.Description = in.Description

	if err := u.categoryRepo.Update(ctx, c); err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			return model.Category{}, NewHTTPError(http.StatusBadRequest, "category with this slug already exists.")
		}
		return model.Category{}, err
	}
	return c, nil
}

// 商品はFKで一緒に消える。注文済み商品があると409
func (u *ProductUsecase) DeleteCategory(ctx context.Context, slug string) error {
	c, err := u.GetCategory(ctx, slug)
	if err != nil {
		return err
	}
	if err := u.categoryRepo.Delete(ctx, c.ID); err != nil {
		if errors.Is(err, repo.ErrReferenced) {
			return NewHTTPError(http.StatusConflict, "Category has products that were ordered")
		}
		return err
	}
	return nil
}

func (u *ProductUsecase) ListPublicProducts(ctx context.Context, in ListProductsInput) (ProductListOutput, error) {
	page, limit := normalizePage(in.Page, in.Limit, 20, 100)

	if len(in.Q) > 100 {
		return ProductListOutput{}, NewHTTPError(http.StatusBadRequest, "q too long")
	}
	if in.MinPrice != nil && *in.MinPrice < 0 {
		return ProductListOutput{}, NewHTTPError(http.StatusBadRequest, "min_price must be >= 0")
	}
	if in.MaxPrice != nil && *in.MaxPrice < 0 {
		return ProductListOutput{}, NewHTTPError(http.StatusBadRequest, "max_price must be >= 0")
	}
	if in.MinPrice != nil && in.MaxPrice != nil && *in.MinPrice > *in.MaxPrice {
		return ProductListOutput{}, NewHTTPError(http.StatusBadRequest, "min_price must be <= max_price")
	}
	switch in.Sort {
	case "", "new", "price_asc", "price_desc":
	default:
		return ProductListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid sort")
	}

	items, total, err := u.productRepo.ListPublic(ctx, repo.ProductListQuery{
		Page:         page,
		Limit:        limit,
		CategorySlug: strings.TrimSpace(in.Category),
		Q:            strings.TrimSpace(in.Q),
		MinPrice:     in.MinPrice,
		MaxPrice:     in.MaxPrice,
		Sort:         in.Sort,
	})
	if err != nil {
		return ProductListOutput{}, err
	}

	return ProductListOutput{
		Items: items,
		Total: total,
		Page:  page,
		Limit: limit,
	}, nil
}

// 非公開商品は一般には404
func (u *ProductUsecase) GetProductDetail(ctx context.Context, slug string) (model.Product, error) {
	p, err := u.findProduct(ctx, slug)
	if err != nil {
		return model.Product{}, err
	}
	if !p.IsActive {
		return model.Product{}, NewHTTPError(http.StatusNotFound, "Product not found")
	}
	return p, nil
}

func (u *ProductUsecase) AdminCreateProduct(ctx context.Context, in ProductInput) (model.Product, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return model.Product{}, NewHTTPError(http.StatusBadRequest, "name is required")
	}
	if in.CategoryID <= 0 {
		return model.Product{}, NewHTTPError(http.StatusBadRequest, "category_id is required")
	}
	if in.Price <= 0 {
		return model.Product{}, NewHTTPError(http.StatusBadRequest, "price must be > 0")
	}
	if in.Stock < 0 {
		return model.Product{}, NewHTTPError(http.StatusBadRequest, "stock must be >= 0")
	}
	slug := slugOrName(in.Slug, name)
	if slug == "" {
		return model.Product{}, NewHTTPError(http.StatusBadRequest, "invalid slug")
	}

	active := true
	if in.IsActive != nil {
		active = *in.IsActive
	}

	p, err := u.productRepo.Create(ctx, model.Product{
		CategoryID:  in.CategoryID,
		Name:        name,
		Slug:        slug,
		Description: in.Description,
		Price:       in.Price,
		Stock:       in.Stock,
		ImageURL:    in.ImageURL,
		IsActive:    active,
	})
	if err != nil {
		return model.Product{}, productWriteError(err)
	}
	return p, nil
}

// 在庫は変えない（SetStockを使う）
func (u *ProductUsecase) AdminUpdateProduct(ctx context.Context, slug string, in ProductInput) (model.Product, error) {
	p, err := u.findProduct(ctx, slug)
	if err != nil {
		return model.Product{}, err
	}

	if name := strings.TrimSpace(in.Name); name != "" {
		p.Name = name
	}
	if in.Slug != "" {
		if p.Slug = slugify(in.Slug); p.Slug == "" {
			return model.Product{}, NewHTTPError(http.StatusBadRequest, "invalid slug")
		}
	}
	if in.CategoryID > 0 {
		p.CategoryID = in.CategoryID
	}
	if in.Price != 0 {
		if in.Price < 0 {
			return model.Product{}, NewHTTPError(http.StatusBadRequest, "price must be > 0")
		}
		p.Price = in.Price
	}
	if in.Description != "" {
		p.Description = in.Description
	}
	if in.ImageURL != "" {
		p.ImageURL = in.ImageURL
	}
	if in.IsActive != nil {
		p.IsActive = *in.IsActive
	}

	if err := u.productRepo.Update(ctx, p); err != nil {
		return model.Product{}, productWriteError(err)
	}
	return p, nil
}

func (u *ProductUsecase) AdminDeleteProduct(ctx context.Context, slug string) error {
	p, err := u.findProduct(ctx, slug)
	if err != nil {
		return err
	}

	if err := u.productRepo.Delete(ctx, p.ID); err != nil {
		if errors.Is(err, repo.ErrReferenced) {
			return NewHTTPError(http.StatusConflict, "Product has orders and cannot be deleted")
		}
		if errors.Is(err, repo.ErrNotFound) {
			return NewHTTPError(http.StatusNotFound, "Product not found")
		}
		return err
	}
	return nil
}

// AdminSetStock は在庫の現在値を設定し、調整履歴と監査ログを同じTxで残す
func (u *ProductUsecase) AdminSetStock(ctx context.Context, adminUserID int64, slug string, newStock int64, reason string) (model.Product, error) {
	if adminUserID <= 0 {
		return model.Product{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if newStock < 0 {
		return model.Product{}, NewHTTPError(http.StatusBadRequest, "stock must be >= 0")
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return model.Product{}, NewHTTPError(http.StatusBadRequest, "reason required")
	}

	p, err := u.findProduct(ctx, slug)
	if err != nil {
		return model.Product{}, err
	}

	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		//変更前の在庫（ロック下で読む）
		locked, err := r.Products().FindByIDsForUpdate(ctx, []int64{p.ID})
		if err != nil {
			return err
		}
		if len(locked) == 0 {
			return NewHTTPError(http.StatusNotFound, "Product not found")
		}
		before := locked[0].Stock

		if err := r.Inventory().Adjust(ctx, model.InventoryAdjustment{
			ProductID:   p.ID,
			AdminUserID: adminUserID,
			Delta:       newStock - before,
			StockAfter:  newStock,
			Reason:      reason,
		}); err != nil {
			return err
		}

		//「誰が」「何を」「どの対象に」「どう変えたか」を残す
		return r.AuditLogs().Create(ctx, model.AuditLog{
			ActorUserID:  adminUserID,
			Action:       model.AuditActionUpdateStock,
			ResourceType: model.AuditResourceProduct,
			ResourceID:   p.ID,
			Before:       model.Snapshot("stock", before),
			After:        model.Snapshot("stock", newStock),
			CreatedAt:    time.Now(),
		})
	})
	if err != nil {
		return model.Product{}, err
	}

	p.Stock = newStock
	return p, nil
}

func (u *ProductUsecase) findProduct(ctx context.Context, slug string) (model.Product, error) {
	p, err := u.productRepo.FindBySlug(ctx, slug)
	if errors.Is(err, repo.ErrNotFound) {
		return model.Product{}, NewHTTPError(http.StatusNotFound, "Product not found")
	}
	return p, err
}

func productWriteError(err error) error {
	switch {
	case errors.Is(err, repo.ErrDuplicate):
		return NewHTTPError(http.StatusBadRequest, "product with this slug already exists.")
	case errors.Is(err, repo.ErrReferenced):
		return NewHTTPError(http.StatusBadRequest, "Category not found")
	case errors.Is(err, repo.ErrNotFound):
		return NewHTTPError(http.StatusNotFound, "Product not found")
	}
	return err
}

func slugOrName(slug, name string) string {
	if strings.TrimSpace(slug) != "" {
		return slugify(slug)
	}
	return slugify(name)
}

// 英数字以外はハイフンにまとめる
func slugify(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			dash = false
		case r == '_' || r == '-' || unicode.IsSpace(r):
			if b.Len() > 0 && !dash {
				b.WriteRune('-')
				dash = true
			}
		}
	}
	return strings.TrimRight(b.String(), "-")
}
