package usecase

import (
	"context"
	"errors"
	"net/http"
	"time"

	"smartplant/internal/domain/model"
	repo "smartplant/internal/repository"
)

// CartUsecase は /store/cart の業務ロジック。カートは常に本人のもの
type CartUsecase struct {
	cartRepo     repo.CartRepository
	cartItemRepo repo.CartItemRepository
	productRepo  repo.ProductRepository
}

func NewCartUsecase(
	cartRepo repo.CartRepository,
	cartItemRepo repo.CartItemRepository,
	productRepo repo.ProductRepository,
) *CartUsecase {
	return &CartUsecase{
		cartRepo:     cartRepo,
		cartItemRepo: cartItemRepo,
		productRepo:  productRepo,
	}
}

type ProductSummary struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Slug     string `json:"slug"`
	Price    int64  `json:"price"`
	ImageURL string `json:"image_url"`
}

// 小計は現在価格で計算
type CartItemResponse struct {
	ID       int64          `json:"id"`
	Product  ProductSummary `json:"product"`
	Quantity int64          `json:"quantity"`
	Subtotal int64          `json:"subtotal"`
}

type CartResponse struct {
	ID         int64              `json:"id"`
	Items      []CartItemResponse `json:"items"`
	TotalPrice int64              `json:"total_price"`
	CreatedAt  time.Time          `json:"created_at"`
	UpdatedAt  time.Time          `json:"updated_at"`
}

type AddCartInput struct {
	ProductID int64
	Quantity  int64
}

type UpdateCartItemInput struct {
	ProductID int64
	Quantity  int64
}

// GetCart はカート取得（無ければ作って空を返す）
func (u *CartUsecase) GetCart(ctx context.Context, userID int64) (CartResponse, error) {
	if userID <= 0 {
		return CartResponse{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	if _, err := u.cartRepo.GetOrCreateByUserID(ctx, userID); err != nil {
		return CartResponse{}, err
	}
	cart, err := u.cartRepo.FindByUserID(ctx, userID)
	if err != nil {
		return CartResponse{}, err
	}
	return toCartResponse(cart), nil
}

// AddItem は同一商品なら数量加算。在庫チェックは目安で、確定はチェックアウト時
func (u *CartUsecase) AddItem(ctx context.Context, userID int64, in AddCartInput) (CartItemResponse, error) {
	if userID <= 0 {
		return CartItemResponse{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if in.Quantity < 1 {
		return CartItemResponse{}, NewHTTPError(http.StatusBadRequest, "Quantity must be at least 1")
	}

	p, err := u.productRepo.FindByID(ctx, in.ProductID)
	if errors.Is(err, repo.ErrNotFound) {
		return CartItemResponse{}, NewHTTPError(http.StatusNotFound, "Product not found")
	}
	if err != nil {
		return CartItemResponse{}, err
	}
	if !p.IsActive {
		return CartItemResponse{}, NewHTTPError(http.StatusNotFound, "Product not found")
	}

	if p.Stock < in.Quantity {
		return CartItemResponse{}, NewHTTPError(http.StatusBadRequest, "Not enough stock available")
	}

	cart, err := u.cartRepo.GetOrCreateByUserID(ctx, userID)
	if err != nil {
		return CartItemResponse{}, err
	}

	item, err := u.cartItemRepo.UpsertAdd(ctx, cart.ID, p.ID, in.Quantity)
	if err != nil {
		return CartItemResponse{}, err
	}
	return toCartItemResponse(item), nil
}

// RemoveItem は明細を消す
func (u *CartUsecase) RemoveItem(ctx context.Context, userID int64, productID int64) error {
	item, err := u.findItem(ctx, userID, productID)
	if err != nil {
		return err
	}
	return u.cartItemRepo.DeleteByID(ctx, item.ID)
}

// UpdateQuantity は数量を上書き。0以下なら削除して nil を返す
func (u *CartUsecase) UpdateQuantity(ctx context.Context, userID int64, in UpdateCartItemInput) (*CartItemResponse, error) {
	item, err := u.findItem(ctx, userID, in.ProductID)
	if err != nil {
		return nil, err
	}

	if in.Quantity <= 0 {
		if err := u.cartItemRepo.DeleteByID(ctx, item.ID); err != nil {
			return nil, err
		}
		return nil, nil
	}

	if err := u.cartItemRepo.UpdateQuantity(ctx, item.ID, in.Quantity); err != nil {
		return nil, err
	}
	item.Quantity = in.Quantity
	resp := toCartItemResponse(item)
	return &resp, nil
}

func (u *CartUsecase) findItem(ctx context.Context, userID, productID int64) (model.CartItem, error) {
	if userID <= 0 {
		return model.CartItem{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	notFound := NewHTTPError(http.StatusNotFound, "Item not found in cart")

	cart, err := u.cartRepo.FindByUserID(ctx, userID)
	if errors.Is(err, repo.ErrNotFound) {
		return model.CartItem{}, notFound
	}
	if err != nil {
		return model.CartItem{}, err
	}

	item, err := u.cartItemRepo.FindByCartAndProduct(ctx, cart.ID, productID)
	if errors.Is(err, repo.ErrNotFound) {
		return model.CartItem{}, notFound
	}
	if err != nil {
		return model.CartItem{}, err
	}
	return item, nil
}

func toCartItemResponse(it model.CartItem) CartItemResponse {
	out := CartItemResponse{
		ID:       it.ID,
		Quantity: it.Quantity,
		Subtotal: it.Subtotal(),
	}
	if it.Product != nil {
		out.Product = ProductSummary{
			ID:       it.Product.ID,
			Name:     it.Product.Name,
			Slug:     it.Product.Slug,
			Price:    it.Product.Price,
			ImageURL: it.Product.ImageURL,
		}
	} else {
		out.Product = ProductSummary{ID: it.ProductID}
	}
	return out
}

func toCartResponse(c model.Cart) CartResponse {
	items := make([]CartItemResponse, 0, len(c.Items))
	for _, it := range c.Items {
		items = append(items, toCartItemResponse(it))
	}
	return CartResponse{
		ID:         c.ID,
		Items:      items,
		TotalPrice: c.TotalPrice(),
		CreatedAt:  c.CreatedAt,
		UpdatedAt:  c.UpdatedAt,
	}
}
