package usecase

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"strings"
	"time"

	"smartplant/internal/domain/model"
	"smartplant/internal/infra/events"
	repo "smartplant/internal/repository"

	"go.uber.org/zap"
)

type OrderUsecase struct {
	tx        repo.TransactionManager
	orders    repo.OrderRepository
	addresses repo.AddressRepository
	publisher events.OrderPublisher
	log       *zap.Logger
}

func NewOrderUsecase(
	tx repo.TransactionManager,
	orders repo.OrderRepository,
	addresses repo.AddressRepository,
	publisher events.OrderPublisher,
	log *zap.Logger,
) *OrderUsecase {
	return &OrderUsecase{tx: tx, orders: orders, addresses: addresses, publisher: publisher, log: log}
}

// shipping_address か address_id のどちらかが必要
type CheckoutInput struct {
	ShippingAddress string
	AddressID       int64
	IdempotencyKey  string
}

type OrderItemOutput struct {
	ID          int64  `json:"id"`
	ProductID   int64  `json:"product_id"`
	ProductName string `json:"product_name"`
	Price       int64  `json:"price"`
	Quantity    int64  `json:"quantity"`
	Subtotal    int64  `json:"subtotal"`
}

type OrderOutput struct {
	ID              int64             `json:"id"`
	UserID          int64             `json:"user_id"`
	Status          string            `json:"status"`
	TotalPrice      int64             `json:"total_price"`
	ShippingAddress string            `json:"shipping_address"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
	Items           []OrderItemOutput `json:"items"`
}

type OrderListOutput struct {
	Items []OrderOutput `json:"items"`
	Total int64         `json:"total"`
	Page  int           `json:"page"`
	Limit int           `json:"limit"`
}

// Checkout はカートを注文に変える。全部成功か全部なし。
// 同じ冪等キーの再送は既存注文を返す（created=false）
func (u *OrderUsecase) Checkout(ctx context.Context, userID int64, in CheckoutInput) (OrderOutput, bool, error) {
	if userID <= 0 {
		return OrderOutput{}, false, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	key := strings.TrimSpace(in.IdempotencyKey)
	if len(key) > 255 {
		return OrderOutput{}, false, NewHTTPError(http.StatusBadRequest, "invalid idempotency key")
	}

	shipping := strings.TrimSpace(in.ShippingAddress)
	if in.AddressID > 0 {
		addr, err := u.addresses.FindByUserAndID(ctx, userID, in.AddressID)
		if errors.Is(err, repo.ErrNotFound) {
			return OrderOutput{}, false, NewHTTPError(http.StatusNotFound, "Address not found")
		}
		if err != nil {
			return OrderOutput{}, false, err
		}
		shipping = addr.Format()
	}
	if shipping == "" {
		return OrderOutput{}, false, NewHTTPError(http.StatusBadRequest, "shipping_address is required")
	}

	var (
		out     OrderOutput
		created bool
	)

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		if key != "" {
			existing, found, err := r.Orders().FindByIdempotencyKey(ctx, userID, key)
			if err != nil {
				return err
			}
			if found {
				out = toOrderOutput(existing)
				return nil
			}
		}

		cart, err := r.Carts().FindByUserID(ctx, userID)
		if errors.Is(err, repo.ErrNotFound) {
			return WrapHTTPError(http.StatusBadRequest, "Cart is empty", ErrEmptyCart)
		}
		if err != nil {
			return err
		}
		if len(cart.Items) == 0 {
			return WrapHTTPError(http.StatusBadRequest, "Cart is empty", ErrEmptyCart)
		}

		//商品行をid昇順でロック（デッドロック回避）
		ids := make([]int64, 0, len(cart.Items))
		for _, it := range cart.Items {
			ids = append(ids, it.ProductID)
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

		locked, err := r.Products().FindByIDsForUpdate(ctx, ids)
		if err != nil {
			return err
		}
		products := make(map[int64]model.Product, len(locked))
		for _, p := range locked {
			products[p.ID] = p
		}

		//合計は現在価格
		var total int64
		for _, it := range cart.Items {
			p, ok := products[it.ProductID]
			if !ok || !p.IsActive {
				return NewHTTPError(http.StatusBadRequest, "Product is no longer available")
			}
			total += p.Price * it.Quantity
		}

		order := &model.Order{
			UserID:          userID,
			Status:          model.OrderStatusPending,
			TotalPrice:      total,
			ShippingAddress: shipping,
		}
		if key != "" {
			order.IdempotencyKey = &key
		}
		if err := r.Orders().Create(ctx, order); err != nil {
			return err
		}

		//ロック下で全明細の在庫を再確認
		for _, it := range cart.Items {
			p := products[it.ProductID]
			if p.Stock < it.Quantity {
				return &InsufficientStockError{ProductID: p.ID, ProductName: p.Name}
			}
		}

		items := make([]model.OrderItem, 0, len(cart.Items))
		for _, it := range cart.Items {
			p := products[it.ProductID]
			items = append(items, model.OrderItem{
				ProductID:   p.ID,
				ProductName: p.Name,
				Price:       p.Price,
				Quantity:    it.Quantity,
			})
		}
		if err := r.OrderItems().CreateBulk(ctx, order.ID, items); err != nil {
			return err
		}

		for _, it := range cart.Items {
			ok, err := r.Inventory().Reserve(ctx, it.ProductID, it.Quantity)
			if err != nil {
				return err
			}
			if !ok {
				p := products[it.ProductID]
				return &InsufficientStockError{ProductID: p.ID, ProductName: p.Name}
			}
		}

		if err := r.Carts().ClearItems(ctx, cart.ID); err != nil {
			return err
		}

		full, err := r.Orders().FindByID(ctx, order.ID)
		if err != nil {
			return err
		}
		out = toOrderOutput(full)
		created = true
		return nil
	})
	if err != nil {
		// 同じキーで同時に来た側は、先に確定した注文を返す
		if key != "" && errors.Is(err, repo.ErrDuplicate) {
			existing, found, ferr := u.orders.FindByIdempotencyKey(ctx, userID, key)
			if ferr == nil && found {
				return toOrderOutput(existing), false, nil
			}
		}
		return OrderOutput{}, false, err
	}

	if created {
		u.publish(ctx, events.OrderEvent{
			Type:       events.OrderPlaced,
			OrderID:    out.ID,
			UserID:     out.UserID,
			Status:     out.Status,
			TotalPrice: out.TotalPrice,
			OccurredAt: time.Now(),
		})
	}
	return out, created, nil
}

func (u *OrderUsecase) List(ctx context.Context, userID int64, page, limit int) (OrderListOutput, error) {
	if userID <= 0 {
		return OrderListOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	page, limit = normalizePage(page, limit, 20, 100)

	orders, total, err := u.orders.ListByUserID(ctx, userID, page, limit)
	if err != nil {
		return OrderListOutput{}, err
	}

	outs := make([]OrderOutput, 0, len(orders))
	for _, o := range orders {
		outs = append(outs, toOrderOutput(o))
	}
	return OrderListOutput{Items: outs, Total: total, Page: page, Limit: limit}, nil
}

func (u *OrderUsecase) Get(ctx context.Context, userID int64, orderID int64) (OrderOutput, error) {
	if userID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	o, err := u.orders.FindByID(ctx, orderID)
	if errors.Is(err, repo.ErrNotFound) {
		return OrderOutput{}, NewHTTPError(http.StatusNotFound, "Order not found")
	}
	if err != nil {
		return OrderOutput{}, err
	}
	//他人の注文は「存在しない扱い」にする
	if o.UserID != userID {
		return OrderOutput{}, NewHTTPError(http.StatusNotFound, "Order not found")
	}
	return toOrderOutput(o), nil
}

// コミット後に送る。失敗しても注文は成立している
func (u *OrderUsecase) publish(ctx context.Context, ev events.OrderEvent) {
	if u.publisher == nil {
		return
	}
	if err := u.publisher.PublishOrderEvent(ctx, ev); err != nil {
		u.log.Warn("order_event_publish_failed",
			zap.String("type", ev.Type),
			zap.Int64("order_id", ev.OrderID),
			zap.Error(err),
		)
	}
}

func toOrderOutput(o model.Order) OrderOutput {
	items := make([]OrderItemOutput, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, OrderItemOutput{
			ID:          it.ID,
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			Price:       it.Price,
			Quantity:    it.Quantity,
			Subtotal:    it.Subtotal(),
		})
	}

	return OrderOutput{
		ID:              o.ID,
		UserID:          o.UserID,
		Status:          string(o.Status),
		TotalPrice:      o.TotalPrice,
		ShippingAddress: o.ShippingAddress,
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
		Items:           items,
	}
}
