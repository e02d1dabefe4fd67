package usecase

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"smartplant/internal/domain/model"
	"smartplant/internal/infra/events"
	repo "smartplant/internal/repository"

	"go.uber.org/zap"
)

type AdminOrderUsecase struct {
	tx        repo.TransactionManager
	orders    repo.OrderRepository
	publisher events.OrderPublisher
	log       *zap.Logger
}

func NewAdminOrderUsecase(
	tx repo.TransactionManager,
	orders repo.OrderRepository,
	publisher events.OrderPublisher,
	log *zap.Logger,
) *AdminOrderUsecase {
	return &AdminOrderUsecase{tx: tx, orders: orders, publisher: publisher, log: log}
}

// 期間はRFC3339文字列
type AdminOrderListInput struct {
	Page   int
	Limit  int
	Status string
	UserID *int64
	From   string
	To     string
}

// 注文一覧（全ユーザー）
func (u *AdminOrderUsecase) List(ctx context.Context, in AdminOrderListInput) (OrderListOutput, error) {
	page, limit := normalizePage(in.Page, in.Limit, 50, 100)

	status := strings.TrimSpace(in.Status)
	if status != "" && !model.OrderStatus(status).Valid() {
		return OrderListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid status")
	}

	f := repo.AdminOrderListFilter{
		Page:   page,
		Limit:  limit,
		Status: status,
		UserID: in.UserID,
	}
	var ok bool
	if in.From != "" {
		if f.From, ok = parseDateTimeRFC3339(in.From); !ok {
			return OrderListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid from")
		}
	}
	if in.To != "" {
		if f.To, ok = parseDateTimeRFC3339(in.To); !ok {
			return OrderListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid to")
		}
	}

	orders, total, err := u.orders.ListAdmin(ctx, f)
	if err != nil {
		return OrderListOutput{}, err
	}

	outs := make([]OrderOutput, 0, len(orders))
	for _, o := range orders {
		outs = append(outs, toOrderOutput(o))
	}
	return OrderListOutput{Items: outs, Total: total, Page: page, Limit: limit}, nil
}

// UpdateStatus は許可された遷移のみ。cancelledなら同じTxで在庫を戻す
func (u *AdminOrderUsecase) UpdateStatus(ctx context.Context, actorAdminUserID int64, orderID int64, status string) (OrderOutput, error) {
	if actorAdminUserID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	next := model.OrderStatus(strings.TrimSpace(status))
	if !next.Valid() {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid status")
	}

	var (
		out     OrderOutput
		changed bool
	)
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByIDForUpdate(ctx, orderID)
		if errors.Is(err, repo.ErrNotFound) {
			return NewHTTPError(http.StatusNotFound, "Order not found")
		}
		if err != nil {
			return err
		}

		// すでに同じなら何もしない
		if o.Status == next {
			out = toOrderOutput(o)
			return nil
		}
		if !o.Status.CanTransitionTo(next) {
			return NewHTTPError(http.StatusBadRequest, "cannot change order status from "+string(o.Status)+" to "+string(next))
		}

		if next == model.OrderStatusCancelled {
			for _, it := range o.Items {
				if err := r.Inventory().Release(ctx, it.ProductID, it.Quantity); err != nil {
					return err
				}
			}
		}

		if err := r.Orders().UpdateStatus(ctx, orderID, next); err != nil {
			return err
		}

		//監査ログ（UPDATE_ORDER_STATUS）
		if err := r.AuditLogs().Create(ctx, model.AuditLog{
			ActorUserID:  actorAdminUserID,
			Action:       model.AuditActionUpdateOrderStatus,
			ResourceType: model.AuditResourceOrder,
			ResourceID:   orderID,
			Before:       model.Snapshot("status", o.Status),
			After:        model.Snapshot("status", next),
			CreatedAt:    time.Now(),
		}); err != nil {
			return err
		}

		o.Status = next
		o.UpdatedAt = time.Now()
		out = toOrderOutput(o)
		changed = true
		return nil
	})
	if err != nil {
		return OrderOutput{}, err
	}

	if changed && u.publisher != nil {
		ev := events.OrderEvent{
			Type:       events.OrderStatusChanged,
			OrderID:    out.ID,
			UserID:     out.UserID,
			Status:     out.Status,
			TotalPrice: out.TotalPrice,
			OccurredAt: time.Now(),
		}
		if err := u.publisher.PublishOrderEvent(ctx, ev); err != nil {
			u.log.Warn("order_event_publish_failed", zap.String("type", ev.Type), zap.Int64("order_id", ev.OrderID), zap.Error(err))
		}
	}
	return out, nil
}

func parseDateTimeRFC3339(s string) (*time.Time, bool) {
	if strings.TrimSpace(s) == "" {
		return nil, false
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, false
	}
	return &t, true
}
