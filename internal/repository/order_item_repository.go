package repository

import (
	"context"

	"smartplant/internal/domain/model"
)

// 明細は注文時点の商品名・単価のスナップショット。作成後は変えない
type OrderItemRepository interface {
	CreateBulk(ctx context.Context, orderID int64, items []model.OrderItem) error
}
