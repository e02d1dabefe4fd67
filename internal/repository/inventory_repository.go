package repository

import (
	"context"

	"smartplant/internal/domain/model"
)

// 在庫の増減はすべてここを通す（Tx内で使う）
type InventoryRepository interface {
	// 足りるときだけqtyを確保する。falseなら在庫不足で何も変えていない
	Reserve(ctx context.Context, productID int64, qty int64) (bool, error)
	// キャンセルで戻す
	Release(ctx context.Context, productID int64, qty int64) error
	// 在庫をadj.StockAfterに置き換えて、調整履歴を1行書く
	Adjust(ctx context.Context, adj model.InventoryAdjustment) error
}
