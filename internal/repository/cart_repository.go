package repository

import (
	"context"

	"smartplant/internal/domain/model"
)

type CartRepository interface {
	GetOrCreateByUserID(ctx context.Context, userID int64) (model.Cart, error)
	// ItemsとItems.Productをプリロード
	FindByUserID(ctx context.Context, userID int64) (model.Cart, error)
	// 明細を全削除（カート行は残す）
	ClearItems(ctx context.Context, cartID int64) error
}
