package repository

import (
	"context"

	"smartplant/internal/domain/model"
)

// 住所(Address)を保存・取得する窓口。デフォルトはユーザーごとに高々1件
type AddressRepository interface {
	// 最初の1件は自動でデフォルト
	Create(ctx context.Context, address model.Address) (model.Address, error)

	//ユーザーが持つ住所一覧（デフォルトが先頭）
	ListByUserID(ctx context.Context, userID int64) ([]model.Address, error)

	//他人の住所はErrNotFound
	FindByUserAndID(ctx context.Context, userID, addressID int64) (model.Address, error)

	Update(ctx context.Context, address model.Address) error

	// デフォルトを消したら残りの最古が引き継ぐ
	Delete(ctx context.Context, userID, addressID int64) error

	//住所の切り替えを行う。
	SetDefault(ctx context.Context, userID, addressID int64) error
}
