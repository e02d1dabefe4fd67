package repository

import (
	"errors"

	"smartplant/internal/domain/model"
	repo "smartplant/internal/repository"

	"gorm.io/gorm"
)

// GORMのエラーをrepositoryのセンチネルへ
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return repo.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return repo.ErrDuplicate
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return repo.ErrReferenced
	}
	return err
}

// 更新/削除の結果。0件はErrNotFound
func affected(res *gorm.DB) error {
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// ページング。page/limitは呼び出し側で正規化済み
func paginate(page, limit int) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if page < 1 {
			page = 1
		}
		return db.Offset((page - 1) * limit).Limit(limit)
	}
}

// 本人の行だけ
func ownedBy(userID int64) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("user_id = ?", userID)
	}
}

// order_itemsから参照されていればErrReferenced
func notOrdered(tx *gorm.DB, query string, args ...interface{}) error {
	var n int64
	err := tx.Model(&model.OrderItem{}).
		Joins("JOIN products ON products.id = order_items.product_id").
		Where(query, args...).
		Count(&n).Error
	if err != nil {
		return err
	}
	if n > 0 {
		return repo.ErrReferenced
	}
	return nil
}
