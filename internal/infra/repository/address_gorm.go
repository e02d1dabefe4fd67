package repository

import (
	"context"

	"smartplant/internal/domain/model"
	repo "smartplant/internal/repository"

	"gorm.io/gorm"
)

type addressGormRepository struct {
	db *gorm.DB
}

func NewAddressGormRepository(db *gorm.DB) repo.AddressRepository {
	return &addressGormRepository{db: db}
}

// ユーザーの最初の住所はデフォルトになる
func (r *addressGormRepository) Create(ctx context.Context, address model.Address) (model.Address, error) {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&model.Address{}).Scopes(ownedBy(address.UserID)).Count(&n).Error; err != nil {
			return err
		}
		address.IsDefault = n == 0
		return tx.Omit("User").Create(&address).Error
	})
	if err != nil {
		return model.Address{}, translate(err)
	}
	return address, nil
}

func (r *addressGormRepository) ListByUserID(ctx context.Context, userID int64) ([]model.Address, error) {
	list := []model.Address{}
	err := r.db.WithContext(ctx).Scopes(ownedBy(userID)).Order("is_default desc").Order("id asc").Find(&list).Error
	return list, err
}

func (r *addressGormRepository) FindByUserAndID(ctx context.Context, userID, addressID int64) (model.Address, error) {
	var a model.Address
	if err := r.db.WithContext(ctx).Scopes(ownedBy(userID)).First(&a, addressID).Error; err != nil {
		return model.Address{}, translate(err)
	}
	return a, nil
}

// is_defaultはSetDefault経由でしか変えない
func (r *addressGormRepository) Update(ctx context.Context, a model.Address) error {
	return affected(r.db.WithContext(ctx).
		Model(&model.Address{}).
		Scopes(ownedBy(a.UserID)).
		Where("id = ?", a.ID).
		Updates(map[string]interface{}{
			"postal_code": a.PostalCode,
			"region":      a.Region,
			"city":        a.City,
			"line1":       a.Line1,
			"line2":       a.Line2,
			"name":        a.Name,
			"phone":       a.Phone,
			"updated_at":  a.UpdatedAt,
		}))
}

// デフォルトを消したら残りの一番古いものを昇格させる
func (r *addressGormRepository) Delete(ctx context.Context, userID, addressID int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var a model.Address
		if err := tx.Scopes(ownedBy(userID)).First(&a, addressID).Error; err != nil {
			return translate(err)
		}
		if err := affected(tx.Delete(&model.Address{}, a.ID)); err != nil {
			return err
		}
		if !a.IsDefault {
			return nil
		}

		var next model.Address
		err := tx.Scopes(ownedBy(userID)).Order("id asc").Limit(1).Find(&next).Error
		if err != nil || next.ID == 0 {
			return err
		}
		return tx.Model(&next).Update("is_default", true).Error
	})
}

// 1本のUPDATEで「指定だけtrue、他はfalse」にする
func (r *addressGormRepository) SetDefault(ctx context.Context, userID, addressID int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&model.Address{}).Scopes(ownedBy(userID)).Where("id = ?", addressID).Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			return repo.ErrNotFound
		}
		return tx.Model(&model.Address{}).
			Scopes(ownedBy(userID)).
			Update("is_default", gorm.Expr("id = ?", addressID)).Error
	})
}
