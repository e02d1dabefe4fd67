package repository

import (
	"context"

	"smartplant/internal/domain/model"
	repo "smartplant/internal/repository"

	"gorm.io/gorm"
)

type InventoryGormRepository struct {
	db *gorm.DB
}

func NewInventoryGormRepository(db *gorm.DB) *InventoryGormRepository {
	return &InventoryGormRepository{db: db}
}

var _ repo.InventoryRepository = (*InventoryGormRepository)(nil)

// 条件付きUPDATE。stock < qty の行には当たらないので負にならない
func (r *InventoryGormRepository) Reserve(ctx context.Context, productID int64, qty int64) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&model.Product{}).
		Where("id = ? AND stock >= ?", productID, qty).
		Update("stock", gorm.Expr("stock - ?", qty))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *InventoryGormRepository) Release(ctx context.Context, productID int64, qty int64) error {
	return affected(r.db.WithContext(ctx).
		Model(&model.Product{}).
		Where("id = ?", productID).
		Update("stock", gorm.Expr("stock + ?", qty)))
}

func (r *InventoryGormRepository) Adjust(ctx context.Context, adj model.InventoryAdjustment) error {
	if err := affected(r.db.WithContext(ctx).
		Model(&model.Product{}).
		Where("id = ?", adj.ProductID).
		Update("stock", adj.StockAfter)); err != nil {
		return err
	}
	return translate(r.db.WithContext(ctx).Omit("Product").Create(&adj).Error)
}
