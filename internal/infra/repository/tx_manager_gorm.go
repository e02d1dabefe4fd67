package repository

import (
	"context"

	repo "smartplant/internal/repository"

	"gorm.io/gorm"
)

// Tx中のrepo。呼ばれるたびにtxに束ねたものを返す
type gormTxRepos struct {
	tx *gorm.DB
}

func (r gormTxRepos) Users() repo.UserRepository           { return NewUserGormRepository(r.tx) }
func (r gormTxRepos) Orders() repo.OrderRepository         { return NewOrderGormRepository(r.tx) }
func (r gormTxRepos) OrderItems() repo.OrderItemRepository { return NewOrderItemGormRepository(r.tx) }
func (r gormTxRepos) Carts() repo.CartRepository           { return NewCartGormRepository(r.tx) }
func (r gormTxRepos) CartItems() repo.CartItemRepository   { return NewCartGormRepository(r.tx) }
func (r gormTxRepos) Inventory() repo.InventoryRepository  { return NewInventoryGormRepository(r.tx) }
func (r gormTxRepos) Products() repo.ProductRepository     { return NewProductGormRepository(r.tx) }
func (r gormTxRepos) AuditLogs() repo.AuditLogRepository   { return NewAuditLogGormRepository(r.tx) }

type TxManagerGorm struct {
	db *gorm.DB
}

func NewTxManagerGorm(db *gorm.DB) *TxManagerGorm {
	return &TxManagerGorm{db: db}
}

var _ repo.TransactionManager = (*TxManagerGorm)(nil)

// fnがerrorならrollback。panicもrollbackしてから再送出される
func (tm *TxManagerGorm) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	return tm.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(gormTxRepos{tx: tx})
	})
}
