package repository

import (
	"context"
	"time"

	"smartplant/internal/domain/model"
)

// 管理画面の監査ログ検索。ゼロ値の項目は絞り込まない
type AuditLogQuery struct {
	ActorUserID  int64
	Action       model.AuditAction
	ResourceType model.AuditResourceType
	ResourceID   int64
	From         *time.Time
	To           *time.Time
	Page         int
	Limit        int
}

type AuditLogRepository interface {
	// 書き込みはTx内（操作と同じコミット）で行う
	Create(ctx context.Context, log model.AuditLog) error
	// 新しい順
	Search(ctx context.Context, q AuditLogQuery) ([]model.AuditLog, int64, error)
}
