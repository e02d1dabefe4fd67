package model

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

type AuditAction string

const (
	AuditActionUpdateStock       AuditAction = "UPDATE_STOCK"
	AuditActionUpdateOrderStatus AuditAction = "UPDATE_ORDER_STATUS"
	AuditActionForceLogout       AuditAction = "FORCE_LOGOUT"
)

type AuditResourceType string

const (
	AuditResourceProduct AuditResourceType = "product"
	AuditResourceOrder   AuditResourceType = "order"
	AuditResourceUser    AuditResourceType = "user"
)

// スタッフ操作の記録。操作と同じTxで書く
type AuditLog struct {
	ID           int64             `gorm:"primaryKey;autoIncrement" json:"id"`
	ActorUserID  int64             `gorm:"not null;index" json:"actor_user_id"`
	Action       AuditAction       `gorm:"type:varchar(50);not null;index" json:"action"`
	ResourceType AuditResourceType `gorm:"type:varchar(50);not null;index:idx_audit_resource" json:"resource_type"`
	ResourceID   int64             `gorm:"not null;index:idx_audit_resource" json:"resource_id"`
	// 変わった項目だけ
	Before    datatypes.JSON `gorm:"column:before_json" json:"before"`
	After     datatypes.JSON `gorm:"column:after_json" json:"after"`
	CreatedAt time.Time      `gorm:"not null;index" json:"created_at"`
}

// Snapshot は {"key": v} のJSON
func Snapshot(key string, v interface{}) datatypes.JSON {
	b, err := json.Marshal(map[string]interface{}{key: v})
	if err != nil {
		return datatypes.JSON("{}")
	}
	return datatypes.JSON(b)
}
