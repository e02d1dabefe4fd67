package repository

import (
	"context"

	"smartplant/internal/domain/model"
)

// 植物と子レコード。すべて所有者で絞る
type PlantRepository interface {
	ListByUserID(ctx context.Context, userID int64) ([]model.UserPlant, error)
	Create(ctx context.Context, p *model.UserPlant) error
	// withChildren=trueでメモ・ケア・成長記録もプリロード
	FindByUserAndID(ctx context.Context, userID, plantID int64, withChildren bool) (model.UserPlant, error)
	Update(ctx context.Context, p model.UserPlant) error
	Delete(ctx context.Context, userID, plantID int64) error

	AddNote(ctx context.Context, n *model.PlantNote) error
	DeleteNote(ctx context.Context, plantID, noteID int64) error

	AddCareRoutine(ctx context.Context, r *model.CareRoutine) error
	FindCareRoutine(ctx context.Context, plantID, routineID int64) (model.CareRoutine, error)
	UpdateCareRoutine(ctx context.Context, r model.CareRoutine) error
	DeleteCareRoutine(ctx context.Context, plantID, routineID int64) error

	AddGrowthRecord(ctx context.Context, g *model.GrowthRecord) error
	DeleteGrowthRecord(ctx context.Context, plantID, recordID int64) error
}
