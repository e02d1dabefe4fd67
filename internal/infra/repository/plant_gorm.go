package repository

import (
	"context"

	"smartplant/internal/domain/model"
	repo "smartplant/internal/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PlantGormRepository struct {
	db *gorm.DB
}

func NewPlantGormRepository(db *gorm.DB) *PlantGormRepository {
	return &PlantGormRepository{db: db}
}

var _ repo.PlantRepository = (*PlantGormRepository)(nil)

func (r *PlantGormRepository) ListByUserID(ctx context.Context, userID int64) ([]model.UserPlant, error) {
	var list []model.UserPlant
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id desc").
		Find(&list).Error; err != nil {
		return []model.UserPlant{}, err
	}
	return list, nil
}

func (r *PlantGormRepository) Create(ctx context.Context, p *model.UserPlant) error {
	return translate(r.db.WithContext(ctx).Omit(clause.Associations).Create(p).Error)
}

func (r *PlantGormRepository) FindByUserAndID(ctx context.Context, userID, plantID int64, withChildren bool) (model.UserPlant, error) {
	q := r.db.WithContext(ctx)
	if withChildren {
		q = q.
			Preload("Notes", func(db *gorm.DB) *gorm.DB { return db.Order("created_at desc, id desc") }).
			Preload("CareRoutines", func(db *gorm.DB) *gorm.DB { return db.Order("id asc") }).
			Preload("GrowthRecords", func(db *gorm.DB) *gorm.DB { return db.Order("recorded_at desc, id desc") })
	}

	var p model.UserPlant
	if err := q.Where("id = ? AND user_id = ?", plantID, userID).First(&p).Error; err != nil {
		return model.UserPlant{}, translate(err)
	}
	return p, nil
}

func (r *PlantGormRepository) Update(ctx context.Context, p model.UserPlant) error {
	res := r.db.WithContext(ctx).
		Model(&model.UserPlant{}).
		Where("id = ? AND user_id = ?", p.ID, p.UserID).
		Updates(map[string]interface{}{
			"name":        p.Name,
			"description": p.Description,
			"image_url":   p.ImageURL,
			"updated_at":  p.UpdatedAt,
		})
	return affected(res)
}

// 子レコードはFKのON DELETE CASCADEで消える
func (r *PlantGormRepository) Delete(ctx context.Context, userID, plantID int64) error {
	return affected(r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", plantID, userID).
		Delete(&model.UserPlant{}))
}

func (r *PlantGormRepository) AddNote(ctx context.Context, n *model.PlantNote) error {
	return translate(r.db.WithContext(ctx).Create(n).Error)
}

func (r *PlantGormRepository) DeleteNote(ctx context.Context, plantID, noteID int64) error {
	return affected(r.db.WithContext(ctx).
		Where("id = ? AND plant_id = ?", noteID, plantID).
		Delete(&model.PlantNote{}))
}

func (r *PlantGormRepository) AddCareRoutine(ctx context.Context, cr *model.CareRoutine) error {
	return translate(r.db.WithContext(ctx).Create(cr).Error)
}

func (r *PlantGormRepository) FindCareRoutine(ctx context.Context, plantID, routineID int64) (model.CareRoutine, error) {
	var cr model.CareRoutine
	if err := r.db.WithContext(ctx).
		Where("id = ? AND plant_id = ?", routineID, plantID).
		First(&cr).Error; err != nil {
		return model.CareRoutine{}, translate(err)
	}
	return cr, nil
}

func (r *PlantGormRepository) UpdateCareRoutine(ctx context.Context, cr model.CareRoutine) error {
	res := r.db.WithContext(ctx).
		Model(&model.CareRoutine{}).
		Where("id = ? AND plant_id = ?", cr.ID, cr.PlantID).
		Updates(map[string]interface{}{
			"last_performed": cr.LastPerformed,
			"next_due":       cr.NextDue,
		})
	return affected(res)
}

func (r *PlantGormRepository) DeleteCareRoutine(ctx context.Context, plantID, routineID int64) error {
	return affected(r.db.WithContext(ctx).
		Where("id = ? AND plant_id = ?", routineID, plantID).
		Delete(&model.CareRoutine{}))
}

func (r *PlantGormRepository) AddGrowthRecord(ctx context.Context, g *model.GrowthRecord) error {
	return translate(r.db.WithContext(ctx).Create(g).Error)
}

func (r *PlantGormRepository) DeleteGrowthRecord(ctx context.Context, plantID, recordID int64) error {
	return affected(r.db.WithContext(ctx).
		Where("id = ? AND plant_id = ?", recordID, plantID).
		Delete(&model.GrowthRecord{}))
}
