package repository

import (
	"context"
	"errors"
	"time"

	"smartplant/internal/domain/model"
	domainrepo "smartplant/internal/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type userGormRepository struct {
	db *gorm.DB
}

// DI
// main.goでこれをnewしてusecaseに注入します。
func NewUserGormRepository(db *gorm.DB) domainrepo.UserRepository {
	return &userGormRepository{db: db}
}

func (r *userGormRepository) Create(ctx context.Context, user *model.User) error {
	return translate(r.db.WithContext(ctx).Create(user).Error)
}

func (r *userGormRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.findOne(r.db.WithContext(ctx).Where("email = ?", email))
}

// Tx内で使う。SELECT ... FOR UPDATE
func (r *userGormRepository) FindByEmailForUpdate(ctx context.Context, email string) (*model.User, error) {
	return r.findOne(r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("email = ?", email))
}

func (r *userGormRepository) FindByID(ctx context.Context, id int64) (*model.User, error) {
	return r.findOne(r.db.WithContext(ctx).Where("id = ?", id))
}

func (r *userGormRepository) findOne(q *gorm.DB) (*model.User, error) {
	var u model.User
	if err := q.First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainrepo.ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (r *userGormRepository) SetOTP(ctx context.Context, userID int64, code string) error {
	res := r.db.WithContext(ctx).
		Model(&model.User{}).
		Where("id = ?", userID).
		Update("otp", code)
	if err := affected(res); err != nil {
		if errors.Is(err, domainrepo.ErrNotFound) {
			return domainrepo.ErrUserNotFound
		}
		return err
	}
	return nil
}

// 条件付きUPDATE1本。一致しないときは0件で何も書かない
func (r *userGormRepository) ActivateWithOTP(ctx context.Context, userID int64, code string) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&model.User{}).
		Where("id = ? AND otp IS NOT NULL AND otp = ?", userID, code).
		Updates(map[string]interface{}{
			"is_active": true,
			"otp":       gorm.Expr("NULL"),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *userGormRepository) UpdatePassword(ctx context.Context, userID int64, passwordHash string) error {
	res := r.db.WithContext(ctx).
		Model(&model.User{}).
		Where("id = ?", userID).
		Update("password_hash", passwordHash)
	return affected(res)
}

func (r *userGormRepository) UpdateLastLogin(ctx context.Context, userID int64, at time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&model.User{}).
		Where("id = ?", userID).
		UpdateColumn("last_login_at", at)
	return affected(res)
}

// token_versionを+1 します。
func (r *userGormRepository) IncrementTokenVersion(ctx context.Context, id int64) error {
	res := r.db.WithContext(ctx).
		Model(&model.User{}).
		Where("id = ?", id).
		UpdateColumn("token_version", gorm.Expr("token_version + ?", 1))

	// 0件更新は「対象がない」
	if err := affected(res); err != nil {
		if errors.Is(err, domainrepo.ErrNotFound) {
			return domainrepo.ErrUserNotFound
		}
		return err
	}
	return nil
}
