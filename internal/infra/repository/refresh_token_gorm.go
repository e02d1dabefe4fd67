package repository

import (
	"context"
	"errors"
	"time"

	"smartplant/internal/domain/model"
	repo "smartplant/internal/repository"

	"gorm.io/gorm"
)

type refreshTokenGormRepository struct {
	db *gorm.DB
}

func NewRefreshTokenRepository(db *gorm.DB) repo.RefreshTokenRepository {
	return &refreshTokenGormRepository{db: db}
}

func (r *refreshTokenGormRepository) Create(ctx context.Context, token *model.RefreshToken) error {
	return translate(r.db.WithContext(ctx).Omit("User").Create(token).Error)
}

// 平文は保存しないのでハッシュで引く
func (r *refreshTokenGormRepository) FindByTokenHash(ctx context.Context, tokenHash string) (*model.RefreshToken, error) {
	var token model.RefreshToken
	err := r.db.WithContext(ctx).Where("token_hash = ?", tokenHash).First(&token).Error
	if err != nil {
		return nil, translateToken(err)
	}
	return &token, nil
}

// 生きているトークンにだけ時刻を書く。書けた行数を返す
func (r *refreshTokenGormRepository) stamp(ctx context.Context, column string, at time.Time, where string, args ...interface{}) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&model.RefreshToken{}).
		Where(where, args...).
		Where("revoked_at IS NULL").
		Update(column, at)
	return res.RowsAffected, res.Error
}

// 条件付きUPDATEなので、同時に2回使われても成功は1回だけ
func (r *refreshTokenGormRepository) MarkUsed(ctx context.Context, tokenID string, usedAt time.Time) (bool, error) {
	n, err := r.stamp(ctx, "used_at", usedAt, "id = ? AND used_at IS NULL", tokenID)
	return n == 1, err
}

func (r *refreshTokenGormRepository) Revoke(ctx context.Context, tokenID string, revokedAt time.Time) error {
	n, err := r.stamp(ctx, "revoked_at", revokedAt, "id = ?", tokenID)
	if err != nil {
		return err
	}
	if n == 0 {
		return repo.ErrRefreshTokenNotFound
	}
	return nil
}

// リプレイ検知・パスワード変更・強制ログアウトで使う
func (r *refreshTokenGormRepository) RevokeAllByUserID(ctx context.Context, userID int64, revokedAt time.Time) error {
	_, err := r.stamp(ctx, "revoked_at", revokedAt, "user_id = ?", userID)
	return err
}

func translateToken(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return repo.ErrRefreshTokenNotFound
	}
	return err
}
