package repository

import (
	"context"
	"time"

	"smartplant/internal/domain/model"
)

type PasswordResetTokenRepository interface {
	Create(ctx context.Context, token *model.PasswordResetToken) error
	FindByTokenHash(ctx context.Context, tokenHash string) (*model.PasswordResetToken, error)
	// 未使用のときだけ消費する
	MarkUsed(ctx context.Context, tokenID int64, usedAt time.Time) (bool, error)
}
