package repository

import (
	"context"
	"time"

	"smartplant/internal/domain/model"
)

// 保存・取得を約束
type UserRepository interface {
	//新規ユーザー作成。email/username重複はErrDuplicate
	Create(ctx context.Context, user *model.User) error
	FindByID(ctx context.Context, userID int64) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	// 行ロック付き（Tx内で使う）
	FindByEmailForUpdate(ctx context.Context, email string) (*model.User, error)

	// OTPを上書き保存（最後の書き込みが勝つ）
	SetOTP(ctx context.Context, userID int64, code string) error
	// otpが一致したときだけ有効化してotpを消す。一致しなければ何も書かない
	ActivateWithOTP(ctx context.Context, userID int64, code string) (bool, error)

	UpdatePassword(ctx context.Context, userID int64, passwordHash string) error
	UpdateLastLogin(ctx context.Context, userID int64, at time.Time) error
	//トークンのバージョンを＋１
	IncrementTokenVersion(ctx context.Context, userID int64) error
}
