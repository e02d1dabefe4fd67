package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"smartplant/internal/infra/notify"
	"smartplant/internal/repository"
	auth "smartplant/internal/usecase/auth_usecase"

	"go.uber.org/zap"
)

// 検証結果
type VerifyResult int

const (
	Rejected VerifyResult = iota
	Activated
)

// OTPの発行と検証
type OTPUsecase struct {
	tx     repository.TransactionManager
	users  repository.UserRepository
	codes  auth.CodeGenerator
	mailer notify.Sender
	feURL  string
	log    *zap.Logger
}

func NewOTPUsecase(
	tx repository.TransactionManager,
	users repository.UserRepository,
	codes auth.CodeGenerator,
	mailer notify.Sender,
	feURL string,
	log *zap.Logger,
) *OTPUsecase {
	return &OTPUsecase{tx: tx, users: users, codes: codes, mailer: mailer, feURL: strings.TrimRight(feURL, "/"), log: log}
}

// Issue はコードを生成して保存し、メールで送る。
// 保存はユーザー行をロックしたTx内。送信失敗でも保存したコードは残る
func (u *OTPUsecase) Issue(ctx context.Context, email string) error {
	var code string

	err := u.tx.WithinTx(ctx, func(r repository.TxRepos) error {
		user, err := r.Users().FindByEmailForUpdate(ctx, email)
		if err != nil {
			if errors.Is(err, repository.ErrUserNotFound) {
				return NewHTTPError(http.StatusNotFound, "User with this email does not exist")
			}
			return err
		}

		code, err = u.codes.NewCode()
		if err != nil {
			return err
		}
		return r.Users().SetOTP(ctx, user.ID, code)
	})
	if err != nil {
		return err
	}

	body := fmt.Sprintf(
		"We have received a sign-in attempt for your email.\n"+
			"Your OTP is %s.\n"+
			"To complete the verification enter the 6 digit code in the original window.\n"+
			"Or visit the link below to open the confirmation page in a new window or device:\n"+
			"%s/verify?email=%s",
		code, u.feURL, email,
	)
	if err := u.mailer.Send(ctx, email, "Account Verification Email", body); err != nil {
		u.log.Warn("otp_dispatch_failed", zap.String("email", email), zap.Error(err))
		return WrapHTTPError(http.StatusBadGateway, "Failed to send OTP", fmt.Errorf("%w: %v", ErrOTPDispatch, err))
	}
	return nil
}

// Verify は保存済みコードと一致したときだけ有効化する。
// 不一致・未発行はどちらもRejectedで、DBには書かない
func (u *OTPUsecase) Verify(ctx context.Context, email, code string) (VerifyResult, error) {
	user, err := u.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return Rejected, NewHTTPError(http.StatusNotFound, "User not found")
		}
		return Rejected, err
	}

	if user.OTP == nil || code == "" {
		return Rejected, nil
	}

	ok, err := u.users.ActivateWithOTP(ctx, user.ID, code)
	if err != nil {
		return Rejected, err
	}
	if !ok {
		return Rejected, nil
	}
	return Activated, nil
}
