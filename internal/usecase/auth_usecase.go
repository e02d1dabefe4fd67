package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"smartplant/internal/domain/model"
	"smartplant/internal/infra/notify"
	"smartplant/internal/repository"
	auth "smartplant/internal/usecase/auth_usecase"

	"go.uber.org/zap"
)

// アクセストークンのjtiを失効させる先（Redis）
type AccessTokenDenylist interface {
	Add(ctx context.Context, jti string, ttl time.Duration) error
}

type AuthConfig struct {
	RefreshTTL       time.Duration
	PasswordResetTTL time.Duration
	FEURL            string
}

type UserDTO struct {
	ID       int64  `json:"id"`
	Email    string `json:"email"`
	Username string `json:"username"`
	Role     string `json:"role"`
	IsActive bool   `json:"is_active"`
	IsStaff  bool   `json:"is_staff"`
}

func NewUserDTO(u *model.User) UserDTO {
	return UserDTO{
		ID:       u.ID,
		Email:    u.Email,
		Username: u.Username,
		Role:     string(u.Role()),
		IsActive: u.IsActive,
		IsStaff:  u.IsStaff,
	}
}

type RegisterInput struct {
	Email    string
	Username string
	Password string
}

type RegisterOutput struct {
	Message       string  `json:"message"`
	User          UserDTO `json:"user"`
	OTPDispatched bool    `json:"otp_dispatched"`
}

type LoginInput struct {
	Email     string
	Password  string
	UserAgent string
}

type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

type LoginOutput struct {
	TokenPair
	User UserDTO `json:"user"`
}

type ForceLogoutResponse struct {
	UserID          int64 `json:"user_id"`
	NewTokenVersion int   `json:"new_token_version"`
}

type AuthUsecase struct {
	tx       repository.TransactionManager
	users    repository.UserRepository
	rtRepo   repository.RefreshTokenRepository
	resets   repository.PasswordResetTokenRepository
	hasher   auth.PasswordHasher
	verifier auth.PasswordVerifier
	issuer   auth.AccessTokenIssuer
	idGen    auth.IDGenerator
	clock    auth.Clock
	otp      *OTPUsecase
	mailer   notify.Sender
	denylist AccessTokenDenylist
	cfg      AuthConfig
	log      *zap.Logger
}

func NewAuthUsecase(
	tx repository.TransactionManager,
	users repository.UserRepository,
	rtRepo repository.RefreshTokenRepository,
	resets repository.PasswordResetTokenRepository,
	hasher auth.PasswordHasher,
	verifier auth.PasswordVerifier,
	issuer auth.AccessTokenIssuer,
	idGen auth.IDGenerator,
	clock auth.Clock,
	otp *OTPUsecase,
	mailer notify.Sender,
	denylist AccessTokenDenylist,
	cfg AuthConfig,
	log *zap.Logger,
) *AuthUsecase {
	return &AuthUsecase{
		tx:       tx,
		users:    users,
		rtRepo:   rtRepo,
		resets:   resets,
		hasher:   hasher,
		verifier: verifier,
		issuer:   issuer,
		idGen:    idGen,
		clock:    clock,
		otp:      otp,
		mailer:   mailer,
		denylist: denylist,
		cfg:      cfg,
		log:      log,
	}
}

// Register は未有効のユーザーを作り、OTPを送る。
// OTP送信の失敗は登録を失敗にしない（otp_dispatched=false）
func (u *AuthUsecase) Register(ctx context.Context, in RegisterInput) (RegisterOutput, error) {
	email := strings.TrimSpace(in.Email)

	//email重複チェック
	if _, err := u.users.FindByEmail(ctx, email); err == nil {
		return RegisterOutput{}, NewHTTPError(http.StatusBadRequest, "User with this email already exists.")
	} else if !errors.Is(err, repository.ErrUserNotFound) {
		return RegisterOutput{}, err
	}

	//パスワードは必ずハッシュ化して保存
	hashed, err := u.hasher.Hash(in.Password)
	if err != nil {
		return RegisterOutput{}, err
	}

	user := &model.User{
		Email:        email,
		Username:     strings.TrimSpace(in.Username),
		PasswordHash: hashed,
		IsActive:     false,
	}
	if err := u.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return RegisterOutput{}, NewHTTPError(http.StatusBadRequest, "User with this email or username already exists.")
		}
		return RegisterOutput{}, err
	}

	dispatched := true
	if err := u.otp.Issue(ctx, user.Email); err != nil {
		dispatched = false
		if !errors.Is(err, ErrOTPDispatch) {
			u.log.Error("otp_issue_failed", zap.Int64("user_id", user.ID), zap.Error(err))
		}
	}

	return RegisterOutput{
		Message:       "User registered successfully",
		User:          NewUserDTO(user),
		OTPDispatched: dispatched,
	}, nil
}

// 不一致は400。成功後の再検証も不一致扱い
func (u *AuthUsecase) Verify(ctx context.Context, email, code string) error {
	res, err := u.otp.Verify(ctx, strings.TrimSpace(email), strings.TrimSpace(code))
	if err != nil {
		return err
	}
	if res != Activated {
		return NewHTTPError(http.StatusBadRequest, "Invalid or expired OTP")
	}
	return nil
}

func (u *AuthUsecase) ResendOTP(ctx context.Context, email string) error {
	return u.otp.Issue(ctx, strings.TrimSpace(email))
}

func (u *AuthUsecase) Login(ctx context.Context, in LoginInput) (LoginOutput, error) {
	invalid := NewHTTPError(http.StatusUnauthorized, "No active account found with the given credentials")

	user, err := u.users.FindByEmail(ctx, strings.TrimSpace(in.Email))
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return LoginOutput{}, invalid
		}
		return LoginOutput{}, err
	}

	//パスワード照合（存在確認より先に有効状態を漏らさない）
	if !u.verifier.Verify(in.Password, user.PasswordHash) {
		return LoginOutput{}, invalid
	}

	//OTP未検証はログイン不可
	if !user.IsActive {
		return LoginOutput{}, NewHTTPError(http.StatusForbidden, "Account is not verified")
	}

	now := u.clock.Now()
	pair, err := u.issuePair(ctx, user, in.UserAgent, now)
	if err != nil {
		return LoginOutput{}, err
	}

	if err := u.users.UpdateLastLogin(ctx, user.ID, now); err != nil {
		u.log.Warn("update_last_login_failed", zap.Int64("user_id", user.ID), zap.Error(err))
	}

	return LoginOutput{TokenPair: pair, User: NewUserDTO(user)}, nil
}

// Refresh はローテーション。使用済みトークンが来たら全失効
func (u *AuthUsecase) Refresh(ctx context.Context, refreshPlain, userAgent string) (TokenPair, error) {
	unauthorized := NewHTTPError(http.StatusUnauthorized, "Token is invalid or expired")
	if refreshPlain == "" {
		return TokenPair{}, unauthorized
	}

	rt, err := u.rtRepo.FindByTokenHash(ctx, auth.HashToken(refreshPlain))
	if err != nil {
		if errors.Is(err, repository.ErrRefreshTokenNotFound) {
			return TokenPair{}, unauthorized
		}
		return TokenPair{}, err
	}

	now := u.clock.Now()
	if rt.RevokedAt != nil || !rt.ExpiresAt.After(now) {
		return TokenPair{}, unauthorized
	}

	//used済みが来たら replay
	if rt.UsedAt != nil {
		return TokenPair{}, u.replayDetected(ctx, rt.UserID, now)
	}

	user, err := u.users.FindByID(ctx, rt.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return TokenPair{}, unauthorized
		}
		return TokenPair{}, err
	}
	if !user.IsActive {
		return TokenPair{}, NewHTTPError(http.StatusForbidden, "Account is not verified")
	}

	//同時に2回使われたら片方は負ける
	ok, err := u.rtRepo.MarkUsed(ctx, rt.ID, now)
	if err != nil {
		return TokenPair{}, err
	}
	if !ok {
		return TokenPair{}, u.replayDetected(ctx, rt.UserID, now)
	}

	return u.issuePair(ctx, user, userAgent, now)
}

func (u *AuthUsecase) replayDetected(ctx context.Context, userID int64, now time.Time) error {
	u.log.Warn("refresh_token_reuse", zap.Int64("user_id", userID))
	if err := u.rtRepo.RevokeAllByUserID(ctx, userID, now); err != nil {
		return err
	}
	return NewHTTPError(http.StatusUnauthorized, "Token is invalid or expired")
}

// Logout はリフレッシュトークンを失効させ、アクセストークンのjtiを残り寿命だけ拒否リストへ
func (u *AuthUsecase) Logout(ctx context.Context, userID int64, refreshPlain string, access auth.AccessClaims) error {
	if refreshPlain == "" {
		return NewHTTPError(http.StatusBadRequest, "refresh is required")
	}

	rt, err := u.rtRepo.FindByTokenHash(ctx, auth.HashToken(refreshPlain))
	if err != nil {
		if errors.Is(err, repository.ErrRefreshTokenNotFound) {
			return NewHTTPError(http.StatusBadRequest, "Invalid refresh token")
		}
		return err
	}
	if rt.UserID != userID {
		return NewHTTPError(http.StatusBadRequest, "Invalid refresh token")
	}

	now := u.clock.Now()
	if rt.RevokedAt == nil {
		if err := u.rtRepo.Revoke(ctx, rt.ID, now); err != nil && !errors.Is(err, repository.ErrRefreshTokenNotFound) {
			return err
		}
	}

	if u.denylist != nil && access.JTI != "" {
		if err := u.denylist.Add(ctx, access.JTI, access.ExpiresAt.Sub(now)); err != nil {
			// リフレッシュは失効済み。アクセストークンは期限で切れる
			u.log.Warn("denylist_add_failed", zap.Int64("user_id", userID), zap.Error(err))
		}
	}
	return nil
}

// RequestPasswordReset は一回限りのリセットリンクをメールで送る
func (u *AuthUsecase) RequestPasswordReset(ctx context.Context, email string) error {
	user, err := u.users.FindByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return NewHTTPError(http.StatusBadRequest, "User with this email does not exist.")
		}
		return err
	}

	plain, hash, err := auth.NewOpaqueToken()
	if err != nil {
		return err
	}
	now := u.clock.Now()
	if err := u.resets.Create(ctx, &model.PasswordResetToken{
		UserID:    user.ID,
		TokenHash: hash,
		ExpiresAt: now.Add(u.cfg.PasswordResetTTL),
	}); err != nil {
		return err
	}

	link := fmt.Sprintf("%s/reset-password/%s", strings.TrimRight(u.cfg.FEURL, "/"), plain)
	body := "Click the link below to reset your password:\n" + link
	if err := u.mailer.Send(ctx, user.Email, "Password Reset Request", body); err != nil {
		u.log.Error("password_reset_mail_failed", zap.Int64("user_id", user.ID), zap.Error(err))
		return WrapHTTPError(http.StatusBadGateway, "Failed to send password reset email", fmt.Errorf("%w: %v", ErrExternalService, err))
	}
	return nil
}

// ConfirmPasswordReset はトークンを消費してパスワードを変える。既存セッションは全て無効
func (u *AuthUsecase) ConfirmPasswordReset(ctx context.Context, token, password string) error {
	invalid := NewHTTPError(http.StatusBadRequest, "Invalid or expired token")

	t, err := u.resets.FindByTokenHash(ctx, auth.HashToken(token))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return invalid
		}
		return err
	}

	now := u.clock.Now()
	if t.UsedAt != nil || !t.ExpiresAt.After(now) {
		return invalid
	}

	ok, err := u.resets.MarkUsed(ctx, t.ID, now)
	if err != nil {
		return err
	}
	if !ok {
		return invalid
	}

	hashed, err := u.hasher.Hash(password)
	if err != nil {
		return err
	}
	if err := u.users.UpdatePassword(ctx, t.UserID, hashed); err != nil {
		return err
	}
	if err := u.users.IncrementTokenVersion(ctx, t.UserID); err != nil {
		return err
	}
	return u.rtRepo.RevokeAllByUserID(ctx, t.UserID, now)
}

func (u *AuthUsecase) Me(ctx context.Context, userID int64) (UserDTO, error) {
	user, err := u.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return UserDTO{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
		}
		return UserDTO{}, err
	}
	return NewUserDTO(user), nil
}

// ForceLogout は管理者操作。token_versionを上げて既存アクセストークンを全て無効化
func (u *AuthUsecase) ForceLogout(ctx context.Context, actorID, targetUserID int64) (ForceLogoutResponse, error) {
	if targetUserID <= 0 {
		return ForceLogoutResponse{}, NewHTTPError(http.StatusBadRequest, "invalid user id")
	}

	var before, after int
	err := u.tx.WithinTx(ctx, func(r repository.TxRepos) error {
		user, err := r.Users().FindByID(ctx, targetUserID)
		if err != nil {
			return err
		}
		before = user.TokenVersion

		if err := r.Users().IncrementTokenVersion(ctx, targetUserID); err != nil {
			return err
		}
		after = before + 1

		return r.AuditLogs().Create(ctx, model.AuditLog{
			ActorUserID:  actorID,
			Action:       model.AuditActionForceLogout,
			ResourceType: model.AuditResourceUser,
			ResourceID:   targetUserID,
			Before:       model.Snapshot("token_version", before),
			After:        model.Snapshot("token_version", after),
			CreatedAt:    u.clock.Now(),
		})
	})
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return ForceLogoutResponse{}, NewHTTPError(http.StatusNotFound, "user not found")
		}
		return ForceLogoutResponse{}, err
	}

	if err := u.rtRepo.RevokeAllByUserID(ctx, targetUserID, u.clock.Now()); err != nil {
		return ForceLogoutResponse{}, err
	}

	return ForceLogoutResponse{UserID: targetUserID, NewTokenVersion: after}, nil
}

func (u *AuthUsecase) issuePair(ctx context.Context, user *model.User, userAgent string, now time.Time) (TokenPair, error) {
	access, _, err := u.issuer.Issue(*user, now)
	if err != nil {
		return TokenPair{}, err
	}

	plain, hash, err := auth.NewOpaqueToken()
	if err != nil {
		return TokenPair{}, err
	}
	if len(userAgent) > 255 {
		userAgent = userAgent[:255]
	}
	if err := u.rtRepo.Create(ctx, &model.RefreshToken{
		ID:        u.idGen.NewID(),
		UserID:    user.ID,
		TokenHash: hash,
		UserAgent: userAgent,
		ExpiresAt: now.Add(u.cfg.RefreshTTL),
	}); err != nil {
		return TokenPair{}, err
	}

	return TokenPair{Access: access, Refresh: plain}, nil
}
