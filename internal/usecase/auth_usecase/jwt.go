package auth

import (
	"errors"
	"strconv"
	"time"

	"smartplant/internal/domain/model"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

var ErrInvalidToken = errors.New("invalid token")

// アクセストークンの中身
type AccessClaims struct {
	UserID       int64
	Email        string
	Role         model.Role
	TokenVersion int
	JTI          string
	ExpiresAt    time.Time
}

// JWTを発行する約束
type AccessTokenIssuer interface {
	Issue(user model.User, now time.Time) (token string, claims AccessClaims, err error)
}

// HS256
type JWTIssuer struct {
	secret []byte
	ttl    time.Duration
}

func NewJWTIssuer(secret string, ttl time.Duration) *JWTIssuer {
	return &JWTIssuer{secret: []byte(secret), ttl: ttl}
}

func (i *JWTIssuer) TTL() time.Duration { return i.ttl }

func (i *JWTIssuer) Issue(user model.User, now time.Time) (string, AccessClaims, error) {
	c := AccessClaims{
		UserID:       user.ID,
		Email:        user.Email,
		Role:         user.Role(),
		TokenVersion: user.TokenVersion,
		JTI:          uuid.NewString(),
		ExpiresAt:    now.Add(i.ttl),
	}

	claims := jwt.MapClaims{
		"sub":   c.UserID,
		"email": c.Email,
		"role":  string(c.Role),
		"tv":    c.TokenVersion,
		"jti":   c.JTI,
		"iat":   now.Unix(),
		"exp":   c.ExpiresAt.Unix(),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", AccessClaims{}, err
	}
	return signed, c, nil
}

// Parse は署名・期限を検証してclaimsを取り出す
func (i *JWTIssuer) Parse(raw string) (AccessClaims, error) {
	token, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return i.secret, nil
	})
	if err != nil || token == nil || !token.Valid {
		return AccessClaims{}, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return AccessClaims{}, ErrInvalidToken
	}

	userID, err := parseUserID(claims["sub"])
	if err != nil || userID <= 0 {
		return AccessClaims{}, ErrInvalidToken
	}
	role, _ := claims["role"].(string)
	if role == "" {
		return AccessClaims{}, ErrInvalidToken
	}
	tv, err := parseInt(claims["tv"])
	if err != nil || tv < 0 {
		return AccessClaims{}, ErrInvalidToken
	}
	jti, _ := claims["jti"].(string)
	email, _ := claims["email"].(string)
	exp, err := parseInt(claims["exp"])
	if err != nil {
		return AccessClaims{}, ErrInvalidToken
	}

	return AccessClaims{
		UserID:       userID,
		Email:        email,
		Role:         model.Role(role),
		TokenVersion: tv,
		JTI:          jti,
		ExpiresAt:    time.Unix(int64(exp), 0),
	}, nil
}

// user_idをint64に変換する
func parseUserID(v interface{}) (int64, error) {
	switch t := v.(type) {
	case float64:
		return int64(t), nil
	case string:
		return strconv.ParseInt(t, 10, 64)
	default:
		return 0, errors.New("invalid sub")
	}
}

func parseInt(v interface{}) (int, error) {
	switch t := v.(type) {
	case float64:
		return int(t), nil
	case int:
		return t, nil
	case string:
		return strconv.Atoi(t)
	default:
		return 0, errors.New("invalid int")
	}
}
