package pkg

import (
	"errors"
	"time"

	"community_hub/internal/config"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrTokenExpired      = errors.New("token expired")
	ErrTokenInvalid      = errors.New("token invalid")
	ErrRefreshExpired    = errors.New("refresh expired")
	ErrRefreshInvalid    = errors.New("refresh invalid")
	ErrTokenParseFailure = errors.New("token parse failure")
)

const (
	subjectAccess  = "access"
	subjectRefresh = "refresh"
)

type Claims struct {
	UserID      uint64 `json:"user_id"`
	IsStaff     bool   `json:"is_staff"`
	IsSuperuser bool   `json:"is_superuser"`
	jwt.RegisteredClaims
}

type Pair struct {
	AccessToken  string `json:"access"`
	RefreshToken string `json:"refresh"`
}

// Subject 签发 token 所需的用户信息
type Subject struct {
	UserID      uint64
	IsStaff     bool
	IsSuperuser bool
}

type JWT struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	now           func() time.Time
}

func NewJWT(cfg config.JWTConfig) *JWT {
	return &JWT{
		accessSecret:  []byte(cfg.AccessSecret),
		refreshSecret: []byte(cfg.RefreshSecret),
		accessTTL:     cfg.AccessDuration(),
		refreshTTL:    cfg.RefreshDuration(),
		now:           time.Now,
	}
}

func (j *JWT) AccessTTL() time.Duration { return j.accessTTL }

func (j *JWT) sign(sub Subject, subject string, ttl time.Duration, secret []byte) (string, error) {
	now := j.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID:      sub.UserID,
		IsStaff:     sub.IsStaff,
		IsSuperuser: sub.IsSuperuser,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Subject:   subject,
		},
	})
	return token.SignedString(secret)
}

func (j *JWT) GeneratePair(sub Subject) (*Pair, error) {
	access, err := j.sign(sub, subjectAccess, j.accessTTL, j.accessSecret)
	if err != nil {
		return nil, err
	}
	refresh, err := j.sign(sub, subjectRefresh, j.refreshTTL, j.refreshSecret)
	if err != nil {
		return nil, err
	}
	return &Pair{AccessToken: access, RefreshToken: refresh}, nil
}

func (j *JWT) parse(tokenStr string, secret []byte, subject string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(j.now))
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Subject != subject {
		return nil, ErrTokenParseFailure
	}
	return claims, nil
}

// ParseAccess 解析 access
func (j *JWT) ParseAccess(tokenStr string) (*Claims, error) {
	claims, err := j.parse(tokenStr, j.accessSecret, subjectAccess)
	switch {
	case err == nil:
		return claims, nil
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, ErrTokenExpired
	default:
		return nil, ErrTokenInvalid
	}
}

// ParseRefresh 解析 refresh，调用方负责签发新的 token 对
func (j *JWT) ParseRefresh(tokenStr string) (*Claims, error) {
	claims, err := j.parse(tokenStr, j.refreshSecret, subjectRefresh)
	switch {
	case err == nil:
		return claims, nil
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, ErrRefreshExpired
	default:
		return nil, ErrRefreshInvalid
	}
}
