// Package jwt 提供员工访问令牌的签发与解析
package jwt

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims 员工令牌声明，会话 ID 存放在 jti
type Claims struct {
	UserID int64  `json:"user_id"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// SessionID 返回令牌对应的会话 ID
func (c *Claims) SessionID() string {
	return c.ID
}

// Config JWT 配置
type Config struct {
	Secret           string
	AccessExpireTime time.Duration
	Issuer           string
}

// Manager JWT 管理器
type Manager struct {
	config *Config
	now    func() time.Time
}

// Token 签发结果
type Token struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// 预定义错误
var (
	ErrTokenInvalid   = errors.New("invalid token")
	ErrTokenExpired   = errors.New("token expired")
	ErrTokenMalformed = errors.New("token malformed")
	ErrTokenNotActive = errors.New("token not active yet")
	ErrMissingSession = errors.New("token without session id")
)

// NewManager 创建 JWT 管理器
func NewManager(config *Config) *Manager {
	return &Manager{
		config: config,
		now:    time.Now,
	}
}

// TTL 令牌有效期
func (m *Manager) TTL() time.Duration {
	return m.config.AccessExpireTime
}

// Issue 为员工签发访问令牌
func (m *Manager) Issue(userID int64, role, sessionID string) (*Token, error) {
	if sessionID == "" {
		return nil, ErrMissingSession
	}
	now := m.now()
	expireAt := now.Add(m.config.AccessExpireTime)

	claims := &Claims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        sessionID,
			Issuer:    m.config.Issuer,
			Subject:   "staff",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expireAt),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(m.config.Secret))
	if err != nil {
		return nil, err
	}
	return &Token{
		AccessToken: signed,
		TokenType:   "Bearer",
		ExpiresAt:   expireAt,
	}, nil
}

// ParseToken 解析并校验令牌
func (m *Manager) ParseToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrTokenInvalid
		}
		return []byte(m.config.Secret), nil
	}, jwt.WithTimeFunc(m.now), jwt.WithIssuer(m.config.Issuer))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		if errors.Is(err, jwt.ErrTokenMalformed) {
			return nil, ErrTokenMalformed
		}
		if errors.Is(err, jwt.ErrTokenNotValidYet) {
			return nil, ErrTokenNotActive
		}
		return nil, ErrTokenInvalid
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrTokenInvalid
	}
	if claims.ID == "" {
		return nil, ErrMissingSession
	}
	return claims, nil
}
