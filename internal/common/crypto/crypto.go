// Package crypto 提供员工密码哈希与客人敏感信息脱敏
package crypto

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"strings"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"
)

// MinPasswordLength 员工密码最短长度
const MinPasswordLength = 8

// 预定义错误
var (
	ErrPasswordTooShort = errors.New("password too short")
	ErrPasswordTooLong  = errors.New("password exceeds 72 bytes")
)

// Hasher bcrypt 密码哈希器
type Hasher struct {
	cost int
}

// NewHasher 创建哈希器，cost 超出 bcrypt 范围时使用默认值
func NewHasher(cost int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &Hasher{cost: cost}
}

// Hash 对密码进行哈希
func (h *Hasher) Hash(password string) (string, error) {
	if err := ValidatePassword(password); err != nil {
		return "", err
	}
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

// Verify 验证密码
func (h *Hasher) Verify(password, hash string) bool {
	return VerifyPassword(password, hash)
}

// ValidatePassword 检查密码长度
func ValidatePassword(password string) error {
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return ErrPasswordTooShort
	}
	if len(password) > 72 {
		return ErrPasswordTooLong
	}
	return nil
}

// HashPassword 以默认 cost 对密码进行哈希
func HashPassword(password string) (string, error) {
	return NewHasher(bcrypt.DefaultCost).Hash(password)
}

// VerifyPassword 验证密码
func VerifyPassword(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// GenerateRandomString 生成 URL 安全的随机字符串
func GenerateRandomString(length int) (string, error) {
	if length <= 0 {
		return "", nil
	}
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(bytes)[:length], nil
}

// MaskPhone 手机号脱敏
func MaskPhone(phone string) string {
	if len(phone) != 11 {
		return phone
	}
	return phone[:3] + "****" + phone[7:]
}

// MaskIDNumber 证件号脱敏，保留前 4 位与后 4 位
func MaskIDNumber(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:4] + strings.Repeat("*", len(id)-8) + id[len(id)-4:]
}

// MaskEmail 邮箱脱敏
func MaskEmail(email string) string {
	i := strings.IndexByte(email, '@')
	if i <= 2 {
		return email
	}
	return email[:2] + "***" + email[i:]
}
