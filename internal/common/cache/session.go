package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrSessionNotFound 会话不存在或已过期
var ErrSessionNotFound = errors.New("session not found")

// Session 员工登录会话
type Session struct {
	ID        string    `json:"id"`
	UserID    int64     `json:"user_id"`
	Role      string    `json:"role"`
	IP        string    `json:"ip,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// SessionStore 基于 Redis 的会话存储，过期时间与令牌一致
type SessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSessionStore 创建会话存储
func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{client: client, ttl: ttl}
}

func sessionKey(id string) string {
	return BuildKey(KeyPrefixSession, id)
}

func userSessionsKey(userID int64) string {
	return BuildKey(KeyPrefixSession, "user", strconv.FormatInt(userID, 10))
}

// Create 保存会话
func (s *SessionStore) Create(ctx context.Context, session *Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	userKey := userSessionsKey(session.UserID)

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, sessionKey(session.ID), data, s.ttl)
		pipe.SAdd(ctx, userKey, session.ID)
		pipe.Expire(ctx, userKey, s.ttl)
		return nil
	})
	return err
}

// Get 读取会话
func (s *SessionStore) Get(ctx context.Context, id string) (*Session, error) {
	data, err := s.client.Get(ctx, sessionKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	var session Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return &session, nil
}

// Exists 会话是否有效
func (s *SessionStore) Exists(ctx context.Context, id string) (bool, error) {
	n, err := s.client.Exists(ctx, sessionKey(id)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Revoke 注销会话
func (s *SessionStore) Revoke(ctx context.Context, id string) error {
	session, err := s.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return nil
		}
		return err
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, sessionKey(id))
		pipe.SRem(ctx, userSessionsKey(session.UserID), id)
		return nil
	})
	return err
}

// RevokeAll 注销员工的全部会话，员工被停用时调用
func (s *SessionStore) RevokeAll(ctx context.Context, userID int64) (int, error) {
	userKey := userSessionsKey(userID)
	ids, err := s.client.SMembers(ctx, userKey).Result()
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}
	keys := make([]string, 0, len(ids)+1)
	for _, id := range ids {
		keys = append(keys, sessionKey(id))
	}
	keys = append(keys, userKey)
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return 0, err
	}
	return len(ids), nil
}
