package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hitoshi/gatehouse/internal/model"
)

// RedisSessionRepo はRedisを使用したセッションリポジトリ。
// キーは "<prefix>session:<token>" で、有効期限はRedisのTTLに任せる。
type RedisSessionRepo struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// redisSession はRedisに保存するセッションのJSON表現。
type redisSession struct {
	AccountID string    `json:"accountId"`
	IsAdmin   bool      `json:"isAdmin"`
	ExpiresAt time.Time `json:"expiresAt"`
	CreatedAt time.Time `json:"createdAt"`
}

// NewRedisSessionRepo はRedisSessionRepoを生成する。
func NewRedisSessionRepo(client redis.UniversalClient, prefix string, ttl time.Duration) *RedisSessionRepo {
	return &RedisSessionRepo{client: client, prefix: prefix, ttl: ttl}
}

func (r *RedisSessionRepo) key(token string) string {
	return r.prefix + "session:" + token
}

// Create はセッションを保存し、トークンを返す。
func (r *RedisSessionRepo) Create(ctx context.Context, session *model.Session) (string, error) {
	token, err := generateSessionToken()
	if err != nil {
		return "", err
	}

	now := time.Now()
	session.Token = token
	session.CreatedAt = now
	session.ExpiresAt = now.Add(r.ttl)

	data, err := json.Marshal(redisSession{
		AccountID: session.AccountID,
		IsAdmin:   session.IsAdmin,
		ExpiresAt: session.ExpiresAt,
		CreatedAt: session.CreatedAt,
	})
	if err != nil {
		return "", fmt.Errorf("marshal session: %w", err)
	}

	if err := r.client.Set(ctx, r.key(token), data, r.ttl).Err(); err != nil {
		return "", fmt.Errorf("failed to create session: %w", err)
	}
	return token, nil
}

// FindByToken はトークンに対応するセッションを取得する。存在しないか期限切れの場合はnilを返す。
func (r *RedisSessionRepo) FindByToken(ctx context.Context, token string) (*model.Session, error) {
	if token == "" {
		return nil, nil
	}

	data, err := r.client.Get(ctx, r.key(token)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find session: %w", err)
	}

	var rec redisSession
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}

	session := &model.Session{
		Token:     token,
		AccountID: rec.AccountID,
		IsAdmin:   rec.IsAdmin,
		ExpiresAt: rec.ExpiresAt,
		CreatedAt: rec.CreatedAt,
	}
	// TTLとアプリ側の時刻がずれた場合でも期限切れは返さない
	if session.Expired(time.Now()) {
		if err := r.DeleteByToken(ctx, token); err != nil {
			return nil, err
		}
		return nil, nil
	}
	return session, nil
}

// DeleteByToken は指定トークンのセッションを削除する。
func (r *RedisSessionRepo) DeleteByToken(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := r.client.Del(ctx, r.key(token)).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// Ping はRedisへの疎通を確認する。
func (r *RedisSessionRepo) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// compile-time interface check
var _ SessionRepository = (*RedisSessionRepo)(nil)
