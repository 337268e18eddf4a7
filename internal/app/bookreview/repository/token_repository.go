package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var (
	ErrTokenNotFound = errors.New("refresh token not found")
)

// TokenRepository хранит refresh токены
// Реализация на Redis: токены живут ровно до истечения благодаря TTL
type TokenRepository interface {
	SaveRefreshToken(ctx context.Context, userID uuid.UUID, token string, expiresAt time.Time) error
	GetRefreshToken(ctx context.Context, token string) (uuid.UUID, error)
	DeleteRefreshToken(ctx context.Context, token string) error
	DeleteUserRefreshTokens(ctx context.Context, userID uuid.UUID) error
}

type redisTokenRepository struct {
	client *redis.Client
}

// NewRedisTokenRepository создает Redis репозиторий для refresh токенов
func NewRedisTokenRepository(client *redis.Client) TokenRepository {
	return &redisTokenRepository{client: client}
}

// SaveRefreshToken сохраняет refresh токен с TTL до истечения
func (r *redisTokenRepository) SaveRefreshToken(ctx context.Context, userID uuid.UUID, token string, expiresAt time.Time) error {
	key := fmt.Sprintf("refresh_token:%s", token)

	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return fmt.Errorf("token already expired")
	}

	if err := r.client.Set(ctx, key, userID.String(), ttl).Err(); err != nil {
		return fmt.Errorf("failed to save refresh token to Redis: %w", err)
	}

	// Множество токенов пользователя нужно для logout со всех устройств
	userTokensKey := fmt.Sprintf("user_tokens:%s", userID.String())
	if err := r.client.SAdd(ctx, userTokensKey, token).Err(); err != nil {
		return fmt.Errorf("failed to add token to user tokens set: %w", err)
	}
	r.client.Expire(ctx, userTokensKey, ttl)

	return nil
}

// GetRefreshToken возвращает ID пользователя, которому выдан токен
func (r *redisTokenRepository) GetRefreshToken(ctx context.Context, token string) (uuid.UUID, error) {
	key := fmt.Sprintf("refresh_token:%s", token)

	userIDStr, err := r.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return uuid.Nil, ErrTokenNotFound
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to get refresh token from Redis: %w", err)
	}

	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid user ID in Redis: %w", err)
	}

	return userID, nil
}

// DeleteRefreshToken удаляет конкретный refresh токен
func (r *redisTokenRepository) DeleteRefreshToken(ctx context.Context, token string) error {
	key := fmt.Sprintf("refresh_token:%s", token)

	userIDStr, err := r.client.Get(ctx, key).Result()
	if err != nil && err != redis.Nil {
		return fmt.Errorf("failed to get user ID for token: %w", err)
	}

	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to delete refresh token from Redis: %w", err)
	}

	if userIDStr != "" {
		userTokensKey := fmt.Sprintf("user_tokens:%s", userIDStr)
		r.client.SRem(ctx, userTokensKey, token)
	}

	return nil
}

// DeleteUserRefreshTokens удаляет все refresh токены пользователя
func (r *redisTokenRepository) DeleteUserRefreshTokens(ctx context.Context, userID uuid.UUID) error {
	userTokensKey := fmt.Sprintf("user_tokens:%s", userID.String())

	tokens, err := r.client.SMembers(ctx, userTokensKey).Result()
	if err != nil {
		return fmt.Errorf("failed to get user tokens: %w", err)
	}

	for _, token := range tokens {
		r.client.Del(ctx, fmt.Sprintf("refresh_token:%s", token))
	}

	if err := r.client.Del(ctx, userTokensKey).Err(); err != nil {
		return fmt.Errorf("failed to delete user tokens set: %w", err)
	}

	return nil
}
