package util

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"bookreview/internal/app/bookreview/entity"
	"bookreview/pkg/metrics"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const bookCacheKeyPrefix = "book:"

// ErrCacheMiss возвращается, когда книги нет в кеше
var ErrCacheMiss = redis.Nil

type RedisClient struct {
	client *redis.Client
}

// NewRedisClient подключается к Redis и проверяет соединение
func NewRedisClient(addr, password string, db int) (*RedisClient, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisClient{client: client}, nil
}

// NewRedisClientFromExisting оборачивает уже созданный клиент (тесты)
func NewRedisClientFromExisting(client *redis.Client) *RedisClient {
	return &RedisClient{client: client}
}

// SetBook кладет карточку книги в кеш с TTL
func (r *RedisClient) SetBook(ctx context.Context, book *entity.Book, ttl time.Duration) error {
	timer := metrics.NewRedisTimer("bookreview", metrics.RedisOpSet)
	defer timer.ObserveDuration()

	data, err := json.Marshal(book)
	if err != nil {
		return fmt.Errorf("failed to marshal book: %w", err)
	}

	key := bookCacheKeyPrefix + book.ID.String()
	if err := r.client.Set(ctx, key, data, ttl).Err(); err != nil {
		metrics.RecordRedisError("bookreview", metrics.RedisOpSet)
		return fmt.Errorf("failed to set book in cache: %w", err)
	}

	return nil
}

// GetBook достает карточку книги из кеша
// Возвращает ErrCacheMiss, если ключа нет
func (r *RedisClient) GetBook(ctx context.Context, id uuid.UUID) (*entity.Book, error) {
	timer := metrics.NewRedisTimer("bookreview", metrics.RedisOpGet)
	defer timer.ObserveDuration()

	data, err := r.client.Get(ctx, bookCacheKeyPrefix+id.String()).Bytes()
	if err != nil {
		if err == redis.Nil {
			metrics.RecordCacheMiss("bookreview", "book")
			return nil, ErrCacheMiss
		}
		metrics.RecordRedisError("bookreview", metrics.RedisOpGet)
		return nil, fmt.Errorf("failed to get book from cache: %w", err)
	}

	var book entity.Book
	if err := json.Unmarshal(data, &book); err != nil {
		return nil, fmt.Errorf("failed to unmarshal book: %w", err)
	}

	metrics.RecordCacheHit("bookreview", "book")
	return &book, nil
}

// DeleteBook инвалидирует кеш книги
// Вызывается после каждой записи агрегата и изменения книги
func (r *RedisClient) DeleteBook(ctx context.Context, id uuid.UUID) error {
	timer := metrics.NewRedisTimer("bookreview", metrics.RedisOpDel)
	defer timer.ObserveDuration()

	if err := r.client.Del(ctx, bookCacheKeyPrefix+id.String()).Err(); err != nil {
		metrics.RecordRedisError("bookreview", metrics.RedisOpDel)
		return fmt.Errorf("failed to delete book from cache: %w", err)
	}
	return nil
}

// Client возвращает низкоуровневый клиент (для хранилища refresh токенов)
func (r *RedisClient) Client() *redis.Client {
	return r.client
}

func (r *RedisClient) Close() error {
	return r.client.Close()
}
