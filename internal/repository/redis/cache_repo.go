package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	apperrors "github.com/assessly/assessment-api/internal/pkg/errors"
)

// opTimeout ограничивает каждую операцию кеша: медленный redis не должен
// задерживать выдачу шага попытки — кеш здесь только ускоряет, промах
// всегда обслуживается базой.
const opTimeout = 500 * time.Millisecond

// CacheRepo реализует repository.CacheRepository поверх go-redis.
type CacheRepo struct {
	client redis.UniversalClient
}

// NewCacheRepo создает репозиторий кеша
func NewCacheRepo(client redis.UniversalClient) (*CacheRepo, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client cannot be nil for CacheRepo")
	}
	return &CacheRepo{client: client}, nil
}

func opCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), opTimeout)
}

// Get возвращает строковое значение; промах → apperrors.ErrNotFound
func (r *CacheRepo) Get(key string) (string, error) {
	ctx, cancel := opCtx()
	defer cancel()

	val, err := r.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", apperrors.ErrNotFound
		}
		return "", err
	}
	return val, nil
}

// Delete инвалидирует ключ (например, кеш пула после мутации состава)
func (r *CacheRepo) Delete(key string) error {
	ctx, cancel := opCtx()
	defer cancel()
	return r.client.Del(ctx, key).Err()
}

// Increment атомарно увеличивает счетчик статистики вопроса
func (r *CacheRepo) Increment(key string) (int64, error) {
	ctx, cancel := opCtx()
	defer cancel()
	return r.client.Incr(ctx, key).Result()
}

// SetJSON сериализует значение и кладет его с TTL
func (r *CacheRepo) SetJSON(key string, value interface{}, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}

	ctx, cancel := opCtx()
	defer cancel()
	return r.client.Set(ctx, key, data, expiration).Err()
}

// GetJSON читает и десериализует значение; промах → apperrors.ErrNotFound
func (r *CacheRepo) GetJSON(key string, dest interface{}) error {
	ctx, cancel := opCtx()
	defer cancel()

	data, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return apperrors.ErrNotFound
		}
		return err
	}
	return json.Unmarshal(data, dest)
}
