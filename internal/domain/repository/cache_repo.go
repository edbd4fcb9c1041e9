package repository

import "time"

// CacheRepository определяет операции кеша, которые использует движок:
// JSON-кеш активных вопросов пула и счетчики статистики по вопросам.
// Промах кеша возвращается как errors.ErrNotFound.
type CacheRepository interface {
	Get(key string) (string, error)
	Delete(key string) error
	Increment(key string) (int64, error)
	SetJSON(key string, value interface{}, expiration time.Duration) error
	GetJSON(key string, dest interface{}) error
}
