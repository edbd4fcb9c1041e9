package service

import "time"

// Константы значений по умолчанию
const (
	DefaultValidatorTimeout  = 5 * time.Second
	DefaultValidatorRetries  = 2
	DefaultRetryInterval     = 500 * time.Millisecond
	DefaultPoolCacheTTL      = 30 * time.Second
	DefaultMaxRandomQuestion = 50
)

// EngineConfig содержит настройки движка доставки оценивания
type EngineConfig struct {
	// Валидатор ответов: таймаут одного вызова, число повторов и интервал
	// между ними. После исчерпания повторов ответ оценивается в ноль
	// с пометкой degraded.
	ValidatorTimeout  time.Duration
	ValidatorRetries  int
	RetryInterval     time.Duration

	// TTL кеша списка активных вопросов пула
	PoolCacheTTL time.Duration

	// Верхняя граница размера случайной выборки на одну анкету
	MaxRandomQuestions int
}

// DefaultEngineConfig возвращает конфигурацию по умолчанию
func DefaultEngineConfig() *EngineConfig {
	return &EngineConfig{
		ValidatorTimeout:   DefaultValidatorTimeout,
		ValidatorRetries:   DefaultValidatorRetries,
		RetryInterval:      DefaultRetryInterval,
		PoolCacheTTL:       DefaultPoolCacheTTL,
		MaxRandomQuestions: DefaultMaxRandomQuestion,
	}
}
