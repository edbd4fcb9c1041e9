package repository

import (
	"github.com/assessly/assessment-api/internal/domain/entity"
)

// PoolRepository определяет методы для работы с пулами вопросов.
// Мягко удалённые пулы (is_active=false) исключаются из листинга и выборки
// по умолчанию, но остаются адресуемыми по id для владельца/админа.
type PoolRepository interface {
	Create(pool *entity.QuestionPool) error
	GetByID(id uint) (*entity.QuestionPool, error)
	GetWithQuestions(id uint) (*entity.QuestionPool, error)
	// GetActiveQuestions возвращает только активные вопросы пула
	GetActiveQuestions(poolID uint) ([]entity.Question, error)
	// QuestionIDs возвращает id всех вопросов пула (включая неактивные)
	QuestionIDs(poolID uint) ([]uint, error)
	// AddQuestions/RemoveQuestions изменяют состав пула. Вызывающий обязан
	// держать per-pool блокировку: мутация читает текущий состав, считает
	// дельту и пишет обратно под той же дисциплиной сериализации.
	AddQuestions(poolID uint, questionIDs []uint) error
	RemoveQuestions(poolID uint, questionIDs []uint) error
	Update(pool *entity.QuestionPool) error
	// Delete выполняет мягкое удаление (is_active=false)
	Delete(id uint) error
	// ListWithFilters возвращает страницу и общее количество, посчитанные
	// по одному и тому же отфильтрованному запросу в одной транзакции.
	ListWithFilters(filters CatalogFilters, sort CatalogSort, limit, offset int) ([]entity.QuestionPool, int64, error)
}
