package postgres

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/assessly/assessment-api/internal/domain/entity"
	"github.com/assessly/assessment-api/internal/domain/repository"
	apperrors "github.com/assessly/assessment-api/internal/pkg/errors"
)

// PoolRepo реализует repository.PoolRepository
type PoolRepo struct {
	db *gorm.DB
}

// NewPoolRepo создает новый репозиторий пулов вопросов
func NewPoolRepo(db *gorm.DB) *PoolRepo {
	return &PoolRepo{db: db}
}

// Create создает новый пул
func (r *PoolRepo) Create(pool *entity.QuestionPool) error {
	return r.db.Create(pool).Error
}

// GetByID возвращает пул по ID (без вопросов)
func (r *PoolRepo) GetByID(id uint) (*entity.QuestionPool, error) {
	var pool entity.QuestionPool
	err := r.db.First(&pool, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &pool, nil
}

// GetWithQuestions возвращает пул вместе с вопросами
func (r *PoolRepo) GetWithQuestions(id uint) (*entity.QuestionPool, error) {
	var pool entity.QuestionPool
	err := r.db.Preload("Questions").First(&pool, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &pool, nil
}

// GetActiveQuestions возвращает только активные вопросы пула
func (r *PoolRepo) GetActiveQuestions(poolID uint) ([]entity.Question, error) {
	var questions []entity.Question
	err := r.db.
		Joins("JOIN pool_questions pq ON pq.question_id = questions.id").
		Where("pq.question_pool_id = ? AND questions.is_active = ?", poolID, true).
		Order("questions.id").
		Find(&questions).Error
	if err != nil {
		return nil, err
	}
	return questions, nil
}

// QuestionIDs возвращает id всех вопросов пула
func (r *PoolRepo) QuestionIDs(poolID uint) ([]uint, error) {
	var ids []uint
	err := r.db.Table("pool_questions").
		Where("question_pool_id = ?", poolID).
		Order("question_id").
		Pluck("question_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// AddQuestions привязывает вопросы к пулу одной транзакцией
func (r *PoolRepo) AddQuestions(poolID uint, questionIDs []uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		for _, qid := range questionIDs {
			if err := tx.Exec(
				"INSERT INTO pool_questions (question_pool_id, question_id) VALUES (?, ?)",
				poolID, qid,
			).Error; err != nil {
				return fmt.Errorf("failed to add question %d to pool %d: %w", qid, poolID, err)
			}
		}
		return nil
	})
}

// RemoveQuestions отвязывает вопросы от пула одной транзакцией
func (r *PoolRepo) RemoveQuestions(poolID uint, questionIDs []uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		return tx.Exec(
			"DELETE FROM pool_questions WHERE question_pool_id = ? AND question_id IN ?",
			poolID, questionIDs,
		).Error
	})
}

// Update сохраняет пул
func (r *PoolRepo) Update(pool *entity.QuestionPool) error {
	return r.db.Save(pool).Error
}

// Delete выполняет мягкое удаление: пул исчезает из листинга и выборки,
// но остаётся адресуемым по id
func (r *PoolRepo) Delete(id uint) error {
	result := r.db.Model(&entity.QuestionPool{}).Where("id = ?", id).Update("is_active", false)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// ListWithFilters возвращает страницу пулов и total count.
// Count и страница считаются по одному запросу в одной транзакции,
// чтобы total не разъезжался с выдачей.
func (r *PoolRepo) ListWithFilters(filters repository.CatalogFilters, sort repository.CatalogSort, limit, offset int) ([]entity.QuestionPool, int64, error) {
	var pools []entity.QuestionPool
	var total int64

	err := r.db.Transaction(func(tx *gorm.DB) error {
		query := tx.Model(&entity.QuestionPool{})
		query = applyCatalogFilters(query, filters, "name")
		query = applyPoolQuestionCountFilters(query, filters)

		if err := query.Count(&total).Error; err != nil {
			return err
		}

		return query.
			Order(catalogOrderClause(sort, "name")).
			Limit(limit).
			Offset(offset).
			Find(&pools).Error
	})
	if err != nil {
		return nil, 0, err
	}

	return pools, total, nil
}

// applyPoolQuestionCountFilters фильтрует по числу вопросов в пуле
func applyPoolQuestionCountFilters(query *gorm.DB, filters repository.CatalogFilters) *gorm.DB {
	const countSubquery = "(SELECT COUNT(*) FROM pool_questions pq WHERE pq.question_pool_id = question_pools.id)"

	if filters.MinQuestions != nil {
		query = query.Where(countSubquery+" >= ?", *filters.MinQuestions)
	}
	if filters.MaxQuestions != nil {
		query = query.Where(countSubquery+" <= ?", *filters.MaxQuestions)
	}
	return query
}
