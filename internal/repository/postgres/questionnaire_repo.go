package postgres

import (
	"errors"

	"gorm.io/gorm"

	"github.com/assessly/assessment-api/internal/domain/entity"
	"github.com/assessly/assessment-api/internal/domain/repository"
	apperrors "github.com/assessly/assessment-api/internal/pkg/errors"
)

// QuestionnaireRepo реализует repository.QuestionnaireRepository
type QuestionnaireRepo struct {
	db *gorm.DB
}

// NewQuestionnaireRepo создает новый репозиторий анкет
func NewQuestionnaireRepo(db *gorm.DB) *QuestionnaireRepo {
	return &QuestionnaireRepo{db: db}
}

// Create создает новую анкету
func (r *QuestionnaireRepo) Create(questionnaire *entity.Questionnaire) error {
	return r.db.Create(questionnaire).Error
}

// GetByID возвращает анкету по ID
func (r *QuestionnaireRepo) GetByID(id uint) (*entity.Questionnaire, error) {
	var questionnaire entity.Questionnaire
	err := r.db.First(&questionnaire, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &questionnaire, nil
}

// Update сохраняет анкету
func (r *QuestionnaireRepo) Update(questionnaire *entity.Questionnaire) error {
	return r.db.Save(questionnaire).Error
}

// Delete выполняет мягкое удаление анкеты
func (r *QuestionnaireRepo) Delete(id uint) error {
	result := r.db.Model(&entity.Questionnaire{}).Where("id = ?", id).Update("is_active", false)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// ListWithFilters возвращает страницу анкет и total count, посчитанные
// по одному отфильтрованному запросу в одной транзакции
func (r *QuestionnaireRepo) ListWithFilters(filters repository.CatalogFilters, sort repository.CatalogSort, limit, offset int) ([]entity.Questionnaire, int64, error) {
	var questionnaires []entity.Questionnaire
	var total int64

	err := r.db.Transaction(func(tx *gorm.DB) error {
		query := tx.Model(&entity.Questionnaire{})
		query = applyCatalogFilters(query, filters, "title")

		// Для fixed-анкет число вопросов — длина JSONB-списка
		if filters.MinQuestions != nil {
			query = query.Where("jsonb_array_length(question_ids) >= ?", *filters.MinQuestions)
		}
		if filters.MaxQuestions != nil {
			query = query.Where("jsonb_array_length(question_ids) <= ?", *filters.MaxQuestions)
		}

		if err := query.Count(&total).Error; err != nil {
			return err
		}

		return query.
			Order(catalogOrderClause(sort, "title")).
			Limit(limit).
			Offset(offset).
			Find(&questionnaires).Error
	})
	if err != nil {
		return nil, 0, err
	}

	return questionnaires, total, nil
}
