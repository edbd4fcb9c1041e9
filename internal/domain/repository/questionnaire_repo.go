package repository

import (
	"github.com/assessly/assessment-api/internal/domain/entity"
)

// QuestionnaireRepository определяет методы для работы с анкетами
type QuestionnaireRepository interface {
	Create(questionnaire *entity.Questionnaire) error
	GetByID(id uint) (*entity.Questionnaire, error)
	Update(questionnaire *entity.Questionnaire) error
	// Delete выполняет мягкое удаление (is_active=false)
	Delete(id uint) error
	ListWithFilters(filters CatalogFilters, sort CatalogSort, limit, offset int) ([]entity.Questionnaire, int64, error)
}
