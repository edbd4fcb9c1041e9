package repository

import (
	"github.com/assessly/assessment-api/internal/domain/entity"
)

// QuestionRepository определяет методы для работы с банком вопросов
type QuestionRepository interface {
	Create(question *entity.Question) error
	CreateBatch(questions []entity.Question) error
	GetByID(id uint) (*entity.Question, error)
	// GetByIDs возвращает вопросы по набору id (порядок не гарантируется)
	GetByIDs(ids []uint) ([]entity.Question, error)
	Update(question *entity.Question) error
	// Delete выполняет мягкое удаление (is_active=false)
	Delete(id uint) error
}
