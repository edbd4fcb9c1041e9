package entity

import (
	"time"
)

// QuestionPool представляет именованную коллекцию вопросов для выборки в анкеты
type QuestionPool struct {
	ID          uint        `gorm:"primaryKey" json:"id"`
	Name        string      `gorm:"size:100;not null" json:"name"`
	Description string      `gorm:"size:500;not null;default:''" json:"description"`
	Category    string      `gorm:"size:100;not null;default:'';index" json:"category"`
	Difficulty  int         `gorm:"not null;default:1;index" json:"difficulty"`
	Tags        StringArray `gorm:"type:jsonb;not null" json:"tags"`
	Version     int         `gorm:"not null;default:1" json:"version"`
	IsActive    bool        `gorm:"not null;default:true;index" json:"is_active"`
	CreatedByID uint        `gorm:"not null;index" json:"created_by_id"`
	Questions   []Question  `gorm:"many2many:pool_questions" json:"questions,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// TableName определяет имя таблицы для GORM
func (QuestionPool) TableName() string {
	return "question_pools"
}
