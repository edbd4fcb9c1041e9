package entity

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// Режимы прохождения анкеты
const (
	QuestionnaireModeFixed    = "fixed"    // фиксированный список вопросов
	QuestionnaireModeRandom   = "random"   // случайная выборка из пула
	QuestionnaireModeAdaptive = "adaptive" // граф переходов (path logic)
)

// JSONGraph хранит сырое JSONB-представление графа переходов.
// Компиляция и валидация выполняются пакетом pathlogic при сохранении анкеты.
type JSONGraph []byte

// Scan реализует интерфейс sql.Scanner для JSONGraph
func (g *JSONGraph) Scan(value interface{}) error {
	if value == nil {
		*g = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return errors.New("failed to unmarshal JSONB value: expected []byte")
	}
	*g = append(JSONGraph{}, bytes...)
	return nil
}

// Value реализует интерфейс driver.Valuer для JSONGraph
func (g JSONGraph) Value() (driver.Value, error) {
	if len(g) == 0 {
		return nil, nil
	}
	return []byte(g), nil
}

// MarshalJSON отдаёт граф как есть (он уже JSON)
func (g JSONGraph) MarshalJSON() ([]byte, error) {
	if len(g) == 0 {
		return []byte("null"), nil
	}
	return g, nil
}

// UnmarshalJSON принимает граф как есть
func (g *JSONGraph) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*g = nil
		return nil
	}
	if !json.Valid(data) {
		return errors.New("invalid path graph JSON")
	}
	*g = append(JSONGraph{}, data...)
	return nil
}

// QuestionnaireSettings — настройки прохождения и оценивания.
// Встраиваются в запись анкеты и передаются в движок подсчёта очков.
type QuestionnaireSettings struct {
	RandomizeQuestions bool     `gorm:"not null;default:false" json:"randomize_questions"`
	AllowReview        bool     `gorm:"not null;default:true" json:"allow_review"`
	AllowRetakes       bool     `gorm:"not null;default:false" json:"allow_retakes"`
	MaxRetakes         int      `gorm:"not null;default:0" json:"max_retakes"` // 0 при allow_retakes=true — без лимита
	PassPercentage     *float64 `json:"pass_percentage,omitempty"`
	PassPoints         *float64 `json:"pass_points,omitempty"`
	TimeLimitMinutes   int      `gorm:"not null;default:0" json:"time_limit_minutes"` // 0 — без лимита
}

// Questionnaire представляет анкету (оценочный тест)
type Questionnaire struct {
	ID          uint        `gorm:"primaryKey" json:"id"`
	Title       string      `gorm:"size:100;not null" json:"title"`
	Description string      `gorm:"size:500;not null;default:''" json:"description"`
	Mode        string      `gorm:"size:20;not null;default:'fixed';index" json:"mode"`
	Category    string      `gorm:"size:100;not null;default:'';index" json:"category"`
	Difficulty  int         `gorm:"not null;default:1;index" json:"difficulty"`
	Tags        StringArray `gorm:"type:jsonb;not null" json:"tags"`

	// Источники вопросов по режимам: fixed — QuestionIDs, random — PoolID +
	// MaxQuestions, adaptive — PathGraph.
	QuestionIDs  UintArray `gorm:"type:jsonb;not null" json:"question_ids"`
	PoolID       *uint     `gorm:"index" json:"pool_id,omitempty"`
	MaxQuestions int       `gorm:"not null;default:0" json:"max_questions"`
	PathGraph    JSONGraph `gorm:"type:jsonb" json:"path_graph,omitempty"`

	Settings QuestionnaireSettings `gorm:"embedded;embeddedPrefix:settings_" json:"settings"`

	StartDate *time.Time `gorm:"index" json:"start_date,omitempty"`
	EndDate   *time.Time `gorm:"index" json:"end_date,omitempty"`

	IsActive    bool      `gorm:"not null;default:true;index" json:"is_active"`
	IsPublic    bool      `gorm:"not null;default:false;index" json:"is_public"`
	Version     int       `gorm:"not null;default:1" json:"version"`
	CreatedByID uint      `gorm:"not null;index" json:"created_by_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName определяет имя таблицы для GORM
func (Questionnaire) TableName() string {
	return "questionnaires"
}

// IsAdaptive проверяет, использует ли анкета граф переходов
func (q *Questionnaire) IsAdaptive() bool {
	return q.Mode == QuestionnaireModeAdaptive
}

// IsAvailableAt проверяет, попадает ли момент t в окно доступности анкеты.
// Создание попытки вне окна [StartDate, EndDate] отклоняется.
func (q *Questionnaire) IsAvailableAt(t time.Time) bool {
	if q.StartDate != nil && t.Before(*q.StartDate) {
		return false
	}
	if q.EndDate != nil && t.After(*q.EndDate) {
		return false
	}
	return true
}

// AttemptsAllowed возвращает допустимое число завершённых попыток.
// 0 означает отсутствие лимита.
func (q *Questionnaire) AttemptsAllowed() int {
	if !q.Settings.AllowRetakes {
		return 1
	}
	return q.Settings.MaxRetakes
}
