package entity

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// Типы вопросов
const (
	QuestionSingleChoice   = "single_choice"
	QuestionMultipleChoice = "multiple_choice"
	QuestionTrueFalse      = "true_false"
	QuestionOpenText       = "open_text"
)

// StringArray - пользовательский тип для работы с JSONB
type StringArray []string

// Scan реализует интерфейс sql.Scanner для StringArray
// Используется GORM для чтения JSONB данных из базы
func (o *StringArray) Scan(value interface{}) error {
	// Обработка NULL значений из базы данных
	if value == nil {
		*o = StringArray{}
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return errors.New("failed to unmarshal JSONB value: expected []byte")
	}

	if len(bytes) == 0 {
		*o = StringArray{}
		return nil
	}

	return json.Unmarshal(bytes, o)
}

// Value реализует интерфейс driver.Valuer для StringArray
// Используется GORM для записи StringArray в JSONB в базе
func (o StringArray) Value() (driver.Value, error) {
	if len(o) == 0 {
		return []byte("[]"), nil // Пустой JSON массив вместо null
	}
	return json.Marshal(o)
}

// UintArray - JSONB-массив идентификаторов (порядок вопросов в попытке и т.п.)
type UintArray []uint

// Scan реализует интерфейс sql.Scanner для UintArray
func (o *UintArray) Scan(value interface{}) error {
	if value == nil {
		*o = UintArray{}
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return errors.New("failed to unmarshal JSONB value: expected []byte")
	}

	if len(bytes) == 0 {
		*o = UintArray{}
		return nil
	}

	return json.Unmarshal(bytes, o)
}

// Value реализует интерфейс driver.Valuer для UintArray
func (o UintArray) Value() (driver.Value, error) {
	if len(o) == 0 {
		return []byte("[]"), nil
	}
	return json.Marshal(o)
}

// Question представляет вопрос из банка вопросов
type Question struct {
	ID             uint        `gorm:"primaryKey" json:"id"`
	Text           string      `gorm:"size:1000;not null" json:"text"`
	Type           string      `gorm:"size:30;not null;default:'single_choice'" json:"type"`
	Options        StringArray `gorm:"type:jsonb;not null" json:"options"`
	CorrectOptions StringArray `gorm:"type:jsonb;not null" json:"-"` // Скрыто от клиента
	ExpectedAnswer string      `gorm:"size:2000;not null;default:''" json:"-"`
	PointValue     int         `gorm:"not null;default:10" json:"point_value"`
	Category       string      `gorm:"size:100;not null;default:'';index" json:"category"`
	Difficulty     int         `gorm:"not null;default:1;index" json:"difficulty"`
	Tags           StringArray `gorm:"type:jsonb;not null" json:"tags"`
	IsActive       bool        `gorm:"not null;default:true;index" json:"is_active"`
	CreatedByID    uint        `gorm:"not null;index" json:"created_by_id"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

// TableName определяет имя таблицы для GORM
func (Question) TableName() string {
	return "questions"
}

// IsExactMatch возвращает true для типов с точным сравнением ответа.
// Для open_text корректность определяет внешний сервис проверки.
func (q *Question) IsExactMatch() bool {
	return q.Type != QuestionOpenText
}

// IsCorrectResponse проверяет ответ с точным сравнением: множество выбранных
// вариантов должно совпадать с множеством правильных.
func (q *Question) IsCorrectResponse(response []string) bool {
	if len(response) != len(q.CorrectOptions) || len(response) == 0 {
		return false
	}
	expected := make(map[string]bool, len(q.CorrectOptions))
	for _, opt := range q.CorrectOptions {
		expected[opt] = true
	}
	seen := make(map[string]bool, len(response))
	for _, r := range response {
		if !expected[r] || seen[r] {
			return false
		}
		seen[r] = true
	}
	return true
}

// IsValidOption проверяет, что выбранный вариант присутствует среди options
func (q *Question) IsValidOption(option string) bool {
	for _, o := range q.Options {
		if o == option {
			return true
		}
	}
	return false
}
