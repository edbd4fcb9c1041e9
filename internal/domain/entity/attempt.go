package entity

import (
	"time"
)

// Константы статусов попытки
const (
	AttemptStatusInProgress = "in_progress"
	AttemptStatusCompleted  = "completed"
	AttemptStatusExpired    = "expired"
	AttemptStatusAbandoned  = "abandoned"
)

// AttemptAnswer — одна запись журнала ответов попытки.
// Журнал строго упорядочен по Position и после записи не изменяется.
type AttemptAnswer struct {
	ID                uint        `gorm:"primaryKey" json:"id"`
	AttemptID         string      `gorm:"size:36;not null;index;uniqueIndex:idx_attempt_position" json:"attempt_id"`
	Position          int         `gorm:"not null;uniqueIndex:idx_attempt_position" json:"position"`
	QuestionID        uint        `gorm:"not null;index" json:"question_id"`
	NodeID            string      `gorm:"size:100;not null;default:''" json:"node_id,omitempty"`
	Response          StringArray `gorm:"type:jsonb;not null" json:"response"`
	IsCorrect         bool        `gorm:"not null;default:false" json:"is_correct"`
	AwardedPoints     float64     `gorm:"not null;default:0" json:"awarded_points"`
	MaxPoints         int         `gorm:"not null;default:0" json:"max_points"`
	ValidatorDegraded bool        `gorm:"not null;default:false" json:"validator_degraded"`
	ValidatorFeedback string      `gorm:"size:2000;not null;default:''" json:"validator_feedback,omitempty"`
	SubmittedAt       time.Time   `gorm:"not null" json:"submitted_at"`
}

// TableName определяет имя таблицы для GORM
func (AttemptAnswer) TableName() string {
	return "attempt_answers"
}

// AttemptSession представляет одну попытку пользователя по анкете.
// Запись принадлежит исключительно начавшему её пользователю; пока статус
// in_progress, её изменяет только движок попыток.
type AttemptSession struct {
	ID              string `gorm:"primaryKey;size:36" json:"id"`
	QuestionnaireID uint   `gorm:"not null;index:idx_user_questionnaire" json:"questionnaire_id"`
	UserID          uint   `gorm:"not null;index:idx_user_questionnaire" json:"user_id"`
	AttemptNumber   int    `gorm:"not null;default:1" json:"attempt_number"`
	Status          string `gorm:"size:20;not null;default:'in_progress';index" json:"status"`

	// Позиция: CurrentNodeID для adaptive-режима, CurrentIndex + QuestionOrder
	// для fixed/random. Порядок вопросов фиксируется при старте и не меняется.
	CurrentNodeID string    `gorm:"size:100;not null;default:''" json:"current_node_id,omitempty"`
	CurrentIndex  int       `gorm:"not null;default:0" json:"current_index"`
	QuestionOrder UintArray `gorm:"type:jsonb;not null" json:"question_order"`

	StartedAt   time.Time  `gorm:"not null" json:"started_at"`
	Deadline    *time.Time `json:"deadline,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// Замороженный итог завершённой попытки
	FinalScore      *float64 `json:"final_score,omitempty"`
	FinalPercentage *float64 `json:"final_percentage,omitempty"`
	Passed          *bool    `json:"passed,omitempty"`
	ScoreDegraded   bool     `gorm:"not null;default:false" json:"score_degraded"`

	Answers   []AttemptAnswer `gorm:"foreignKey:AttemptID" json:"answers,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// TableName определяет имя таблицы для GORM
func (AttemptSession) TableName() string {
	return "attempt_sessions"
}

// IsInProgress проверяет, активна ли попытка
func (a *AttemptSession) IsInProgress() bool {
	return a.Status == AttemptStatusInProgress
}

// IsTerminal проверяет, находится ли попытка в терминальном статусе
func (a *AttemptSession) IsTerminal() bool {
	return a.Status == AttemptStatusCompleted ||
		a.Status == AttemptStatusExpired ||
		a.Status == AttemptStatusAbandoned
}

// IsOverdueAt проверяет, истёк ли дедлайн к моменту now.
// Истечение фиксируется лениво — при следующем обращении к попытке.
func (a *AttemptSession) IsOverdueAt(now time.Time) bool {
	return a.Deadline != nil && now.After(*a.Deadline)
}

// RemainingTime возвращает остаток времени до дедлайна (0 — без лимита)
func (a *AttemptSession) RemainingTime(now time.Time) time.Duration {
	if a.Deadline == nil {
		return 0
	}
	remaining := a.Deadline.Sub(now)
	if remaining < 0 {
		return 0
	}
	return remaining
}
