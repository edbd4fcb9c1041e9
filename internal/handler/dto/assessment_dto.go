// Package dto содержит выходные представления API. Сущности с ответами
// (correct_options, expected_answer) никогда не сериализуются напрямую
// в сторону проходящего попытку.
package dto

import (
	"time"

	"github.com/assessly/assessment-api/internal/domain/entity"
	"github.com/assessly/assessment-api/internal/service"
)

// QuestionOption представляет вариант ответа для фронтенда
type QuestionOption struct {
	ID   int    `json:"id"`
	Text string `json:"text"`
}

// ConvertOptionsToObjects преобразует массив строк в массив объектов с id и text
func ConvertOptionsToObjects(options entity.StringArray) []QuestionOption {
	converted := make([]QuestionOption, len(options))
	for i, opt := range options {
		if opt == "" {
			opt = "(пустой вариант)"
		}
		converted[i] = QuestionOption{ID: i, Text: opt}
	}
	return converted
}

// QuestionResponse — вопрос в том виде, в котором его видит проходящий
type QuestionResponse struct {
	ID         uint             `json:"id"`
	Text       string           `json:"text"`
	Type       string           `json:"type"`
	Options    []QuestionOption `json:"options,omitempty"`
	PointValue int              `json:"point_value"`
	Category   string           `json:"category,omitempty"`
	Difficulty int              `json:"difficulty,omitempty"`
	Tags       []string         `json:"tags,omitempty"`
}

// NewQuestionResponse создает представление вопроса без эталонных ответов
func NewQuestionResponse(q *entity.Question) *QuestionResponse {
	if q == nil {
		return nil
	}
	return &QuestionResponse{
		ID:         q.ID,
		Text:       q.Text,
		Type:       q.Type,
		Options:    ConvertOptionsToObjects(q.Options),
		PointValue: q.PointValue,
		Category:   q.Category,
		Difficulty: q.Difficulty,
		Tags:       q.Tags,
	}
}

// StepResponse — следующий шаг попытки
type StepResponse struct {
	Kind       string            `json:"kind"`
	NodeID     string            `json:"node_id,omitempty"`
	QuestionID uint              `json:"question_id,omitempty"`
	Question   *QuestionResponse `json:"question,omitempty"`
	Choices    []string          `json:"choices,omitempty"`
}

// NewStepResponse создает представление шага
func NewStepResponse(step *service.StepInfo) *StepResponse {
	if step == nil {
		return nil
	}
	return &StepResponse{
		Kind:       step.Kind,
		NodeID:     step.NodeID,
		QuestionID: step.QuestionID,
		Question:   NewQuestionResponse(step.Question),
		Choices:    step.Choices,
	}
}

// SubmitResponse — итог подачи одного ответа
type SubmitResponse struct {
	Completed     bool                `json:"completed"`
	AwardedPoints float64             `json:"awarded_points"`
	Degraded      bool                `json:"degraded,omitempty"`
	Feedback      string              `json:"feedback,omitempty"`
	Next          *StepResponse       `json:"next,omitempty"`
	Score         *entity.ScoreResult `json:"score,omitempty"`
}

// NewSubmitResponse создает представление результата подачи
func NewSubmitResponse(result *service.SubmitResult) *SubmitResponse {
	return &SubmitResponse{
		Completed:     result.Completed,
		AwardedPoints: result.AwardedPoints,
		Degraded:      result.Degraded,
		Feedback:      result.Feedback,
		Next:          NewStepResponse(result.Next),
		Score:         result.Score,
	}
}

// AttemptResponse — сводка попытки без журнала ответов
type AttemptResponse struct {
	ID              string     `json:"id"`
	QuestionnaireID uint       `json:"questionnaire_id"`
	UserID          uint       `json:"user_id"`
	AttemptNumber   int        `json:"attempt_number"`
	Status          string     `json:"status"`
	StartedAt       time.Time  `json:"started_at"`
	Deadline        *time.Time `json:"deadline,omitempty"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
	FinalScore      *float64   `json:"final_score,omitempty"`
	FinalPercentage *float64   `json:"final_percentage,omitempty"`
	Passed          *bool      `json:"passed,omitempty"`
	ScoreDegraded   bool       `json:"score_degraded"`
}

// NewAttemptResponse создает сводку попытки
func NewAttemptResponse(session *entity.AttemptSession) *AttemptResponse {
	return &AttemptResponse{
		ID:              session.ID,
		QuestionnaireID: session.QuestionnaireID,
		UserID:          session.UserID,
		AttemptNumber:   session.AttemptNumber,
		Status:          session.Status,
		StartedAt:       session.StartedAt,
		Deadline:        session.Deadline,
		CompletedAt:     session.CompletedAt,
		FinalScore:      session.FinalScore,
		FinalPercentage: session.FinalPercentage,
		Passed:          session.Passed,
		ScoreDegraded:   session.ScoreDegraded,
	}
}

// NewListAttemptResponse создает список сводок попыток
func NewListAttemptResponse(sessions []entity.AttemptSession) []*AttemptResponse {
	out := make([]*AttemptResponse, 0, len(sessions))
	for i := range sessions {
		out = append(out, NewAttemptResponse(&sessions[i]))
	}
	return out
}

// PageResponse — страница листинга с общим количеством
type PageResponse struct {
	Items interface{} `json:"items"`
	Total int64       `json:"total"`
	Page  int         `json:"page"`
	Limit int         `json:"limit"`
}
