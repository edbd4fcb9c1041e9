package postgres

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/assessly/assessment-api/internal/domain/entity"
	apperrors "github.com/assessly/assessment-api/internal/pkg/errors"
)

// AttemptRepo реализует repository.AttemptRepository
type AttemptRepo struct {
	db *gorm.DB
}

// NewAttemptRepo создает новый репозиторий попыток
func NewAttemptRepo(db *gorm.DB) *AttemptRepo {
	return &AttemptRepo{db: db}
}

// Create создает новую попытку
func (r *AttemptRepo) Create(session *entity.AttemptSession) error {
	return r.db.Create(session).Error
}

// GetByID возвращает попытку с журналом ответов в порядке подачи
func (r *AttemptRepo) GetByID(id string) (*entity.AttemptSession, error) {
	var session entity.AttemptSession
	err := r.db.
		Preload("Answers", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		First(&session, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &session, nil
}

// CountByStatus возвращает число попыток пользователя по анкете в данном статусе
func (r *AttemptRepo) CountByStatus(userID, questionnaireID uint, status string) (int64, error) {
	var count int64
	err := r.db.Model(&entity.AttemptSession{}).
		Where("user_id = ? AND questionnaire_id = ? AND status = ?", userID, questionnaireID, status).
		Count(&count).Error
	return count, err
}

// CountAll возвращает общее число попыток пользователя по анкете
func (r *AttemptRepo) CountAll(userID, questionnaireID uint) (int64, error) {
	var count int64
	err := r.db.Model(&entity.AttemptSession{}).
		Where("user_id = ? AND questionnaire_id = ?", userID, questionnaireID).
		Count(&count).Error
	return count, err
}

// UpdateProgress точечно сохраняет позицию обхода без full Save
func (r *AttemptRepo) UpdateProgress(session *entity.AttemptSession) error {
	return r.db.Model(&entity.AttemptSession{}).
		Where("id = ?", session.ID).
		Updates(map[string]interface{}{
			"current_node_id": session.CurrentNodeID,
			"current_index":   session.CurrentIndex,
		}).Error
}

// UpdateStatusIf атомарно переводит попытку из from в to.
// Вторая строка условия — защита от двойного перевода при гонке.
func (r *AttemptRepo) UpdateStatusIf(id string, from, to string) (bool, error) {
	result := r.db.Model(&entity.AttemptSession{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// AppendAnswer добавляет запись в журнал ответов. Уникальный индекс
// (attempt_id, position) на уровне БД исключает двойную запись одной позиции.
func (r *AttemptRepo) AppendAnswer(answer *entity.AttemptAnswer) error {
	return r.db.Create(answer).Error
}

// FinalizeCompleted одной записью фиксирует терминальный статус и итог
func (r *AttemptRepo) FinalizeCompleted(session *entity.AttemptSession) error {
	return r.db.Model(&entity.AttemptSession{}).
		Where("id = ?", session.ID).
		Updates(map[string]interface{}{
			"status":           session.Status,
			"completed_at":     session.CompletedAt,
			"final_score":      session.FinalScore,
			"final_percentage": session.FinalPercentage,
			"passed":           session.Passed,
			"score_degraded":   session.ScoreDegraded,
			"current_node_id":  session.CurrentNodeID,
			"current_index":    session.CurrentIndex,
		}).Error
}

// ListByUser возвращает попытки пользователя (questionnaireID=0 — по всем анкетам)
func (r *AttemptRepo) ListByUser(userID, questionnaireID uint) ([]entity.AttemptSession, error) {
	query := r.db.Where("user_id = ?", userID)
	if questionnaireID != 0 {
		query = query.Where("questionnaire_id = ?", questionnaireID)
	}

	var sessions []entity.AttemptSession
	err := query.Order("created_at DESC").Find(&sessions).Error
	if err != nil {
		return nil, err
	}
	return sessions, nil
}

// ExpireOverdue переводит все просроченные in_progress попытки в expired
func (r *AttemptRepo) ExpireOverdue(now time.Time) (int64, error) {
	result := r.db.Model(&entity.AttemptSession{}).
		Where("status = ? AND deadline IS NOT NULL AND deadline < ?", entity.AttemptStatusInProgress, now).
		Update("status", entity.AttemptStatusExpired)
	return result.RowsAffected, result.Error
}
