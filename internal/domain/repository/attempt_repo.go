package repository

import (
	"time"

	"github.com/assessly/assessment-api/internal/domain/entity"
)

// AttemptRepository определяет методы для работы с попытками.
// Записи одной попытки изменяет только движок попыток под per-session
// блокировкой; журнал ответов — строго append-only.
type AttemptRepository interface {
	Create(session *entity.AttemptSession) error
	// GetByID возвращает попытку с журналом ответов, упорядоченным по position
	GetByID(id string) (*entity.AttemptSession, error)
	// CountByStatus возвращает число попыток пользователя по анкете в данном статусе
	CountByStatus(userID, questionnaireID uint, status string) (int64, error)
	// CountAll возвращает общее число попыток пользователя по анкете
	CountAll(userID, questionnaireID uint) (int64, error)
	// UpdateProgress сохраняет текущую позицию обхода (узел/индекс)
	UpdateProgress(session *entity.AttemptSession) error
	// UpdateStatusIf атомарно переводит попытку из статуса from в to.
	// Возвращает false, если попытка уже не в статусе from — проигравший
	// участник гонки получает от сервиса ErrInvalidState.
	UpdateStatusIf(id string, from, to string) (bool, error)
	// AppendAnswer добавляет запись в журнал ответов
	AppendAnswer(answer *entity.AttemptAnswer) error
	// FinalizeCompleted одной записью фиксирует терминальный статус,
	// замороженный итог и время завершения
	FinalizeCompleted(session *entity.AttemptSession) error
	ListByUser(userID, questionnaireID uint) ([]entity.AttemptSession, error)
	// ExpireOverdue переводит все просроченные in_progress попытки в expired.
	// Движок её не планирует: истечение ленивое, операция существует для
	// внешней уборки на уровне деплоймента.
	ExpireOverdue(now time.Time) (int64, error)
}
