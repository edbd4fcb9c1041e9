package service

import (
	"context"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/assessly/assessment-api/internal/domain/entity"
	"github.com/assessly/assessment-api/internal/domain/repository"
	apperrors "github.com/assessly/assessment-api/internal/pkg/errors"
)

// ============================================================================
// Общие моки для сервисных тестов: репозитории на testify/mock,
// плюс ручные заглушки кеша/валидатора и stateful-фейк попыток
// для теста гонки подач.
// ============================================================================

// MockQuestionRepository реализует repository.QuestionRepository
type MockQuestionRepository struct {
	mock.Mock
}

func (m *MockQuestionRepository) Create(question *entity.Question) error {
	args := m.Called(question)
	return args.Error(0)
}

func (m *MockQuestionRepository) CreateBatch(questions []entity.Question) error {
	args := m.Called(questions)
	return args.Error(0)
}

func (m *MockQuestionRepository) GetByID(id uint) (*entity.Question, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Question), args.Error(1)
}

func (m *MockQuestionRepository) GetByIDs(ids []uint) ([]entity.Question, error) {
	args := m.Called(ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Question), args.Error(1)
}

func (m *MockQuestionRepository) Update(question *entity.Question) error {
	args := m.Called(question)
	return args.Error(0)
}

func (m *MockQuestionRepository) Delete(id uint) error {
	args := m.Called(id)
	return args.Error(0)
}

// MockPoolRepository реализует repository.PoolRepository
type MockPoolRepository struct {
	mock.Mock
}

func (m *MockPoolRepository) Create(pool *entity.QuestionPool) error {
	args := m.Called(pool)
	return args.Error(0)
}

func (m *MockPoolRepository) GetByID(id uint) (*entity.QuestionPool, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.QuestionPool), args.Error(1)
}

func (m *MockPoolRepository) GetWithQuestions(id uint) (*entity.QuestionPool, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.QuestionPool), args.Error(1)
}

func (m *MockPoolRepository) GetActiveQuestions(poolID uint) ([]entity.Question, error) {
	args := m.Called(poolID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Question), args.Error(1)
}

func (m *MockPoolRepository) QuestionIDs(poolID uint) ([]uint, error) {
	args := m.Called(poolID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]uint), args.Error(1)
}

func (m *MockPoolRepository) AddQuestions(poolID uint, questionIDs []uint) error {
	args := m.Called(poolID, questionIDs)
	return args.Error(0)
}

func (m *MockPoolRepository) RemoveQuestions(poolID uint, questionIDs []uint) error {
	args := m.Called(poolID, questionIDs)
	return args.Error(0)
}

func (m *MockPoolRepository) Update(pool *entity.QuestionPool) error {
	args := m.Called(pool)
	return args.Error(0)
}

func (m *MockPoolRepository) Delete(id uint) error {
	args := m.Called(id)
	return args.Error(0)
}

func (m *MockPoolRepository) ListWithFilters(filters repository.CatalogFilters, sort repository.CatalogSort, limit, offset int) ([]entity.QuestionPool, int64, error) {
	args := m.Called(filters, sort, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]entity.QuestionPool), args.Get(1).(int64), args.Error(2)
}

// MockQuestionnaireRepository реализует repository.QuestionnaireRepository
type MockQuestionnaireRepository struct {
	mock.Mock
}

func (m *MockQuestionnaireRepository) Create(questionnaire *entity.Questionnaire) error {
	args := m.Called(questionnaire)
	return args.Error(0)
}

func (m *MockQuestionnaireRepository) GetByID(id uint) (*entity.Questionnaire, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Questionnaire), args.Error(1)
}

func (m *MockQuestionnaireRepository) Update(questionnaire *entity.Questionnaire) error {
	args := m.Called(questionnaire)
	return args.Error(0)
}

func (m *MockQuestionnaireRepository) Delete(id uint) error {
	args := m.Called(id)
	return args.Error(0)
}

func (m *MockQuestionnaireRepository) ListWithFilters(filters repository.CatalogFilters, sort repository.CatalogSort, limit, offset int) ([]entity.Questionnaire, int64, error) {
	args := m.Called(filters, sort, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]entity.Questionnaire), args.Get(1).(int64), args.Error(2)
}

// MockAttemptRepository реализует repository.AttemptRepository
type MockAttemptRepository struct {
	mock.Mock
}

func (m *MockAttemptRepository) Create(session *entity.AttemptSession) error {
	args := m.Called(session)
	return args.Error(0)
}

func (m *MockAttemptRepository) GetByID(id string) (*entity.AttemptSession, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.AttemptSession), args.Error(1)
}

func (m *MockAttemptRepository) CountByStatus(userID, questionnaireID uint, status string) (int64, error) {
	args := m.Called(userID, questionnaireID, status)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockAttemptRepository) CountAll(userID, questionnaireID uint) (int64, error) {
	args := m.Called(userID, questionnaireID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockAttemptRepository) UpdateProgress(session *entity.AttemptSession) error {
	args := m.Called(session)
	return args.Error(0)
}

func (m *MockAttemptRepository) UpdateStatusIf(id string, from, to string) (bool, error) {
	args := m.Called(id, from, to)
	return args.Bool(0), args.Error(1)
}

func (m *MockAttemptRepository) AppendAnswer(answer *entity.AttemptAnswer) error {
	args := m.Called(answer)
	return args.Error(0)
}

func (m *MockAttemptRepository) FinalizeCompleted(session *entity.AttemptSession) error {
	args := m.Called(session)
	return args.Error(0)
}

func (m *MockAttemptRepository) ListByUser(userID, questionnaireID uint) ([]entity.AttemptSession, error) {
	args := m.Called(userID, questionnaireID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.AttemptSession), args.Error(1)
}

func (m *MockAttemptRepository) ExpireOverdue(now time.Time) (int64, error) {
	args := m.Called(now)
	return args.Get(0).(int64), args.Error(1)
}

// stubCache — кеш-заглушка: всегда промах, запись и инвалидация молча ок.
// Для сервисных тестов поведения кеша достаточно «его нет».
type stubCache struct{}

func (stubCache) Get(key string) (string, error)      { return "", apperrors.ErrNotFound }
func (stubCache) Delete(key string) error             { return nil }
func (stubCache) Increment(key string) (int64, error) { return 1, nil }
func (stubCache) SetJSON(key string, value interface{}, expiration time.Duration) error {
	return nil
}
func (stubCache) GetJSON(key string, dest interface{}) error { return apperrors.ErrNotFound }

// stubValidator возвращает фиксированный вердикт или ошибку
type stubValidator struct {
	verdict *AnswerVerdict
	err     error
	calls   int
}

func (v *stubValidator) Evaluate(ctx context.Context, questionText, expectedAnswer, submittedAnswer string) (*AnswerVerdict, error) {
	v.calls++
	if v.err != nil {
		return nil, v.err
	}
	return v.verdict, nil
}

// fakeAttemptStore — потокобезопасный in-memory репозиторий попыток.
// Нужен тестам гонок: mock.Mock не умеет отдавать состояние,
// изменяющееся между параллельными вызовами.
type fakeAttemptStore struct {
	mu       sync.Mutex
	sessions map[string]*entity.AttemptSession
	appends  int
}

func newFakeAttemptStore() *fakeAttemptStore {
	return &fakeAttemptStore{sessions: make(map[string]*entity.AttemptSession)}
}

func (f *fakeAttemptStore) put(session *entity.AttemptSession) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions[session.ID] = session
}

func (f *fakeAttemptStore) Create(session *entity.AttemptSession) error {
	f.put(session)
	return nil
}

// GetByID отдаёт копию, как это делал бы реальный запрос к БД
func (f *fakeAttemptStore) GetByID(id string) (*entity.AttemptSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.sessions[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	copied := *stored
	copied.QuestionOrder = append(entity.UintArray{}, stored.QuestionOrder...)
	copied.Answers = append([]entity.AttemptAnswer{}, stored.Answers...)
	return &copied, nil
}

func (f *fakeAttemptStore) CountByStatus(userID, questionnaireID uint, status string) (int64, error) {
	return 0, nil
}

func (f *fakeAttemptStore) CountAll(userID, questionnaireID uint) (int64, error) {
	return 0, nil
}

func (f *fakeAttemptStore) UpdateProgress(session *entity.AttemptSession) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.sessions[session.ID]
	if !ok {
		return apperrors.ErrNotFound
	}
	stored.CurrentNodeID = session.CurrentNodeID
	stored.CurrentIndex = session.CurrentIndex
	return nil
}

func (f *fakeAttemptStore) UpdateStatusIf(id string, from, to string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.sessions[id]
	if !ok {
		return false, apperrors.ErrNotFound
	}
	if stored.Status != from {
		return false, nil
	}
	stored.Status = to
	return true, nil
}

func (f *fakeAttemptStore) AppendAnswer(answer *entity.AttemptAnswer) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.sessions[answer.AttemptID]
	if !ok {
		return apperrors.ErrNotFound
	}
	stored.Answers = append(stored.Answers, *answer)
	f.appends++
	return nil
}

func (f *fakeAttemptStore) FinalizeCompleted(session *entity.AttemptSession) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.sessions[session.ID]
	if !ok {
		return apperrors.ErrNotFound
	}
	stored.CompletedAt = session.CompletedAt
	stored.FinalScore = session.FinalScore
	stored.FinalPercentage = session.FinalPercentage
	stored.Passed = session.Passed
	stored.ScoreDegraded = session.ScoreDegraded
	return nil
}

func (f *fakeAttemptStore) ListByUser(userID, questionnaireID uint) ([]entity.AttemptSession, error) {
	return nil, nil
}

func (f *fakeAttemptStore) ExpireOverdue(now time.Time) (int64, error) {
	return 0, nil
}

func (f *fakeAttemptStore) appendCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.appends
}

func (f *fakeAttemptStore) status(id string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sessions[id].Status
}
