package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/assessly/assessment-api/internal/domain/entity"
	"github.com/assessly/assessment-api/internal/pkg/access"
	apperrors "github.com/assessly/assessment-api/internal/pkg/errors"
)

func newPoolServiceForTest(poolRepo *MockPoolRepository, questionRepo *MockQuestionRepository) *PoolService {
	return NewPoolService(poolRepo, questionRepo, stubCache{}, DefaultEngineConfig())
}

func activePool(id, ownerID uint) *entity.QuestionPool {
	return &entity.QuestionPool{
		ID:          id,
		Name:        "Алгебра",
		IsActive:    true,
		CreatedByID: ownerID,
	}
}

func poolQuestions(n int) []entity.Question {
	questions := make([]entity.Question, 0, n)
	for i := 1; i <= n; i++ {
		questions = append(questions, entity.Question{
			ID:         uint(i),
			Text:       "Вопрос",
			Type:       entity.QuestionSingleChoice,
			Options:    entity.StringArray{"a", "b"},
			PointValue: 10,
			Difficulty: 3,
			IsActive:   true,
		})
	}
	return questions
}

func TestSample_ExactCapacity(t *testing.T) {
	poolRepo := new(MockPoolRepository)
	questionRepo := new(MockQuestionRepository)
	svc := newPoolServiceForTest(poolRepo, questionRepo)

	poolRepo.On("GetByID", uint(1)).Return(activePool(1, 10), nil)
	poolRepo.On("GetActiveQuestions", uint(1)).Return(poolQuestions(5), nil)

	drawn, err := svc.Sample(1, 5, SampleFilters{})
	require.NoError(t, err)
	assert.Len(t, drawn, 5)

	// Повторений нет: каждый вопрос пула выпал ровно один раз
	seen := make(map[uint]bool)
	for _, q := range drawn {
		assert.False(t, seen[q.ID], "вопрос %d выпал дважды", q.ID)
		seen[q.ID] = true
	}
}

func TestSample_CountExceedsAvailable(t *testing.T) {
	poolRepo := new(MockPoolRepository)
	questionRepo := new(MockQuestionRepository)
	svc := newPoolServiceForTest(poolRepo, questionRepo)

	poolRepo.On("GetByID", uint(1)).Return(activePool(1, 10), nil)
	poolRepo.On("GetActiveQuestions", uint(1)).Return(poolQuestions(5), nil)

	_, err := svc.Sample(1, 6, SampleFilters{})
	assert.ErrorIs(t, err, ErrInsufficientQuestions)
	assert.ErrorIs(t, err, apperrors.ErrCapacity)
}

func TestSample_InvalidCount(t *testing.T) {
	svc := newPoolServiceForTest(new(MockPoolRepository), new(MockQuestionRepository))

	_, err := svc.Sample(1, 0, SampleFilters{})
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestSample_InactivePoolHidden(t *testing.T) {
	poolRepo := new(MockPoolRepository)
	svc := newPoolServiceForTest(poolRepo, new(MockQuestionRepository))

	pool := activePool(1, 10)
	pool.IsActive = false
	poolRepo.On("GetByID", uint(1)).Return(pool, nil)

	_, err := svc.Sample(1, 1, SampleFilters{})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestSample_FiltersNarrowCapacity(t *testing.T) {
	poolRepo := new(MockPoolRepository)
	svc := newPoolServiceForTest(poolRepo, new(MockQuestionRepository))

	questions := poolQuestions(5)
	questions[0].Category = "geometry"
	questions[1].Category = "geometry"
	poolRepo.On("GetByID", uint(1)).Return(activePool(1, 10), nil)
	poolRepo.On("GetActiveQuestions", uint(1)).Return(questions, nil)

	drawn, err := svc.Sample(1, 2, SampleFilters{Category: "geometry"})
	require.NoError(t, err)
	assert.Len(t, drawn, 2)

	// Фильтр применяется до проверки вместимости
	_, err = svc.Sample(1, 3, SampleFilters{Category: "geometry"})
	assert.ErrorIs(t, err, apperrors.ErrCapacity)
}

func TestAddQuestions_RejectsDuplicates(t *testing.T) {
	poolRepo := new(MockPoolRepository)
	questionRepo := new(MockQuestionRepository)
	svc := newPoolServiceForTest(poolRepo, questionRepo)

	poolRepo.On("GetByID", uint(1)).Return(activePool(1, 10), nil)
	poolRepo.On("QuestionIDs", uint(1)).Return([]uint{3, 4}, nil)

	err := svc.AddQuestions(10, access.RoleEducator, 1, []uint{4, 5})
	assert.ErrorIs(t, err, apperrors.ErrConflict)
	poolRepo.AssertNotCalled(t, "AddQuestions", mock.Anything, mock.Anything)
}

func TestAddQuestions_MissingQuestion(t *testing.T) {
	poolRepo := new(MockPoolRepository)
	questionRepo := new(MockQuestionRepository)
	svc := newPoolServiceForTest(poolRepo, questionRepo)

	poolRepo.On("GetByID", uint(1)).Return(activePool(1, 10), nil)
	poolRepo.On("QuestionIDs", uint(1)).Return([]uint{}, nil)
	questionRepo.On("GetByIDs", []uint{5, 6}).Return([]entity.Question{{ID: 5}}, nil)

	err := svc.AddQuestions(10, access.RoleEducator, 1, []uint{5, 6})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestAddQuestions_OwnerOnly(t *testing.T) {
	poolRepo := new(MockPoolRepository)
	svc := newPoolServiceForTest(poolRepo, new(MockQuestionRepository))

	poolRepo.On("GetByID", uint(1)).Return(activePool(1, 10), nil)

	err := svc.AddQuestions(99, access.RoleEducator, 1, []uint{5})
	assert.ErrorIs(t, err, apperrors.ErrForbidden)
}

func TestRemoveQuestions_EmptyPool(t *testing.T) {
	poolRepo := new(MockPoolRepository)
	svc := newPoolServiceForTest(poolRepo, new(MockQuestionRepository))

	poolRepo.On("GetByID", uint(1)).Return(activePool(1, 10), nil)
	poolRepo.On("QuestionIDs", uint(1)).Return([]uint{}, nil)

	err := svc.RemoveQuestions(10, access.RoleEducator, 1, []uint{5})
	assert.ErrorIs(t, err, apperrors.ErrConflict)
}

func TestRemoveQuestions_NotInPool(t *testing.T) {
	poolRepo := new(MockPoolRepository)
	svc := newPoolServiceForTest(poolRepo, new(MockQuestionRepository))

	poolRepo.On("GetByID", uint(1)).Return(activePool(1, 10), nil)
	poolRepo.On("QuestionIDs", uint(1)).Return([]uint{3, 4}, nil)

	err := svc.RemoveQuestions(10, access.RoleEducator, 1, []uint{4, 7})
	assert.ErrorIs(t, err, apperrors.ErrConflict)
}

func TestRemoveQuestions_Success(t *testing.T) {
	poolRepo := new(MockPoolRepository)
	svc := newPoolServiceForTest(poolRepo, new(MockQuestionRepository))

	poolRepo.On("GetByID", uint(1)).Return(activePool(1, 10), nil)
	poolRepo.On("QuestionIDs", uint(1)).Return([]uint{3, 4, 5}, nil)
	poolRepo.On("RemoveQuestions", uint(1), []uint{4}).Return(nil)

	err := svc.RemoveQuestions(10, access.RoleEducator, 1, []uint{4})
	require.NoError(t, err)
	poolRepo.AssertExpectations(t)
}

func TestCreatePool_StudentForbidden(t *testing.T) {
	svc := newPoolServiceForTest(new(MockPoolRepository), new(MockQuestionRepository))

	err := svc.CreatePool(10, access.RoleStudent, &entity.QuestionPool{Name: "x"})
	assert.ErrorIs(t, err, apperrors.ErrForbidden)
}

func TestCreatePool_Unauthenticated(t *testing.T) {
	svc := newPoolServiceForTest(new(MockPoolRepository), new(MockQuestionRepository))

	err := svc.CreatePool(0, access.RoleEducator, &entity.QuestionPool{Name: "x"})
	assert.ErrorIs(t, err, apperrors.ErrUnauthenticated)
}

func TestGetPool_InactiveVisibleToOwner(t *testing.T) {
	poolRepo := new(MockPoolRepository)
	svc := newPoolServiceForTest(poolRepo, new(MockQuestionRepository))

	pool := activePool(1, 10)
	pool.IsActive = false
	poolRepo.On("GetWithQuestions", uint(1)).Return(pool, nil)

	_, err := svc.GetPool(10, access.RoleEducator, 1)
	assert.NoError(t, err)

	_, err = svc.GetPool(99, access.RoleStudent, 1)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)
}

func TestBulkUploadQuestions_Validation(t *testing.T) {
	questionRepo := new(MockQuestionRepository)
	svc := newPoolServiceForTest(new(MockPoolRepository), questionRepo)

	// Правильный вариант должен входить в список вариантов
	err := svc.BulkUploadQuestions(10, access.RoleEducator, []entity.Question{{
		Text:           "2+2?",
		Type:           entity.QuestionSingleChoice,
		Options:        entity.StringArray{"3", "4"},
		CorrectOptions: entity.StringArray{"5"},
		Difficulty:     2,
	}})
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	// open_text без эталонного ответа
	err = svc.BulkUploadQuestions(10, access.RoleEducator, []entity.Question{{
		Text:       "Объясните",
		Type:       entity.QuestionOpenText,
		Difficulty: 3,
	}})
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestBulkUploadQuestions_Success(t *testing.T) {
	questionRepo := new(MockQuestionRepository)
	svc := newPoolServiceForTest(new(MockPoolRepository), questionRepo)

	questionRepo.On("CreateBatch", mock.MatchedBy(func(questions []entity.Question) bool {
		return len(questions) == 1 && questions[0].CreatedByID == 10 && questions[0].IsActive
	})).Return(nil)

	err := svc.BulkUploadQuestions(10, access.RoleEducator, []entity.Question{{
		Text:           "2+2?",
		Type:           entity.QuestionSingleChoice,
		Options:        entity.StringArray{"3", "4"},
		CorrectOptions: entity.StringArray{"4"},
		Difficulty:     2,
	}})
	require.NoError(t, err)
	questionRepo.AssertExpectations(t)
}
