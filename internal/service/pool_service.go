package service

import (
	"fmt"
	"log"
	"math/rand"

	"github.com/assessly/assessment-api/internal/domain/entity"
	"github.com/assessly/assessment-api/internal/domain/repository"
	"github.com/assessly/assessment-api/internal/pkg/access"
	apperrors "github.com/assessly/assessment-api/internal/pkg/errors"
)

// SampleFilters — необязательные фильтры выборки из пула.
// Фильтрация применяется до розыгрыша; взвешивания по сложности нет.
type SampleFilters struct {
	Category   string
	Difficulty int
	Tags       []string
}

// PoolService предоставляет методы для работы с пулами вопросов:
// выборка случайных подмножеств и авторизованные мутации состава
type PoolService struct {
	poolRepo     repository.PoolRepository
	questionRepo repository.QuestionRepository
	cacheRepo    repository.CacheRepository
	locks        *keyedMutex
	config       *EngineConfig
}

// NewPoolService создает новый сервис пулов
func NewPoolService(
	poolRepo repository.PoolRepository,
	questionRepo repository.QuestionRepository,
	cacheRepo repository.CacheRepository,
	config *EngineConfig,
) *PoolService {
	return &PoolService{
		poolRepo:     poolRepo,
		questionRepo: questionRepo,
		cacheRepo:    cacheRepo,
		locks:        newKeyedMutex(),
		config:       config,
	}
}

// CreatePool создает новый пул. Создание доступно ролям admin/educator.
func (s *PoolService) CreatePool(actorID uint, actorRole access.Role, pool *entity.QuestionPool) error {
	if err := access.AuthorizeCreation(actorID, actorRole); err != nil {
		return err
	}
	if pool.Name == "" {
		return fmt.Errorf("%w: pool name is required", apperrors.ErrValidation)
	}

	pool.CreatedByID = actorID
	pool.IsActive = true
	if pool.Version == 0 {
		pool.Version = 1
	}
	return s.poolRepo.Create(pool)
}

// GetPool возвращает пул по id. Неактивный (мягко удалённый) пул
// видят только владелец и админ.
func (s *PoolService) GetPool(actorID uint, actorRole access.Role, poolID uint) (*entity.QuestionPool, error) {
	pool, err := s.poolRepo.GetWithQuestions(poolID)
	if err != nil {
		return nil, err
	}
	if !pool.IsActive {
		if err := access.AuthorizeOwner(pool.CreatedByID, actorID, actorRole); err != nil {
			return nil, err
		}
	}
	return pool, nil
}

// ListPools возвращает страницу пулов и общее количество
func (s *PoolService) ListPools(filters repository.CatalogFilters, sort repository.CatalogSort, page repository.PageParams) ([]entity.QuestionPool, int64, error) {
	page = page.Normalize()
	return s.poolRepo.ListWithFilters(filters, sort, page.Limit, page.Offset())
}

// Sample возвращает случайное подмножество count активных вопросов пула —
// равномерный розыгрыш без повторений. Каждый вызов — независимый розыгрыш:
// результат не выводится из poolID и count. Выборка ничего не мутирует.
func (s *PoolService) Sample(poolID uint, count int, filters SampleFilters) ([]entity.Question, error) {
	if count <= 0 {
		return nil, fmt.Errorf("%w: sample count must be positive", apperrors.ErrValidation)
	}

	pool, err := s.poolRepo.GetByID(poolID)
	if err != nil {
		return nil, err
	}
	if !pool.IsActive {
		return nil, fmt.Errorf("%w: pool %d is inactive", apperrors.ErrNotFound, poolID)
	}

	questions, err := s.activeQuestions(poolID)
	if err != nil {
		return nil, err
	}
	questions = applySampleFilters(questions, filters)

	if count > len(questions) {
		return nil, fmt.Errorf("%w: requested %d, pool %d has %d",
			ErrInsufficientQuestions, count, poolID, len(questions))
	}

	// Fisher–Yates по копии: порядок предъявления тоже случаен
	drawn := make([]entity.Question, len(questions))
	copy(drawn, questions)
	rand.Shuffle(len(drawn), func(i, j int) {
		drawn[i], drawn[j] = drawn[j], drawn[i]
	})

	return drawn[:count], nil
}

// AddQuestions добавляет вопросы в пул. Мутация сериализуется per-pool:
// чтение текущего состава, расчёт дельты и запись идут под одной блокировкой,
// чтобы параллельные мутации не теряли обновления.
func (s *PoolService) AddQuestions(actorID uint, actorRole access.Role, poolID uint, questionIDs []uint) error {
	if len(questionIDs) == 0 {
		return fmt.Errorf("%w: no question ids provided", apperrors.ErrValidation)
	}

	pool, err := s.poolRepo.GetByID(poolID)
	if err != nil {
		return err
	}
	if err := access.AuthorizeOwner(pool.CreatedByID, actorID, actorRole); err != nil {
		return err
	}

	unlock := s.locks.Lock(poolKey(poolID))
	defer unlock()

	existing, err := s.poolRepo.QuestionIDs(poolID)
	if err != nil {
		return err
	}
	present := make(map[uint]bool, len(existing))
	for _, id := range existing {
		present[id] = true
	}

	// No-op запросы отклоняются, а не тихо проходят
	for _, id := range questionIDs {
		if present[id] {
			return fmt.Errorf("%w: question %d is already in pool %d", apperrors.ErrConflict, id, poolID)
		}
	}

	// Все добавляемые вопросы должны существовать
	found, err := s.questionRepo.GetByIDs(questionIDs)
	if err != nil {
		return err
	}
	if len(found) != len(questionIDs) {
		return fmt.Errorf("%w: some questions do not exist", apperrors.ErrNotFound)
	}

	if err := s.poolRepo.AddQuestions(poolID, questionIDs); err != nil {
		return err
	}

	s.invalidatePoolCache(poolID)
	log.Printf("[PoolService] Пул %d: добавлено %d вопросов", poolID, len(questionIDs))
	return nil
}

// RemoveQuestions убирает вопросы из пула под той же per-pool дисциплиной
func (s *PoolService) RemoveQuestions(actorID uint, actorRole access.Role, poolID uint, questionIDs []uint) error {
	if len(questionIDs) == 0 {
		return fmt.Errorf("%w: no question ids provided", apperrors.ErrValidation)
	}

	pool, err := s.poolRepo.GetByID(poolID)
	if err != nil {
		return err
	}
	if err := access.AuthorizeOwner(pool.CreatedByID, actorID, actorRole); err != nil {
		return err
	}

	unlock := s.locks.Lock(poolKey(poolID))
	defer unlock()

	existing, err := s.poolRepo.QuestionIDs(poolID)
	if err != nil {
		return err
	}
	if len(existing) == 0 {
		return fmt.Errorf("%w: pool %d is empty", apperrors.ErrConflict, poolID)
	}

	present := make(map[uint]bool, len(existing))
	for _, id := range existing {
		present[id] = true
	}
	for _, id := range questionIDs {
		if !present[id] {
			return fmt.Errorf("%w: question %d is not in pool %d", apperrors.ErrConflict, id, poolID)
		}
	}

	if err := s.poolRepo.RemoveQuestions(poolID, questionIDs); err != nil {
		return err
	}

	s.invalidatePoolCache(poolID)
	log.Printf("[PoolService] Пул %d: удалено %d вопросов", poolID, len(questionIDs))
	return nil
}

// DeletePool выполняет мягкое удаление: пул исчезает из листинга и выборки
func (s *PoolService) DeletePool(actorID uint, actorRole access.Role, poolID uint) error {
	pool, err := s.poolRepo.GetByID(poolID)
	if err != nil {
		return err
	}
	if err := access.AuthorizeOwner(pool.CreatedByID, actorID, actorRole); err != nil {
		return err
	}

	if err := s.poolRepo.Delete(poolID); err != nil {
		return err
	}
	s.invalidatePoolCache(poolID)
	return nil
}

// BulkUploadQuestions валидирует и пакетно загружает вопросы в банк
func (s *PoolService) BulkUploadQuestions(actorID uint, actorRole access.Role, questions []entity.Question) error {
	if err := access.AuthorizeCreation(actorID, actorRole); err != nil {
		return err
	}
	if len(questions) == 0 {
		return fmt.Errorf("%w: no questions provided", apperrors.ErrValidation)
	}

	for i := range questions {
		q := &questions[i]
		if q.Text == "" {
			return fmt.Errorf("%w: empty text for question #%d", apperrors.ErrValidation, i+1)
		}
		if q.Difficulty < 1 || q.Difficulty > 5 {
			return fmt.Errorf("%w: invalid difficulty %d for question #%d", apperrors.ErrValidation, q.Difficulty, i+1)
		}
		if q.IsExactMatch() {
			if len(q.Options) == 0 || len(q.CorrectOptions) == 0 {
				return fmt.Errorf("%w: question #%d needs options and correct options", apperrors.ErrValidation, i+1)
			}
			for _, correct := range q.CorrectOptions {
				if !q.IsValidOption(correct) {
					return fmt.Errorf("%w: correct option %q of question #%d is not among options",
						apperrors.ErrValidation, correct, i+1)
				}
			}
		} else if q.ExpectedAnswer == "" {
			return fmt.Errorf("%w: open_text question #%d needs expected_answer", apperrors.ErrValidation, i+1)
		}
		q.CreatedByID = actorID
		q.IsActive = true
	}

	if err := s.questionRepo.CreateBatch(questions); err != nil {
		log.Printf("[PoolService] Ошибка при bulk upload вопросов: %v", err)
		return fmt.Errorf("failed to upload questions: %w", err)
	}

	log.Printf("[PoolService] Bulk upload: добавлено %d вопросов", len(questions))
	return nil
}

// activeQuestions возвращает активные вопросы пула, через кеш с коротким TTL.
// Кеш инвалидируется мутациями состава пула.
func (s *PoolService) activeQuestions(poolID uint) ([]entity.Question, error) {
	cacheKey := poolCacheKey(poolID)

	var cached []entity.Question
	if err := s.cacheRepo.GetJSON(cacheKey, &cached); err == nil {
		return cached, nil
	}

	questions, err := s.poolRepo.GetActiveQuestions(poolID)
	if err != nil {
		return nil, err
	}

	if err := s.cacheRepo.SetJSON(cacheKey, questions, s.config.PoolCacheTTL); err != nil {
		// Кеш — оптимизация; его сбой не валит выборку
		log.Printf("[PoolService] Ошибка записи кеша пула %d: %v", poolID, err)
	}
	return questions, nil
}

func (s *PoolService) invalidatePoolCache(poolID uint) {
	if err := s.cacheRepo.Delete(poolCacheKey(poolID)); err != nil {
		log.Printf("[PoolService] Ошибка инвалидации кеша пула %d: %v", poolID, err)
	}
}

func poolKey(poolID uint) string {
	return fmt.Sprintf("pool:%d", poolID)
}

func poolCacheKey(poolID uint) string {
	return fmt.Sprintf("pool:%d:active_questions", poolID)
}

func applySampleFilters(questions []entity.Question, filters SampleFilters) []entity.Question {
	if filters.Category == "" && filters.Difficulty == 0 && len(filters.Tags) == 0 {
		return questions
	}

	filtered := make([]entity.Question, 0, len(questions))
	for _, q := range questions {
		if filters.Category != "" && q.Category != filters.Category {
			continue
		}
		if filters.Difficulty != 0 && q.Difficulty != filters.Difficulty {
			continue
		}
		if !hasAllTags(q.Tags, filters.Tags) {
			continue
		}
		filtered = append(filtered, q)
	}
	return filtered
}

func hasAllTags(tags entity.StringArray, required []string) bool {
	for _, want := range required {
		found := false
		for _, tag := range tags {
			if tag == want {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
