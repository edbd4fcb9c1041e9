package service

import (
	"fmt"
	"log"

	"github.com/assessly/assessment-api/internal/domain/entity"
	"github.com/assessly/assessment-api/internal/domain/repository"
	"github.com/assessly/assessment-api/internal/pathlogic"
	"github.com/assessly/assessment-api/internal/pkg/access"
	apperrors "github.com/assessly/assessment-api/internal/pkg/errors"
)

// QuestionnaireService предоставляет методы для работы с анкетами.
// Граф переходов валидируется при сохранении, а не при обходе: большой
// класс ошибок прохождения превращается в ошибки загрузки.
type QuestionnaireService struct {
	questionnaireRepo repository.QuestionnaireRepository
	questionRepo      repository.QuestionRepository
	poolRepo          repository.PoolRepository
}

// NewQuestionnaireService создает новый сервис анкет
func NewQuestionnaireService(
	questionnaireRepo repository.QuestionnaireRepository,
	questionRepo repository.QuestionRepository,
	poolRepo repository.PoolRepository,
) *QuestionnaireService {
	return &QuestionnaireService{
		questionnaireRepo: questionnaireRepo,
		questionRepo:      questionRepo,
		poolRepo:          poolRepo,
	}
}

// Create создает анкету. Создание доступно ролям admin/educator.
func (s *QuestionnaireService) Create(actorID uint, actorRole access.Role, questionnaire *entity.Questionnaire) error {
	if err := access.AuthorizeCreation(actorID, actorRole); err != nil {
		return err
	}
	if err := s.validateContent(questionnaire); err != nil {
		return err
	}

	questionnaire.CreatedByID = actorID
	questionnaire.IsActive = true
	if questionnaire.Version == 0 {
		questionnaire.Version = 1
	}
	return s.questionnaireRepo.Create(questionnaire)
}

// Get возвращает анкету. Непубличную или неактивную видят владелец и админ.
func (s *QuestionnaireService) Get(actorID uint, actorRole access.Role, id uint) (*entity.Questionnaire, error) {
	questionnaire, err := s.questionnaireRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if questionnaire.IsActive && questionnaire.IsPublic {
		return questionnaire, nil
	}
	if err := access.AuthorizeOwner(questionnaire.CreatedByID, actorID, actorRole); err != nil {
		if !questionnaire.IsActive {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return questionnaire, nil
}

// Update изменяет содержимое анкеты. Идентичность (id, владелец) неизменны.
func (s *QuestionnaireService) Update(actorID uint, actorRole access.Role, questionnaire *entity.Questionnaire) error {
	existing, err := s.questionnaireRepo.GetByID(questionnaire.ID)
	if err != nil {
		return err
	}
	if err := access.AuthorizeOwner(existing.CreatedByID, actorID, actorRole); err != nil {
		return err
	}
	if err := s.validateContent(questionnaire); err != nil {
		return err
	}

	questionnaire.CreatedByID = existing.CreatedByID
	questionnaire.CreatedAt = existing.CreatedAt
	return s.questionnaireRepo.Update(questionnaire)
}

// Delete выполняет мягкое удаление анкеты
func (s *QuestionnaireService) Delete(actorID uint, actorRole access.Role, id uint) error {
	existing, err := s.questionnaireRepo.GetByID(id)
	if err != nil {
		return err
	}
	if err := access.AuthorizeOwner(existing.CreatedByID, actorID, actorRole); err != nil {
		return err
	}
	return s.questionnaireRepo.Delete(id)
}

// List возвращает страницу анкет и общее количество
func (s *QuestionnaireService) List(filters repository.CatalogFilters, sort repository.CatalogSort, page repository.PageParams) ([]entity.Questionnaire, int64, error) {
	page = page.Normalize()
	return s.questionnaireRepo.ListWithFilters(filters, sort, page.Limit, page.Offset())
}

// Duplicate создает копию анкеты с настройками и графом.
// Копия принадлежит вызывающему и создаётся неопубликованной.
func (s *QuestionnaireService) Duplicate(actorID uint, actorRole access.Role, id uint) (*entity.Questionnaire, error) {
	if err := access.AuthorizeCreation(actorID, actorRole); err != nil {
		return nil, err
	}

	original, err := s.questionnaireRepo.GetByID(id)
	if err != nil {
		return nil, err
	}

	duplicate := &entity.Questionnaire{
		Title:        original.Title + " (копия)",
		Description:  original.Description,
		Mode:         original.Mode,
		Category:     original.Category,
		Difficulty:   original.Difficulty,
		Tags:         append(entity.StringArray{}, original.Tags...),
		QuestionIDs:  append(entity.UintArray{}, original.QuestionIDs...),
		PoolID:       original.PoolID,
		MaxQuestions: original.MaxQuestions,
		PathGraph:    append(entity.JSONGraph{}, original.PathGraph...),
		Settings:     original.Settings,
		StartDate:    original.StartDate,
		EndDate:      original.EndDate,
		IsActive:     true,
		IsPublic:     false,
		Version:      1,
		CreatedByID:  actorID,
	}

	if err := s.questionnaireRepo.Create(duplicate); err != nil {
		return nil, err
	}

	log.Printf("[QuestionnaireService] Анкета %d продублирована: новая %d (владелец %d)", id, duplicate.ID, actorID)
	return duplicate, nil
}

// validateContent проверяет источник вопросов анкеты для её режима.
// Для adaptive компилируется и валидируется граф; все его вопросы
// должны существовать (MissingQuestionRef ловится на сохранении).
func (s *QuestionnaireService) validateContent(questionnaire *entity.Questionnaire) error {
	if questionnaire.Title == "" {
		return fmt.Errorf("%w: title is required", apperrors.ErrValidation)
	}

	switch questionnaire.Mode {
	case entity.QuestionnaireModeAdaptive:
		graph, err := pathlogic.Compile(questionnaire.PathGraph)
		if err != nil {
			return err
		}
		ids := graph.QuestionIDs()
		if len(ids) > 0 {
			found, err := s.questionRepo.GetByIDs(ids)
			if err != nil {
				return err
			}
			if len(found) != len(uniqueIDs(ids)) {
				return fmt.Errorf("%w: graph references missing questions", apperrors.ErrMissingQuestionRef)
			}
		}
	case entity.QuestionnaireModeRandom:
		if questionnaire.PoolID == nil {
			return fmt.Errorf("%w: random mode requires pool_id", apperrors.ErrValidation)
		}
		if questionnaire.MaxQuestions <= 0 {
			return fmt.Errorf("%w: random mode requires max_questions > 0", apperrors.ErrValidation)
		}
		if _, err := s.poolRepo.GetByID(*questionnaire.PoolID); err != nil {
			return err
		}
	case entity.QuestionnaireModeFixed, "":
		if questionnaire.Mode == "" {
			questionnaire.Mode = entity.QuestionnaireModeFixed
		}
		if len(questionnaire.QuestionIDs) == 0 {
			return fmt.Errorf("%w: fixed mode requires question_ids", apperrors.ErrValidation)
		}
		found, err := s.questionRepo.GetByIDs(questionnaire.QuestionIDs)
		if err != nil {
			return err
		}
		if len(found) != len(uniqueIDs(questionnaire.QuestionIDs)) {
			return fmt.Errorf("%w: some questions do not exist", apperrors.ErrNotFound)
		}
	default:
		return fmt.Errorf("%w: unknown mode %q", apperrors.ErrValidation, questionnaire.Mode)
	}

	if questionnaire.StartDate != nil && questionnaire.EndDate != nil &&
		questionnaire.EndDate.Before(*questionnaire.StartDate) {
		return fmt.Errorf("%w: end_date is before start_date", apperrors.ErrValidation)
	}

	if p := questionnaire.Settings.PassPercentage; p != nil && (*p < 0 || *p > 100) {
		return fmt.Errorf("%w: pass_percentage must be within [0,100]", apperrors.ErrValidation)
	}

	return nil
}

func uniqueIDs(ids []uint) []uint {
	seen := make(map[uint]bool, len(ids))
	unique := make([]uint, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			unique = append(unique, id)
		}
	}
	return unique
}
