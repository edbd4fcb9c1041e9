package service

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/assessly/assessment-api/internal/domain/entity"
	"github.com/assessly/assessment-api/internal/domain/repository"
	"github.com/assessly/assessment-api/internal/pathlogic"
	"github.com/assessly/assessment-api/internal/pkg/access"
	apperrors "github.com/assessly/assessment-api/internal/pkg/errors"
)

// StepInfo описывает следующий шаг попытки для клиента
type StepInfo struct {
	Kind       string           `json:"kind"` // question | choice | end
	NodeID     string           `json:"node_id,omitempty"`
	QuestionID uint             `json:"question_id,omitempty"`
	Question   *entity.Question `json:"question,omitempty"`
	Choices    []string         `json:"choices,omitempty"`
}

// SubmitResult — итог подачи одного ответа
type SubmitResult struct {
	Completed     bool                `json:"completed"`
	AwardedPoints float64             `json:"awarded_points"`
	Degraded      bool                `json:"degraded,omitempty"` // ответ оценён через fallback валидатора
	Feedback      string              `json:"feedback,omitempty"`
	Next          *StepInfo           `json:"next,omitempty"`
	Score         *entity.ScoreResult `json:"score,omitempty"` // замороженный итог при завершении
}

// AttemptService — машина состояний попыток: start / submitAnswer / abandon.
// Подачи ответов по одной сессии сериализуются per-session блокировкой;
// истечение дедлайна фиксируется лениво при следующем обращении.
type AttemptService struct {
	attemptRepo       repository.AttemptRepository
	questionnaireRepo repository.QuestionnaireRepository
	questionRepo      repository.QuestionRepository
	poolService       *PoolService
	cacheRepo         repository.CacheRepository
	validator         AnswerValidator
	locks             *keyedMutex
	config            *EngineConfig

	// now вынесено в поле для детерминированных тестов истечения
	now func() time.Time
}

// NewAttemptService создает новый сервис попыток
func NewAttemptService(
	attemptRepo repository.AttemptRepository,
	questionnaireRepo repository.QuestionnaireRepository,
	questionRepo repository.QuestionRepository,
	poolService *PoolService,
	cacheRepo repository.CacheRepository,
	validator AnswerValidator,
	config *EngineConfig,
) *AttemptService {
	return &AttemptService{
		attemptRepo:       attemptRepo,
		questionnaireRepo: questionnaireRepo,
		questionRepo:      questionRepo,
		poolService:       poolService,
		cacheRepo:         cacheRepo,
		validator:         validator,
		locks:             newKeyedMutex(),
		config:            config,
		now:               time.Now,
	}
}

// Start создает попытку по анкете. Отклоняет при исчерпанном лимите
// пересдач и вне окна доступности. Порядок вопросов фиксируется здесь:
// fixed-список (с опциональным перемешиванием) или свежая выборка из пула,
// чтобы параллельные подачи отвечали по стабильной последовательности.
func (s *AttemptService) Start(actorID uint, actorRole access.Role, questionnaireID uint) (*entity.AttemptSession, *StepInfo, error) {
	if actorID == 0 {
		return nil, nil, fmt.Errorf("%w: missing identity", apperrors.ErrUnauthenticated)
	}

	questionnaire, err := s.questionnaireRepo.GetByID(questionnaireID)
	if err != nil {
		return nil, nil, err
	}
	if err := s.checkVisible(questionnaire, actorID, actorRole); err != nil {
		return nil, nil, err
	}

	now := s.now()
	if !questionnaire.IsAvailableAt(now) {
		return nil, nil, ErrOutsideWindow
	}

	allowed := questionnaire.AttemptsAllowed()
	if allowed > 0 {
		completed, err := s.attemptRepo.CountByStatus(actorID, questionnaireID, entity.AttemptStatusCompleted)
		if err != nil {
			return nil, nil, err
		}
		if completed >= int64(allowed) {
			return nil, nil, ErrRetakeLimitExceeded
		}
	}

	total, err := s.attemptRepo.CountAll(actorID, questionnaireID)
	if err != nil {
		return nil, nil, err
	}

	session := &entity.AttemptSession{
		ID:              uuid.New().String(),
		QuestionnaireID: questionnaireID,
		UserID:          actorID,
		AttemptNumber:   int(total) + 1,
		Status:          entity.AttemptStatusInProgress,
		StartedAt:       now,
		QuestionOrder:   entity.UintArray{},
	}
	if questionnaire.Settings.TimeLimitMinutes > 0 {
		deadline := now.Add(time.Duration(questionnaire.Settings.TimeLimitMinutes) * time.Minute)
		session.Deadline = &deadline
	}

	var first *StepInfo
	switch questionnaire.Mode {
	case entity.QuestionnaireModeAdaptive:
		graph, err := pathlogic.Compile(questionnaire.PathGraph)
		if err != nil {
			return nil, nil, err
		}
		step, err := graph.FirstStep()
		if err != nil {
			return nil, nil, err
		}
		session.CurrentNodeID = step.NodeID
		first, err = s.stepInfo(step)
		if err != nil {
			return nil, nil, err
		}
	case entity.QuestionnaireModeRandom:
		order, err := s.drawRandomOrder(questionnaire)
		if err != nil {
			return nil, nil, err
		}
		session.QuestionOrder = order
	default: // fixed
		order := append(entity.UintArray{}, questionnaire.QuestionIDs...)
		if len(order) == 0 {
			return nil, nil, fmt.Errorf("%w: questionnaire %d has no questions", apperrors.ErrValidation, questionnaireID)
		}
		if questionnaire.Settings.RandomizeQuestions {
			rand.Shuffle(len(order), func(i, j int) {
				order[i], order[j] = order[j], order[i]
			})
		}
		session.QuestionOrder = order
	}

	if err := s.attemptRepo.Create(session); err != nil {
		return nil, nil, err
	}

	// Граф, оседающий в end прямо от корня, завершает попытку на старте:
	// иначе сессия с нулём интерактивных шагов зависла бы в in_progress
	if first != nil && first.Kind == pathlogic.StepEnd {
		if _, err := s.finalize(session, questionnaire, &SubmitResult{}); err != nil {
			return nil, nil, err
		}
		return session, first, nil
	}

	if first == nil {
		first, err = s.flatStepInfo(session)
		if err != nil {
			return nil, nil, err
		}
	}

	log.Printf("[AttemptService] Попытка %s: пользователь %d, анкета %d, номер %d",
		session.ID, actorID, questionnaireID, session.AttemptNumber)
	return session, first, nil
}

// NextStep возвращает текущий шаг попытки, не меняя журнал.
// Просроченная попытка фиксируется как expired здесь же (ленивое истечение).
func (s *AttemptService) NextStep(actorID uint, actorRole access.Role, sessionID string) (*StepInfo, error) {
	session, err := s.loadForRead(actorID, actorRole, sessionID)
	if err != nil {
		return nil, err
	}

	if s.expireLazily(session) {
		return nil, ErrAttemptExpired
	}
	if session.IsTerminal() {
		return &StepInfo{Kind: pathlogic.StepEnd}, nil
	}

	questionnaire, err := s.questionnaireRepo.GetByID(session.QuestionnaireID)
	if err != nil {
		return nil, err
	}

	if questionnaire.IsAdaptive() {
		graph, err := pathlogic.Compile(questionnaire.PathGraph)
		if err != nil {
			return nil, err
		}
		// Текущий узел всегда интерактивный: он «осел» при предыдущем шаге
		return s.currentAdaptiveStep(graph, session)
	}
	return s.flatStepInfo(session)
}

// SubmitAnswer записывает ответ и продвигает попытку. Вызовы по одной
// сессии сериализуются: параллельная подача проигравшего участника гонки
// завершается ErrInvalidState/ErrNotCurrentQuestion, а не двойной записью.
func (s *AttemptService) SubmitAnswer(ctx context.Context, actorID uint, sessionID string, questionID uint, response []string) (*SubmitResult, error) {
	unlock := s.locks.Lock(sessionKey(sessionID))
	defer unlock()

	session, err := s.attemptRepo.GetByID(sessionID)
	if err != nil {
		return nil, err
	}
	// Сессию мутирует только её владелец — без исключения для админа
	if session.UserID != actorID {
		if actorID == 0 {
			return nil, fmt.Errorf("%w: missing identity", apperrors.ErrUnauthenticated)
		}
		return nil, fmt.Errorf("%w: attempt %s belongs to another user", apperrors.ErrForbidden, sessionID)
	}

	if !session.IsInProgress() {
		return nil, fmt.Errorf("%w: attempt %s is %s", apperrors.ErrInvalidState, sessionID, session.Status)
	}
	if s.expireLazily(session) {
		return nil, ErrAttemptExpired
	}

	questionnaire, err := s.questionnaireRepo.GetByID(session.QuestionnaireID)
	if err != nil {
		return nil, err
	}

	if questionnaire.IsAdaptive() {
		return s.submitAdaptive(ctx, session, questionnaire, questionID, response)
	}
	return s.submitFlat(ctx, session, questionnaire, questionID, response)
}

// Abandon переводит попытку в abandoned по инициативе пользователя.
// Идемпотентна: на уже терминальной попытке — no-op, не ошибка.
func (s *AttemptService) Abandon(actorID uint, sessionID string) error {
	unlock := s.locks.Lock(sessionKey(sessionID))
	defer unlock()

	session, err := s.attemptRepo.GetByID(sessionID)
	if err != nil {
		return err
	}
	if session.UserID != actorID {
		return fmt.Errorf("%w: attempt %s belongs to another user", apperrors.ErrForbidden, sessionID)
	}
	if session.IsTerminal() {
		return nil
	}

	_, err = s.attemptRepo.UpdateStatusIf(sessionID, entity.AttemptStatusInProgress, entity.AttemptStatusAbandoned)
	return err
}

// Result пересчитывает итог попытки из журнала. ScoreResult — производный:
// при завершении он замораживается в записи попытки, но в любой момент
// восстановим из журнала и настроек.
func (s *AttemptService) Result(actorID uint, actorRole access.Role, sessionID string) (*entity.ScoreResult, error) {
	session, err := s.loadForRead(actorID, actorRole, sessionID)
	if err != nil {
		return nil, err
	}
	s.expireLazily(session)

	questionnaire, err := s.questionnaireRepo.GetByID(session.QuestionnaireID)
	if err != nil {
		return nil, err
	}

	result := Score(session.Answers, questionnaire.Settings)
	if !questionnaire.Settings.AllowReview {
		// При allow_review=false проходящий видит только итог без повопросной
		// разбивки; владельцу анкеты и админу разбивка доступна всегда
		if access.AuthorizeOwner(questionnaire.CreatedByID, actorID, actorRole) != nil {
			result.Breakdown = nil
		}
	}
	return &result, nil
}

// ListAttempts возвращает попытки пользователя (свои — всем, чужие — админу)
func (s *AttemptService) ListAttempts(actorID uint, actorRole access.Role, userID, questionnaireID uint) ([]entity.AttemptSession, error) {
	if err := access.AuthorizeOwner(userID, actorID, actorRole); err != nil {
		return nil, err
	}
	return s.attemptRepo.ListByUser(userID, questionnaireID)
}

// --- внутреннее ---

func (s *AttemptService) submitAdaptive(
	ctx context.Context,
	session *entity.AttemptSession,
	questionnaire *entity.Questionnaire,
	questionID uint,
	response []string,
) (*SubmitResult, error) {
	graph, err := pathlogic.Compile(questionnaire.PathGraph)
	if err != nil {
		return nil, err
	}

	node, err := graph.NodeByID(session.CurrentNodeID)
	if err != nil {
		return nil, err
	}

	result := &SubmitResult{}
	answerKey := firstNonEmpty(response)

	switch node.Type {
	case pathlogic.NodeQuestion:
		if questionID != node.QuestionID {
			return nil, fmt.Errorf("%w: expected question %d", ErrNotCurrentQuestion, node.QuestionID)
		}
		entry, err := s.scoreAndAppend(ctx, session, questionID, node.ID, response)
		if err != nil {
			return nil, err
		}
		session.Answers = append(session.Answers, *entry)
		result.AwardedPoints = entry.AwardedPoints
		result.Degraded = entry.ValidatorDegraded
		result.Feedback = entry.ValidatorFeedback
	case pathlogic.NodePath:
		// Ответ на path-узле только маршрутизирует и в журнал не пишется:
		// ветка root→end завершает попытку с нулём отвеченных вопросов
		if questionID != 0 {
			return nil, fmt.Errorf("%w: current step is a branch choice", ErrNotCurrentQuestion)
		}
	default:
		return nil, fmt.Errorf("%w: cannot submit at %s node", apperrors.ErrInvalidState, node.Type)
	}

	step, err := graph.Next(node.ID, answerKey)
	if err != nil {
		// NoMatchingBranch фатален для сессии и уходит наружу без тихого пропуска
		return nil, err
	}

	if step.Kind == pathlogic.StepEnd {
		return s.finalize(session, questionnaire, result)
	}

	session.CurrentNodeID = step.NodeID
	if err := s.attemptRepo.UpdateProgress(session); err != nil {
		return nil, err
	}

	next, err := s.stepInfo(step)
	if err != nil {
		return nil, err
	}
	result.Next = next
	return result, nil
}

func (s *AttemptService) submitFlat(
	ctx context.Context,
	session *entity.AttemptSession,
	questionnaire *entity.Questionnaire,
	questionID uint,
	response []string,
) (*SubmitResult, error) {
	if session.CurrentIndex >= len(session.QuestionOrder) {
		return nil, fmt.Errorf("%w: no questions remain", apperrors.ErrInvalidState)
	}
	expected := session.QuestionOrder[session.CurrentIndex]
	if questionID != expected {
		return nil, fmt.Errorf("%w: expected question %d", ErrNotCurrentQuestion, expected)
	}

	entry, err := s.scoreAndAppend(ctx, session, questionID, "", response)
	if err != nil {
		return nil, err
	}
	session.Answers = append(session.Answers, *entry)

	result := &SubmitResult{
		AwardedPoints: entry.AwardedPoints,
		Degraded:      entry.ValidatorDegraded,
		Feedback:      entry.ValidatorFeedback,
	}

	session.CurrentIndex++
	if session.CurrentIndex >= len(session.QuestionOrder) {
		return s.finalize(session, questionnaire, result)
	}

	if err := s.attemptRepo.UpdateProgress(session); err != nil {
		return nil, err
	}

	next, err := s.flatStepInfo(session)
	if err != nil {
		return nil, err
	}
	result.Next = next
	return result, nil
}

// scoreAndAppend оценивает ответ и дописывает запись журнала.
// Журнал append-only: позиция следующей записи — длина текущего журнала.
func (s *AttemptService) scoreAndAppend(
	ctx context.Context,
	session *entity.AttemptSession,
	questionID uint,
	nodeID string,
	response []string,
) (*entity.AttemptAnswer, error) {
	question, err := s.questionRepo.GetByID(questionID)
	if err != nil {
		return nil, err
	}

	var verdict *AnswerVerdict
	degraded := false
	feedback := ""
	if !question.IsExactMatch() {
		callCtx, cancel := context.WithTimeout(ctx, s.config.ValidatorTimeout)
		verdict, err = evaluateWithRetry(
			callCtx, s.validator,
			s.config.ValidatorRetries, s.config.RetryInterval,
			question.Text, question.ExpectedAnswer, strings.Join(response, "\n"),
		)
		cancel()
		if err != nil {
			// Исчерпаны повторы: ноль очков с пометкой degraded, сессия
			// не блокируется; пометка отличает этот ноль от честного
			log.Printf("[AttemptService] Валидатор недоступен для попытки %s: %v", session.ID, err)
			verdict = nil
			degraded = true
		} else {
			feedback = verdict.Feedback
		}
	}

	points, correct := awardPoints(question, response, verdict)

	entry := &entity.AttemptAnswer{
		AttemptID:         session.ID,
		Position:          len(session.Answers),
		QuestionID:        questionID,
		NodeID:            nodeID,
		Response:          response,
		IsCorrect:         correct,
		AwardedPoints:     points,
		MaxPoints:         question.PointValue,
		ValidatorDegraded: degraded,
		ValidatorFeedback: feedback,
		SubmittedAt:       s.now(),
	}
	if err := s.attemptRepo.AppendAnswer(entry); err != nil {
		return nil, err
	}

	s.recordQuestionStats(questionID, correct)
	return entry, nil
}

// finalize замораживает итог и переводит попытку в completed
func (s *AttemptService) finalize(
	session *entity.AttemptSession,
	questionnaire *entity.Questionnaire,
	result *SubmitResult,
) (*SubmitResult, error) {
	ok, err := s.attemptRepo.UpdateStatusIf(session.ID, entity.AttemptStatusInProgress, entity.AttemptStatusCompleted)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: attempt %s already finished", apperrors.ErrInvalidState, session.ID)
	}

	score := Score(session.Answers, questionnaire.Settings)
	now := s.now()
	passed := score.IsPassed()

	session.Status = entity.AttemptStatusCompleted
	session.CompletedAt = &now
	session.FinalScore = &score.TotalPoints
	session.FinalPercentage = &score.Percentage
	session.Passed = &passed
	session.ScoreDegraded = score.Degraded

	if err := s.attemptRepo.FinalizeCompleted(session); err != nil {
		return nil, err
	}

	log.Printf("[AttemptService] Попытка %s завершена: %.1f очков (%.1f%%), вердикт %s",
		session.ID, score.TotalPoints, score.Percentage, score.Verdict)

	result.Completed = true
	result.Next = &StepInfo{Kind: pathlogic.StepEnd}
	result.Score = &score
	return result, nil
}

// expireLazily фиксирует просроченную попытку как expired.
// Возвращает true, если попытка истекла (сейчас или ранее).
func (s *AttemptService) expireLazily(session *entity.AttemptSession) bool {
	if session.Status == entity.AttemptStatusExpired {
		return true
	}
	if !session.IsInProgress() || !session.IsOverdueAt(s.now()) {
		return false
	}

	ok, err := s.attemptRepo.UpdateStatusIf(session.ID, entity.AttemptStatusInProgress, entity.AttemptStatusExpired)
	if err != nil {
		log.Printf("[AttemptService] Ошибка фиксации истечения попытки %s: %v", session.ID, err)
	}
	if ok || err == nil {
		session.Status = entity.AttemptStatusExpired
	}
	return true
}

func (s *AttemptService) loadForRead(actorID uint, actorRole access.Role, sessionID string) (*entity.AttemptSession, error) {
	session, err := s.attemptRepo.GetByID(sessionID)
	if err != nil {
		return nil, err
	}
	// Чужую попытку может читать только админ
	if err := access.AuthorizeOwner(session.UserID, actorID, actorRole); err != nil {
		return nil, err
	}
	return session, nil
}

func (s *AttemptService) checkVisible(questionnaire *entity.Questionnaire, actorID uint, actorRole access.Role) error {
	if questionnaire.IsActive && questionnaire.IsPublic {
		return nil
	}
	if err := access.AuthorizeOwner(questionnaire.CreatedByID, actorID, actorRole); err != nil {
		if !questionnaire.IsActive {
			// Неактивная анкета для посторонних неотличима от отсутствующей
			return apperrors.ErrNotFound
		}
		return err
	}
	return nil
}

func (s *AttemptService) drawRandomOrder(questionnaire *entity.Questionnaire) (entity.UintArray, error) {
	if questionnaire.PoolID == nil {
		return nil, fmt.Errorf("%w: random questionnaire %d has no pool", apperrors.ErrValidation, questionnaire.ID)
	}
	count := questionnaire.MaxQuestions
	if count <= 0 {
		return nil, fmt.Errorf("%w: random questionnaire %d has no max_questions", apperrors.ErrValidation, questionnaire.ID)
	}
	if count > s.config.MaxRandomQuestions {
		count = s.config.MaxRandomQuestions
	}

	questions, err := s.poolService.Sample(*questionnaire.PoolID, count, SampleFilters{})
	if err != nil {
		return nil, err
	}

	order := make(entity.UintArray, 0, len(questions))
	for _, q := range questions {
		order = append(order, q.ID)
	}
	return order, nil
}

// stepInfo наполняет шаг графа данными вопроса
func (s *AttemptService) stepInfo(step *pathlogic.Step) (*StepInfo, error) {
	info := &StepInfo{
		Kind:       step.Kind,
		NodeID:     step.NodeID,
		QuestionID: step.QuestionID,
		Choices:    step.Choices,
	}
	if step.Kind == pathlogic.StepQuestion {
		question, err := s.questionRepo.GetByID(step.QuestionID)
		if err != nil {
			return nil, err
		}
		info.Question = question
	}
	return info, nil
}

func (s *AttemptService) currentAdaptiveStep(graph *pathlogic.Graph, session *entity.AttemptSession) (*StepInfo, error) {
	node, err := graph.NodeByID(session.CurrentNodeID)
	if err != nil {
		return nil, err
	}

	switch node.Type {
	case pathlogic.NodeQuestion:
		return s.stepInfo(&pathlogic.Step{Kind: pathlogic.StepQuestion, NodeID: node.ID, QuestionID: node.QuestionID})
	case pathlogic.NodePath:
		choices := make([]string, 0, len(node.Branches))
		for answerID := range node.Branches {
			choices = append(choices, answerID)
		}
		return &StepInfo{Kind: pathlogic.StepChoice, NodeID: node.ID, Choices: choices}, nil
	default:
		return &StepInfo{Kind: pathlogic.StepEnd, NodeID: node.ID}, nil
	}
}

func (s *AttemptService) flatStepInfo(session *entity.AttemptSession) (*StepInfo, error) {
	if session.CurrentIndex >= len(session.QuestionOrder) {
		return &StepInfo{Kind: pathlogic.StepEnd}, nil
	}
	questionID := session.QuestionOrder[session.CurrentIndex]
	question, err := s.questionRepo.GetByID(questionID)
	if err != nil {
		return nil, err
	}
	return &StepInfo{Kind: pathlogic.StepQuestion, QuestionID: questionID, Question: question}, nil
}

// recordQuestionStats ведёт счётчики ответов по вопросу в Redis.
// Статистика — best effort: её сбой не влияет на попытку.
func (s *AttemptService) recordQuestionStats(questionID uint, correct bool) {
	if _, err := s.cacheRepo.Increment(fmt.Sprintf("question:%d:total", questionID)); err != nil {
		log.Printf("[AttemptService] Ошибка инкремента статистики вопроса %d: %v", questionID, err)
		return
	}
	if correct {
		if _, err := s.cacheRepo.Increment(fmt.Sprintf("question:%d:correct", questionID)); err != nil {
			log.Printf("[AttemptService] Ошибка инкремента статистики вопроса %d: %v", questionID, err)
		}
	}
}

func sessionKey(sessionID string) string {
	return "session:" + sessionID
}

func firstNonEmpty(values []string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
