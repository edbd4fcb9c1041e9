package service

import (
	"fmt"

	apperrors "github.com/assessly/assessment-api/internal/pkg/errors"
)

// Ошибки жизненного цикла попытки. Оборачивают базовые ошибки таксономии,
// чтобы errors.Is срабатывал и на категорию, и на конкретный случай.
var (
	// ErrRetakeLimitExceeded — завершённых попыток уже не меньше допустимого числа
	ErrRetakeLimitExceeded = fmt.Errorf("%w: retake limit exceeded", apperrors.ErrCapacity)

	// ErrOutsideWindow — попытка создаётся вне окна [startDate, endDate]
	ErrOutsideWindow = fmt.Errorf("%w: questionnaire is outside its availability window", apperrors.ErrConflict)

	// ErrAttemptExpired — дедлайн попытки истёк; фиксируется лениво при обращении
	ErrAttemptExpired = fmt.Errorf("%w: attempt deadline has passed", apperrors.ErrInvalidState)

	// ErrNotCurrentQuestion — ответ подан не на текущий вопрос последовательности
	ErrNotCurrentQuestion = fmt.Errorf("%w: question is not the current step", apperrors.ErrInvalidState)

	// ErrInsufficientQuestions — в пуле меньше активных вопросов, чем запрошено
	ErrInsufficientQuestions = fmt.Errorf("%w: not enough active questions in pool", apperrors.ErrCapacity)
)
