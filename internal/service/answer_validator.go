package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	apperrors "github.com/assessly/assessment-api/internal/pkg/errors"
)

// AnswerVerdict — результат внешней проверки свободного ответа.
// Движок трактует сервис как чёрный ящик с числовым контрактом:
// match score в [0,1], необязательный фидбек и уверенность.
type AnswerVerdict struct {
	MatchScore float64 `json:"match_score"`
	Feedback   string  `json:"feedback,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
}

// AnswerValidator определяет интерфейс внешнего (возможно, AI-based)
// сервиса проверки ответов. Внедряется как зависимость, чтобы тесты
// могли подставить детерминированную заглушку.
type AnswerValidator interface {
	Evaluate(ctx context.Context, questionText, expectedAnswer, submittedAnswer string) (*AnswerVerdict, error)
}

// HTTPAnswerValidator вызывает сервис проверки по REST. Каждый вызов
// ограничен таймаутом — зависший валидатор не должен блокировать сессию.
type HTTPAnswerValidator struct {
	endpoint string
	client   *http.Client
}

// NewHTTPAnswerValidator создает клиент сервиса проверки ответов
func NewHTTPAnswerValidator(endpoint string, timeout time.Duration) *HTTPAnswerValidator {
	return &HTTPAnswerValidator{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

type evaluateRequest struct {
	QuestionText    string `json:"question_text"`
	ExpectedAnswer  string `json:"expected_answer"`
	SubmittedAnswer string `json:"submitted_answer"`
}

// Evaluate отправляет ответ на проверку и возвращает вердикт.
// Любой сбой транспорта или контракта оборачивается в ErrExternalService.
func (v *HTTPAnswerValidator) Evaluate(ctx context.Context, questionText, expectedAnswer, submittedAnswer string) (*AnswerVerdict, error) {
	body, err := json.Marshal(evaluateRequest{
		QuestionText:    questionText,
		ExpectedAnswer:  expectedAnswer,
		SubmittedAnswer: submittedAnswer,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: marshal evaluate request: %v", apperrors.ErrExternalService, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: build evaluate request: %v", apperrors.ErrExternalService, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := v.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrExternalService, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: validator returned status %d", apperrors.ErrExternalService, resp.StatusCode)
	}

	var verdict AnswerVerdict
	if err := json.NewDecoder(resp.Body).Decode(&verdict); err != nil {
		return nil, fmt.Errorf("%w: decode validator response: %v", apperrors.ErrExternalService, err)
	}

	return &verdict, nil
}

// evaluateWithRetry вызывает валидатор с ограниченным числом повторов
// и бэкоффом. Ошибки структуры графа и состояния никогда не ретраятся;
// сюда попадают только внешние сбои.
func evaluateWithRetry(
	ctx context.Context,
	validator AnswerValidator,
	maxRetries int,
	retryInterval time.Duration,
	questionText, expectedAnswer, submittedAnswer string,
) (*AnswerVerdict, error) {
	var lastErr error

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			backoff := retryInterval * time.Duration(attempt)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, fmt.Errorf("%w: %v", apperrors.ErrExternalService, ctx.Err())
			}
			log.Printf("[AnswerValidator] Повтор %d/%d после ошибки: %v", attempt, maxRetries, lastErr)
		}

		verdict, err := validator.Evaluate(ctx, questionText, expectedAnswer, submittedAnswer)
		if err == nil {
			return verdict, nil
		}
		lastErr = err
	}

	return nil, lastErr
}

// clampScore приводит match score к [0,1]
func clampScore(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}
