package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/assessly/assessment-api/internal/pkg/errors"
)

// flakyValidator падает заданное число раз, затем возвращает вердикт.
type flakyValidator struct {
	failures int
	verdict  *AnswerVerdict
	calls    int
}

func (f *flakyValidator) Evaluate(ctx context.Context, questionText, expectedAnswer, submittedAnswer string) (*AnswerVerdict, error) {
	f.calls++
	if f.calls <= f.failures {
		return nil, fmt.Errorf("%w: connection refused", apperrors.ErrExternalService)
	}
	return f.verdict, nil
}

func TestHTTPAnswerValidator_Evaluate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"match_score":0.85,"feedback":"близко к эталону","confidence":0.9}`)
	}))
	defer server.Close()

	validator := NewHTTPAnswerValidator(server.URL, 2*time.Second)

	verdict, err := validator.Evaluate(context.Background(), "Что такое goroutine?", "легковесный поток", "легковесный поток выполнения")
	require.NoError(t, err)
	assert.InDelta(t, 0.85, verdict.MatchScore, 0.0001)
	assert.Equal(t, "близко к эталону", verdict.Feedback)
}

func TestHTTPAnswerValidator_Non200IsExternalError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	validator := NewHTTPAnswerValidator(server.URL, 2*time.Second)

	_, err := validator.Evaluate(context.Background(), "q", "a", "b")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrExternalService))
}

func TestHTTPAnswerValidator_MalformedResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"match_score":`)
	}))
	defer server.Close()

	validator := NewHTTPAnswerValidator(server.URL, 2*time.Second)

	_, err := validator.Evaluate(context.Background(), "q", "a", "b")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrExternalService))
}

func TestEvaluateWithRetry_SucceedsAfterFailure(t *testing.T) {
	flaky := &flakyValidator{failures: 2, verdict: &AnswerVerdict{MatchScore: 1.0}}

	verdict, err := evaluateWithRetry(context.Background(), flaky, 3, time.Millisecond, "q", "a", "b")
	require.NoError(t, err)
	assert.Equal(t, 1.0, verdict.MatchScore)
	assert.Equal(t, 3, flaky.calls)
}

func TestEvaluateWithRetry_Exhausted(t *testing.T) {
	flaky := &flakyValidator{failures: 10}

	_, err := evaluateWithRetry(context.Background(), flaky, 2, time.Millisecond, "q", "a", "b")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrExternalService))
	// первый вызов + 2 повтора
	assert.Equal(t, 3, flaky.calls)
}

func TestEvaluateWithRetry_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	flaky := &flakyValidator{failures: 10}

	_, err := evaluateWithRetry(ctx, flaky, 5, time.Hour, "q", "a", "b")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrExternalService))
	// отмена контекста прерывает бэкофф до второго вызова
	assert.Equal(t, 1, flaky.calls)
}

func TestClampScore(t *testing.T) {
	assert.Equal(t, 0.0, clampScore(-0.5))
	assert.Equal(t, 1.0, clampScore(1.7))
	assert.Equal(t, 0.42, clampScore(0.42))
}
