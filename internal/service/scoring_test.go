package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/assessly/assessment-api/internal/domain/entity"
)

func floatPtr(v float64) *float64 { return &v }

func answerLog(points ...float64) []entity.AttemptAnswer {
	answers := make([]entity.AttemptAnswer, 0, len(points))
	for i, p := range points {
		answers = append(answers, entity.AttemptAnswer{
			Position:      i,
			QuestionID:    uint(i + 1),
			AwardedPoints: p,
			MaxPoints:     10,
			IsCorrect:     p > 0,
		})
	}
	return answers
}

func TestScore_PassPercentageBoundary(t *testing.T) {
	settings := entity.QuestionnaireSettings{PassPercentage: floatPtr(70)}

	// 14/20 = 70% — проходит ровно на пороге
	result := Score(answerLog(10, 4), settings)
	assert.Equal(t, 14.0, result.TotalPoints)
	assert.Equal(t, 70.0, result.Percentage)
	assert.Equal(t, entity.VerdictPass, result.Verdict)

	// 13/20 = 65% — не проходит
	result = Score(answerLog(10, 3), settings)
	assert.Equal(t, entity.VerdictFail, result.Verdict)
}

func TestScore_PassPoints(t *testing.T) {
	settings := entity.QuestionnaireSettings{PassPoints: floatPtr(15)}

	assert.Equal(t, entity.VerdictPass, Score(answerLog(10, 5), settings).Verdict)
	assert.Equal(t, entity.VerdictFail, Score(answerLog(10, 4), settings).Verdict)
}

func TestScore_EitherThresholdSuffices(t *testing.T) {
	// Оба порога настроены: достаточно удовлетворить любой
	settings := entity.QuestionnaireSettings{
		PassPercentage: floatPtr(90),
		PassPoints:     floatPtr(12),
	}

	result := Score(answerLog(10, 3), settings) // 65%, но 13 очков >= 12
	assert.Equal(t, entity.VerdictPass, result.Verdict)
}

func TestScore_NoThresholdsNotApplicable(t *testing.T) {
	result := Score(answerLog(10, 10), entity.QuestionnaireSettings{})
	assert.Equal(t, entity.VerdictNotApplicable, result.Verdict)
	assert.False(t, result.IsPassed())
}

func TestScore_PercentageOverVisitedOnly(t *testing.T) {
	// Максимум считается по отвеченным вопросам, а не по всему графу
	settings := entity.QuestionnaireSettings{PassPercentage: floatPtr(50)}
	result := Score(answerLog(10), settings)
	assert.Equal(t, 10.0, result.MaxPoints)
	assert.Equal(t, 100.0, result.Percentage)
}

func TestScore_EmptyLog(t *testing.T) {
	result := Score(nil, entity.QuestionnaireSettings{PassPercentage: floatPtr(70)})
	assert.Equal(t, 0.0, result.TotalPoints)
	assert.Equal(t, 0.0, result.Percentage)
	assert.Equal(t, entity.VerdictFail, result.Verdict)
	assert.Empty(t, result.Breakdown)
}

func TestScore_Idempotent(t *testing.T) {
	log := answerLog(10, 7, 0)
	settings := entity.QuestionnaireSettings{PassPercentage: floatPtr(50)}

	first := Score(log, settings)
	second := Score(log, settings)
	assert.Equal(t, first, second, "повторный подсчёт по тому же журналу бит-в-бит идентичен")
}

func TestScore_DegradedMarkerPropagates(t *testing.T) {
	log := answerLog(10, 0)
	log[1].ValidatorDegraded = true

	result := Score(log, entity.QuestionnaireSettings{PassPercentage: floatPtr(40)})
	assert.True(t, result.Degraded)
	assert.True(t, result.Breakdown[1].Degraded)
	assert.False(t, result.Breakdown[0].Degraded)
}

func TestAwardPoints_ExactMatch(t *testing.T) {
	q := &entity.Question{
		Type:           entity.QuestionSingleChoice,
		Options:        entity.StringArray{"a", "b"},
		CorrectOptions: entity.StringArray{"b"},
		PointValue:     10,
	}

	points, correct := awardPoints(q, []string{"b"}, nil)
	assert.Equal(t, 10.0, points)
	assert.True(t, correct)

	points, correct = awardPoints(q, []string{"a"}, nil)
	assert.Equal(t, 0.0, points)
	assert.False(t, correct)
}

func TestAwardPoints_SemanticFractional(t *testing.T) {
	q := &entity.Question{Type: entity.QuestionOpenText, PointValue: 10}

	points, correct := awardPoints(q, []string{"my answer"}, &AnswerVerdict{MatchScore: 0.75})
	assert.Equal(t, 7.5, points)
	assert.True(t, correct)

	// Match score за пределами [0,1] ограничивается
	points, _ = awardPoints(q, []string{"x"}, &AnswerVerdict{MatchScore: 1.8})
	assert.Equal(t, 10.0, points)

	points, _ = awardPoints(q, []string{"x"}, &AnswerVerdict{MatchScore: -0.3})
	assert.Equal(t, 0.0, points)

	// Отсутствие вердикта (fallback) — ноль очков
	points, correct = awardPoints(q, []string{"x"}, nil)
	assert.Equal(t, 0.0, points)
	assert.False(t, correct)
}
