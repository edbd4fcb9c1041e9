package service

import (
	"github.com/assessly/assessment-api/internal/domain/entity"
)

// Score подсчитывает итог попытки по журналу ответов и настройкам анкеты.
// Чистая функция своих аргументов: никакого скрытого состояния, повторный
// вызов на том же журнале даёт идентичный результат. Процент считается
// от максимума только посещённых вопросов — ветвление может полностью
// пропустить часть графа.
//
// Вердикт: pass, если процент >= PassPercentage ИЛИ сумма очков >= PassPoints
// (достаточно любого из настроенных порогов); ни один порог не настроен —
// not_applicable.
func Score(answers []entity.AttemptAnswer, settings entity.QuestionnaireSettings) entity.ScoreResult {
	result := entity.ScoreResult{
		Breakdown: make([]entity.QuestionScore, 0, len(answers)),
	}

	for _, answer := range answers {
		result.TotalPoints += answer.AwardedPoints
		result.MaxPoints += float64(answer.MaxPoints)
		if answer.ValidatorDegraded {
			// Ноль из-за fallback валидатора отличим от честного нуля
			result.Degraded = true
		}
		result.Breakdown = append(result.Breakdown, entity.QuestionScore{
			QuestionID:    answer.QuestionID,
			Position:      answer.Position,
			IsCorrect:     answer.IsCorrect,
			AwardedPoints: answer.AwardedPoints,
			MaxPoints:     answer.MaxPoints,
			Degraded:      answer.ValidatorDegraded,
		})
	}

	if result.MaxPoints > 0 {
		result.Percentage = result.TotalPoints / result.MaxPoints * 100
	}

	result.Verdict = verdict(result.TotalPoints, result.Percentage, settings)
	return result
}

func verdict(totalPoints, percentage float64, settings entity.QuestionnaireSettings) string {
	if settings.PassPercentage == nil && settings.PassPoints == nil {
		return entity.VerdictNotApplicable
	}

	if settings.PassPercentage != nil && percentage >= *settings.PassPercentage {
		return entity.VerdictPass
	}
	if settings.PassPoints != nil && totalPoints >= *settings.PassPoints {
		return entity.VerdictPass
	}
	return entity.VerdictFail
}

// awardPoints вычисляет очки за один ответ в момент подачи.
// Типы с точным сравнением дают 0 или полный балл; для open_text
// дробный балл равен match score внешнего валидатора (ограничен [0,1]),
// умноженному на ценность вопроса.
func awardPoints(question *entity.Question, response []string, verdict *AnswerVerdict) (points float64, correct bool) {
	if question.IsExactMatch() {
		if question.IsCorrectResponse(response) {
			return float64(question.PointValue), true
		}
		return 0, false
	}

	if verdict == nil {
		return 0, false
	}
	score := clampScore(verdict.MatchScore)
	return score * float64(question.PointValue), score >= 0.5
}
