package entity

// Вердикты прохождения
const (
	VerdictPass          = "pass"
	VerdictFail          = "fail"
	VerdictNotApplicable = "not_applicable" // пороги не настроены
)

// QuestionScore — разбивка итога по одному отвеченному вопросу
type QuestionScore struct {
	QuestionID    uint    `json:"question_id"`
	Position      int     `json:"position"`
	IsCorrect     bool    `json:"is_correct"`
	AwardedPoints float64 `json:"awarded_points"`
	MaxPoints     int     `json:"max_points"`
	Degraded      bool    `json:"degraded,omitempty"`
}

// ScoreResult — производный итог попытки. Не хранится отдельно: в любой момент
// пересчитывается из журнала ответов и настроек анкеты.
// Процент считается от максимума только фактически посещённых вопросов —
// ветвление может полностью пропустить часть графа.
type ScoreResult struct {
	TotalPoints float64         `json:"total_points"`
	MaxPoints   float64         `json:"max_points"`
	Percentage  float64         `json:"percentage"`
	Verdict     string          `json:"verdict"`
	Degraded    bool            `json:"degraded"` // хотя бы один ответ оценён через fallback валидатора
	Breakdown   []QuestionScore `json:"breakdown"`
}

// IsPassed возвращает true только при явном вердикте pass
func (r *ScoreResult) IsPassed() bool {
	return r.Verdict == VerdictPass
}
