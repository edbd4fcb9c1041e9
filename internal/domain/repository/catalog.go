package repository

// CatalogFilters определяет фильтры листинга пулов и анкет.
// Все заданные фильтры комбинируются через AND и применяются до подсчёта total.
type CatalogFilters struct {
	Search       string   // Подстрочный поиск по названию/описанию
	Category     string   // Точное совпадение категории
	Difficulty   *int     // Фильтр по сложности
	Tags         []string // Требуется вхождение всех перечисленных тегов
	IsActive     *bool    // По умолчанию листинг показывает только активные
	IsPublic     *bool    // Только для анкет
	CreatedByID  *uint    // Фильтр по владельцу
	Version      *int     // Фильтр по версии
	MinQuestions *int     // Нижняя граница количества вопросов
	MaxQuestions *int     // Верхняя граница количества вопросов
}

// Поля сортировки каталога. Неизвестное поле молча заменяется на
// CatalogSortCreatedAt — это документированное поведение, а не ошибка.
const (
	CatalogSortName       = "name"
	CatalogSortCreatedAt  = "createdAt"
	CatalogSortUpdatedAt  = "updatedAt"
	CatalogSortDifficulty = "difficulty"
	CatalogSortCategory   = "category"
	CatalogSortVersion    = "version"
)

// CatalogSort — параметры сортировки листинга
type CatalogSort struct {
	Field string
	Desc  bool
}

// PageParams — параметры пагинации (page >= 1, limit >= 1)
type PageParams struct {
	Page  int
	Limit int
}

// Normalize приводит параметры к допустимым значениям
func (p PageParams) Normalize() PageParams {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = 20
	}
	return p
}

// Offset возвращает смещение для запроса
func (p PageParams) Offset() int {
	return (p.Page - 1) * p.Limit
}
