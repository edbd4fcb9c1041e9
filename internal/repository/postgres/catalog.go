package postgres

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/assessly/assessment-api/internal/domain/repository"
)

// catalogSortColumns — allow-list полей сортировки каталога.
// Ключ — публичное имя из контракта листинга, значение — колонка.
var catalogSortColumns = map[string]string{
	repository.CatalogSortName:       "name",
	repository.CatalogSortCreatedAt:  "created_at",
	repository.CatalogSortUpdatedAt:  "updated_at",
	repository.CatalogSortDifficulty: "difficulty",
	repository.CatalogSortCategory:   "category",
	repository.CatalogSortVersion:    "version",
}

// catalogOrderClause строит ORDER BY по allow-list.
// Неизвестное поле молча заменяется created_at (документированное поведение).
func catalogOrderClause(sort repository.CatalogSort, nameColumn string) string {
	column, ok := catalogSortColumns[sort.Field]
	if !ok {
		column = "created_at"
	}
	if sort.Field == repository.CatalogSortName {
		column = nameColumn // у анкет название хранится в title
	}
	direction := "ASC"
	if sort.Desc {
		direction = "DESC"
	}
	return fmt.Sprintf("%s %s, id %s", column, direction, direction)
}

// applyCatalogFilters навешивает общие фильтры каталога на запрос.
// Все фильтры комбинируются через AND и применяются до Count.
func applyCatalogFilters(query *gorm.DB, filters repository.CatalogFilters, nameColumn string) *gorm.DB {
	if filters.Search != "" {
		search := "%" + filters.Search + "%"
		query = query.Where(nameColumn+" ILIKE ? OR description ILIKE ?", search, search)
	}

	if filters.Category != "" {
		query = query.Where("category = ?", filters.Category)
	}

	if filters.Difficulty != nil {
		query = query.Where("difficulty = ?", *filters.Difficulty)
	}

	// Требуется вхождение всех тегов: JSONB-оператор @>
	for _, tag := range filters.Tags {
		query = query.Where("tags @> ?", fmt.Sprintf(`["%s"]`, tag))
	}

	if filters.IsActive != nil {
		query = query.Where("is_active = ?", *filters.IsActive)
	} else {
		// Мягко удалённые записи скрыты из листинга по умолчанию
		query = query.Where("is_active = ?", true)
	}

	if filters.IsPublic != nil {
		query = query.Where("is_public = ?", *filters.IsPublic)
	}

	if filters.CreatedByID != nil {
		query = query.Where("created_by_id = ?", *filters.CreatedByID)
	}

	if filters.Version != nil {
		query = query.Where("version = ?", *filters.Version)
	}

	return query
}
