package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/assessly/assessment-api/internal/domain/entity"
	"github.com/assessly/assessment-api/internal/domain/repository"
	"github.com/assessly/assessment-api/internal/handler/dto"
	"github.com/assessly/assessment-api/internal/middleware"
	"github.com/assessly/assessment-api/internal/service"
)

// QuestionnaireHandler обрабатывает запросы, связанные с анкетами
type QuestionnaireHandler struct {
	questionnaireService *service.QuestionnaireService
}

// NewQuestionnaireHandler создает новый обработчик анкет
func NewQuestionnaireHandler(questionnaireService *service.QuestionnaireService) *QuestionnaireHandler {
	return &QuestionnaireHandler{questionnaireService: questionnaireService}
}

// QuestionnaireRequest представляет запрос на создание/изменение анкеты
type QuestionnaireRequest struct {
	Title        string                       `json:"title" binding:"required,min=3,max=200"`
	Description  string                       `json:"description" binding:"omitempty,max=1000"`
	Mode         string                       `json:"mode" binding:"omitempty,oneof=fixed random adaptive"`
	Category     string                       `json:"category" binding:"omitempty,max=50"`
	Difficulty   int                          `json:"difficulty" binding:"omitempty,min=1,max=5"`
	Tags         []string                     `json:"tags"`
	QuestionIDs  []uint                       `json:"question_ids"`
	PoolID       *uint                        `json:"pool_id"`
	MaxQuestions int                          `json:"max_questions"`
	PathGraph    entity.JSONGraph             `json:"path_graph"`
	Settings     entity.QuestionnaireSettings `json:"settings"`
	StartDate    *time.Time                   `json:"start_date"`
	EndDate      *time.Time                   `json:"end_date"`
	IsPublic     bool                         `json:"is_public"`
}

func (r *QuestionnaireRequest) toEntity() *entity.Questionnaire {
	return &entity.Questionnaire{
		Title:        r.Title,
		Description:  r.Description,
		Mode:         r.Mode,
		Category:     r.Category,
		Difficulty:   r.Difficulty,
		Tags:         entity.StringArray(r.Tags),
		QuestionIDs:  entity.UintArray(r.QuestionIDs),
		PoolID:       r.PoolID,
		MaxQuestions: r.MaxQuestions,
		PathGraph:    r.PathGraph,
		Settings:     r.Settings,
		StartDate:    r.StartDate,
		EndDate:      r.EndDate,
		IsPublic:     r.IsPublic,
	}
}

// Create обрабатывает запрос на создание анкеты
func (h *QuestionnaireHandler) Create(c *gin.Context) {
	var req QuestionnaireRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	questionnaire := req.toEntity()
	if err := h.questionnaireService.Create(middleware.UserID(c), middleware.UserRole(c), questionnaire); err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, questionnaire)
}

// Get возвращает анкету по id
func (h *QuestionnaireHandler) Get(c *gin.Context) {
	questionnaireID := c.MustGet("questionnaireID").(uint)

	questionnaire, err := h.questionnaireService.Get(middleware.UserID(c), middleware.UserRole(c), questionnaireID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, questionnaire)
}

// Update обрабатывает запрос на изменение анкеты
func (h *QuestionnaireHandler) Update(c *gin.Context) {
	questionnaireID := c.MustGet("questionnaireID").(uint)

	var req QuestionnaireRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	questionnaire := req.toEntity()
	questionnaire.ID = questionnaireID
	if err := h.questionnaireService.Update(middleware.UserID(c), middleware.UserRole(c), questionnaire); err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, questionnaire)
}

// Delete выполняет мягкое удаление анкеты
func (h *QuestionnaireHandler) Delete(c *gin.Context) {
	questionnaireID := c.MustGet("questionnaireID").(uint)

	if err := h.questionnaireService.Delete(middleware.UserID(c), middleware.UserRole(c), questionnaireID); err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Questionnaire deleted"})
}

// Duplicate создает копию анкеты, принадлежащую вызывающему
func (h *QuestionnaireHandler) Duplicate(c *gin.Context) {
	questionnaireID := c.MustGet("questionnaireID").(uint)

	duplicate, err := h.questionnaireService.Duplicate(middleware.UserID(c), middleware.UserRole(c), questionnaireID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, duplicate)
}

// List возвращает страницу каталога анкет
func (h *QuestionnaireHandler) List(c *gin.Context) {
	filters := parseCatalogFilters(c)
	sort := parseCatalogSort(c)
	page := parsePageParams(c)

	items, total, err := h.questionnaireService.List(filters, sort, page)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.PageResponse{
		Items: items,
		Total: total,
		Page:  page.Normalize().Page,
		Limit: page.Normalize().Limit,
	})
}

// --- разбор query-параметров каталога ---

func parseCatalogFilters(c *gin.Context) repository.CatalogFilters {
	filters := repository.CatalogFilters{
		Search:   c.Query("search"),
		Category: c.Query("category"),
	}
	if v := c.Query("difficulty"); v != "" {
		if d, err := strconv.Atoi(v); err == nil {
			filters.Difficulty = &d
		}
	}
	if v := c.Query("tags"); v != "" {
		filters.Tags = strings.Split(v, ",")
	}
	if v := c.Query("is_active"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			filters.IsActive = &b
		}
	}
	if v := c.Query("is_public"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			filters.IsPublic = &b
		}
	}
	if v := c.Query("created_by"); v != "" {
		if id, err := strconv.ParseUint(v, 10, 32); err == nil {
			owner := uint(id)
			filters.CreatedByID = &owner
		}
	}
	if v := c.Query("version"); v != "" {
		if ver, err := strconv.Atoi(v); err == nil {
			filters.Version = &ver
		}
	}
	if v := c.Query("min_questions"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filters.MinQuestions = &n
		}
	}
	if v := c.Query("max_questions"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filters.MaxQuestions = &n
		}
	}
	return filters
}

func parseCatalogSort(c *gin.Context) repository.CatalogSort {
	// Неизвестное поле сортировки молча заменяется на createdAt ниже по стеку
	return repository.CatalogSort{
		Field: c.DefaultQuery("sort_by", repository.CatalogSortCreatedAt),
		Desc:  c.DefaultQuery("sort_dir", "desc") == "desc",
	}
}

func parsePageParams(c *gin.Context) repository.PageParams {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	return repository.PageParams{Page: page, Limit: limit}
}
