package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/assessly/assessment-api/internal/domain/entity"
	"github.com/assessly/assessment-api/internal/domain/repository"
	"github.com/assessly/assessment-api/internal/handler/dto"
	"github.com/assessly/assessment-api/internal/middleware"
	"github.com/assessly/assessment-api/internal/service"
)

// PoolHandler обрабатывает запросы, связанные с пулами вопросов
type PoolHandler struct {
	poolService *service.PoolService
	cacheRepo   repository.CacheRepository
}

// NewPoolHandler создает новый обработчик пулов
func NewPoolHandler(poolService *service.PoolService, cacheRepo repository.CacheRepository) *PoolHandler {
	return &PoolHandler{poolService: poolService, cacheRepo: cacheRepo}
}

// CreatePoolRequest представляет запрос на создание пула
type CreatePoolRequest struct {
	Name        string   `json:"name" binding:"required,min=3,max=100"`
	Description string   `json:"description" binding:"omitempty,max=1000"`
	Category    string   `json:"category" binding:"omitempty,max=50"`
	Tags        []string `json:"tags"`
}

// Create обрабатывает запрос на создание пула
func (h *PoolHandler) Create(c *gin.Context) {
	var req CreatePoolRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	pool := &entity.QuestionPool{
		Name:        req.Name,
		Description: req.Description,
		Category:    req.Category,
		Tags:        entity.StringArray(req.Tags),
	}
	if err := h.poolService.CreatePool(middleware.UserID(c), middleware.UserRole(c), pool); err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, pool)
}

// Get возвращает пул с вопросами
func (h *PoolHandler) Get(c *gin.Context) {
	poolID := c.MustGet("poolID").(uint)

	pool, err := h.poolService.GetPool(middleware.UserID(c), middleware.UserRole(c), poolID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, pool)
}

// List возвращает страницу каталога пулов
func (h *PoolHandler) List(c *gin.Context) {
	filters := parseCatalogFilters(c)
	sort := parseCatalogSort(c)
	page := parsePageParams(c)

	items, total, err := h.poolService.ListPools(filters, sort, page)
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

// Delete выполняет мягкое удаление пула
func (h *PoolHandler) Delete(c *gin.Context) {
	poolID := c.MustGet("poolID").(uint)

	if err := h.poolService.DeletePool(middleware.UserID(c), middleware.UserRole(c), poolID); err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Pool deleted"})
}

// MutateQuestionsRequest представляет запрос на изменение состава пула
type MutateQuestionsRequest struct {
	QuestionIDs []uint `json:"question_ids" binding:"required,min=1"`
}

// AddQuestions добавляет вопросы в пул
func (h *PoolHandler) AddQuestions(c *gin.Context) {
	poolID := c.MustGet("poolID").(uint)

	var req MutateQuestionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.poolService.AddQuestions(middleware.UserID(c), middleware.UserRole(c), poolID, req.QuestionIDs); err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Questions added"})
}

// RemoveQuestions убирает вопросы из пула
func (h *PoolHandler) RemoveQuestions(c *gin.Context) {
	poolID := c.MustGet("poolID").(uint)

	var req MutateQuestionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.poolService.RemoveQuestions(middleware.UserID(c), middleware.UserRole(c), poolID, req.QuestionIDs); err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Questions removed"})
}

// Sample возвращает случайную выборку вопросов пула — для предпросмотра
// анкеты составителем, не для прохождения
func (h *PoolHandler) Sample(c *gin.Context) {
	poolID := c.MustGet("poolID").(uint)

	count, err := strconv.Atoi(c.DefaultQuery("count", "10"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid count"})
		return
	}

	filters := service.SampleFilters{
		Category: c.Query("category"),
	}
	if v := c.Query("difficulty"); v != "" {
		if d, err := strconv.Atoi(v); err == nil {
			filters.Difficulty = d
		}
	}

	questions, err := h.poolService.Sample(poolID, count, filters)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	out := make([]*dto.QuestionResponse, 0, len(questions))
	for i := range questions {
		out = append(out, dto.NewQuestionResponse(&questions[i]))
	}
	c.JSON(http.StatusOK, gin.H{"questions": out})
}

// BulkUploadRequest представляет запрос пакетной загрузки вопросов
type BulkUploadRequest struct {
	Questions []struct {
		Text           string   `json:"text" binding:"required,min=3,max=2000"`
		Type           string   `json:"type" binding:"required,oneof=single_choice multiple_choice true_false open_text"`
		Options        []string `json:"options"`
		CorrectOptions []string `json:"correct_options"`
		ExpectedAnswer string   `json:"expected_answer"`
		PointValue     int      `json:"point_value" binding:"omitempty,min=1,max=100"`
		Category       string   `json:"category"`
		Difficulty     int      `json:"difficulty" binding:"required,min=1,max=5"`
		Tags           []string `json:"tags"`
	} `json:"questions" binding:"required,min=1"`
}

// BulkUpload валидирует и пакетно загружает вопросы в банк
func (h *PoolHandler) BulkUpload(c *gin.Context) {
	var req BulkUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	questions := make([]entity.Question, 0, len(req.Questions))
	for _, q := range req.Questions {
		pointValue := q.PointValue
		if pointValue == 0 {
			pointValue = 10
		}
		questions = append(questions, entity.Question{
			Text:           q.Text,
			Type:           q.Type,
			Options:        entity.StringArray(q.Options),
			CorrectOptions: entity.StringArray(q.CorrectOptions),
			ExpectedAnswer: q.ExpectedAnswer,
			PointValue:     pointValue,
			Category:       q.Category,
			Difficulty:     q.Difficulty,
			Tags:           entity.StringArray(q.Tags),
		})
	}

	if err := h.poolService.BulkUploadQuestions(middleware.UserID(c), middleware.UserRole(c), questions); err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": fmt.Sprintf("Uploaded %d questions", len(questions))})
}

// QuestionStats возвращает накопленные счётчики ответов по вопросу
func (h *PoolHandler) QuestionStats(c *gin.Context) {
	questionID := c.MustGet("questionID").(uint)

	total := h.readCounter(fmt.Sprintf("question:%d:total", questionID))
	correct := h.readCounter(fmt.Sprintf("question:%d:correct", questionID))

	var correctRate float64
	if total > 0 {
		correctRate = float64(correct) / float64(total)
	}

	c.JSON(http.StatusOK, gin.H{
		"question_id":  questionID,
		"total":        total,
		"correct":      correct,
		"correct_rate": correctRate,
	})
}

func (h *PoolHandler) readCounter(key string) int64 {
	raw, err := h.cacheRepo.Get(key)
	if err != nil {
		return 0
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0
	}
	return n
}
