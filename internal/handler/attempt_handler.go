package handler

import (
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"

	"github.com/assessly/assessment-api/internal/domain/repository"
	"github.com/assessly/assessment-api/internal/handler/dto"
	"github.com/assessly/assessment-api/internal/middleware"
	"github.com/assessly/assessment-api/internal/service"
)

// AttemptHandler обрабатывает запросы жизненного цикла попыток
type AttemptHandler struct {
	attemptService *service.AttemptService
	attemptRepo    repository.AttemptRepository
}

// NewAttemptHandler создает новый обработчик попыток
func NewAttemptHandler(attemptService *service.AttemptService, attemptRepo repository.AttemptRepository) *AttemptHandler {
	return &AttemptHandler{attemptService: attemptService, attemptRepo: attemptRepo}
}

// StartRequest представляет запрос на начало попытки
type StartRequest struct {
	QuestionnaireID uint `json:"questionnaire_id" binding:"required"`
}

// Start начинает новую попытку и возвращает первый шаг
func (h *AttemptHandler) Start(c *gin.Context) {
	var req StartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	session, first, err := h.attemptService.Start(middleware.UserID(c), middleware.UserRole(c), req.QuestionnaireID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"attempt": dto.NewAttemptResponse(session),
		"step":    dto.NewStepResponse(first),
	})
}

// NextStep возвращает текущий шаг попытки
func (h *AttemptHandler) NextStep(c *gin.Context) {
	sessionID := c.Param("id")

	step, err := h.attemptService.NextStep(middleware.UserID(c), middleware.UserRole(c), sessionID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewStepResponse(step))
}

// SubmitRequest представляет подачу одного ответа
type SubmitRequest struct {
	QuestionID uint     `json:"question_id"`
	Response   []string `json:"response"`
}

// Submit записывает ответ и возвращает следующий шаг либо итог
func (h *AttemptHandler) Submit(c *gin.Context) {
	sessionID := c.Param("id")

	var req SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.attemptService.SubmitAnswer(c.Request.Context(), middleware.UserID(c), sessionID, req.QuestionID, req.Response)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewSubmitResponse(result))
}

// Abandon переводит попытку в abandoned
func (h *AttemptHandler) Abandon(c *gin.Context) {
	sessionID := c.Param("id")

	if err := h.attemptService.Abandon(middleware.UserID(c), sessionID); err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Attempt abandoned"})
}

// Result возвращает итог попытки, пересчитанный из журнала
func (h *AttemptHandler) Result(c *gin.Context) {
	sessionID := c.Param("id")

	result, err := h.attemptService.Result(middleware.UserID(c), middleware.UserRole(c), sessionID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// List возвращает попытки пользователя по анкете
func (h *AttemptHandler) List(c *gin.Context) {
	userID := middleware.UserID(c)
	if v := c.Query("user_id"); v != "" {
		if id, err := strconv.ParseUint(v, 10, 32); err == nil {
			userID = uint(id)
		}
	}
	var questionnaireID uint
	if v := c.Query("questionnaire_id"); v != "" {
		if id, err := strconv.ParseUint(v, 10, 32); err == nil {
			questionnaireID = uint(id)
		}
	}

	sessions, err := h.attemptService.ListAttempts(middleware.UserID(c), middleware.UserRole(c), userID, questionnaireID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"attempts": dto.NewListAttemptResponse(sessions)})
}

// ExportXLSX выгружает попытки пользователя по анкете в Excel
func (h *AttemptHandler) ExportXLSX(c *gin.Context) {
	userID := middleware.UserID(c)
	if v := c.Query("user_id"); v != "" {
		if id, err := strconv.ParseUint(v, 10, 32); err == nil {
			userID = uint(id)
		}
	}
	var questionnaireID uint
	if v := c.Query("questionnaire_id"); v != "" {
		if id, err := strconv.ParseUint(v, 10, 32); err == nil {
			questionnaireID = uint(id)
		}
	}

	sessions, err := h.attemptService.ListAttempts(middleware.UserID(c), middleware.UserRole(c), userID, questionnaireID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Попытки"
	f.SetSheetName("Sheet1", sheetName)

	sw, err := f.NewStreamWriter(sheetName)
	if err != nil {
		log.Printf("[AttemptHandler] Ошибка создания StreamWriter: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create Excel file"})
		return
	}

	headers := []interface{}{"Попытка", "Анкета", "Номер", "Статус", "Начата", "Завершена", "Очки", "Процент", "Сдано", "Оценка деградирована"}
	if err := sw.SetRow("A1", headers); err != nil {
		log.Printf("[AttemptHandler] Ошибка записи заголовков: %v", err)
	}

	for i, s := range sessions {
		rowNum := i + 2
		cell := fmt.Sprintf("A%d", rowNum)

		completedAt := ""
		if s.CompletedAt != nil {
			completedAt = s.CompletedAt.Format("2006-01-02 15:04:05")
		}
		score := ""
		if s.FinalScore != nil {
			score = strconv.FormatFloat(*s.FinalScore, 'f', 1, 64)
		}
		percentage := ""
		if s.FinalPercentage != nil {
			percentage = strconv.FormatFloat(*s.FinalPercentage, 'f', 1, 64)
		}
		passed := ""
		if s.Passed != nil {
			passed = "Нет"
			if *s.Passed {
				passed = "Да"
			}
		}
		degraded := "Нет"
		if s.ScoreDegraded {
			degraded = "Да"
		}

		row := []interface{}{
			sanitizeForExcel(s.ID), s.QuestionnaireID, s.AttemptNumber, s.Status,
			s.StartedAt.Format("2006-01-02 15:04:05"), completedAt,
			score, percentage, passed, degraded,
		}
		if err := sw.SetRow(cell, row); err != nil {
			log.Printf("[AttemptHandler] Ошибка записи строки %d: %v", rowNum, err)
		}
	}

	if err := sw.Flush(); err != nil {
		log.Printf("[AttemptHandler] Ошибка при Flush: %v", err)
	}

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", `attachment; filename="attempts.xlsx"`)
	if err := f.Write(c.Writer); err != nil {
		log.Printf("[AttemptHandler] Ошибка записи файла в ответ: %v", err)
	}
}

// ExpireOverdue переводит все просроченные попытки в expired.
// Истечение и так фиксируется лениво; эндпоинт существует для
// внешней уборки (cron на уровне деплоймента), только для админа.
func (h *AttemptHandler) ExpireOverdue(c *gin.Context) {
	if !middleware.UserRole(c).IsAdmin() {
		c.JSON(http.StatusForbidden, gin.H{"error": "admin role required"})
		return
	}

	expired, err := h.attemptRepo.ExpireOverdue(time.Now())
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"expired": expired})
}

// sanitizeForExcel экранирует значения, которые Excel мог бы принять за формулы
func sanitizeForExcel(value string) string {
	if strings.HasPrefix(value, "=") || strings.HasPrefix(value, "+") ||
		strings.HasPrefix(value, "-") || strings.HasPrefix(value, "@") {
		return "'" + value
	}
	return value
}
