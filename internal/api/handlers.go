package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"reminderd/internal/repository"
	"reminderd/internal/rrule"
	"reminderd/internal/service"
)

// Service is the slice of the reminder service the handlers need.
type Service interface {
	CreateReminder(ctx context.Context, req service.CreateRequest) (string, error)
	DeleteReminder(ctx context.Context, agentID, description string, id *int) (string, error)
	ListReminders(ctx context.Context, agentID string, page int) (*service.ListResult, error)
}

type handlers struct {
	svc Service
}

type createRequest struct {
	AgentID        string `json:"agentId" binding:"required"`
	Description    string `json:"description"`
	RecurrenceRule string `json:"recurrenceRule"`
	Timestamp      string `json:"timestamp"`
	DelayMinutes   *int   `json:"delayMinutes"`
}

func (h *handlers) createReminder(c *gin.Context) {
	var req createRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		// Only a validation error means the agentId field itself was
		// missing; anything else is a body gin could not decode.
		var verr validator.ValidationErrors
		if errors.As(err, &verr) {
			c.JSON(http.StatusBadRequest, gin.H{"message": "agentId is required."})
		} else {
			c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request body."})
		}
		return
	}

	msg, err := h.svc.CreateReminder(c.Request.Context(), service.CreateRequest{
		AgentID:        req.AgentID,
		Description:    req.Description,
		RecurrenceRule: req.RecurrenceRule,
		Timestamp:      req.Timestamp,
		DelayMinutes:   req.DelayMinutes,
	})
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicateDescription):
			c.JSON(http.StatusConflict, gin.H{"message": "A reminder with this description already exists."})
		case errors.Is(err, rrule.ErrInvalidSchedule):
			c.JSON(http.StatusBadRequest, gin.H{"message": "A recurrence rule, timestamp, or delay is required to schedule a reminder."})
		case errors.Is(err, service.ErrEmptyDescription):
			c.JSON(http.StatusBadRequest, gin.H{"message": "A description is required."})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"message": "An error occurred while creating the reminder."})
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": msg})
}

func (h *handlers) deleteReminderByID(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid reminder id."})
		return
	}
	h.deleteReminder(c, c.Query("agentId"), "", &id)
}

func (h *handlers) deleteReminderByDescription(c *gin.Context) {
	h.deleteReminder(c, c.Query("agentId"), c.Query("description"), nil)
}

func (h *handlers) deleteReminder(c *gin.Context, agentID, description string, id *int) {
	msg, err := h.svc.DeleteReminder(c.Request.Context(), agentID, description, id)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"message": "Reminder not found."})
		case errors.Is(err, service.ErrMissingSelector):
			c.JSON(http.StatusBadRequest, gin.H{"message": "A reminder id or description is required."})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"message": "An error occurred while deleting the reminder."})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": msg})
}

func (h *handlers) listReminders(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "0"))

	result, err := h.svc.ListReminders(c.Request.Context(), c.Query("agentId"), page)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "An error occurred while listing the reminders."})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":   result.String(),
		"reminders": result.Reminders,
		"pagination": gin.H{
			"total":      result.Total,
			"page":       result.Page,
			"totalPages": result.TotalPages,
		},
	})
}
