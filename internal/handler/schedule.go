package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"meettrack/internal/model"
)

// ListSchedules returns all persisted schedule definitions.
func (h *Handler) ListSchedules(c *gin.Context) {
	defs, err := h.schedules.List(c.Request.Context())
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"schedules": defs})
}

type createScheduleRequest struct {
	Division   string     `json:"division" binding:"required"`
	Day        string     `json:"day" binding:"required"`
	Hour       *int       `json:"hour" binding:"required"`
	Minute     *int       `json:"minute" binding:"required"`
	IsJustOnce bool       `json:"isJustOnce"`
	DateEnd    *time.Time `json:"dateEnd"`
}

// CreateSchedule persists a schedule definition and starts its background
// task (admin only).
func (h *Handler) CreateSchedule(c *gin.Context) {
	var req createScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Invalid inputs passed, please check your data"})
		return
	}
	def, err := h.schedules.Create(c.Request.Context(), model.Schedule{
		Division:   req.Division,
		Day:        req.Day,
		Hour:       *req.Hour,
		Minute:     *req.Minute,
		IsJustOnce: req.IsJustOnce,
		DateEnd:    req.DateEnd,
	})
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Schedule created!", "schedule": def})
}

// DeleteSchedule stops a schedule's task and removes its definition (admin
// only). Once this returns the schedule can never fire again.
func (h *Handler) DeleteSchedule(c *gin.Context) {
	if err := h.schedules.Delete(c.Request.Context(), c.Param("sid")); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Schedule deleted"})
}
