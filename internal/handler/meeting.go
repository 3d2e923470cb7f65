package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"meettrack/internal/meeting"
	"meettrack/internal/model"
)

// ListMeetings returns every meeting, newest first.
func (h *Handler) ListMeetings(c *gin.Context) {
	meetings, err := h.meetings.List(c.Request.Context())
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"meetings": meetings})
}

// GetMeeting returns one meeting by id.
func (h *Handler) GetMeeting(c *gin.Context) {
	m, err := h.meetings.Get(c.Request.Context(), c.Param("mid"))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"meeting": m})
}

type createMeetingRequest struct {
	Title    string    `json:"title"`
	Division string    `json:"division" binding:"required"`
	Date     time.Time `json:"date" binding:"required"`
}

// CreateMeeting creates a meeting (admin only).
func (h *Handler) CreateMeeting(c *gin.Context) {
	var req createMeetingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Invalid inputs passed, please check your data"})
		return
	}
	m, err := h.meetings.Create(c.Request.Context(), model.Meeting{
		Title:    req.Title,
		Division: req.Division,
		Date:     req.Date,
	})
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Meeting created successfully!", "meeting": m})
}

type updateMeetingRequest struct {
	Title string     `json:"title"`
	Date  *time.Time `json:"date"`
}

// UpdateMeeting patches a meeting's title and/or date (admin only).
func (h *Handler) UpdateMeeting(c *gin.Context) {
	var req updateMeetingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Invalid inputs passed, please check your data"})
		return
	}
	m, err := h.meetings.Update(c.Request.Context(), c.Param("mid"), meeting.UpdateInput{
		Title: req.Title,
		Date:  req.Date,
	})
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"meeting": m})
}

// DeleteMeeting removes a meeting and its attendance records (admin only).
func (h *Handler) DeleteMeeting(c *gin.Context) {
	if err := h.meetings.Delete(c.Request.Context(), c.Param("mid")); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Meeting deleted"})
}
