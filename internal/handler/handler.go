// Package handler translates HTTP requests into service calls and service
// errors into status codes. Wire formats live here and nowhere else.
package handler

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"meettrack/internal/apperr"
	"meettrack/internal/avatar"
	"meettrack/internal/meeting"
	"meettrack/internal/member"
	"meettrack/internal/schedule"
)

// Handler carries the services behind the HTTP surface.
type Handler struct {
	members   *member.Service
	meetings  *meeting.Service
	schedules *schedule.Registry
	avatars   *avatar.Client // nil when Cloudinary is not configured
}

// New creates a handler.
func New(members *member.Service, meetings *meeting.Service, schedules *schedule.Registry, avatars *avatar.Client) *Handler {
	return &Handler{members: members, meetings: meetings, schedules: schedules, avatars: avatars}
}

// avatarReadCap bounds how much of an upload is read; one byte past the
// limit is enough for the client to reject oversized files.
const avatarReadCap = avatar.MaxBytes + 1

func errAuth() error { return apperr.Auth() }

// respondErr maps an error's kind to a status code and writes the payload.
func respondErr(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch apperr.KindOf(err) {
	case apperr.KindNotFound:
		status = http.StatusNotFound
	case apperr.KindConflict, apperr.KindInvalid:
		status = http.StatusUnprocessableEntity
	case apperr.KindAuth:
		status = http.StatusUnauthorized
	}
	if status == http.StatusInternalServerError {
		log.Printf("internal error: %v", err)
	}
	c.JSON(status, gin.H{"error": apperr.Message(err)})
}
