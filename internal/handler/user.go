package handler

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"meettrack/internal/auth"
	"meettrack/internal/member"
)

type signupRequest struct {
	Name        string     `json:"name" binding:"required"`
	Email       string     `json:"email" binding:"required,email"`
	Password    string     `json:"password" binding:"required,min=8"`
	Position    string     `json:"position" binding:"required"`
	Division    string     `json:"division"`
	Generation  int        `json:"generation" binding:"required"`
	Role        string     `json:"role"`
	DateOfBirth *time.Time `json:"dateOfBirth"`
}

// Signup registers a user and returns a session token.
func (h *Handler) Signup(c *gin.Context) {
	var req signupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Invalid inputs passed, please check your data"})
		return
	}
	user, sess, err := h.members.Signup(c.Request.Context(), member.SignupInput{
		Name:        req.Name,
		Email:       req.Email,
		Password:    req.Password,
		Position:    req.Position,
		Division:    req.Division,
		Generation:  req.Generation,
		Role:        req.Role,
		DateOfBirth: req.DateOfBirth,
	})
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message": "User created!",
		"userId":  user.ID,
		"email":   sess.Email,
		"token":   sess.Token,
		"isAdmin": sess.IsAdmin,
	})
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login checks credentials and returns a session token.
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Invalid inputs passed, please check your data"})
		return
	}
	sess, err := h.members.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message": "Logged In!",
		"userId":  sess.UserID,
		"email":   sess.Email,
		"token":   sess.Token,
		"isAdmin": sess.IsAdmin,
	})
}

// ListUsers returns every user.
func (h *Handler) ListUsers(c *gin.Context) {
	users, err := h.members.List(c.Request.Context())
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

// GetUser returns one user by id.
func (h *Handler) GetUser(c *gin.Context) {
	user, err := h.members.Get(c.Request.Context(), c.Param("uid"))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

type profileRequest struct {
	Name        string     `json:"name"`
	Email       string     `json:"email"`
	Position    string     `json:"position"`
	Generation  int        `json:"generation"`
	DateOfBirth *time.Time `json:"dateOfBirth"`
}

// UpdateMe patches the authenticated user's profile.
func (h *Handler) UpdateMe(c *gin.Context) {
	claims, ok := auth.FromContext(c)
	if !ok {
		respondErr(c, errAuth())
		return
	}
	var req profileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Invalid inputs passed, please check your data"})
		return
	}
	user, err := h.members.UpdateProfile(c.Request.Context(), claims.UserID, member.ProfileInput{
		Name:        req.Name,
		Email:       req.Email,
		Position:    req.Position,
		Generation:  req.Generation,
		DateOfBirth: req.DateOfBirth,
	})
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

type passwordRequest struct {
	OldPassword        string `json:"oldPassword" binding:"required"`
	NewPassword        string `json:"newPassword" binding:"required"`
	ConfirmNewPassword string `json:"confirmNewPassword" binding:"required"`
}

// UpdatePassword changes the authenticated user's password.
func (h *Handler) UpdatePassword(c *gin.Context) {
	claims, ok := auth.FromContext(c)
	if !ok {
		respondErr(c, errAuth())
		return
	}
	var req passwordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Invalid inputs passed, please check your data"})
		return
	}
	if err := h.members.UpdatePassword(c.Request.Context(), claims.UserID, req.OldPassword, req.NewPassword, req.ConfirmNewPassword); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Password updated successfully"})
}

// DeleteMe removes the authenticated user's account.
func (h *Handler) DeleteMe(c *gin.Context) {
	claims, ok := auth.FromContext(c)
	if !ok {
		respondErr(c, errAuth())
		return
	}
	if err := h.members.Delete(c.Request.Context(), claims.UserID); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "User deleted"})
}

// MeetingsAttended returns a user's attendance history.
func (h *Handler) MeetingsAttended(c *gin.Context) {
	uid := c.Param("uid")
	user, err := h.members.Get(c.Request.Context(), uid)
	if err != nil {
		respondErr(c, err)
		return
	}
	recs, err := h.members.MeetingsAttended(c.Request.Context(), uid)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"userMeetings": recs, "user": user})
}

type attendRequest struct {
	AttendedAt *time.Time `json:"attendedAt"`
}

// Attend records attendance for the authenticated identity against the
// latest meeting. The arrival time defaults to now.
func (h *Handler) Attend(c *gin.Context) {
	claims, ok := auth.FromContext(c)
	if !ok {
		respondErr(c, errAuth())
		return
	}
	var req attendRequest
	if err := c.ShouldBindJSON(&req); err != nil && err != io.EOF {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Invalid inputs passed, please check your data"})
		return
	}
	arrival := time.Now()
	if req.AttendedAt != nil {
		arrival = *req.AttendedAt
	}
	rec, err := h.meetings.RecordAttendance(c.Request.Context(), claims.UserID, arrival)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "User attended meeting", "attendance": rec})
}

// UploadAvatar stores a profile image and saves its URL on the caller.
func (h *Handler) UploadAvatar(c *gin.Context) {
	if h.avatars == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Image storage not configured"})
		return
	}
	claims, ok := auth.FromContext(c)
	if !ok {
		respondErr(c, errAuth())
		return
	}
	file, header, err := c.Request.FormFile("image")
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "image file is required"})
		return
	}
	defer file.Close()
	data, err := io.ReadAll(io.LimitReader(file, avatarReadCap))
	if err != nil {
		respondErr(c, err)
		return
	}

	result, err := h.avatars.Upload(data, header.Filename)
	if err != nil {
		respondErr(c, err)
		return
	}
	user, err := h.members.UpdateProfile(c.Request.Context(), claims.UserID, member.ProfileInput{AvatarURL: result.SecureURL})
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": result.SecureURL, "user": user})
}
