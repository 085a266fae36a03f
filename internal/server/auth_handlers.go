package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"chat-client/internal/observability"
	"chat-client/internal/telemetry"
)

// handleRegister creates an account and issues a token for it. The
// token lets the client write its profile document before the first
// sign-in; opening a session stays the client's explicit step.
func (s *Server) handleRegister(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required,min=6"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	hash, err := HashPassword(req.Password)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not process password"})
		return
	}

	uid, err := s.accounts.Create(c.Request.Context(), req.Email, hash)
	if errors.Is(err, ErrEmailTaken) {
		s.audit.Emit(c.Request.Context(), "", telemetry.AuditPayload{Action: "register", Outcome: "email_taken"})
		c.JSON(http.StatusConflict, gin.H{"error": "email already registered"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create account"})
		return
	}

	token, err := s.tokens.Issue(uid)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not issue token"})
		return
	}

	s.audit.Emit(c.Request.Context(), uid, telemetry.AuditPayload{Action: "register", Outcome: "ok"})
	c.JSON(http.StatusCreated, gin.H{"uid": uid, "token": token})
}

func (s *Server) handleLogin(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	acct, err := s.accounts.ByEmail(c.Request.Context(), req.Email)
	if errors.Is(err, ErrAccountNotFound) || (err == nil && !VerifyPassword(req.Password, acct.PasswordHash)) {
		observability.IncAuthFailure()
		s.audit.Emit(c.Request.Context(), "", telemetry.AuditPayload{Action: "login", Outcome: "rejected"})
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid email or password"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load account"})
		return
	}

	token, err := s.tokens.Issue(acct.UID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not issue token"})
		return
	}

	s.audit.Emit(c.Request.Context(), acct.UID, telemetry.AuditPayload{Action: "login", Outcome: "ok"})
	c.JSON(http.StatusOK, gin.H{"uid": acct.UID, "token": token})
}

func (s *Server) handleUpdateProfile(c *gin.Context) {
	uid := c.GetString("uid")

	var req struct {
		DisplayName string `json:"display_name"`
		PhotoURL    string `json:"photo_url"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err := s.accounts.UpdateProfile(c.Request.Context(), uid, req.DisplayName, req.PhotoURL)
	if errors.Is(err, ErrAccountNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "account not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not update profile"})
		return
	}

	c.Status(http.StatusNoContent)
}
