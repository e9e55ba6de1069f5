package rest

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nightout-app/server/cache"
	"github.com/nightout-app/server/config"
	mw "github.com/nightout-app/server/middleware"
	"github.com/nightout-app/server/model"
	"github.com/nightout-app/server/profile"
)

// AuthHandler handles sign-up, sign-in and session endpoints.
type AuthHandler struct {
	profiles *profile.Service
	cache    cache.Cache
	sec      config.SecurityConfig
}

// NewAuthHandler creates an AuthHandler.
func NewAuthHandler(profiles *profile.Service, c cache.Cache, sec config.SecurityConfig) *AuthHandler {
	return &AuthHandler{profiles: profiles, cache: c, sec: sec}
}

type signupRequest struct {
	Username string `json:"username" binding:"required,min=3,max=32"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8,max=64"`
}

// Signup handles POST /api/auth/signup.
func (h *AuthHandler) Signup(c *gin.Context) {
	var req signupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	p, err := h.profiles.Register(c.Request.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		respondErr(c, err)
		return
	}
	h.issueSession(c, p)
}

type signinRequest struct {
	Login    string `json:"login" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Signin handles POST /api/auth/signin.
func (h *AuthHandler) Signin(c *gin.Context) {
	var req signinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	p, err := h.profiles.Authenticate(c.Request.Context(), req.Login, req.Password)
	if err != nil {
		respondErr(c, err)
		return
	}
	h.issueSession(c, p)
}

type magicLinkRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// MagicLink handles POST /api/auth/magic-link. The response is the same
// whether or not the email exists, so it never leaks account presence.
func (h *AuthHandler) MagicLink(c *gin.Context) {
	var req magicLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	// TODO: deliver the token by email once an outbound mail provider is wired.
	_, _ = h.profiles.IssueMagicLink(c.Request.Context(), req.Email)
	c.JSON(http.StatusOK, gin.H{"message": "if that email exists, a link was sent"})
}

type magicRedeemRequest struct {
	Token string `json:"token" binding:"required"`
}

// MagicRedeem handles POST /api/auth/magic-redeem.
func (h *AuthHandler) MagicRedeem(c *gin.Context) {
	var req magicRedeemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	p, err := h.profiles.RedeemMagicLink(c.Request.Context(), req.Token)
	if err != nil {
		respondErr(c, err)
		return
	}
	h.issueSession(c, p)
}

// Guest handles POST /api/auth/guest: a browse-only token with no session
// row. Guests can read public content; every write endpoint rejects them.
func (h *AuthHandler) Guest(c *gin.Context) {
	token, err := mw.GenerateGuestToken(h.sec.JWTSecret, h.sec.JWTTTLH)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "guest": true})
}

// Signout handles POST /api/auth/signout.
func (h *AuthHandler) Signout(c *gin.Context) {
	header := c.GetHeader("Authorization")
	tokenStr := strings.TrimPrefix(header, "Bearer ")
	if tokenStr == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing token"})
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	_ = h.cache.Del(ctx, "session:"+tokenStr)
	c.JSON(http.StatusOK, gin.H{"message": "signed out"})
}

// Refresh handles POST /api/auth/refresh: rotates the token, revoking the
// old session.
func (h *AuthHandler) Refresh(c *gin.Context) {
	profileID := mw.GetProfileID(c)
	if profileID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	header := c.GetHeader("Authorization")
	oldToken := strings.TrimPrefix(header, "Bearer ")
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	_ = h.cache.Del(ctx, "session:"+oldToken)

	newToken, err := mw.GenerateToken(profileID, h.sec.JWTSecret, h.sec.JWTTTLH)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token error"})
		return
	}
	_ = h.cache.Set(ctx, "session:"+newToken, strconv.FormatInt(profileID, 10), h.sec.JWTTTLH)
	c.JSON(http.StatusOK, gin.H{"token": newToken})
}

func (h *AuthHandler) issueSession(c *gin.Context, p *model.Profile) {
	token, err := mw.GenerateToken(p.ID, h.sec.JWTSecret, h.sec.JWTTTLH)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token error"})
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	_ = h.cache.Set(ctx, "session:"+token, strconv.FormatInt(p.ID, 10), h.sec.JWTTTLH)
	c.JSON(http.StatusOK, gin.H{
		"token":   token,
		"profile": p,
	})
}
