package api

import (
	"encoding/base64"
	"net/http"

	"github.com/evrental/evrental/internal/user"
	"github.com/gin-gonic/gin"
)

// AuthHandler 注册 / 登录。
type AuthHandler struct {
	users *user.Service
}

func NewAuthHandler(users *user.Service) *AuthHandler {
	return &AuthHandler{users: users}
}

type registerRequest struct {
	Name       string `json:"name" binding:"required"`
	Email      string `json:"email" binding:"required"`
	Phone      string `json:"phone"`
	Address    string `json:"address"`
	Password   string `json:"password" binding:"required"`
	PersonalID string `json:"personal_id"` // base64 证件照片，可选
	License    string `json:"license"`     // base64 驾照照片，可选
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	in := user.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Phone:    req.Phone,
		Address:  req.Address,
		Password: req.Password,
	}
	if req.PersonalID != "" {
		data, err := base64.StdEncoding.DecodeString(req.PersonalID)
		if err != nil {
			respondBadRequest(c, err)
			return
		}
		in.PersonalID = data
	}
	if req.License != "" {
		data, err := base64.StdEncoding.DecodeString(req.License)
		if err != nil {
			respondBadRequest(c, err)
			return
		}
		in.License = data
	}

	u, err := h.users.Register(c.Request.Context(), in)
	if err != nil {
		respondErr(c, err)
		return
	}
	respond(c, http.StatusCreated, u.Sanitized())
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	result, err := h.users.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondErr(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{
		"token":      result.Token,
		"expires_at": result.ExpiresAt,
		"user":       result.User,
	})
}
