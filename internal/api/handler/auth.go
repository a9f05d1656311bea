package handler

import (
	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"github.com/qs3c/resv_go_server/config"
	"github.com/qs3c/resv_go_server/internal/model/dto"
	"github.com/qs3c/resv_go_server/internal/pkg/jwt"
	"github.com/qs3c/resv_go_server/internal/pkg/response"
)

// AuthHandler 管理后台登录。凭证来自配置（bcrypt 哈希），
// 没有注册流程，后台是单管理员系统。
type AuthHandler struct {
	cfg *config.Config
}

func NewAuthHandler(cfg *config.Config) *AuthHandler {
	return &AuthHandler{cfg: cfg}
}

// Login 管理后台登录
// POST /api/v1/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	dash := h.cfg.Bot.Dashboard
	if req.Username != dash.Username ||
		bcrypt.CompareHashAndPassword([]byte(dash.PasswordHash), []byte(req.Password)) != nil {
		response.AuthError(c, "用户名或密码错误")
		return
	}

	token, err := jwt.GenerateToken(h.adminID(), h.cfg.JWT.Secret, h.cfg.JWT.ExpireHours)
	if err != nil {
		response.ServerError(c, "")
		return
	}

	response.Success(c, &dto.LoginResponse{Token: token})
}

func (h *AuthHandler) adminID() int64 {
	if h.cfg.Bot.OwnerChatID != 0 {
		return h.cfg.Bot.OwnerChatID
	}
	return 1
}
