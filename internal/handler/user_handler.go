package handler

import (
	"strconv"
	"strings"

	"user-center/internal/model"
	"user-center/internal/service"
	"user-center/internal/session"
	"user-center/pkg/errcode"
	"user-center/pkg/response"
	"user-center/pkg/validator"

	"github.com/gin-gonic/gin"
)

// 标签搜索方式
const (
	TagModeSQL    = "sql"
	TagModeMemory = "memory"
)

type UserHandler struct {
	service *service.UserService
	tagMode string
}

func NewUserHandler(s *service.UserService, tagMode string) *UserHandler {
	return &UserHandler{service: s, tagMode: tagMode}
}

// RegisterRoutes 注册用户接口，limit 作用于注册与登录
func (h *UserHandler) RegisterRoutes(rg *gin.RouterGroup, limit ...gin.HandlerFunc) {
	rg.POST("/register", chain(limit, h.Register)...)
	rg.POST("/login", chain(limit, h.Login)...)
	rg.POST("/logout", h.Logout)
	rg.GET("/current", h.Current)
	rg.GET("/search", h.SearchUsers)
	rg.GET("/search/tags", h.SearchUsersByTags)
	rg.POST("/delete", h.DeleteUser)
	rg.POST("/update", h.UpdateUser)
}

func chain(middlewares []gin.HandlerFunc, h gin.HandlerFunc) []gin.HandlerFunc {
	out := make([]gin.HandlerFunc, 0, len(middlewares)+1)
	out = append(out, middlewares...)
	return append(out, h)
}

// RegisterRequest 注册请求
type RegisterRequest struct {
	UserAccount   string `json:"userAccount"`
	UserPassword  string `json:"userPassword"`
	CheckPassword string `json:"checkPassword"`
	PlanetCode    string `json:"planetCode"`
}

// LoginRequest 登录请求
type LoginRequest struct {
	UserAccount  string `json:"userAccount"`
	UserPassword string `json:"userPassword"`
}

// UpdateUserRequest 更新请求，未出现的字段不修改
type UpdateUserRequest struct {
	ID          int64   `json:"id"`
	Username    *string `json:"username" binding:"omitempty,max=256"`
	UserAccount *string `json:"userAccount" binding:"omitempty,max=256"`
	AvatarURL   *string `json:"avatarUrl" binding:"omitempty,max=1024"`
	Gender      *int8   `json:"gender" binding:"omitempty,min=0"`
	Phone       *string `json:"phone" binding:"omitempty,max=128"`
	Email       *string `json:"email" binding:"omitempty,max=512"`
	PlanetCode  *string `json:"planetCode" binding:"omitempty,max=512"`
	Tags        *string `json:"tags" binding:"omitempty,max=1024"`
	UserRole    *int    `json:"userRole" binding:"omitempty,oneof=0 1"`
	UserStatus  *int    `json:"userStatus" binding:"omitempty,min=0"`
}

func (r *UpdateUserRequest) toUpdate() *service.UserUpdate {
	return &service.UserUpdate{
		ID:          r.ID,
		Username:    r.Username,
		UserAccount: r.UserAccount,
		AvatarURL:   r.AvatarURL,
		Gender:      r.Gender,
		Phone:       r.Phone,
		Email:       r.Email,
		PlanetCode:  r.PlanetCode,
		Tags:        r.Tags,
		UserRole:    r.UserRole,
		UserStatus:  r.UserStatus,
	}
}

func bindJSON(c *gin.Context, obj interface{}) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		response.Error(c, errcode.ParamsError, validator.FormatValidationError(err))
		return false
	}
	return true
}

// Register 用户注册
func (h *UserHandler) Register(c *gin.Context) {
	var r RegisterRequest
	if !bindJSON(c, &r) {
		return
	}
	id, err := h.service.Register(c.Request.Context(), r.UserAccount, r.UserPassword, r.CheckPassword, r.PlanetCode)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, id)
}

// Login 用户登录
func (h *UserHandler) Login(c *gin.Context) {
	var r LoginRequest
	if !bindJSON(c, &r) {
		return
	}
	user, err := h.service.Login(c.Request.Context(), session.ID(c), r.UserAccount, r.UserPassword)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, user)
}

// Logout 用户注销
func (h *UserHandler) Logout(c *gin.Context) {
	n, err := h.service.Logout(c.Request.Context(), session.ID(c))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, n)
}

// Current 获取当前登录用户
func (h *UserHandler) Current(c *gin.Context) {
	user, err := h.service.Current(c.Request.Context(), session.ID(c))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, user)
}

// requireAdmin 校验管理员权限，失败时已写入响应
func (h *UserHandler) requireAdmin(c *gin.Context) bool {
	if _, err := h.service.RequireAdmin(c.Request.Context(), session.ID(c)); err != nil {
		response.FromError(c, err)
		return false
	}
	return true
}

// SearchUsers 按用户名搜索（仅管理员）
func (h *UserHandler) SearchUsers(c *gin.Context) {
	if !h.requireAdmin(c) {
		return
	}
	users, err := h.service.SearchUsers(c.Request.Context(), c.Query("username"))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, users)
}

// SearchUsersByTags 按标签搜索，支持 tagNameList 多值或逗号分隔
func (h *UserHandler) SearchUsersByTags(c *gin.Context) {
	var tags []string
	for _, v := range c.QueryArray("tagNameList") {
		tags = append(tags, strings.Split(v, ",")...)
	}

	var (
		users []*model.SafetyUser
		err   error
	)
	if h.tagMode == TagModeMemory {
		users, err = h.service.SearchUsersByTagsInMemory(c.Request.Context(), tags)
	} else {
		users, err = h.service.SearchUsersByTags(c.Request.Context(), tags)
	}
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, users)
}

// DeleteUser 删除用户（仅管理员），请求体为用户ID
func (h *UserHandler) DeleteUser(c *gin.Context) {
	if !h.requireAdmin(c) {
		return
	}
	body, err := c.GetRawData()
	if err != nil {
		response.FromError(c, err)
		return
	}
	id, err := strconv.ParseInt(strings.TrimSpace(string(body)), 10, 64)
	if err != nil {
		response.Error(c, errcode.ParamsError, "用户ID非法")
		return
	}
	ok, err := h.service.DeleteUser(c.Request.Context(), id)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, ok)
}

// UpdateUser 更新用户信息（本人或管理员）
func (h *UserHandler) UpdateUser(c *gin.Context) {
	var r UpdateUserRequest
	if !bindJSON(c, &r) {
		return
	}
	state, err := h.service.RefreshLoginUser(c.Request.Context(), session.ID(c))
	if err != nil {
		response.FromError(c, err)
		return
	}
	rows, err := h.service.UpdateUser(c.Request.Context(), r.toUpdate(), state)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, rows)
}
