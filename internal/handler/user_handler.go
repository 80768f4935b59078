package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/firmsite/internal/metrics"
	"github.com/firmsite/internal/service"
)

type userRequest struct {
	Email    string `json:"email" form:"email"`
	Name     string `json:"name" form:"name"`
	Role     string `json:"role" form:"role"`
	Password string `json:"password" form:"password"`
}

func bindUserInput(c *gin.Context) (service.UserInput, bool) {
	var req userRequest
	if err := c.ShouldBind(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid user payload")
		return service.UserInput{}, false
	}
	return service.UserInput{Email: req.Email, Name: req.Name, Role: req.Role, Password: req.Password}, true
}

// ListUsers 返回全部后台账号，仅 admin。
func (a *API) ListUsers(c *gin.Context) {
	users, err := a.users.List(c.Request.Context(), CurrentCaller(c))
	if err != nil {
		a.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

// GetUser 返回单个账号。
func (a *API) GetUser(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的用户ID")
		return
	}
	user, err := a.users.Get(c.Request.Context(), CurrentCaller(c), id)
	if err != nil {
		a.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

// CreateUser 创建账号。
func (a *API) CreateUser(c *gin.Context) {
	input, ok := bindUserInput(c)
	if !ok {
		return
	}
	user, err := a.users.Create(c.Request.Context(), CurrentCaller(c), input)
	if err != nil {
		a.respondServiceError(c, err)
		return
	}
	metrics.RecordMutation("user", "create")
	c.JSON(http.StatusCreated, gin.H{"user": user})
}

// UpdateUser 修改名称、角色，密码留空表示不变。
func (a *API) UpdateUser(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的用户ID")
		return
	}
	input, ok := bindUserInput(c)
	if !ok {
		return
	}
	user, err := a.users.Update(c.Request.Context(), CurrentCaller(c), id, input)
	if err != nil {
		a.respondServiceError(c, err)
		return
	}
	metrics.RecordMutation("user", "update")
	c.JSON(http.StatusOK, gin.H{"user": user})
}

// DeleteUser 删除账号，不能删除自己。
func (a *API) DeleteUser(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的用户ID")
		return
	}
	user, err := a.users.Delete(c.Request.Context(), CurrentCaller(c), id)
	if err != nil {
		a.respondServiceError(c, err)
		return
	}
	metrics.RecordMutation("user", "delete")
	c.JSON(http.StatusOK, gin.H{"user": user})
}
