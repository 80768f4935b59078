package handler

import (
	"net/http"
	"strings"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/firmsite/internal/authz"
	"github.com/firmsite/internal/logging"
	"github.com/firmsite/internal/service"
)

const (
	sessionUserKey   = "user_id"
	callerContextKey = "__caller"
)

type loginPayload struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

// Login 校验邮箱与密码后写入会话，表单与 JSON 均可。
func (a *API) Login(c *gin.Context) {
	var payload loginPayload
	if err := c.ShouldBind(&payload); err != nil {
		respondError(c, http.StatusBadRequest, "invalid login payload")
		return
	}
	if strings.TrimSpace(payload.Email) == "" || payload.Password == "" {
		respondError(c, http.StatusBadRequest, "email and password are required")
		return
	}

	user, err := a.auth.SignIn(c.Request.Context(), payload.Email, payload.Password)
	if err != nil {
		a.respondServiceError(c, err)
		return
	}

	session := sessions.Default(c)
	session.Clear()
	session.Set(sessionUserKey, user.ID)
	if err := session.Save(); err != nil {
		a.log.Error("save session", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "会话保存失败")
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": user})
}

// Logout 清除会话。
func (a *API) Logout(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	session.Options(sessions.Options{Path: "/", MaxAge: -1})
	if err := session.Save(); err != nil {
		a.log.Warn("clear session", zap.Error(err))
	}
	c.JSON(http.StatusOK, gin.H{"message": "signed out"})
}

// Me 返回当前登录的账号。
func (a *API) Me(c *gin.Context) {
	caller := CurrentCaller(c)
	if caller == nil {
		respondError(c, http.StatusUnauthorized, "Unauthorized")
		return
	}
	user, err := a.auth.CurrentUser(c.Request.Context(), caller.ID)
	if err != nil {
		a.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

// LoadCaller 每个请求都根据会话重新加载账号，角色变更与删除立即生效。
func (a *API) LoadCaller() gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		id, ok := sessionUserID(session.Get(sessionUserKey))
		if !ok {
			c.Next()
			return
		}

		user, err := a.auth.CurrentUser(c.Request.Context(), id)
		if err != nil {
			a.respondServiceError(c, err)
			c.Abort()
			return
		}
		if user == nil {
			session.Clear()
			_ = session.Save()
			c.Next()
			return
		}

		c.Set(callerContextKey, service.CallerFor(user))
		c.Set(logging.UserIDKey, user.ID)
		c.Next()
	}
}

// AuthRequired 拒绝没有有效会话的请求。
func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if CurrentCaller(c) == nil {
			respondError(c, http.StatusUnauthorized, "Unauthorized")
			c.Abort()
			return
		}
		c.Next()
	}
}

// CurrentCaller 返回 LoadCaller 解析出的调用者，未登录时为 nil。
func CurrentCaller(c *gin.Context) *authz.Caller {
	value, ok := c.Get(callerContextKey)
	if !ok {
		return nil
	}
	caller, _ := value.(*authz.Caller)
	return caller
}

func sessionUserID(value interface{}) (uint, bool) {
	switch v := value.(type) {
	case uint:
		return v, v != 0
	case int:
		return uint(v), v > 0
	case int64:
		return uint(v), v > 0
	case uint64:
		return uint(v), v != 0
	default:
		return 0, false
	}
}
