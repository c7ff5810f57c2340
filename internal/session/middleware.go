package session

import (
	"net/http"
	"strings"

	"user-center/config"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ContextSessionIDKey 会话ID在gin.Context中的键名
const ContextSessionIDKey = "session_id"

// Middleware 会话中间件
// 从Cookie读取会话ID，缺失或格式非法时生成新ID并下发Cookie
func Middleware(cfg config.SessionConfig) gin.HandlerFunc {
	name := cfg.CookieName
	if name == "" {
		name = "SESSION"
	}
	sameSite := parseSameSite(cfg.SameSite)

	return func(c *gin.Context) {
		id, err := c.Cookie(name)
		if err != nil || uuid.Validate(id) != nil {
			id = uuid.NewString()
			http.SetCookie(c.Writer, &http.Cookie{
				Name:     name,
				Value:    id,
				Path:     "/",
				HttpOnly: true,
				Secure:   cfg.Secure,
				SameSite: sameSite,
			})
		}
		c.Set(ContextSessionIDKey, id)
		c.Next()
	}
}

// ID 从gin.Context中获取会话ID
func ID(c *gin.Context) string {
	if v, exists := c.Get(ContextSessionIDKey); exists {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}

func parseSameSite(s string) http.SameSite {
	switch strings.ToLower(s) {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	case "lax":
		return http.SameSiteLaxMode
	default:
		return http.SameSiteDefaultMode
	}
}
