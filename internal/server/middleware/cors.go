package middleware

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// defaultCORSOrigin 未配置时只允许本地前端
const defaultCORSOrigin = "http://localhost:3000"

// CORS 跨域中间件，前端页面与 API 分开部署
// origins 含 "*" 时允许任意来源；不在列表中的来源返回 403。
func CORS(origins []string) gin.HandlerFunc {
	config := cors.DefaultConfig()
	switch {
	case contains(origins, "*"):
		config.AllowAllOrigins = true
	case len(origins) == 0:
		config.AllowOrigins = []string{defaultCORSOrigin}
	default:
		config.AllowOrigins = origins
	}
	config.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	config.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", RequestIDHeader}
	config.ExposeHeaders = []string{RequestIDHeader}
	config.MaxAge = 12 * time.Hour
	return cors.New(config)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
