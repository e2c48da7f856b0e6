package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	. "github.com/smartystreets/goconvey/convey"
)

func newEngine(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.Use(handlers...)
	engine.GET("/api/v1/generations/:id", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"id": c.Param("id")})
	})
	engine.GET("/panic", func(c *gin.Context) { panic("boom") })
	return engine
}

func TestMiddleware(t *testing.T) {
	Convey("中间件", t, func() {
		var buf bytes.Buffer
		original := log.Logger
		log.Logger = zerolog.New(&buf)
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
		Reset(func() { log.Logger = original })

		engine := newEngine(Recovery(), RequestID(), Logger(), CORS([]string{"http://studio.test"}))

		Convey("访问日志带上路由模板、创作ID与请求ID", func() {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/generations/g-1", nil)
			req.Header.Set(RequestIDHeader, "rid-1")
			w := httptest.NewRecorder()
			engine.ServeHTTP(w, req)

			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Header().Get(RequestIDHeader), ShouldEqual, "rid-1")
			out := buf.String()
			So(out, ShouldContainSubstring, `"route":"/api/v1/generations/:id"`)
			So(out, ShouldContainSubstring, `"generation_id":"g-1"`)
			So(out, ShouldContainSubstring, `"request_id":"rid-1"`)
		})

		Convey("panic 返回 500 与统一错误体", func() {
			w := httptest.NewRecorder()
			engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))
			So(w.Code, ShouldEqual, http.StatusInternalServerError)
			So(w.Body.String(), ShouldContainSubstring, `"code":50001`)
			So(buf.String(), ShouldContainSubstring, "panic recovered")
		})

		Convey("未传请求ID时生成一个", func() {
			w := httptest.NewRecorder()
			engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/generations/g-2", nil))
			So(w.Header().Get(RequestIDHeader), ShouldNotBeEmpty)
		})
	})
}
