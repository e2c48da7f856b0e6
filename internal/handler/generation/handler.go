// Package generation 创作流水线的 HTTP 接口
package generation

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	httputil "reel/internal/pkg/http"
	"reel/internal/service/pipeline"
)

// ErrorResponse 错误响应类型别名（使用共用的 http.ErrorResponse）
type ErrorResponse = httputil.ErrorResponse

// Handler 创作模块处理器
type Handler struct {
	svc *pipeline.Service
}

// NewHandler 创建创作模块处理器
func NewHandler(svc *pipeline.Service) *Handler {
	return &Handler{svc: svc}
}

// Register 注册路由
func (h *Handler) Register(rg *gin.RouterGroup) {
	g := rg.Group("/generations")
	g.POST("", h.Create)
	g.GET("", h.List)
	g.GET("/:id", h.Get)
	g.DELETE("/:id", h.Delete)

	g.POST("/:id/idea", h.SubmitIdea)
	g.POST("/:id/story/regenerate", h.RegenerateStory)
	g.POST("/:id/story/beats/:n/refine", h.RefineBeat)
	g.PUT("/:id/story/selected-beat", h.SelectBeat)
	g.POST("/:id/story/approve", h.ApproveStory)

	g.POST("/:id/protagonist/generate", h.GenerateProtagonist)
	g.POST("/:id/protagonist/lock", h.LockProtagonist)
	g.POST("/:id/protagonist/change", h.ChangeProtagonist)

	g.POST("/:id/slots/:slot/generate", h.GenerateSlot)
	g.POST("/:id/slots/:slot/retry", h.RetrySlot)
	g.POST("/:id/slots/:slot/refine", h.RefineSlot)
	g.POST("/:id/slots/:slot/approve", h.ApproveSlot)
	g.PUT("/:id/slots/:slot/feedback", h.SetSlotFeedback)

	g.POST("/:id/key-moment", h.ContinueToKeyMoment)
	g.POST("/:id/key-moment/refine", h.RefineKeyMoment)
	g.POST("/:id/key-moment/retry", h.RetryKeyMoment)

	g.POST("/:id/film", h.StartFilm)
	g.POST("/:id/film/shots/:n/regenerate", h.RegenerateShot)
	g.POST("/:id/retry", h.Retry)
	g.POST("/:id/back", h.GoBack)
	g.POST("/:id/start-over", h.StartOver)
	g.POST("/:id/close", h.Close)
}

// generationURI 路径参数
type generationURI struct {
	ID string `uri:"id" binding:"required"` // 创作ID
}

// slotURI 槽位路径参数，setting 或角色ID
type slotURI struct {
	ID   string `uri:"id" binding:"required"`
	Slot string `uri:"slot" binding:"required"`
}

// beatURI 节拍或镜头路径参数
type beatURI struct {
	ID string `uri:"id" binding:"required"`
	N  int    `uri:"n" binding:"required,min=1"`
}

// FeedbackRequest 反馈请求
type FeedbackRequest struct {
	Feedback string `json:"feedback"` // 修改意见（可选）
}

// ok 写入成功响应
func ok(c *gin.Context, status int, data interface{}) {
	c.JSON(status, httputil.NewSuccessResponse("success", data))
}

// badRequest 参数绑定失败
func badRequest(c *gin.Context, message string, err error) {
	c.JSON(http.StatusBadRequest, httputil.NewErrorResponse(httputil.CodeValidation, message, err.Error()))
}

// fail 按错误类型写入错误响应
func fail(c *gin.Context, err error) {
	status, code, message := http.StatusInternalServerError, httputil.CodeInternal, "internal error"
	switch {
	case errors.Is(err, pipeline.ErrNotFound):
		status, code, message = http.StatusNotFound, httputil.CodeNotFound, "generation not found"
	case errors.Is(err, pipeline.ErrValidation):
		status, code, message = http.StatusBadRequest, httputil.CodeValidation, "validation failed"
	case errors.Is(err, pipeline.ErrConfirmationRequired):
		status, code, message = http.StatusBadRequest, httputil.CodeValidation, "confirmation required"
	case errors.Is(err, pipeline.ErrInvalidState):
		status, code, message = http.StatusConflict, httputil.CodeInvalidState, "operation not allowed in current state"
	default:
		log.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
	}
	c.JSON(status, httputil.NewErrorResponse(code, message, err.Error()))
}

// bindOptionalJSON 允许空请求体
func bindOptionalJSON(c *gin.Context, obj interface{}) error {
	if c.Request.Body == nil || c.Request.ContentLength == 0 {
		return nil
	}
	if err := c.ShouldBindJSON(obj); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// withController 取出控制器，执行操作并返回最新快照
func (h *Handler) withController(c *gin.Context, id string, op func(ctl *pipeline.Controller) error) {
	ctl, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	if err := op(ctl); err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, ctl.Snapshot())
}

// generationAction 只需要创作ID的操作
func (h *Handler) generationAction(c *gin.Context, op func(ctl *pipeline.Controller) error) {
	var uri generationURI
	if err := c.ShouldBindUri(&uri); err != nil {
		badRequest(c, "Invalid generation id", err)
		return
	}
	h.withController(c, uri.ID, op)
}

// feedbackAction 需要创作ID与可选反馈的操作
func (h *Handler) feedbackAction(c *gin.Context, op func(ctl *pipeline.Controller, feedback string) error) {
	var uri generationURI
	if err := c.ShouldBindUri(&uri); err != nil {
		badRequest(c, "Invalid generation id", err)
		return
	}
	var req FeedbackRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}
	h.withController(c, uri.ID, func(ctl *pipeline.Controller) error {
		return op(ctl, req.Feedback)
	})
}
