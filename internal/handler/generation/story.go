package generation

import (
	"github.com/gin-gonic/gin"

	model "reel/internal/model/generation"
	"reel/internal/service/pipeline"
)

// SubmitIdeaRequest 提交创意
type SubmitIdeaRequest struct {
	Idea     string         `json:"idea" binding:"required"` // 故事创意
	Style    model.Style    `json:"style"`                   // 画面风格
	Duration model.Duration `json:"duration"`                // 时长：1、2、3 分钟
}

// SelectBeatRequest 选中节拍
type SelectBeatRequest struct {
	BeatNumber int `json:"beat_number" binding:"required,min=1"` // 节拍编号
}

// SubmitIdea 提交创意并生成故事
// @Summary      提交创意
// @Description  清空当前进度并异步生成故事，旧素材会被删除
// @Tags         故事
// @Accept       json
// @Produce      json
// @Param        id       path      string             true  "创作ID"
// @Param        request  body      SubmitIdeaRequest  true  "创意、风格与时长"
// @Success      200      {object}  map[string]interface{}  "成功响应"
// @Failure      400      {object}  ErrorResponse  "请求参数错误"
// @Failure      404      {object}  ErrorResponse  "创作不存在"
// @Failure      409      {object}  ErrorResponse  "当前阶段不允许"
// @Router       /api/v1/generations/{id}/idea [post]
func (h *Handler) SubmitIdea(c *gin.Context) {
	var uri generationURI
	if err := c.ShouldBindUri(&uri); err != nil {
		badRequest(c, "Invalid generation id", err)
		return
	}
	var req SubmitIdeaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}
	h.withController(c, uri.ID, func(ctl *pipeline.Controller) error {
		return ctl.SubmitIdea(req.Idea, req.Style, req.Duration)
	})
}

// RegenerateStory 带反馈重新生成故事
// @Summary      重新生成故事
// @Tags         故事
// @Accept       json
// @Produce      json
// @Param        id       path      string           true   "创作ID"
// @Param        request  body      FeedbackRequest  false  "修改意见"
// @Success      200      {object}  map[string]interface{}  "成功响应"
// @Failure      404      {object}  ErrorResponse  "创作不存在"
// @Failure      409      {object}  ErrorResponse  "当前阶段不允许"
// @Router       /api/v1/generations/{id}/story/regenerate [post]
func (h *Handler) RegenerateStory(c *gin.Context) {
	h.feedbackAction(c, (*pipeline.Controller).RegenerateStory)
}

// RefineBeat 修改单个节拍
// @Summary      修改节拍
// @Tags         故事
// @Accept       json
// @Produce      json
// @Param        id       path      string           true  "创作ID"
// @Param        n        path      int              true  "节拍编号（从 1 开始）"
// @Param        request  body      FeedbackRequest  true  "修改意见"
// @Success      200      {object}  map[string]interface{}  "成功响应"
// @Failure      400      {object}  ErrorResponse  "请求参数错误"
// @Failure      409      {object}  ErrorResponse  "当前阶段不允许"
// @Router       /api/v1/generations/{id}/story/beats/{n}/refine [post]
func (h *Handler) RefineBeat(c *gin.Context) {
	var uri beatURI
	if err := c.ShouldBindUri(&uri); err != nil {
		badRequest(c, "Invalid beat", err)
		return
	}
	var req FeedbackRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}
	h.withController(c, uri.ID, func(ctl *pipeline.Controller) error {
		return ctl.RefineBeat(uri.N, req.Feedback)
	})
}

// SelectBeat 选中节拍
// @Summary      选中节拍
// @Tags         故事
// @Accept       json
// @Produce      json
// @Param        id       path      string             true  "创作ID"
// @Param        request  body      SelectBeatRequest  true  "节拍编号"
// @Success      200      {object}  map[string]interface{}  "成功响应"
// @Failure      400      {object}  ErrorResponse  "请求参数错误"
// @Router       /api/v1/generations/{id}/story/selected-beat [put]
func (h *Handler) SelectBeat(c *gin.Context) {
	var uri generationURI
	if err := c.ShouldBindUri(&uri); err != nil {
		badRequest(c, "Invalid generation id", err)
		return
	}
	var req SelectBeatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}
	h.withController(c, uri.ID, func(ctl *pipeline.Controller) error {
		return ctl.SelectBeat(req.BeatNumber)
	})
}

// ApproveStory 确认故事，进入视觉设定
// @Summary      确认故事
// @Tags         故事
// @Produce      json
// @Param        id   path      string  true  "创作ID"
// @Success      200  {object}  map[string]interface{}  "成功响应"
// @Failure      409  {object}  ErrorResponse  "当前阶段不允许"
// @Router       /api/v1/generations/{id}/story/approve [post]
func (h *Handler) ApproveStory(c *gin.Context) {
	h.generationAction(c, (*pipeline.Controller).ApproveStory)
}
