package generation

import (
	"github.com/gin-gonic/gin"

	"reel/internal/service/pipeline"
)

// ChangeProtagonistRequest 更换主角形象
type ChangeProtagonistRequest struct {
	Confirmed bool   `json:"confirmed"` // 已有下游素材时必须为 true
	Feedback  string `json:"feedback"`  // 修改意见
}

// GenerateProtagonist 生成主角形象
// @Summary      生成主角形象
// @Tags         视觉设定
// @Accept       json
// @Produce      json
// @Param        id       path      string           true   "创作ID"
// @Param        request  body      FeedbackRequest  false  "修改意见"
// @Success      200      {object}  map[string]interface{}  "成功响应"
// @Failure      409      {object}  ErrorResponse  "当前阶段不允许"
// @Router       /api/v1/generations/{id}/protagonist/generate [post]
func (h *Handler) GenerateProtagonist(c *gin.Context) {
	h.feedbackAction(c, (*pipeline.Controller).GenerateProtagonist)
}

// LockProtagonist 锁定主角，开始生成其余角色与场景
// @Summary      锁定主角
// @Tags         视觉设定
// @Produce      json
// @Param        id   path      string  true  "创作ID"
// @Success      200  {object}  map[string]interface{}  "成功响应"
// @Failure      409  {object}  ErrorResponse  "当前阶段不允许"
// @Router       /api/v1/generations/{id}/protagonist/lock [post]
func (h *Handler) LockProtagonist(c *gin.Context) {
	h.generationAction(c, (*pipeline.Controller).LockProtagonist)
}

// ChangeProtagonist 更换主角形象，会丢弃依赖它的全部素材
// @Summary      更换主角形象
// @Tags         视觉设定
// @Accept       json
// @Produce      json
// @Param        id       path      string                    true  "创作ID"
// @Param        request  body      ChangeProtagonistRequest  true  "确认与修改意见"
// @Success      200      {object}  map[string]interface{}  "成功响应"
// @Failure      400      {object}  ErrorResponse  "需要确认"
// @Failure      409      {object}  ErrorResponse  "当前阶段不允许"
// @Router       /api/v1/generations/{id}/protagonist/change [post]
func (h *Handler) ChangeProtagonist(c *gin.Context) {
	var uri generationURI
	if err := c.ShouldBindUri(&uri); err != nil {
		badRequest(c, "Invalid generation id", err)
		return
	}
	var req ChangeProtagonistRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}
	h.withController(c, uri.ID, func(ctl *pipeline.Controller) error {
		return ctl.ChangeProtagonistLook(req.Confirmed, req.Feedback)
	})
}

// slotAction 槽位操作
func (h *Handler) slotAction(c *gin.Context, op func(ctl *pipeline.Controller, slot, feedback string) error) {
	var uri slotURI
	if err := c.ShouldBindUri(&uri); err != nil {
		badRequest(c, "Invalid slot", err)
		return
	}
	var req FeedbackRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}
	h.withController(c, uri.ID, func(ctl *pipeline.Controller) error {
		return op(ctl, uri.Slot, req.Feedback)
	})
}

// GenerateSlot 生成槽位图片
// @Summary      生成角色或场景
// @Tags         视觉设定
// @Produce      json
// @Param        id    path      string  true  "创作ID"
// @Param        slot  path      string  true  "setting 或角色ID"
// @Success      200   {object}  map[string]interface{}  "成功响应"
// @Failure      400   {object}  ErrorResponse  "槽位不存在"
// @Failure      409   {object}  ErrorResponse  "当前阶段不允许"
// @Router       /api/v1/generations/{id}/slots/{slot}/generate [post]
func (h *Handler) GenerateSlot(c *gin.Context) {
	h.slotAction(c, func(ctl *pipeline.Controller, slot, _ string) error { return ctl.GenerateSlot(slot) })
}

// RetrySlot 重试失败的槽位
// @Summary      重试角色或场景
// @Tags         视觉设定
// @Produce      json
// @Param        id    path      string  true  "创作ID"
// @Param        slot  path      string  true  "setting 或角色ID"
// @Success      200   {object}  map[string]interface{}  "成功响应"
// @Failure      409   {object}  ErrorResponse  "当前阶段不允许"
// @Router       /api/v1/generations/{id}/slots/{slot}/retry [post]
func (h *Handler) RetrySlot(c *gin.Context) {
	h.slotAction(c, func(ctl *pipeline.Controller, slot, _ string) error { return ctl.RetrySlot(slot) })
}

// RefineSlot 带反馈重新生成槽位
// @Summary      修改角色或场景
// @Tags         视觉设定
// @Accept       json
// @Produce      json
// @Param        id       path      string           true  "创作ID"
// @Param        slot     path      string           true  "setting 或角色ID"
// @Param        request  body      FeedbackRequest  true  "修改意见"
// @Success      200      {object}  map[string]interface{}  "成功响应"
// @Failure      409      {object}  ErrorResponse  "当前阶段不允许"
// @Router       /api/v1/generations/{id}/slots/{slot}/refine [post]
func (h *Handler) RefineSlot(c *gin.Context) {
	h.slotAction(c, (*pipeline.Controller).RefineSlot)
}

// ApproveSlot 确认槽位
// @Summary      确认角色或场景
// @Tags         视觉设定
// @Produce      json
// @Param        id    path      string  true  "创作ID"
// @Param        slot  path      string  true  "setting 或角色ID"
// @Success      200   {object}  map[string]interface{}  "成功响应"
// @Failure      409   {object}  ErrorResponse  "当前阶段不允许"
// @Router       /api/v1/generations/{id}/slots/{slot}/approve [post]
func (h *Handler) ApproveSlot(c *gin.Context) {
	h.slotAction(c, func(ctl *pipeline.Controller, slot, _ string) error { return ctl.ApproveSlot(slot) })
}

// SetSlotFeedback 保存槽位修改意见草稿
// @Summary      保存修改意见
// @Tags         视觉设定
// @Accept       json
// @Produce      json
// @Param        id       path      string           true  "创作ID"
// @Param        slot     path      string           true  "setting 或角色ID"
// @Param        request  body      FeedbackRequest  true  "修改意见"
// @Success      200      {object}  map[string]interface{}  "成功响应"
// @Router       /api/v1/generations/{id}/slots/{slot}/feedback [put]
func (h *Handler) SetSlotFeedback(c *gin.Context) {
	h.slotAction(c, (*pipeline.Controller).SetSlotFeedback)
}

// ContinueToKeyMoment 全部确认后生成关键时刻
// @Summary      生成关键时刻
// @Tags         视觉设定
// @Produce      json
// @Param        id   path      string  true  "创作ID"
// @Success      200  {object}  map[string]interface{}  "成功响应"
// @Failure      409  {object}  ErrorResponse  "仍有未确认的角色或场景"
// @Router       /api/v1/generations/{id}/key-moment [post]
func (h *Handler) ContinueToKeyMoment(c *gin.Context) {
	h.generationAction(c, (*pipeline.Controller).ContinueToKeyMoment)
}

// RefineKeyMoment 带反馈重新生成关键时刻
// @Summary      修改关键时刻
// @Tags         视觉设定
// @Accept       json
// @Produce      json
// @Param        id       path      string           true  "创作ID"
// @Param        request  body      FeedbackRequest  true  "修改意见"
// @Success      200      {object}  map[string]interface{}  "成功响应"
// @Failure      409      {object}  ErrorResponse  "当前阶段不允许"
// @Router       /api/v1/generations/{id}/key-moment/refine [post]
func (h *Handler) RefineKeyMoment(c *gin.Context) {
	h.feedbackAction(c, (*pipeline.Controller).RefineKeyMoment)
}

// RetryKeyMoment 重试关键时刻
// @Summary      重试关键时刻
// @Tags         视觉设定
// @Produce      json
// @Param        id   path      string  true  "创作ID"
// @Success      200  {object}  map[string]interface{}  "成功响应"
// @Failure      409  {object}  ErrorResponse  "当前阶段不允许"
// @Router       /api/v1/generations/{id}/key-moment/retry [post]
func (h *Handler) RetryKeyMoment(c *gin.Context) {
	h.generationAction(c, (*pipeline.Controller).RetryKeyMoment)
}
