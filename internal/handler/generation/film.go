package generation

import (
	"github.com/gin-gonic/gin"

	"reel/internal/service/pipeline"
)

// StartFilm 提交成片
// @Summary      开始成片
// @Description  以已确认的角色、场景与关键时刻提交成片任务，之后由服务端轮询进度
// @Tags         成片
// @Produce      json
// @Param        id   path      string  true  "创作ID"
// @Success      200  {object}  map[string]interface{}  "成功响应"
// @Failure      409  {object}  ErrorResponse  "关键时刻未就绪"
// @Router       /api/v1/generations/{id}/film [post]
func (h *Handler) StartFilm(c *gin.Context) {
	h.generationAction(c, (*pipeline.Controller).StartFilm)
}

// RegenerateShot 重拍单个镜头
// @Summary      重拍镜头
// @Description  成片完成或失败后按反馈重拍单个镜头并重新拼接，之后恢复轮询同一任务
// @Tags         成片
// @Accept       json
// @Produce      json
// @Param        id       path      string           true   "创作ID"
// @Param        n        path      int              true   "镜头编号（从 1 开始）"
// @Param        request  body      FeedbackRequest  false  "修改意见"
// @Success      200      {object}  map[string]interface{}  "成功响应"
// @Failure      400      {object}  ErrorResponse  "请求参数错误"
// @Failure      409      {object}  ErrorResponse  "当前阶段不允许或生成服务不支持"
// @Router       /api/v1/generations/{id}/film/shots/{n}/regenerate [post]
func (h *Handler) RegenerateShot(c *gin.Context) {
	var uri beatURI
	if err := c.ShouldBindUri(&uri); err != nil {
		badRequest(c, "Invalid shot", err)
		return
	}
	var req FeedbackRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}
	h.withController(c, uri.ID, func(ctl *pipeline.Controller) error {
		return ctl.RegenerateShot(uri.N, req.Feedback)
	})
}

// Retry 重试失败的阶段
// @Summary      重试
// @Description  故事失败时重新生成故事；成片失败或中断时以相同素材重新提交
// @Tags         成片
// @Produce      json
// @Param        id   path      string  true  "创作ID"
// @Success      200  {object}  map[string]interface{}  "成功响应"
// @Failure      409  {object}  ErrorResponse  "当前阶段不允许"
// @Router       /api/v1/generations/{id}/retry [post]
func (h *Handler) Retry(c *gin.Context) {
	h.generationAction(c, (*pipeline.Controller).RetryFailed)
}

// GoBack 从失败返回上一阶段
// @Summary      返回上一步
// @Tags         成片
// @Produce      json
// @Param        id   path      string  true  "创作ID"
// @Success      200  {object}  map[string]interface{}  "成功响应"
// @Failure      409  {object}  ErrorResponse  "当前阶段不允许"
// @Router       /api/v1/generations/{id}/back [post]
func (h *Handler) GoBack(c *gin.Context) {
	h.generationAction(c, (*pipeline.Controller).GoBack)
}

// StartOver 重新开始
// @Summary      重新开始
// @Description  取消进行中的调用，删除全部素材并清零花费
// @Tags         成片
// @Produce      json
// @Param        id   path      string  true  "创作ID"
// @Success      200  {object}  map[string]interface{}  "成功响应"
// @Router       /api/v1/generations/{id}/start-over [post]
func (h *Handler) StartOver(c *gin.Context) {
	h.generationAction(c, (*pipeline.Controller).StartOver)
}
