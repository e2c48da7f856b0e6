package generation

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	model "reel/internal/model/generation"
	httputil "reel/internal/pkg/http"
	"reel/internal/service/pipeline"
)

// CreateRequest 创建草稿请求
type CreateRequest struct {
	Title string      `json:"title"` // 标题（可选）
	Style model.Style `json:"style"` // 画面风格：cinematic、3d_animated、2d_animated，默认 cinematic
}

// ListRequest 列表查询参数
type ListRequest struct {
	Status string `form:"status"`                          // 状态筛选，多个用逗号分隔
	Limit  int    `form:"limit" binding:"omitempty,min=1"` // 条数上限，默认 50
}

// ListResponseData 草稿列表
type ListResponseData struct {
	Drafts []pipeline.Draft `json:"drafts"`
}

// Create 创建空白草稿
// @Summary      创建草稿
// @Description  创建一个空白创作，状态为 drafting
// @Tags         创作
// @Accept       json
// @Produce      json
// @Param        request  body      CreateRequest  false  "标题与风格"
// @Success      201      {object}  map[string]interface{}  "成功响应"
// @Failure      400      {object}  ErrorResponse  "请求参数错误"
// @Failure      500      {object}  ErrorResponse  "服务器内部错误"
// @Router       /api/v1/generations [post]
func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}

	snap, err := h.svc.Create(c.Request.Context(), req.Title, req.Style)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusCreated, snap)
}

// List 草稿列表
// @Summary      草稿列表
// @Description  按更新时间倒序列出创作，附带状态、步骤、缩略图与花费
// @Tags         创作
// @Produce      json
// @Param        status  query     string  false  "状态筛选，例如 filming,ready"
// @Param        limit   query     int     false  "条数上限"
// @Success      200     {object}  map[string]interface{}  "成功响应"
// @Failure      400     {object}  ErrorResponse  "请求参数错误"
// @Failure      500     {object}  ErrorResponse  "服务器内部错误"
// @Router       /api/v1/generations [get]
func (h *Handler) List(c *gin.Context) {
	var req ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		badRequest(c, "Invalid query", err)
		return
	}

	filter := &model.ListFilter{Limit: req.Limit}
	for _, s := range strings.Split(req.Status, ",") {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		status := model.Status(s)
		if !status.IsValid() {
			c.JSON(http.StatusBadRequest, httputil.NewErrorResponse(httputil.CodeValidation, "Invalid status", s))
			return
		}
		filter.Statuses = append(filter.Statuses, status)
	}

	drafts, err := h.svc.List(c.Request.Context(), filter)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, ListResponseData{Drafts: drafts})
}

// Get 创作详情
// @Summary      创作详情
// @Description  返回完整流水线状态、阶段、步骤与当前可执行操作
// @Tags         创作
// @Produce      json
// @Param        id   path      string  true  "创作ID"
// @Success      200  {object}  map[string]interface{}  "成功响应"
// @Failure      404  {object}  ErrorResponse  "创作不存在"
// @Router       /api/v1/generations/{id} [get]
func (h *Handler) Get(c *gin.Context) {
	h.generationAction(c, func(*pipeline.Controller) error { return nil })
}

// Delete 删除创作
// @Summary      删除创作
// @Description  删除创作记录及其全部素材
// @Tags         创作
// @Produce      json
// @Param        id   path      string  true  "创作ID"
// @Success      200  {object}  map[string]interface{}  "成功响应"
// @Failure      404  {object}  ErrorResponse  "创作不存在"
// @Failure      500  {object}  ErrorResponse  "服务器内部错误"
// @Router       /api/v1/generations/{id} [delete]
func (h *Handler) Delete(c *gin.Context) {
	var uri generationURI
	if err := c.ShouldBindUri(&uri); err != nil {
		badRequest(c, "Invalid generation id", err)
		return
	}
	if err := h.svc.Delete(c.Request.Context(), uri.ID); err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"id": uri.ID})
}

// Close 离开创作页面，停止进行中的调用与轮询
// @Summary      关闭创作
// @Description  取消进行中的调用与轮询并释放内存中的控制器，状态保留在存储中
// @Tags         创作
// @Produce      json
// @Param        id   path      string  true  "创作ID"
// @Success      200  {object}  map[string]interface{}  "成功响应"
// @Router       /api/v1/generations/{id}/close [post]
func (h *Handler) Close(c *gin.Context) {
	var uri generationURI
	if err := c.ShouldBindUri(&uri); err != nil {
		badRequest(c, "Invalid generation id", err)
		return
	}
	h.svc.Release(uri.ID)
	ok(c, http.StatusOK, gin.H{"id": uri.ID})
}
