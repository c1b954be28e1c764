package handler

import (
	"errors"
	"strconv"

	"tripgen/internal/dto"
	"tripgen/internal/service"
	"tripgen/internal/utils"

	"github.com/gin-gonic/gin"
)

// RegenHandler 重新生成处理器
type RegenHandler struct {
	batchManager *service.BatchManager
	statusView   *service.StatusView
}

// NewRegenHandler 创建重新生成处理器
func NewRegenHandler(batchManager *service.BatchManager, statusView *service.StatusView) *RegenHandler {
	return &RegenHandler{
		batchManager: batchManager,
		statusView:   statusView,
	}
}

// RegenerateSingle 重新生成单个目标
func (h *RegenHandler) RegenerateSingle(c *gin.Context) {
	projectID, err := strconv.ParseUint(c.Param("project_id"), 10, 32)
	if err != nil {
		utils.BadRequest(c, "无效的项目ID")
		return
	}

	var req dto.RegenerateSingleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.UnprocessableEntity(c, "参数验证失败: "+utils.FormatValidationError(err))
		return
	}

	resp, err := h.batchManager.RegenerateSingle(uint(projectID), req.Type, req.ID)
	h.respond(c, resp, err)
}

// RegenerateDay 重新生成一整天
func (h *RegenHandler) RegenerateDay(c *gin.Context) {
	projectID, dayNumber, ok := h.dayParams(c)
	if !ok {
		return
	}

	resp, err := h.batchManager.RegenerateDay(projectID, dayNumber)
	h.respond(c, resp, err)
}

// RegenerateColumn 按列重新生成
func (h *RegenHandler) RegenerateColumn(c *gin.Context) {
	projectID, err := strconv.ParseUint(c.Param("project_id"), 10, 32)
	if err != nil {
		utils.BadRequest(c, "无效的项目ID")
		return
	}

	var req dto.RegenerateColumnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.UnprocessableEntity(c, "参数验证失败: "+utils.FormatValidationError(err))
		return
	}

	resp, err := h.batchManager.RegenerateColumn(uint(projectID), req.Type)
	h.respond(c, resp, err)
}

// RegenerateProject 重新生成整个项目
func (h *RegenHandler) RegenerateProject(c *gin.Context) {
	projectID, err := strconv.ParseUint(c.Param("project_id"), 10, 32)
	if err != nil {
		utils.BadRequest(c, "无效的项目ID")
		return
	}

	resp, err := h.batchManager.RegenerateProject(uint(projectID))
	h.respond(c, resp, err)
}

// GenerateDay 对某天的指定槽位发起生成
func (h *RegenHandler) GenerateDay(c *gin.Context) {
	projectID, dayNumber, ok := h.dayParams(c)
	if !ok {
		return
	}

	var req dto.GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.UnprocessableEntity(c, "参数验证失败: "+utils.FormatValidationError(err))
		return
	}

	resp, err := h.batchManager.GenerateDay(projectID, dayNumber, &req)
	h.respond(c, resp, err)
}

// GetRegenerationStatus 查询项目的重新生成状态
func (h *RegenHandler) GetRegenerationStatus(c *gin.Context) {
	projectID, err := strconv.ParseUint(c.Param("project_id"), 10, 32)
	if err != nil {
		utils.BadRequest(c, "无效的项目ID")
		return
	}

	if _, err := h.batchManager.GetProject(uint(projectID)); err != nil {
		h.respondErr(c, err)
		return
	}

	status, err := h.statusView.GetProjectStatus(c.Request.Context(), uint(projectID))
	if err != nil {
		utils.InternalError(c, err.Error())
		return
	}

	utils.SuccessResponse(c, status)
}

// dayParams 解析路径中的项目ID和天数
func (h *RegenHandler) dayParams(c *gin.Context) (uint, int, bool) {
	projectID, err := strconv.ParseUint(c.Param("project_id"), 10, 32)
	if err != nil {
		utils.BadRequest(c, "无效的项目ID")
		return 0, 0, false
	}

	dayNumber, err := strconv.Atoi(c.Param("day_number"))
	if err != nil || dayNumber < 1 {
		utils.BadRequest(c, "无效的天数")
		return 0, 0, false
	}
	return uint(projectID), dayNumber, true
}

// respond 批次提交的统一响应
func (h *RegenHandler) respond(c *gin.Context, resp *dto.BatchResponse, err error) {
	if err != nil {
		h.respondErr(c, err)
		return
	}
	utils.SuccessResponse(c, resp)
}

func (h *RegenHandler) respondErr(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrTargetNotFound):
		utils.NotFound(c, err.Error())
	case errors.Is(err, service.ErrUnsupportedGenerator), errors.Is(err, service.ErrPromptNotFound):
		utils.UnprocessableEntity(c, err.Error())
	default:
		utils.InternalError(c, err.Error())
	}
}
