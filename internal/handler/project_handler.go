package handler

import (
	"errors"
	"strconv"

	"tripgen/internal/repository"
	"tripgen/internal/utils"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// ProjectHandler 项目读取处理器
type ProjectHandler struct {
	projectRepo *repository.ProjectRepository
}

// NewProjectHandler 创建项目处理器
func NewProjectHandler(projectRepo *repository.ProjectRepository) *ProjectHandler {
	return &ProjectHandler{projectRepo: projectRepo}
}

// GetProject 获取项目及当前版本的完整行程
func (h *ProjectHandler) GetProject(c *gin.Context) {
	projectID, err := strconv.ParseUint(c.Param("project_id"), 10, 32)
	if err != nil {
		utils.BadRequest(c, "无效的项目ID")
		return
	}

	project, err := h.projectRepo.GetByID(uint(projectID))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		utils.NotFound(c, "项目不存在")
		return
	}
	if err != nil {
		utils.InternalError(c, err.Error())
		return
	}

	days, err := h.projectRepo.ListDays(project.ID, project.CurrentVersion)
	if err != nil {
		utils.InternalError(c, err.Error())
		return
	}

	utils.SuccessResponse(c, gin.H{
		"project": project,
		"days":    days,
	})
}
