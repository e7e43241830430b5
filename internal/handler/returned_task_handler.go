package handler

import (
	"net/http"

	"teamwear/internal/middleware"
	"teamwear/internal/model"
	"teamwear/internal/service"
	"teamwear/pkg/response"

	"github.com/gin-gonic/gin"
)

type ReturnedTaskHandler struct {
	service service.ReturnedTaskService
	auth    *middleware.Auth
}

func NewReturnedTaskHandler(svc service.ReturnedTaskService, auth *middleware.Auth) *ReturnedTaskHandler {
	return &ReturnedTaskHandler{service: svc, auth: auth}
}

func (h *ReturnedTaskHandler) RegisterRoutes(router *gin.RouterGroup) {
	group := router.Group("/api/returned-tasks")
	{
		group.GET("", h.auth.RequirePermission(model.PermTasksRead), h.List)
		group.POST("/:id/resend", h.auth.RequirePermission(model.PermRequestsSubmit), h.Resend)
	}
}

func viewerFrom(c *gin.Context) service.Viewer {
	return service.Viewer{
		ID:   c.GetString(middleware.ContextUserID),
		Role: c.GetString(middleware.ContextUserRole),
	}
}

// List returns the tasks designers sent back to the caller
// @Summary      List returned tasks
// @Tags         returned-tasks
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=[]service.ReturnedTaskResponse}
// @Router       /api/returned-tasks [get]
func (h *ReturnedTaskHandler) List(c *gin.Context) {
	items, err := h.service.ListReturned(c.Request.Context(), viewerFrom(c))
	if err != nil {
		respondError(c, err, "failed to list returned tasks")
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, items))
}

// Resend hands a returned task back to the designer
// @Summary      Resend a returned task
// @Tags         returned-tasks
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Rejection ID"
// @Success      200  {object}  response.Response
// @Failure      403  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /api/returned-tasks/{id}/resend [post]
func (h *ReturnedTaskHandler) Resend(c *gin.Context) {
	if err := h.service.Resend(c.Request.Context(), c.Param("id"), viewerFrom(c)); err != nil {
		respondError(c, err, "failed to resend task")
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"resent": true}))
}
