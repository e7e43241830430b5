package handler

import (
	"net/http"

	"teamwear/internal/middleware"
	"teamwear/internal/model"
	"teamwear/internal/service"
	"teamwear/pkg/pagination"
	"teamwear/pkg/response"

	"github.com/gin-gonic/gin"
)

type TaskHandler struct {
	taskService     service.TaskService
	returnedService service.ReturnedTaskService
	auth            *middleware.Auth
}

func NewTaskHandler(taskService service.TaskService, returnedService service.ReturnedTaskService, auth *middleware.Auth) *TaskHandler {
	return &TaskHandler{taskService: taskService, returnedService: returnedService, auth: auth}
}

func (h *TaskHandler) RegisterRoutes(router *gin.RouterGroup) {
	tasks := router.Group("/api/tasks")
	{
		tasks.GET("", h.auth.RequirePermission(model.PermTasksRead), h.ListTasks)
		tasks.POST("", h.auth.RequirePermission(model.PermTasksWrite), h.CreateTask)
		tasks.GET("/:id", h.auth.RequirePermission(model.PermTasksRead), h.GetTask)
		tasks.PATCH("/:id/status", h.auth.RequirePermission(model.PermTasksWrite), h.UpdateStatus)
		tasks.GET("/:id/history", h.auth.RequirePermission(model.PermTasksRead), h.History)
		tasks.POST("/:id/reject", h.auth.RequirePermission(model.PermTasksReject), h.Reject)
	}
}

// ListTasks lists live design tasks, urgent first
// @Summary      List design tasks
// @Tags         tasks
// @Security     BearerAuth
// @Produce      json
// @Param        status       query     string  false  "Task status"
// @Param        priority     query     string  false  "normal or urgent"
// @Param        assigned_to  query     string  false  "Designer ID"
// @Param        page         query     int     false  "Page number (default 1)"
// @Param        limit        query     int     false  "Items per page (default 20)"
// @Success      200          {object}  response.Response{data=response.Page}
// @Router       /api/tasks [get]
func (h *TaskHandler) ListTasks(c *gin.Context) {
	p := pagination.Parse(c)
	filter := service.TaskListFilter{
		Status:     c.Query("status"),
		Priority:   c.Query("priority"),
		AssignedTo: c.Query("assigned_to"),
		Page:       p.Page,
		Limit:      p.Limit,
	}

	tasks, total, err := h.taskService.ListTasks(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err, "failed to list tasks")
		return
	}
	c.JSON(http.StatusOK, response.Paged(http.StatusOK, tasks, total, p.Page, p.Limit))
}

// CreateTask creates a design task directly
// @Summary      Create a design task
// @Tags         tasks
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateTaskRequest  true  "Task"
// @Success      201      {object}  response.Response{data=service.TaskResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/tasks [post]
func (h *TaskHandler) CreateTask(c *gin.Context) {
	var req service.CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request payload: "+err.Error())
		return
	}
	task, err := h.taskService.CreateTask(c.Request.Context(), c.GetString(middleware.ContextUserID), req)
	if err != nil {
		respondError(c, err, "failed to create task")
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, task))
}

// GetTask returns one live task
// @Summary      Get a design task
// @Tags         tasks
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Task ID"
// @Success      200  {object}  response.Response{data=service.TaskResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/tasks/{id} [get]
func (h *TaskHandler) GetTask(c *gin.Context) {
	task, err := h.taskService.GetTask(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err, "failed to load task")
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, task))
}

// UpdateStatus moves a task to another board column
// @Summary      Update task status
// @Tags         tasks
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                           true  "Task ID"
// @Param        payload  body      service.UpdateTaskStatusRequest  true  "New status"
// @Success      200      {object}  response.Response{data=service.TaskResponse}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /api/tasks/{id}/status [patch]
func (h *TaskHandler) UpdateStatus(c *gin.Context) {
	var req service.UpdateTaskStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request payload: "+err.Error())
		return
	}
	task, err := h.taskService.UpdateStatus(c.Request.Context(), c.Param("id"), c.GetString(middleware.ContextUserID), req)
	if err != nil {
		respondError(c, err, "failed to update task status")
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, task))
}

// History returns the audit trail of a task, oldest first
// @Summary      Task history
// @Tags         tasks
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Task ID"
// @Success      200  {object}  response.Response{data=[]service.HistoryResponse}
// @Router       /api/tasks/{id}/history [get]
func (h *TaskHandler) History(c *gin.Context) {
	entries, err := h.taskService.History(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err, "failed to load task history")
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, entries))
}

// Reject sends a task back to the salesperson who created it
// @Summary      Designer rejects a task
// @Tags         tasks
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                     true  "Task ID"
// @Param        payload  body      service.RejectTaskRequest  true  "Reason"
// @Success      201      {object}  response.Response{data=service.ReturnedTaskResponse}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /api/tasks/{id}/reject [post]
func (h *TaskHandler) Reject(c *gin.Context) {
	var req service.RejectTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request payload: "+err.Error())
		return
	}
	result, err := h.returnedService.Reject(c.Request.Context(), c.Param("id"), c.GetString(middleware.ContextUserID), req.Reason)
	if err != nil {
		respondError(c, err, "failed to reject task")
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, result))
}
