package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"teamwear/internal/middleware"
	"teamwear/internal/model"
	"teamwear/internal/service"
	"teamwear/pkg/response"

	"github.com/gin-gonic/gin"
)

const maxAttachmentSize = 20 << 20

// RequestHandler serves the submission side of the approval workflow.
type RequestHandler struct {
	requestService    service.RequestService
	attachmentService service.AttachmentService
	auth              *middleware.Auth
	submitLimit       gin.HandlerFunc
}

func NewRequestHandler(requestService service.RequestService, attachmentService service.AttachmentService, auth *middleware.Auth, submitLimit gin.HandlerFunc) *RequestHandler {
	if submitLimit == nil {
		submitLimit = func(c *gin.Context) { c.Next() }
	}
	return &RequestHandler{
		requestService:    requestService,
		attachmentService: attachmentService,
		auth:              auth,
		submitLimit:       submitLimit,
	}
}

func (h *RequestHandler) RegisterRoutes(router *gin.RouterGroup) {
	submit := h.auth.RequirePermission(model.PermRequestsSubmit)

	requests := router.Group("/api/requests")
	{
		requests.POST("/urgent", submit, h.submitLimit, h.SubmitUrgent)
		requests.POST("/delete", submit, h.submitLimit, h.SubmitDelete)
		requests.POST("/modification", submit, h.submitLimit, h.SubmitModification)
		requests.POST("/priority-change", submit, h.submitLimit, h.SubmitPriorityChange)
	}

	router.GET("/api/urgent-reasons", h.auth.RequireAuth(), h.ListUrgentReasons)

	attachments := router.Group("/api/modification-requests")
	{
		attachments.POST("/attachments", submit, h.submitLimit, h.UploadAttachment)
		attachments.GET("/:id/attachments/:index", h.auth.RequireAuth(), h.DownloadAttachment)
	}
}

// SubmitUrgent files an urgent order request
// @Summary      Submit an urgent request
// @Tags         requests
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.UrgentRequestInput  true  "Urgent request"
// @Success      201      {object}  response.Response{data=model.PendingUrgentRequest}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/requests/urgent [post]
func (h *RequestHandler) SubmitUrgent(c *gin.Context) {
	var req service.UrgentRequestInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request payload: "+err.Error())
		return
	}
	result, err := h.requestService.SubmitUrgent(c.Request.Context(), c.GetString(middleware.ContextUserID), req)
	if err != nil {
		respondError(c, err, "failed to submit urgent request")
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, result))
}

// SubmitDelete asks for a design task to be deleted
// @Summary      Submit a delete request
// @Tags         requests
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.DeleteRequestInput  true  "Delete request"
// @Success      201      {object}  response.Response{data=model.PendingDeleteRequest}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/requests/delete [post]
func (h *RequestHandler) SubmitDelete(c *gin.Context) {
	var req service.DeleteRequestInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request payload: "+err.Error())
		return
	}
	result, err := h.requestService.SubmitDelete(c.Request.Context(), c.GetString(middleware.ContextUserID), req)
	if err != nil {
		respondError(c, err, "failed to submit delete request")
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, result))
}

// SubmitModification asks for rework on a design task
// @Summary      Submit a modification request
// @Tags         requests
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.ModificationRequestInput  true  "Modification request"
// @Success      201      {object}  response.Response{data=model.PendingModificationRequest}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/requests/modification [post]
func (h *RequestHandler) SubmitModification(c *gin.Context) {
	var req service.ModificationRequestInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request payload: "+err.Error())
		return
	}
	result, err := h.requestService.SubmitModification(c.Request.Context(), c.GetString(middleware.ContextUserID), req)
	if err != nil {
		respondError(c, err, "failed to submit modification request")
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, result))
}

// SubmitPriorityChange asks for a design task priority change
// @Summary      Submit a priority change request
// @Tags         requests
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.PriorityChangeInput  true  "Priority change request"
// @Success      201      {object}  response.Response{data=model.PendingPriorityChangeRequest}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/requests/priority-change [post]
func (h *RequestHandler) SubmitPriorityChange(c *gin.Context) {
	var req service.PriorityChangeInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request payload: "+err.Error())
		return
	}
	result, err := h.requestService.SubmitPriorityChange(c.Request.Context(), c.GetString(middleware.ContextUserID), req)
	if err != nil {
		respondError(c, err, "failed to submit priority change request")
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, result))
}

// ListUrgentReasons returns the active urgent reason catalogue
// @Summary      List urgent reasons
// @Tags         requests
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=[]model.UrgentReason}
// @Router       /api/urgent-reasons [get]
func (h *RequestHandler) ListUrgentReasons(c *gin.Context) {
	reasons, err := h.requestService.ListUrgentReasons(c.Request.Context())
	if err != nil {
		respondError(c, err, "failed to list urgent reasons")
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, reasons))
}

// UploadAttachment stores a file for a modification request
// @Summary      Upload a modification attachment
// @Tags         requests
// @Security     BearerAuth
// @Accept       multipart/form-data
// @Produce      json
// @Param        file  formData  file  true  "Attachment"
// @Success      201   {object}  response.Response{data=model.Attachment}
// @Failure      400   {object}  response.Response
// @Router       /api/modification-requests/attachments [post]
func (h *RequestHandler) UploadAttachment(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		badRequest(c, "file is required")
		return
	}
	if header.Size > maxAttachmentSize {
		badRequest(c, fmt.Sprintf("file exceeds %d MB", maxAttachmentSize>>20))
		return
	}
	file, err := header.Open()
	if err != nil {
		badRequest(c, "unable to read file")
		return
	}
	defer file.Close()

	att, err := h.attachmentService.Upload(c.Request.Context(), c.GetString(middleware.ContextUserID),
		header.Filename, header.Header.Get("Content-Type"), file)
	if err != nil {
		respondError(c, err, "failed to upload attachment")
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, att))
}

// DownloadAttachment streams a modification attachment, or redirects to its
// original URL when the bucket cannot serve it
// @Summary      Download a modification attachment
// @Tags         requests
// @Security     BearerAuth
// @Produce      octet-stream
// @Param        id     path  string  true  "Modification request ID"
// @Param        index  path  int     true  "Attachment index"
// @Success      200
// @Success      302
// @Failure      404  {object}  response.Response
// @Router       /api/modification-requests/{id}/attachments/{index} [get]
func (h *RequestHandler) DownloadAttachment(c *gin.Context) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		badRequest(c, "index must be a number")
		return
	}

	file, err := h.attachmentService.Open(c.Request.Context(), c.Param("id"), index)
	if err != nil {
		respondError(c, err, "failed to load attachment")
		return
	}
	if file.Body == nil {
		c.Redirect(http.StatusFound, file.URL)
		return
	}
	defer file.Body.Close()

	c.DataFromReader(http.StatusOK, -1, file.ContentType, file.Body, map[string]string{
		"Content-Disposition": fmt.Sprintf("attachment; filename=%q", file.Name),
	})
}
