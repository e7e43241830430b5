package handler

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"teamwear/internal/middleware"
	"teamwear/internal/model"
	"teamwear/internal/service"
	"teamwear/pkg/pagination"
	"teamwear/pkg/response"

	"github.com/gin-gonic/gin"
)

type ApprovalHandler struct {
	approvalService service.ApprovalService
	auth            *middleware.Auth
}

func NewApprovalHandler(approvalService service.ApprovalService, auth *middleware.Auth) *ApprovalHandler {
	return &ApprovalHandler{approvalService: approvalService, auth: auth}
}

func (h *ApprovalHandler) RegisterRoutes(router *gin.RouterGroup) {
	approvals := router.Group("/api/approvals")
	{
		approvals.GET("/summary", h.auth.RequirePermission(model.PermApprovalsRead), h.Summary)
		approvals.GET("/:kind", h.auth.RequirePermission(model.PermApprovalsRead), h.ListPending)
		approvals.GET("/:kind/:id", h.auth.RequirePermission(model.PermApprovalsRead), h.GetRequest)
		approvals.POST("/:kind/:id/approve", h.auth.RequirePermission(model.PermApprovalsResolve), h.Approve)
		approvals.POST("/:kind/:id/reject", h.auth.RequirePermission(model.PermApprovalsResolve), h.Reject)
	}
}

// parseKind accepts both "priority_change" and "priority-change".
func parseKind(c *gin.Context) (model.RequestKind, bool) {
	kind := model.RequestKind(strings.ReplaceAll(c.Param("kind"), "-", "_"))
	if !kind.Valid() {
		c.JSON(http.StatusNotFound, response.ErrorWithCode(http.StatusNotFound, "unknown_kind", "unknown request kind"))
		return "", false
	}
	return kind, true
}

// Summary returns pending counts per request kind
// @Summary      Pending request counts
// @Tags         approvals
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=service.PendingSummary}
// @Router       /api/approvals/summary [get]
func (h *ApprovalHandler) Summary(c *gin.Context) {
	summary, err := h.approvalService.Summary(c.Request.Context())
	if err != nil {
		respondError(c, err, "failed to count pending requests")
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, summary))
}

// ListPending returns the pending requests of one kind, newest first
// @Summary      List pending requests
// @Tags         approvals
// @Security     BearerAuth
// @Produce      json
// @Param        kind   path      string  true   "urgent, delete, modification or priority-change"
// @Param        page   query     int     false  "Page number (default 1)"
// @Param        limit  query     int     false  "Items per page (default 20)"
// @Success      200    {object}  response.Response{data=response.Page}
// @Failure      404    {object}  response.Response
// @Router       /api/approvals/{kind} [get]
func (h *ApprovalHandler) ListPending(c *gin.Context) {
	kind, ok := parseKind(c)
	if !ok {
		return
	}
	p := pagination.Parse(c)

	items, total, err := h.approvalService.ListPending(c.Request.Context(), kind, p.Page, p.Limit)
	if err != nil {
		respondError(c, err, "failed to list pending requests")
		return
	}
	c.JSON(http.StatusOK, response.Paged(http.StatusOK, items, total, p.Page, p.Limit))
}

// GetRequest returns one request of any status
// @Summary      Get a request
// @Tags         approvals
// @Security     BearerAuth
// @Produce      json
// @Param        kind  path      string  true  "Request kind"
// @Param        id    path      string  true  "Request ID"
// @Success      200   {object}  response.Response{data=service.RequestResponse}
// @Failure      404   {object}  response.Response
// @Router       /api/approvals/{kind}/{id} [get]
func (h *ApprovalHandler) GetRequest(c *gin.Context) {
	kind, ok := parseKind(c)
	if !ok {
		return
	}
	result, err := h.approvalService.GetRequest(c.Request.Context(), kind, c.Param("id"))
	if err != nil {
		respondError(c, err, "failed to load request")
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

type approveBody struct {
	FinalPriority model.Priority `json:"final_priority"`
}

type rejectBody struct {
	Reason string `json:"reason"`
}

// bindOptionalJSON binds the body when the client sent one. A chunked body
// reports an unknown length, so only a known empty body is skipped.
func bindOptionalJSON(c *gin.Context, obj interface{}) bool {
	if c.Request.Body == nil || c.Request.Body == http.NoBody || c.Request.ContentLength == 0 {
		return true
	}
	if err := c.ShouldBindJSON(obj); err != nil && !errors.Is(err, io.EOF) {
		badRequest(c, "Invalid request payload: "+err.Error())
		return false
	}
	return true
}

// Approve approves a pending request and applies its side effects
// @Summary      Approve a request
// @Tags         approvals
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        kind     path      string       true   "Request kind"
// @Param        id       path      string       true   "Request ID"
// @Param        payload  body      approveBody  false  "final_priority is required for urgent requests"
// @Success      200      {object}  response.Response{data=service.RequestResponse}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/approvals/{kind}/{id}/approve [post]
func (h *ApprovalHandler) Approve(c *gin.Context) {
	kind, ok := parseKind(c)
	if !ok {
		return
	}
	var body approveBody
	if !bindOptionalJSON(c, &body) {
		return
	}

	result, err := h.approvalService.Resolve(c.Request.Context(), kind, c.Param("id"), c.GetString(middleware.ContextUserID), service.Decision{
		Outcome:       service.OutcomeApprove,
		FinalPriority: body.FinalPriority,
	})
	if err != nil {
		respondError(c, err, "failed to approve request")
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

// Reject rejects a pending request with a reason
// @Summary      Reject a request
// @Tags         approvals
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        kind     path      string      true  "Request kind"
// @Param        id       path      string      true  "Request ID"
// @Param        payload  body      rejectBody  true  "Rejection reason"
// @Success      200      {object}  response.Response{data=service.RequestResponse}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/approvals/{kind}/{id}/reject [post]
func (h *ApprovalHandler) Reject(c *gin.Context) {
	kind, ok := parseKind(c)
	if !ok {
		return
	}
	var body rejectBody
	if !bindOptionalJSON(c, &body) {
		return
	}

	result, err := h.approvalService.Resolve(c.Request.Context(), kind, c.Param("id"), c.GetString(middleware.ContextUserID), service.Decision{
		Outcome: service.OutcomeReject,
		Reason:  body.Reason,
	})
	if err != nil {
		respondError(c, err, "failed to reject request")
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}
