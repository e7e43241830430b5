package handler

import (
	"errors"
	"net/http"

	"teamwear/internal/logger"
	"teamwear/internal/service"
	"teamwear/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type errorClass struct {
	status int
	code   string
}

// errorClasses maps service sentinels to HTTP statuses. Order matters only for
// errors that wrap more than one sentinel.
var errorClasses = []struct {
	err   error
	class errorClass
}{
	{service.ErrInvalidInput, errorClass{http.StatusBadRequest, "invalid_input"}},
	{service.ErrUnknownRequestKind, errorClass{http.StatusBadRequest, "unknown_kind"}},
	{service.ErrInvalidOutcome, errorClass{http.StatusBadRequest, "invalid_outcome"}},
	{service.ErrRejectionReasonRequired, errorClass{http.StatusBadRequest, "reason_required"}},
	{service.ErrInvalidPriority, errorClass{http.StatusBadRequest, "invalid_priority"}},
	{service.ErrInvalidRequestData, errorClass{http.StatusBadRequest, "invalid_request_data"}},
	{service.ErrInvalidTransition, errorClass{http.StatusBadRequest, "invalid_transition"}},
	{service.ErrUrgentReasonRequired, errorClass{http.StatusBadRequest, "urgent_reason_required"}},
	{service.ErrUrgentReasonNotFound, errorClass{http.StatusBadRequest, "urgent_reason_not_found"}},
	{service.ErrPriorityUnchanged, errorClass{http.StatusBadRequest, "priority_unchanged"}},
	{service.ErrInvalidCredentials, errorClass{http.StatusUnauthorized, "invalid_credentials"}},
	{service.ErrForbidden, errorClass{http.StatusForbidden, "forbidden"}},
	{service.ErrRequestNotFound, errorClass{http.StatusNotFound, "request_not_found"}},
	{service.ErrTaskNotFound, errorClass{http.StatusNotFound, "task_not_found"}},
	{service.ErrNotificationNotFound, errorClass{http.StatusNotFound, "notification_not_found"}},
	{service.ErrRejectionNotFound, errorClass{http.StatusNotFound, "rejection_not_found"}},
	{service.ErrAttachmentNotFound, errorClass{http.StatusNotFound, "attachment_not_found"}},
	{service.ErrUserNotFound, errorClass{http.StatusNotFound, "user_not_found"}},
	{service.ErrAlreadyProcessed, errorClass{http.StatusConflict, "already_processed"}},
	{service.ErrDuplicatePending, errorClass{http.StatusConflict, "duplicate_pending"}},
}

// respondError writes err as an error envelope. Known sentinels keep their
// message; anything else is logged and answered with fallback.
func respondError(c *gin.Context, err error, fallback string) {
	for _, ec := range errorClasses {
		if errors.Is(err, ec.err) {
			c.JSON(ec.class.status, response.ErrorWithCode(ec.class.status, ec.class.code, err.Error()))
			return
		}
	}

	logger.Get().WithFields(logrus.Fields{
		"path":       c.FullPath(),
		"request_id": c.GetString("request_id"),
	}).WithError(err).Error(fallback)
	c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, fallback))
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, response.ErrorWithCode(http.StatusBadRequest, "invalid_input", msg))
}
