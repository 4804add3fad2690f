// internal/interfaces/http/handlers/errors.go
package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/qmart/storefront/internal/interfaces/http/middleware"
	"github.com/qmart/storefront/internal/pkg/apperror"
)

var statusByKind = map[apperror.Kind]int{
	apperror.KindValidation:          http.StatusBadRequest,
	apperror.KindNotFound:            http.StatusNotFound,
	apperror.KindStateConflict:       http.StatusConflict,
	apperror.KindPaymentVerification: http.StatusPaymentRequired,
	apperror.KindGatewayUnavailable:  http.StatusServiceUnavailable,
	apperror.KindInternal:            http.StatusInternalServerError,
}

// respondError writes the JSON error body for err. Internal details stay in the access log.
func respondError(c *gin.Context, err error) {
	_ = c.Error(err)

	appErr, ok := apperror.As(err)
	if !ok || appErr.Kind == apperror.KindInternal {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Internal server error",
			"code":  apperror.CodeInternal,
		})
		return
	}

	body := gin.H{
		"error": appErr.Message,
		"code":  appErr.Code,
	}
	if appErr.Field != "" {
		body["field"] = appErr.Field
	}
	if appErr.Current != "" {
		body["current_state"] = appErr.Current
		body["requested_state"] = appErr.Requested
	}
	if appErr.Retryable {
		body["retryable"] = true
	}

	status, ok := statusByKind[appErr.Kind]
	if !ok {
		status = http.StatusInternalServerError
	}
	c.JSON(status, body)
}

func respondInvalidRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"error":   "Invalid request data",
		"code":    apperror.CodeInvalidInput,
		"details": err.Error(),
	})
}

// requireUser reads the authenticated user ID set by the auth middleware
func requireUser(c *gin.Context) (uint, bool) {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "User not authenticated",
		})
		return 0, false
	}
	return userID, true
}

// idParam parses a positive numeric path parameter
func idParam(c *gin.Context, name, label string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid " + label,
			"code":  apperror.CodeInvalidInput,
		})
		return 0, false
	}
	return uint(id), true
}
