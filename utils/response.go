package utils

import (
	"net/http"
	"time"

	"trackpulse/models"

	"github.com/gin-gonic/gin"
)

// Success responses

func SuccessResponse(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusOK, models.APIResponse{
		Success:   true,
		Message:   message,
		Data:      data,
		Timestamp: time.Now(),
	})
}

func CreatedResponse(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusCreated, models.APIResponse{
		Success:   true,
		Message:   message,
		Data:      data,
		Timestamp: time.Now(),
	})
}

// Error responses

func ErrorResponse(c *gin.Context, statusCode int, code, message string) {
	c.JSON(statusCode, models.APIResponse{
		Success: false,
		Message: message,
		Error: &models.APIError{
			Code:    code,
			Message: message,
		},
		Timestamp: time.Now(),
	})
}

func BadRequestResponse(c *gin.Context, message string) {
	ErrorResponse(c, http.StatusBadRequest, ErrCodeValidation, message)
}

func NotFoundResponse(c *gin.Context, message string) {
	ErrorResponse(c, http.StatusNotFound, ErrCodeNotFound, message)
}

func ConflictResponse(c *gin.Context, message string) {
	ErrorResponse(c, http.StatusConflict, ErrCodeConflict, message)
}

func InternalServerErrorResponse(c *gin.Context, message string) {
	ErrorResponse(c, http.StatusInternalServerError, ErrCodeInternal, message)
}

// ServiceErrorResponse maps a ServiceError onto an HTTP reply.
func ServiceErrorResponse(c *gin.Context, err error) {
	serviceErr, ok := GetServiceError(err)
	if !ok {
		InternalServerErrorResponse(c, err.Error())
		return
	}

	status := http.StatusInternalServerError
	switch serviceErr.Code {
	case ErrCodeValidation, ErrCodeBadGeofence, ErrCodeBadWakeMsg:
		status = http.StatusBadRequest
	case ErrCodeNotFound, ErrCodeUnknownDevice:
		status = http.StatusNotFound
	case ErrCodeConflict:
		status = http.StatusConflict
	case ErrCodeQueueFull, ErrCodeNotRunning:
		status = http.StatusServiceUnavailable
	}

	ErrorResponse(c, status, serviceErr.Code, serviceErr.Message)
}
