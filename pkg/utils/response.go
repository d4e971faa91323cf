package utils

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *AppError   `json:"error,omitempty"`
	Meta    *Meta       `json:"meta,omitempty"`
}

type Meta struct {
	Page       int   `json:"page,omitempty"`
	PerPage    int   `json:"per_page,omitempty"`
	Total      int64 `json:"total,omitempty"`
	TotalPages int   `json:"total_pages,omitempty"`
}

func SendSuccess(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    data,
	})
}

func SendSuccessWithMeta(c *gin.Context, data interface{}, meta *Meta) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    data,
		Meta:    meta,
	})
}

func SendError(c *gin.Context, statusCode int, err *AppError) {
	c.JSON(statusCode, Response{
		Success: false,
		Error:   err,
	})
}

func SendValidationError(c *gin.Context, message string, details string) {
	SendError(c, http.StatusBadRequest, NewAppError(ErrCodeValidation, message, details))
}

func SendNotFound(c *gin.Context, message string) {
	SendError(c, http.StatusNotFound, NewAppError(ErrCodeNotFound, message))
}

func SendInternalError(c *gin.Context, message string) {
	SendError(c, http.StatusInternalServerError, NewAppError(ErrCodeInternal, message))
}

func SendConflict(c *gin.Context, message string) {
	SendError(c, http.StatusConflict, NewAppError(ErrCodeConflict, message))
}

// SendDomainError maps the domain error taxonomy to HTTP responses.
func SendDomainError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrInvalidInput):
		SendError(c, http.StatusBadRequest, NewAppError(ErrCodeValidation, err.Error()))
	case errors.Is(err, ErrNotFound):
		SendError(c, http.StatusNotFound, NewAppError(ErrCodeNotFound, err.Error()))
	case errors.Is(err, ErrNoStatistics):
		SendError(c, http.StatusConflict, NewAppError(ErrCodeNoStatistics, err.Error(),
			"seed default statistics for the player profile first"))
	case errors.Is(err, ErrExternalService):
		SendError(c, http.StatusBadGateway, NewAppError(ErrCodeExternalService, err.Error()))
	case errors.Is(err, ErrPersistence):
		SendError(c, http.StatusInternalServerError, NewAppError(ErrCodePersistence, err.Error()))
	default:
		SendInternalError(c, err.Error())
	}
}
