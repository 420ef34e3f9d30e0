package utils

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/blogly/blogly/models"
)

const internalErrorMessage = "Something went very wrong!"

// JSONResponse defines the uniform structure for error responses.
type JSONResponse struct {
	Status  string                  `json:"status"`
	Code    int                     `json:"code,omitempty"`
	Message string                  `json:"message,omitempty"`
	Errors  models.ValidationErrors `json:"errors,omitempty"`
}

// Success writes {"status":"success", ...fields}.
func Success(ctx *gin.Context, status int, fields gin.H) {
	body := gin.H{"status": "success"}
	for k, v := range fields {
		body[k] = v
	}
	ctx.JSON(status, body)
}

// Error aborts with a standard error response.
func Error(ctx *gin.Context, status int, code int, message string) {
	ctx.AbortWithStatusJSON(status, JSONResponse{
		Status:  statusText(status),
		Code:    code,
		Message: message,
	})
}

// Fail is the single place domain errors are turned into responses.
// The error is attached to the gin context so the access logger records it;
// unclassified errors never leak details to the client.
func Fail(ctx *gin.Context, err error) {
	_ = ctx.Error(err)

	var verrs models.ValidationErrors
	if errors.As(err, &verrs) {
		ctx.AbortWithStatusJSON(http.StatusBadRequest, JSONResponse{
			Status:  statusText(http.StatusBadRequest),
			Code:    40000,
			Message: verrs.Error(),
			Errors:  verrs,
		})
		return
	}

	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Kind != KindInternal {
		Error(ctx, appErr.Kind.Status(), appErr.Code, appErr.Message)
		return
	}

	Error(ctx, http.StatusInternalServerError, 50000, internalErrorMessage)
}

func statusText(status int) string {
	if status >= 500 {
		return "error"
	}
	return "fail"
}
