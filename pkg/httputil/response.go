package httputil

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/appointment-api/pkg/errors"
)

// Payload holds the extra top-level fields of a response body.
type Payload map[string]interface{}

// RespondWithSuccess writes {success: true, message, ...payload}.
func RespondWithSuccess(c *gin.Context, status int, message string, payload Payload) {
	body := gin.H{
		"success": true,
		"message": message,
	}
	for k, v := range payload {
		body[k] = v
	}
	c.JSON(status, body)
}

// RespondWithError writes {success: false, message} with the status derived
// from the error. Errors that are not *errors.AppError become a 500.
func RespondWithError(c *gin.Context, err error) {
	appErr := errors.As(err)
	c.JSON(appErr.HTTPStatus(), gin.H{
		"success": false,
		"message": appErr.Message,
	})
}

// AbortWithError is RespondWithError for middleware.
func AbortWithError(c *gin.Context, err error) {
	RespondWithError(c, err)
	c.Abort()
}

// RespondValidation reports a request that failed binding.
func RespondValidation(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"success": false,
		"message": err.Error(),
	})
}
