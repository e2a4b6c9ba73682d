package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// APIError is the wire shape of an error.
type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// ErrorEnvelope wraps an APIError for JSON responses.
type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

// RespondError writes a JSON error envelope with the given status.
func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    code,
		},
	})
}

// RespondOK writes a 200 JSON response.
func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}
