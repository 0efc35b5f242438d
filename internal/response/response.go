package response

import (
	"github.com/gin-gonic/gin"
)

// ErrorCodeKey holds the code of the error envelope written for the request
const ErrorCodeKey = "response.error_code"

// SuccessResponse wraps successful payloads
type SuccessResponse struct {
	Data      interface{} `json:"data"`
	RequestID string      `json:"requestId,omitempty"`
}

// ErrorDetail is the body of an error response
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse wraps error payloads
type ErrorResponse struct {
	Error     ErrorDetail `json:"error"`
	RequestID string      `json:"requestId,omitempty"`
}

// SendSuccess writes a success envelope
func SendSuccess(c *gin.Context, statusCode int, data interface{}) {
	c.JSON(statusCode, SuccessResponse{
		Data:      data,
		RequestID: c.GetHeader("X-Request-ID"),
	})
}

// SendError writes an error envelope
func SendError(c *gin.Context, statusCode int, code, message string) {
	c.Set(ErrorCodeKey, code)
	c.JSON(statusCode, ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
		},
		RequestID: c.GetHeader("X-Request-ID"),
	})
}
