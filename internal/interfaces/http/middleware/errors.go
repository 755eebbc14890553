package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/shopadmin/backend/internal/interfaces/http/dto"
)

// abortWithError stops the chain and writes the error envelope
func abortWithError(c *gin.Context, code, message string, details map[string]any) {
	c.AbortWithStatusJSON(dto.GetHTTPStatus(code),
		dto.NewErrorResponseWithRequestID(code, message, GetRequestID(c), details))
}
