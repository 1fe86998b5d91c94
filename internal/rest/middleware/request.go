package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/netbill/netbill/internal/types"
)

// RequestIDMiddleware tags every request with an ID carried through the
// context and echoed back in the response headers
func RequestIDMiddleware(c *gin.Context) {
	ctx := c.Request.Context()

	requestID := c.GetHeader(types.HeaderRequestID)
	if requestID == "" {
		requestID = types.GenerateUUID()
	}

	ctx = types.SetRequestID(ctx, requestID)
	c.Request = c.Request.WithContext(ctx)

	c.Header(types.HeaderRequestID, requestID)

	c.Next()
}
