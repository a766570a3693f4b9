package middlewares

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/brewcrafthq/brewery_backend/utils"
)

// SessionMiddleware trusts the identity headers set by the API gateway in
// front of this service. Requests without a brewery id are rejected before
// they reach any handler; everything downstream reads the tenant from the
// request context.
func SessionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		breweryId := c.Request.Header.Get("X-Brewery-Id")
		if breweryId == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}

		ctx := utils.SetBreweryIdInContext(c.Request.Context(), breweryId)
		if userId, err := strconv.Atoi(c.Request.Header.Get("X-User-Id")); err == nil {
			ctx = utils.SetUserIdInContext(ctx, userId)
		}
		if userName := c.Request.Header.Get("X-User-Name"); userName != "" {
			ctx = utils.SetUserNameInContext(ctx, userName)
		}

		correlationId := c.Request.Header.Get("X-Correlation-Id")
		if correlationId == "" {
			correlationId = uuid.NewString()
		}
		ctx = utils.SetCorrelationIdInContext(ctx, correlationId)
		c.Writer.Header().Set("X-Correlation-Id", correlationId)

		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
