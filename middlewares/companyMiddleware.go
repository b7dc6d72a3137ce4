package middlewares

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/peppinicontable/contable_backend/models"
	"github.com/peppinicontable/contable_backend/utils"
)

// CompanyMiddleware scopes the request to one company and gates it on a
// valid license. Superusers may act on any company through X-Company-Id;
// everyone else is pinned to their own.
func CompanyMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		userId, ok := utils.GetUserIdFromContext(ctx)
		if !ok || userId == 0 {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}

		user, err := models.GetUser(ctx, userId)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}

		companyId := user.CompanyId
		isSuperuser, _ := utils.GetIsSuperuserFromContext(ctx)
		if isSuperuser {
			if requested := c.Request.Header.Get("X-Company-Id"); requested != "" {
				companyId = requested
			}
		}
		if companyId == "" {
			c.JSON(http.StatusForbidden, gin.H{"error": "no company assigned"})
			c.Abort()
			return
		}

		valid, err := models.HasValidLicense(ctx, companyId)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "license check failed"})
			c.Abort()
			return
		}
		if !valid {
			c.JSON(http.StatusPaymentRequired, gin.H{"error": "license expired"})
			c.Abort()
			return
		}

		c.Request = c.Request.WithContext(utils.SetCompanyIdInContext(ctx, companyId))
		c.Next()
	}
}
