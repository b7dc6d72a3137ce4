package middlewares

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/peppinicontable/contable_backend/models"
	"github.com/peppinicontable/contable_backend/utils"
)

// AuthMiddleware validates the bearer token and loads the authenticated
// user into the request context.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.Request.Header.Get("Authorization")

		bearer := "Bearer "
		if !strings.HasPrefix(auth, bearer) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}
		auth = auth[len(bearer):]

		validate, err := utils.JwtValidate(auth)
		if err != nil || !validate.Valid {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}

		claim, ok := validate.Claims.(*utils.JwtCustomClaim)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}

		user, err := models.GetUser(c.Request.Context(), claim.ID)
		if err != nil || user.IsActive == nil || !*user.IsActive {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}

		isSuperuser := user.IsSuperuser != nil && *user.IsSuperuser

		ctx := c.Request.Context()
		ctx = utils.SetTokenInContext(ctx, auth)
		ctx = utils.SetUserIdInContext(ctx, user.ID)
		ctx = utils.SetUsernameInContext(ctx, user.Username)
		ctx = utils.SetUserNameInContext(ctx, user.Name)
		ctx = utils.SetIsSuperuserInContext(ctx, isSuperuser)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
