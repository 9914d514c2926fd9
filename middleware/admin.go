package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/rewardshub/server/config"
	"github.com/rewardshub/server/utils"
)

// AdminRequired gates catalog management behind the configured admin
// allow-list. Must run after AuthRequired.
func AdminRequired() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		email, _ := ctx.Get(ContextEmailKey)
		emailStr, _ := email.(string)
		if emailStr == "" || !isAdminEmail(emailStr) {
			utils.Error(ctx, http.StatusForbidden, 40301, "admin access required")
			ctx.Abort()
			return
		}
		ctx.Next()
	}
}

func isAdminEmail(email string) bool {
	for _, admin := range config.Get().AdminEmails {
		if strings.EqualFold(admin, email) {
			return true
		}
	}
	return false
}
