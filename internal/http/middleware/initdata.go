package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	initdata "github.com/telegram-mini-apps/init-data-golang"
)

// Context keys for Telegram init-data derived fields.
const (
	UserIDCtxParam    = "user_id"
	FirstNameCtxParam = "first_name"
	UsernameCtxParam  = "username"
)

// InitData validates Telegram Mini Apps init-data and stores the parsed
// user fields on the request context. Init-data is read from the
// "X-Telegram-Init-Data" header, falling back to the "init_data" query
// parameter. With skip set the middleware passes everything through,
// which is only meant for local development.
func InitData(token string, expIn time.Duration, skip bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if skip || c.FullPath() == "/ping" {
			c.Next()
			return
		}

		if token == "" {
			c.AbortWithStatusJSON(500, gin.H{"error": "init-data validation is not configured"})
			return
		}

		raw := c.GetHeader("X-Telegram-Init-Data")
		if raw == "" {
			raw = c.Query("init_data")
		}
		if raw == "" {
			c.AbortWithStatusJSON(401, gin.H{"error": "missing init_data"})
			return
		}

		if err := initdata.Validate(raw, token, expIn); err != nil {
			c.AbortWithStatusJSON(401, gin.H{"error": "invalid init_data"})
			return
		}

		parsed, err := initdata.Parse(raw)
		if err != nil {
			c.AbortWithStatusJSON(400, gin.H{"error": "invalid init_data format"})
			return
		}

		if parsed.User.ID != 0 {
			c.Set(UserIDCtxParam, parsed.User.ID)
			c.Set(FirstNameCtxParam, parsed.User.FirstName)
			c.Set(UsernameCtxParam, parsed.User.Username)
		}

		c.Next()
	}
}
