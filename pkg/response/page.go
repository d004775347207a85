package response

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

// Page reads ?limit and ?offset with defaults 50 and 0; limit is capped at 200.
func Page(c *gin.Context) (limit, offset int) {
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
