package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/schoolhub-io/schoolhub-api/internal/middleware"
	"github.com/schoolhub-io/schoolhub-api/internal/models"
)

// pageParams reads pagination query parameters. Unparseable values fall
// back to the defaults, matching the ignore-unrecognized contract.
func pageParams(c *gin.Context) (int, int) {
	page := 1
	size := 20
	if v, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil && v > 0 {
		page = v
	}
	if v, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil && v > 0 {
		size = v
	}
	return page, size
}

// callerScope returns the row-filtering scope for the request.
func callerScope(c *gin.Context) models.Scope {
	scope, _ := middleware.CurrentScope(c)
	return scope
}
