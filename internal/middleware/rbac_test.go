package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/schoolhub-io/schoolhub-api/internal/access"
	"github.com/schoolhub-io/schoolhub-api/internal/models"
)

func authorizedRouter(role models.UserRole, entity access.Entity, op access.Operation) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/resource", func(c *gin.Context) {
		c.Set(ContextUserKey, &models.JWTClaims{UserID: "u-1", Role: role})
	}, Authorize(entity, op), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return r
}

func TestAuthorizeAllowsAdminMutations(t *testing.T) {
	r := authorizedRouter(models.RoleAdmin, access.Teachers, access.Create)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/resource", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuthorizeForbidsStudentMutations(t *testing.T) {
	r := authorizedRouter(models.RoleStudent, access.Teachers, access.Create)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/resource", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestAuthorizeAllowsAnyRoleToList(t *testing.T) {
	for _, role := range []models.UserRole{models.RoleAdmin, models.RoleTeacher, models.RoleStudent, models.RoleParent} {
		r := authorizedRouter(role, access.Exams, access.List)

		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodPost, "/resource", nil)
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code, "role %s", role)
	}
}

func TestAuthorizeRequiresClaims(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/resource", Authorize(access.Teachers, access.Create), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/resource", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
