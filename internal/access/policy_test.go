package access

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/schoolhub-io/schoolhub-api/internal/models"
)

func TestCanDefaults(t *testing.T) {
	assert.True(t, Can(models.RoleAdmin, Lessons, Create))
	assert.True(t, Can(models.RoleStudent, Lessons, List))
	assert.True(t, Can(models.RoleParent, Events, List))

	assert.False(t, Can(models.RoleTeacher, Lessons, Create))
	assert.False(t, Can(models.RoleStudent, Students, Delete))
	assert.False(t, Can(models.RoleParent, Teachers, Update))
}

func TestCanOverrides(t *testing.T) {
	assert.True(t, Can(models.RoleTeacher, Subjects, List))
	assert.False(t, Can(models.RoleStudent, Subjects, List))
	assert.False(t, Can(models.RoleParent, Subjects, Read))

	assert.True(t, Can(models.RoleAdmin, Forms, Read))
	assert.False(t, Can(models.RoleTeacher, Forms, Read))

	assert.True(t, Can(models.RoleTeacher, Exports, Read))
	assert.False(t, Can(models.RoleStudent, Exports, Read))
}

func TestCanUnknownRole(t *testing.T) {
	assert.False(t, Can(models.UserRole(""), Lessons, List))
	assert.False(t, Can(models.UserRole("guest"), Lessons, List))
}
