// Package access centralizes the capability checks that gate every
// handler and query builder, parameterized by (role, entity, operation).
package access

import "github.com/schoolhub-io/schoolhub-api/internal/models"

// Entity names a protected resource kind.
type Entity string

const (
	Teachers      Entity = "teachers"
	Students      Entity = "students"
	Grades        Entity = "grades"
	Classes       Entity = "classes"
	Subjects      Entity = "subjects"
	Lessons       Entity = "lessons"
	Exams         Entity = "exams"
	Assignments   Entity = "assignments"
	Events        Entity = "events"
	Announcements Entity = "announcements"
	Forms         Entity = "forms"
	Exports       Entity = "exports"
)

// Operation names an action on an entity.
type Operation string

const (
	List   Operation = "list"
	Read   Operation = "read"
	Create Operation = "create"
	Update Operation = "update"
	Delete Operation = "delete"
)

var allRoles = []models.UserRole{models.RoleAdmin, models.RoleTeacher, models.RoleStudent, models.RoleParent}

// overrides lists the entity/operation pairs whose allowed roles differ
// from the defaults (reads for everyone, mutations for admins).
var overrides = map[Entity]map[Operation][]models.UserRole{
	Subjects: {
		List: {models.RoleAdmin, models.RoleTeacher},
		Read: {models.RoleAdmin, models.RoleTeacher},
	},
	Forms: {
		Read: {models.RoleAdmin},
	},
	Exports: {
		Read: {models.RoleAdmin, models.RoleTeacher},
	},
}

// Can reports whether the role may perform the operation on the entity.
// Unknown roles are always refused.
func Can(role models.UserRole, entity Entity, op Operation) bool {
	if !role.Valid() {
		return false
	}

	allowed := defaultRoles(op)
	if entityRules, ok := overrides[entity]; ok {
		if roles, ok := entityRules[op]; ok {
			allowed = roles
		}
	}

	for _, r := range allowed {
		if r == role {
			return true
		}
	}
	return false
}

func defaultRoles(op Operation) []models.UserRole {
	switch op {
	case List, Read:
		return allRoles
	case Create, Update, Delete:
		return []models.UserRole{models.RoleAdmin}
	}
	return nil
}
