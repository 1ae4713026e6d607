package models

// Role is the access level carried by a session.
type Role string

const (
	RoleTeacher Role = "teacher"
	RoleSchool  Role = "school"
	RoleAdmin   Role = "admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleTeacher, RoleSchool, RoleAdmin:
		return true
	}
	return false
}
