package models

import "time"

// UserRole represents the available roles.
type UserRole string

const (
	RoleStudent    UserRole = "student"
	RoleInstructor UserRole = "instructor"
	RoleManager    UserRole = "manager"
	RoleAdmin      UserRole = "admin"
)

// Valid reports whether the role is one of the known values.
func (r UserRole) Valid() bool {
	switch r {
	case RoleStudent, RoleInstructor, RoleManager, RoleAdmin:
		return true
	}
	return false
}

// Reviewer reports whether the role may decide requests.
func (r UserRole) Reviewer() bool {
	return r == RoleInstructor || r == RoleManager || r == RoleAdmin
}

// User represents an application user stored in the users table.
// Role is immutable after creation; there is no role-change operation.
type User struct {
	ID           string    `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Role         UserRole  `db:"role" json:"role"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time `db:"updated_at" json:"updatedAt"`
}

// UserFilter captures filtering criteria for listing users.
type UserFilter struct {
	Role   *UserRole
	Search string
	Limit  int
	Offset int
}
