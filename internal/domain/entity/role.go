package entity

// Role represents a user role in the system
type Role struct {
	ID          int    `gorm:"primaryKey;autoIncrement" json:"id"`
	RoleName    string `gorm:"type:varchar(50);uniqueIndex;not null" json:"role_name"`
	Description string `gorm:"type:text" json:"description,omitempty"`
}

func (Role) TableName() string {
	return "roles"
}

// Role ID constants
const (
	RoleIDAdmin   = 1
	RoleIDDoctor  = 2
	RoleIDPatient = 3
)

// RoleNames constants
const (
	RoleAdmin   = "admin"
	RoleDoctor  = "doctor"
	RolePatient = "patient"
)

// RoleName maps a role id to its name, empty for unknown ids.
func RoleName(roleID int) string {
	switch roleID {
	case RoleIDAdmin:
		return RoleAdmin
	case RoleIDDoctor:
		return RoleDoctor
	case RoleIDPatient:
		return RolePatient
	default:
		return ""
	}
}

// DefaultRoles are seeded by the first migration.
func DefaultRoles() []Role {
	return []Role{
		{ID: RoleIDAdmin, RoleName: RoleAdmin, Description: "Clinic administrator"},
		{ID: RoleIDDoctor, RoleName: RoleDoctor, Description: "Doctor managing own availability and visits"},
		{ID: RoleIDPatient, RoleName: RolePatient, Description: "Patient booking appointments"},
	}
}
