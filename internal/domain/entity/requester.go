package entity

import "github.com/google/uuid"

// Requester is the authenticated caller of a usecase.
type Requester struct {
	UserID uuid.UUID
	RoleID int
}

func (r Requester) IsAdmin() bool   { return r.RoleID == RoleIDAdmin }
func (r Requester) IsDoctor() bool  { return r.RoleID == RoleIDDoctor }
func (r Requester) IsPatient() bool { return r.RoleID == RoleIDPatient }
