package model

// UserRole is issued by the identity service and carried in the access token.
type UserRole string

const (
	Student UserRole = "student"
	Teacher UserRole = "teacher"
	Admin   UserRole = "admin"
)

// Actor is the authenticated caller of a service operation.
type Actor struct {
	ID   string   `json:"id"`
	Role UserRole `json:"role"`
}

// CanManage reports whether the actor may modify a resource owned by ownerID.
// Admins manage everything; an unowned resource is open to any teacher.
func (a Actor) CanManage(ownerID string) bool {
	if a.Role == Admin {
		return true
	}
	return ownerID == "" || ownerID == a.ID
}
