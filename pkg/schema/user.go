package schema

import "strings"

// Collection names known to the registry.
const (
	Leads      = "leads"
	Users      = "users"
	Activities = "activities"
)

// User fields.
const (
	FieldName     = "name"
	FieldEmail    = "email"
	FieldPassword = "password"
	FieldRole     = "role"
	FieldLeadID   = "leadId"
)

// RoleAdmin is the role given to the seeded account.
const RoleAdmin = "admin"

// User is the credential-free view of a user record returned by the API.
type User struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	CreatedAt string `json:"createdAt,omitempty"`
}

// SafeUser projects a stored user record onto its public fields.
func SafeUser(r Record) User {
	return User{
		ID:        r.ID(),
		Name:      r.Str(FieldName),
		Email:     r.Str(FieldEmail),
		Role:      r.Str(FieldRole),
		CreatedAt: r.CreatedAt(),
	}
}

// Lead is a typed view over the fields the bundled UI writes on a lead.
// Unknown fields stay in the underlying Record.
type Lead struct {
	ID        string `json:"id"`
	Name      string `json:"name,omitempty"`
	Company   string `json:"company,omitempty"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
	Status    string `json:"status,omitempty"`
	CreatedAt string `json:"createdAt"`
}

// Activity is a typed view over an activity record.
type Activity struct {
	ID        string `json:"id"`
	LeadID    string `json:"leadId"`
	Type      string `json:"type,omitempty"`
	Note      string `json:"note,omitempty"`
	CreatedAt string `json:"createdAt"`
}

// Singular returns the response field name used for one record of a collection.
func Singular(collection string) string {
	switch collection {
	case Leads:
		return "lead"
	case Users:
		return "user"
	case Activities:
		return "activity"
	}
	return strings.TrimSuffix(collection, "s")
}
