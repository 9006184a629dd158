package access

// Role is the closed set of roles a user can act under.
type Role string

const (
	RoleDirector    Role = "director"
	RoleSecretario  Role = "secretario"
	RoleTutor       Role = "tutor"
	RoleFacilitador Role = "facilitador"
)

// Valid reports whether the role belongs to the closed set.
func (r Role) Valid() bool {
	switch r {
	case RoleDirector, RoleSecretario, RoleTutor, RoleFacilitador:
		return true
	}
	return false
}

// SystemFacilitatorID is the roleId of the system-wide facilitator option,
// the only option not bound to an organization.
const SystemFacilitatorID = "facilitador-sistema"

// FacilitatorOptionID returns the roleId of a facilitator option scoped to
// one owned organization.
func FacilitatorOptionID(organizationID string) string {
	return "facilitador-" + organizationID
}

// Organization is a tenant unit (FCP) owning classrooms, members and
// attendance records.
type Organization struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Active  bool   `json:"active"`
	OwnerID string `json:"owner_id,omitempty"`
}

// Membership is a user's role assignment within one organization. Membership
// roles are director, secretario and tutor; facilitador exists only as a
// grant. The model tolerates duplicate (user, organization) rows; inactive
// rows never enter the resolvable option set.
type Membership struct {
	ID             string `json:"id"`
	UserID         string `json:"user_id"`
	OrganizationID string `json:"organization_id"`
	Role           Role   `json:"role"`
	Active         bool   `json:"active"`
}

// RoleOption is a resolved, user-facing candidate for the active role.
// RoleID is the membership id for membership-backed options,
// SystemFacilitatorID for the global facilitator option, and
// "facilitador-<orgID>" for a facilitator option scoped to an owned
// organization.
type RoleOption struct {
	RoleID          string `json:"roleId"`
	Role            Role   `json:"role"`
	OrganizationID  string `json:"organizationId,omitempty"`
	OrganizationRef string `json:"organizationRef,omitempty"`
}

// RoleSelection is the persisted pointer to the chosen option. It carries no
// authorization weight by itself; every privileged read revalidates it
// against the current option set.
type RoleSelection struct {
	RoleID         string `json:"roleId"`
	Role           Role   `json:"role"`
	OrganizationID string `json:"organizationId,omitempty"`
}

// Matches reports whether the selection points at the given option.
func (s RoleSelection) Matches(opt RoleOption) bool {
	return s.RoleID == opt.RoleID && s.Role == opt.Role && s.OrganizationID == opt.OrganizationID
}

// Selection derives the persisted pointer for an option.
func (o RoleOption) Selection() RoleSelection {
	return RoleSelection{RoleID: o.RoleID, Role: o.Role, OrganizationID: o.OrganizationID}
}
