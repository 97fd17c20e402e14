package model

type Role string

const (
	RoleOwner  Role = "owner"
	RoleEditor Role = "editor"
	RoleViewer Role = "viewer"
)

type Action string

const (
	ActionRead  Action = "read"
	ActionWrite Action = "write"
	ActionAdmin Action = "admin"
)

// Can reports whether role may perform action. Roles nest: owner ⊇ editor ⊇ viewer.
func Can(role Role, action Action) bool {
	switch role {
	case RoleOwner:
		return true
	case RoleEditor:
		return action == ActionRead || action == ActionWrite
	case RoleViewer:
		return action == ActionRead
	default:
		return false
	}
}

// FirstContactRole maps the role a new collaborator asked for to the one they get.
// Only an explicit viewer request downgrades; anything else grants edit access.
func FirstContactRole(requested string) Role {
	if Role(requested) == RoleViewer {
		return RoleViewer
	}
	return RoleEditor
}

// StoredRole normalizes a role read back from a store. Owner is never stored on a
// collaborator, so it degrades to viewer along with unknown values.
func StoredRole(role string) Role {
	switch Role(role) {
	case RoleEditor, RoleViewer:
		return Role(role)
	default:
		return RoleViewer
	}
}

// ExistingRole returns the role userID already holds on doc without mutating it.
// ok is false for a first contact.
func ExistingRole(doc *Document, userID string) (role Role, ok bool) {
	if userID == "" {
		return RoleViewer, true
	}
	if doc.OwnerID != "" && doc.OwnerID == userID {
		return RoleOwner, true
	}
	if c, found := doc.Collaborator(userID); found {
		return c.Role, true
	}
	return "", false
}
