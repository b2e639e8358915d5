package session

// Role is a coarse permission tier inferred from gateway role codes.
// Higher values outrank lower ones.
type Role int

const (
	RoleUser Role = iota
	RoleModerator
	RoleAdmin
)

func (r Role) String() string {
	switch r {
	case RoleAdmin:
		return "admin"
	case RoleModerator:
		return "moderator"
	default:
		return "user"
	}
}

// RoleFromCode maps a four digit role code to a Role. Unrecognised codes,
// "0000" included, are plain users.
func RoleFromCode(code string) Role {
	switch code {
	case "0003", "0010":
		return RoleAdmin
	case "0001", "0002":
		return RoleModerator
	default:
		return RoleUser
	}
}
