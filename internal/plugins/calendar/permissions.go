package calendar

// Role is a campaign member's role as reported by the host.
type Role string

const (
	RolePlayer    Role = "player"
	RoleTrusted   Role = "trusted"
	RoleAssistant Role = "assistant"
	RoleGM        Role = "gm"
)

// ParseRole maps a header or config value to a Role. Unknown values are
// treated as players.
func ParseRole(s string) Role {
	switch Role(s) {
	case RoleTrusted, RoleAssistant, RoleGM:
		return Role(s)
	}
	return RolePlayer
}

// User is the acting user of a calendar operation.
type User struct {
	ID   string `json:"id"`
	Role Role   `json:"role"`
}

// PermissionMatrix grants one calendar action by role or to named users.
// Game masters always pass.
type PermissionMatrix struct {
	Player    bool     `json:"player"`
	Trusted   bool     `json:"trusted"`
	Assistant bool     `json:"assistant"`
	Users     []string `json:"users,omitempty"`
}

// CanUser reports whether u may perform the action guarded by p.
func (p PermissionMatrix) CanUser(u User) bool {
	switch u.Role {
	case RoleGM:
		return true
	case RolePlayer:
		if p.Player {
			return true
		}
	case RoleTrusted:
		if p.Trusted {
			return true
		}
	case RoleAssistant:
		if p.Assistant {
			return true
		}
	}
	for _, id := range p.Users {
		if id != "" && id == u.ID {
			return true
		}
	}
	return false
}
