package group

import "time"

// MemberRole is a group member's role. Admins may delete any group expense;
// plain members may not.
type MemberRole string

const (
	MemberRoleAdmin  MemberRole = "ADMIN"
	MemberRoleMember MemberRole = "MEMBER"
)

// Valid reports whether r is a known role.
func (r MemberRole) Valid() bool {
	return r == MemberRoleAdmin || r == MemberRoleMember
}

// Group owns a set of members and scopes the expenses created under it.
type Group struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
	CreatedBy   int64     `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
}

// Member is a user's membership in a group.
type Member struct {
	ID       int64      `json:"id"`
	GroupID  int64      `json:"group_id"`
	UserID   int64      `json:"user_id"`
	Role     MemberRole `json:"role"`
	JoinedAt time.Time  `json:"joined_at"`

	// Populated via JOIN
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`
}
