package models

import "time"

// Account roles. A viewer reads heater state, logs and model endpoints; an
// operator may also start or stop the schedule and change roles.
const (
	RoleViewer   = "viewer"
	RoleOperator = "operator"
)

// ValidRole reports whether r is a known role.
func ValidRole(r string) bool {
	return r == RoleViewer || r == RoleOperator
}

type Operator struct {
	ID           int       `json:"id"`
	Username     string    `json:"username"`
	Role         string    `json:"role"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}
