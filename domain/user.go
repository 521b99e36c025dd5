package domain

// Role is the coarse permission class attached to every user.
type Role string

const (
	RoleAdmin         Role = "admin"
	RolePharmacyAdmin Role = "pharmacy_admin"
	RoleStaff         Role = "staff"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RolePharmacyAdmin, RoleStaff:
		return true
	}
	return false
}

type User struct {
	ID           int64  `json:"id" db:"id"`
	Username     string `json:"username" db:"username"`
	PasswordHash string `json:"-" db:"password_hash"`
	Role         Role   `json:"role" db:"role"`
	CreatedAt    string `json:"created_at,omitempty" db:"created_at"`
}
