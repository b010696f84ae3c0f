package domain

import "time"

type Role string

const (
	RoleBuyer       Role = "buyer"
	RoleTrader      Role = "trader"
	RoleTransporter Role = "transporter"
	RoleAdmin       Role = "admin"
	RoleWholesaler  Role = "wholesaler"
)

func (r Role) Valid() bool {
	_, ok := rolePermissions[r]
	return ok
}

type Profile struct {
	ID             int64      `db:"id"`
	ExternalID     string     `db:"external_id"`
	FullName       string     `db:"full_name"`
	Email          string     `db:"email"`
	Phone          *string    `db:"phone"`
	HashedPassword string     `db:"hashed_password"`
	Role           Role       `db:"role"`
	Suspended      bool       `db:"suspended"`
	CreatedAt      time.Time  `db:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at"`
	DeletedAt      *time.Time `db:"deleted_at"`
}

// Active reports whether the profile may use the API.
func (p Profile) Active() bool {
	return p.ID != 0 && !p.Suspended && p.DeletedAt == nil
}

type LoginHistory struct {
	ID        int64     `db:"id" json:"id"`
	ProfileID int64     `db:"profile_id" json:"profile_id"`
	IPAddress string    `db:"ip_address" json:"ip_address"`
	UserAgent string    `db:"user_agent" json:"user_agent"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
