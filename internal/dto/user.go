package dto

import "time"

type UserRequest struct {
	ID       int64
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Phone    string `json:"phone"`
	Role     string `json:"role"`
}

type LoginRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	IPAddress string `json:"-"`
	UserAgent string `json:"-"`
}

type LoginResponse struct {
	Token  string `json:"token"`
	UserID int64  `json:"user_id"`
	Role   string `json:"role"`
}

type RoleUpdateRequest struct {
	Role string `json:"role"`
}

type UserResponse struct {
	ID         int64     `json:"id"`
	ExternalID string    `json:"external_id"`
	FullName   string    `json:"full_name"`
	Email      string    `json:"email"`
	Phone      *string   `json:"phone"`
	Role       string    `json:"role"`
	Suspended  bool      `json:"suspended"`
	CreatedAt  time.Time `json:"created_at"`
}
