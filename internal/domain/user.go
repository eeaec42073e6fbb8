package domain

import "time"

// User representa la fila de identidad de una cuenta.
type User struct {
	ID            string    `json:"id"`
	Name          string    `json:"name,omitempty"`
	Email         string    `json:"email,omitempty"`
	PasswordHash  string    `json:"-"`
	PhoneNumber   string    `json:"phone_number,omitempty"`
	EmailVerified bool      `json:"email_verified"`
	PhoneVerified bool      `json:"phone_verified"`
	GoogleUID     string    `json:"-"`
	AccessToken   string    `json:"-"`
	RefreshToken  string    `json:"-"`
	CreatedAt     time.Time `json:"created_at"`
}
