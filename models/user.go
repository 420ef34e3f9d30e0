package models

import (
	"strings"
	"time"
)

// User is a blog author. Passwords are stored as bcrypt hashes only.
type User struct {
	ID           string    `gorm:"primaryKey;size:36" json:"id"`
	Username     string    `gorm:"size:30;not null;uniqueIndex" json:"username"`
	PasswordHash string    `gorm:"size:255;not null" json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"-"`
}

// Signup carries the credentials supplied when an account is created.
// PasswordConfirm is only checked, never persisted.
type Signup struct {
	Username        string `json:"username" validate:"required,min=5,max=30"`
	Password        string `json:"password" validate:"required,min=8,max=30"`
	PasswordConfirm string `json:"passwordConfirm" validate:"required,eqfield=Password"`
}

var signupMessages = map[string]string{
	"username.required":        "Username is required",
	"username.min":             "Username should be minimum 5 characters long",
	"username.max":             "Username can be maximum 30 characters long",
	"password.required":        "Password is required",
	"password.min":             "Password should be minimum 8 characters long",
	"password.max":             "Password can be maximum 30 characters long",
	"passwordConfirm.required": "Please confirm your password",
	"passwordConfirm.eqfield":  "Passwords are not the same",
}

// Normalize trims every field.
func (s *Signup) Normalize() {
	s.Username = strings.TrimSpace(s.Username)
	s.Password = strings.TrimSpace(s.Password)
	s.PasswordConfirm = strings.TrimSpace(s.PasswordConfirm)
}

// Validate returns every violated constraint, or nil.
func (s Signup) Validate() ValidationErrors {
	return check(s, signupMessages)
}

// UsernameTaken is reported when the unique username constraint fails.
func UsernameTaken() ValidationErrors {
	return Invalid("username", "Username already exists. Please choose different username or try logging in.")
}
