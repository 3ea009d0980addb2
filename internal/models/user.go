package models

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// User represents a registered account.
type User struct {
	ID                   string     `json:"id" gorm:"primaryKey;type:varchar(36)" validate:"omitempty,uuid"`
	Email                string     `json:"email" gorm:"uniqueIndex;type:varchar(255);not null" validate:"required,email"`
	Name                 string     `json:"name" gorm:"type:varchar(255);not null" validate:"required,max=255"`
	PasswordHash         string     `json:"-" gorm:"type:varchar(255);not null"` // No json tag for security
	ResetPasswordToken   *string    `json:"-" gorm:"index;type:varchar(64)"`
	ResetPasswordExpires *time.Time `json:"-"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
}

// Gravatar returns the avatar URL derived from the user's email.
func (u *User) Gravatar() string {
	sum := md5.Sum([]byte(strings.ToLower(strings.TrimSpace(u.Email))))
	return fmt.Sprintf("https://gravatar.com/avatar/%s?s=200", hex.EncodeToString(sum[:]))
}

// MarshalJSON adds the gravatar URL to the user's JSON form.
func (u User) MarshalJSON() ([]byte, error) {
	type plain User
	return json.Marshal(struct {
		plain
		Gravatar string `json:"gravatar"`
	}{plain(u), u.Gravatar()})
}
