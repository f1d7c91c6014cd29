package models

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	ROLE_USER       = "user"
	ROLE_ADMIN      = "admin"
	STATUS_ACTIVE   = "active"
	STATUS_DISABLED = "disabled"
)

// loginTokenTTL bounds how long a magic-link token stays valid.
const loginTokenTTL = 15 * time.Minute

// User is an authenticated visitor. The email doubles as the metering
// identity; there is no password, sign-in happens via magic link or OAuth.
type User struct {
	ID               uint           `gorm:"primaryKey" json:"id"`
	Name             string         `gorm:"type:varchar(150)" json:"name" validate:"max=150"`
	Email            string         `gorm:"uniqueIndex;type:varchar(200) CHARACTER SET utf8 COLLATE utf8_bin" json:"email" validate:"required,email,min=5,max=200"`
	Role             string         `gorm:"type:varchar(50);default:'user'" json:"role" validate:"oneof=user admin"`
	Status           string         `gorm:"type:varchar(50);default:'active'" json:"status" validate:"oneof=active disabled"`
	LoginToken       string         `gorm:"type:varchar(100);index" json:"-"`
	LoginTokenSentAt *time.Time     `gorm:"type:timestamp;default:null" json:"-"`
	LastLoginAt      *time.Time     `gorm:"type:timestamp;default:null" json:"last_login_at"`
	CreatedAt        time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"-"`
}

func (u *User) Validate() error {
	v := validator.New()

	return v.Struct(u)
}

func CreateUser(email string) (*User, error) {
	u := &User{
		Email:  email,
		Role:   ROLE_USER,
		Status: STATUS_ACTIVE,
	}

	if err := u.Validate(); err != nil {
		return nil, err
	}

	return u, nil
}

// GenerateLoginToken creates a random magic-link token and stamps LoginTokenSentAt.
func (u *User) GenerateLoginToken() error {
	token, err := uuid.NewRandom()
	if err != nil {
		return err
	}
	u.LoginToken = token.String()
	now := time.Now()
	u.LoginTokenSentAt = &now
	return nil
}

// IsLoginTokenValid checks the magic-link token and its expiry window.
func (u *User) IsLoginTokenValid(token string) bool {
	if u.LoginToken == "" || u.LoginTokenSentAt == nil {
		return false
	}
	if u.LoginToken != token {
		return false
	}
	return time.Since(*u.LoginTokenSentAt) < loginTokenTTL
}

// ClearLoginToken invalidates the magic-link token after use.
func (u *User) ClearLoginToken() {
	u.LoginToken = ""
	u.LoginTokenSentAt = nil
}

// IsActive reports whether the user status is active
func (u *User) IsActive() bool {
	return u.Status == STATUS_ACTIVE
}
