package models

import (
	"time"

	"github.com/Skotchmaster/research_repository/internal/rbac"
)

type UserStatus string

const (
	UserActive   UserStatus = "active"
	UserInactive UserStatus = "inactive"
)

type User struct {
	ID           uint       `gorm:"primaryKey;autoIncrement"          json:"id"`
	Name         string     `gorm:"not null"                          json:"name"`
	Email        string     `gorm:"uniqueIndex;not null"              json:"email"`
	PasswordHash *string    `                                         json:"-"`
	Status       UserStatus `gorm:"not null;default:active;size:16"   json:"status"`
	Roles        []Role     `gorm:"many2many:role_user"               json:"roles,omitempty"`
	CreatedAt    time.Time  `                                         json:"created_at"`
	UpdatedAt    time.Time  `                                         json:"updated_at"`
}

func (u *User) IsActive() bool { return u != nil && u.Status == UserActive }

// RoleSet requires Roles to be preloaded.
func (u *User) RoleSet() rbac.RoleSet {
	if u == nil {
		return rbac.RoleSet{}
	}
	slugs := make([]string, 0, len(u.Roles))
	for _, r := range u.Roles {
		slugs = append(slugs, r.Slug)
	}
	return rbac.NewRoleSet(slugs...)
}

func (u *User) HasRole(slugs ...rbac.RoleSlug) bool {
	return u.RoleSet().Has(slugs...)
}

type Role struct {
	ID          uint         `gorm:"primaryKey;autoIncrement"     json:"id"`
	Name        string       `gorm:"not null"                     json:"name"`
	Slug        string       `gorm:"uniqueIndex;not null"         json:"slug"`
	Description string       `                                    json:"description"`
	Permissions []Permission `gorm:"many2many:permission_role"    json:"permissions,omitempty"`
	Users       []User       `gorm:"many2many:role_user"          json:"-"`
	CreatedAt   time.Time    `                                    json:"created_at"`
	UpdatedAt   time.Time    `                                    json:"updated_at"`
}

type Permission struct {
	ID          uint      `gorm:"primaryKey;autoIncrement"     json:"id"`
	Name        string    `gorm:"not null"                     json:"name"`
	Slug        string    `gorm:"uniqueIndex;not null"         json:"slug"`
	Module      string    `gorm:"index;not null"               json:"module"`
	Description string    `                                    json:"description"`
	Roles       []Role    `gorm:"many2many:permission_role"    json:"-"`
	CreatedAt   time.Time `                                    json:"created_at"`
	UpdatedAt   time.Time `                                    json:"updated_at"`
}

// LoginOtp keeps only the SHA-256 of the code.
type LoginOtp struct {
	ID        uint      `gorm:"primaryKey;autoIncrement"  json:"id"`
	Email     string    `gorm:"index;not null"            json:"email"`
	CodeHash  string    `gorm:"index;not null;size:64"    json:"-"`
	ExpiresAt time.Time `gorm:"index;not null"            json:"expires_at"`
	Verified  bool      `gorm:"not null;default:false"    json:"verified"`
	CreatedAt time.Time `                                 json:"created_at"`
}

type RateLimitCounter struct {
	Key             string    `gorm:"primaryKey;size:255"  json:"key"`
	Attempts        int       `gorm:"not null"             json:"attempts"`
	WindowStartedAt time.Time `gorm:"not null"             json:"window_started_at"`
	WindowSeconds   int       `gorm:"not null"             json:"window_seconds"`
}

type Session struct {
	ID        string    `gorm:"primaryKey;size:36"       json:"id"`
	UserID    uint      `gorm:"index;not null"           json:"user_id"`
	ExpiresAt time.Time `gorm:"not null"                 json:"expires_at"`
	Remember  bool      `gorm:"not null;default:false"   json:"remember"`
	Revoked   bool      `gorm:"not null;default:false"   json:"revoked"`
	CreatedAt time.Time `                                json:"created_at"`
}

type AssetType string

const (
	AssetReport      AssetType = "report"
	AssetStudy       AssetType = "study"
	AssetPublication AssetType = "publication"
)

func (t AssetType) Valid() bool {
	switch t {
	case AssetReport, AssetStudy, AssetPublication:
		return true
	}
	return false
}

type Asset struct {
	ID          uint      `gorm:"primaryKey;autoIncrement"  json:"id"`
	Title       string    `gorm:"not null"                  json:"title"`
	Type        AssetType `gorm:"index;not null;size:32"    json:"type"`
	Summary     string    `                                 json:"summary"`
	Authors     string    `                                 json:"authors"`
	PublishedAt *time.Time `                                json:"published_at,omitempty"`
	Published   bool      `gorm:"index;not null;default:false" json:"published"`
	FileKey     string    `                                 json:"-"`
	ClientID    *uint     `gorm:"index"                     json:"client_id,omitempty"`
	Client      *Client   `                                 json:"client,omitempty"`
	UserID      uint      `gorm:"index;not null"            json:"user_id"`
	CreatedAt   time.Time `                                 json:"created_at"`
	UpdatedAt   time.Time `                                 json:"updated_at"`
}

type Client struct {
	ID           uint      `gorm:"primaryKey;autoIncrement"  json:"id"`
	Name         string    `gorm:"not null"                  json:"name"`
	Organization string    `                                 json:"organization"`
	Email        string    `                                 json:"email"`
	Phone        string    `                                 json:"phone"`
	UserID       uint      `gorm:"index;not null"            json:"user_id"`
	CreatedAt    time.Time `                                 json:"created_at"`
	UpdatedAt    time.Time `                                 json:"updated_at"`
}

func All() []any {
	return []any{
		&User{}, &Role{}, &Permission{}, &LoginOtp{}, &RateLimitCounter{},
		&Session{}, &Client{}, &Asset{},
	}
}
