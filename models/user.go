package models

import "time"

const (
	UserTable        = "gear_users"
	DeviceTokenTable = "gear_device_tokens"
)

// Roles. Guests are restricted accounts: they may browse and scan but never
// borrow or return.
const (
	RoleAdmin  = "admin"
	RoleMember = "member"
	RoleGuest  = "guest"
)

type User struct {
	ID           string `gorm:"primaryKey;type:uuid" json:"id"`
	Username     string `gorm:"uniqueIndex;size:255;not null" json:"username"`
	DisplayName  string `gorm:"size:255;not null" json:"displayName"`
	Role         string `gorm:"size:20;not null;default:'member'" json:"role"`
	PasswordHash []byte `json:"-"`

	LastLoginAt *time.Time `gorm:"index" json:"lastLoginAt,omitempty"`
	LastSeenAt  *time.Time `gorm:"index" json:"lastSeenAt,omitempty"`
	LoginCount  int64      `gorm:"not null;default:0" json:"loginCount"`
	LastLoginIP string     `gorm:"size:45" json:"-"`
	LastLoginUA string     `gorm:"size:255" json:"-"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (User) TableName() string { return UserTable }

// DeviceToken tracks a long-lived mobile token by its JTI so individual
// devices can be revoked without rotating the signing secret.
type DeviceToken struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	UserID    string     `gorm:"type:uuid;index;not null" json:"userId"`
	JTI       string     `gorm:"size:64;uniqueIndex;not null" json:"jti"`
	Name      string     `gorm:"size:100" json:"name,omitempty"` // e.g. "warehouse scanner 2"
	ExpiresAt time.Time  `gorm:"not null" json:"expiresAt"`
	RevokedAt *time.Time `gorm:"index" json:"revokedAt,omitempty"`

	LastUsedAt *time.Time `gorm:"index" json:"lastUsedAt,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}

func (DeviceToken) TableName() string { return DeviceTokenTable }
