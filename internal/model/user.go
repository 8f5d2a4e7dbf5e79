// Package model defines the gorm models persisted by the service.
package model

import "time"

// Roles a user can hold.
const (
	RoleUser       = "user"
	RoleAdmin      = "admin"
	RoleSuperAdmin = "superadmin"
)

// User is an employee account. Email is restricted to the configured company domains.
type User struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Email      string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	Name       string    `gorm:"type:varchar(255)" json:"name"`
	Password   string    `gorm:"type:varchar(255)" json:"-"`
	Role       string    `gorm:"type:varchar(20);not null;default:user" json:"role"`
	Department string    `gorm:"type:varchar(255)" json:"department"`
	Circle     string    `gorm:"type:varchar(255)" json:"circle"`
	IsBlocked  bool      `gorm:"not null;default:false" json:"isBlocked"`
	GoogleID   string    `gorm:"type:varchar(64)" json:"googleId,omitempty"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (User) TableName() string {
	return "users"
}

// IsAdmin reports whether the user may review suggestions and manage the taxonomy.
func (u *User) IsAdmin() bool {
	return u != nil && (u.Role == RoleAdmin || u.Role == RoleSuperAdmin)
}
