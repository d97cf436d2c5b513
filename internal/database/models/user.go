package models

import (
	"time"
)

// DefaultTenantID is assigned to users created without an explicit tenant
const DefaultTenantID = "default"

// User represents an operator of a tenant
type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	TenantID     string    `gorm:"size:64;index;not null;default:'default'" json:"tenant_id"`
	Username     string    `gorm:"uniqueIndex;size:50;not null" json:"username"`
	PasswordHash string    `gorm:"size:255;not null" json:"-"`
	Nickname     string    `gorm:"size:100" json:"nickname"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	// Relations
	CalendarAccounts []CalendarAccount `gorm:"foreignKey:UserID" json:"calendar_accounts,omitempty"`
}
