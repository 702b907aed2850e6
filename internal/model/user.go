package model

import "time"

type User struct {
	ID          uint64    `gorm:"primaryKey" json:"id"`
	Username    string    `gorm:"uniqueIndex;size:32;not null" json:"username"`
	Password    string    `gorm:"size:255;not null" json:"-"`
	Email       string    `gorm:"uniqueIndex;size:64;not null" json:"email"`
	IsStaff     bool      `gorm:"not null;default:false" json:"is_staff"`
	IsSuperuser bool      `gorm:"not null;default:false" json:"is_superuser"`
	IsActive    bool      `gorm:"not null;default:true" json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
