package model

import "time"

const (
	GenderMale          = "M"
	GenderFemale        = "F"
	GenderNotToDisclose = "N"
)

const (
	MaritalSingle = iota + 1
	MaritalMarried
	MaritalDivorced
	MaritalWidowed
)

type Region struct {
	ID        uint64    `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"uniqueIndex;size:30;not null" json:"name"`
	Country   string    `gorm:"size:20" json:"country"`
	IsActive  bool      `gorm:"not null;default:true" json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Region) TableName() string { return "region" }

type Area struct {
	ID       uint64  `gorm:"primaryKey" json:"id"`
	Name     string  `gorm:"size:20;index" json:"name"`
	City     string  `gorm:"size:20;index" json:"city"`
	Council  string  `gorm:"size:30" json:"council"`
	RegionID *uint64 `gorm:"index" json:"region"`
}

func (Area) TableName() string { return "area" }

// UserProfile 用户扩展信息，与 User 一对一
type UserProfile struct {
	ID                     uint64     `gorm:"primaryKey" json:"id"`
	UserID                 uint64     `gorm:"uniqueIndex;not null" json:"user_id"`
	PersonID               string     `gorm:"uniqueIndex;size:8;not null" json:"person_id"`
	FullName               string     `gorm:"size:100;index;not null" json:"full_name"`
	FathersName            string     `gorm:"size:30" json:"fathers_name"`
	PersonalEmail          string     `gorm:"size:70" json:"personal_email"`
	DateOfBirth            *time.Time `json:"date_of_birth"`
	NIC                    *string    `gorm:"uniqueIndex;size:20" json:"nic"`
	Gender                 string     `gorm:"size:1" json:"gender"`
	MaritalStatus          int        `gorm:"not null;default:1" json:"marital_status"`
	CellphoneNumber        string     `gorm:"size:30" json:"cellphone_number"`
	WhatsappNumber         string     `gorm:"size:30" json:"whatsapp_cellphone_number"`
	EmergencyContactName   string     `gorm:"size:50" json:"emergency_contact_name"`
	EmergencyContactNumber string     `gorm:"size:20" json:"emergency_contact_number"`
	CurrentAddress         string     `gorm:"size:150" json:"current_address"`
	PermanentAddress       string     `gorm:"size:150" json:"permanent_address"`
	City                   string     `gorm:"size:20" json:"city"`
	AreaID                 *uint64    `gorm:"index" json:"area"`
	Avatar                 string     `gorm:"size:255" json:"avatar"`
	Thumbnail              string     `gorm:"size:255" json:"thumbnail"`
	IsActive               bool       `gorm:"not null;default:true" json:"is_active"`
	CreatedAt              time.Time  `json:"created_at"`
	UpdatedAt              time.Time  `json:"modified_at"`
}

func (UserProfile) TableName() string { return "user_profile" }

func ValidGender(g string) bool {
	return g == "" || g == GenderMale || g == GenderFemale || g == GenderNotToDisclose
}

func ValidMaritalStatus(s int) bool {
	return s >= MaritalSingle && s <= MaritalWidowed
}
