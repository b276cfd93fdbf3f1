package models

import (
	"time"
)

type User struct {
	ID                  string `gorm:"primarykey;size:36"`
	Email               string `gorm:"unique;not null"`
	Name                string `gorm:"not null"`
	PasswordHash        string `gorm:"not null"`
	DOB                 string
	Sex                 string
	Height              *float64
	Weight              *float64
	BloodGroup          string
	ActivityLevel       string
	CreatedAt           time.Time
	UpdatedAt           time.Time
	LastLogin           *time.Time
	IsActive            bool `gorm:"default:true"`
	FailedLoginAttempts int  `gorm:"default:0"`
	LastFailedAttempt   *time.Time
}

// Profile returns the public profile document for the user.
func (u User) Profile() Profile {
	return Profile{
		ID:            u.ID,
		Name:          u.Name,
		Email:         u.Email,
		DOB:           u.DOB,
		Sex:           u.Sex,
		Height:        u.Height,
		Weight:        u.Weight,
		BloodGroup:    u.BloodGroup,
		ActivityLevel: u.ActivityLevel,
	}
}
