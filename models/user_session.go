package models

import (
	"time"
)

// UserSession is the backend row behind a DeviceSession. RefreshToken is the
// value of the refresh cookie; AccessToken is the latest token issued for it.
type UserSession struct {
	ID           string `gorm:"primarykey;size:36"`
	UserID       string `gorm:"not null;index"`
	RefreshToken string `gorm:"unique;not null"`
	AccessToken  string `gorm:"index"`
	DeviceInfo   string
	IPAddress    string
	UserAgent    string
	Location     string
	CreatedAt    time.Time
	LastActivity time.Time
	ExpiresAt    time.Time
	IsActive     bool `gorm:"default:true"`
	User         User `gorm:"foreignkey:UserID"`
}

// DeviceSession returns the wire record for the row.
func (s UserSession) DeviceSession() DeviceSession {
	return DeviceSession{
		ID:          s.ID,
		Device:      s.DeviceInfo,
		IPAddress:   s.IPAddress,
		Location:    s.Location,
		CreatedAt:   s.CreatedAt,
		LastUsedAt:  s.LastActivity,
		AccessToken: s.AccessToken,
	}
}
