package models

import "time"

// DeviceSession is a backend record of one active login, mirrored read-only.
// IsCurrent is derived on the client by comparing AccessToken with the live
// token and is never read from the wire.
type DeviceSession struct {
	ID          string    `json:"_id"`
	Device      string    `json:"device"`
	IPAddress   string    `json:"ipAddress"`
	Location    string    `json:"location"`
	CreatedAt   time.Time `json:"createdAt"`
	LastUsedAt  time.Time `json:"lastUsed"`
	AccessToken string    `json:"accessToken,omitempty"`
	IsCurrent   bool      `json:"-"`
}
