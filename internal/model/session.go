package model

import "time"

// DefaultPresenceTTL is the freshness window after which a session stops
// counting as a live viewer.
const DefaultPresenceTTL = 5 * time.Minute

// Session is a presence record for one device viewing one item.
// (DeviceID, ItemID) is unique; LastActiveAt never moves backward.
type Session struct {
	DeviceID     string    `json:"deviceId"`
	ItemID       string    `json:"itemId"`
	LastActiveAt time.Time `json:"lastActiveAt"`
}

// Live reports whether the session is within ttl of now.
func (s Session) Live(now time.Time, ttl time.Duration) bool {
	return now.Sub(s.LastActiveAt) <= ttl
}
