package models

import "time"

// CourseSession is a scheduled course occurrence referenced by its string identifier.
type CourseSession struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Date      time.Time `json:"date"`
	StartTime string    `json:"start_time"` // "19:00"
	EndTime   string    `json:"end_time"`
	Month     string    `json:"month"` // "2026-11"
	Capacity  int       `json:"capacity"` // 0 = unlimited
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SessionMonth groups sessions for the public listing.
type SessionMonth struct {
	Month    string          `json:"month"`
	Sessions []CourseSession `json:"sessions"`
}
