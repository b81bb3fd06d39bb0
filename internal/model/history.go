package model

import "time"

// QueryHistory is one recorded news query of a user.
// Records are append-only; reads only see records inside the history window.
type QueryHistory struct {
	ID         string        `json:"id"`
	UserID     int64         `json:"-"`
	Country    string        `json:"country"`
	TimeFilter TimeFilter    `json:"time_filter"`
	Topic      Topic         `json:"topic"`
	News       []NewsItem    `json:"news"`
	Stats      *CountryStats `json:"stats"`
	CreatedAt  time.Time     `json:"timestamp"`
}
