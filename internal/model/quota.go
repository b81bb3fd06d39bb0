package model

// DailyQuota is the request count of one user on one civil date.
// There is at most one row per (UserID, Date).
type DailyQuota struct {
	UserID int64  `json:"user_id"`
	Date   string `json:"date"` // YYYY-MM-DD in the configured timezone
	Count  int    `json:"count"`
}

// DateLayout is the civil date format used for quota keys.
const DateLayout = "2006-01-02"
