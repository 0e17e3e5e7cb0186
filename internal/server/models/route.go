package models

// Route is a saved itinerary owned by a single user. The JSON tags double as
// the cache wire format, so renaming them invalidates cached entries.
type Route struct {
	ID         int64  `json:"id"`
	UserID     int64  `json:"user_id"`
	StartPoint string `json:"start_point"`
	EndPoint   string `json:"end_point"`
}
