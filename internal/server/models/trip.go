package models

import "time"

type Trip struct {
	ID         int64     `json:"id"`
	UserID     int64     `json:"user_id"`
	Companions []int64   `json:"companions"`
	Date       time.Time `json:"date"`
}
