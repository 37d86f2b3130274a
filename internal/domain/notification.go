package domain

import "time"

// Notification is an in-app message addressed to a single user.
type Notification struct {
	ID        int64
	Content   string
	UserID    int64
	Read      bool
	CreatedAt time.Time
}
