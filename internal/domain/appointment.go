package domain

import "time"

// Appointment books one hour of a provider's agenda for a customer.
type Appointment struct {
	ID         int64
	UserID     int64
	ProviderID int64
	Date       time.Time
	CanceledAt *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time

	// Loaded for listings and mail composition only.
	Provider *User
	User     *User
}

// Active reports whether the appointment still occupies its slot.
func (a *Appointment) Active() bool {
	return a.CanceledAt == nil
}

// Cancel marks the appointment canceled at now. Cancellation is terminal, so a
// second call leaves the original timestamp untouched and reports false.
func (a *Appointment) Cancel(now time.Time) bool {
	if a.CanceledAt != nil {
		return false
	}
	a.CanceledAt = &now
	return true
}
