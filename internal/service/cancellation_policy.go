package service

import "time"

// DefaultCancelCutoff is the minimum notice a customer must give to cancel.
const DefaultCancelCutoff = 2 * time.Hour

// CancellationPolicy decides whether an appointment may still be canceled.
type CancellationPolicy struct {
	cutoff time.Duration
}

// NewCancellationPolicy builds a policy; a non-positive cutoff selects DefaultCancelCutoff.
func NewCancellationPolicy(cutoff time.Duration) CancellationPolicy {
	if cutoff <= 0 {
		cutoff = DefaultCancelCutoff
	}
	return CancellationPolicy{cutoff: cutoff}
}

// CanCancel holds only while now is strictly earlier than date minus the cutoff.
func (p CancellationPolicy) CanCancel(date, now time.Time) bool {
	return now.Before(date.Add(-p.cutoff))
}

// Cutoff returns the configured notice window.
func (p CancellationPolicy) Cutoff() time.Duration {
	return p.cutoff
}
