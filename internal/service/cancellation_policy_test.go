package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCancellationPolicyBoundaries(t *testing.T) {
	policy := NewCancellationPolicy(0)
	slot := time.Date(2024, 3, 10, 15, 0, 0, 0, time.UTC)
	cutoff := slot.Add(-2 * time.Hour)

	assert.True(t, policy.CanCancel(slot, cutoff.Add(-time.Second)))
	assert.False(t, policy.CanCancel(slot, cutoff))
	assert.False(t, policy.CanCancel(slot, cutoff.Add(time.Second)))
	assert.False(t, policy.CanCancel(slot, slot.Add(time.Hour)))
}

func TestCancellationPolicyConfigurableCutoff(t *testing.T) {
	policy := NewCancellationPolicy(30 * time.Minute)
	slot := time.Date(2024, 3, 10, 15, 0, 0, 0, time.UTC)

	assert.Equal(t, 30*time.Minute, policy.Cutoff())
	assert.True(t, policy.CanCancel(slot, slot.Add(-31*time.Minute)))
	assert.False(t, policy.CanCancel(slot, slot.Add(-29*time.Minute)))
}
