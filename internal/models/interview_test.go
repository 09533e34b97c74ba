package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateSlots(t *testing.T) {
	full := TimeSlot{Date: "2026-09-01", Time: "10:00", Timezone: "UTC"}

	t.Run("accepts full list", func(t *testing.T) {
		slots, err := ValidateSlots([]TimeSlot{full, full, full})
		require.NoError(t, err)
		assert.Len(t, slots, 3)
	})

	t.Run("drops empty trailing slots", func(t *testing.T) {
		slots, err := ValidateSlots([]TimeSlot{full, {}, {}})
		require.NoError(t, err)
		assert.Len(t, slots, 1)
	})

	t.Run("rejects half-filled slot", func(t *testing.T) {
		_, err := ValidateSlots([]TimeSlot{full, {Date: "2026-09-02"}})
		assert.Error(t, err)
	})

	t.Run("rejects empty first slot", func(t *testing.T) {
		_, err := ValidateSlots([]TimeSlot{{}, full})
		assert.Error(t, err)
	})

	t.Run("rejects empty list", func(t *testing.T) {
		_, err := ValidateSlots(nil)
		assert.Error(t, err)
	})

	t.Run("rejects more than five", func(t *testing.T) {
		_, err := ValidateSlots([]TimeSlot{full, full, full, full, full, full})
		assert.Error(t, err)
	})
}

func TestValidDuration(t *testing.T) {
	for _, minutes := range []int{15, 30, 45, 60, 90} {
		assert.True(t, ValidDuration(minutes), "%d minutes", minutes)
	}
	assert.False(t, ValidDuration(20))
	assert.False(t, ValidDuration(0))
}

func TestTimeSlotWhen(t *testing.T) {
	slot := TimeSlot{Date: "2026-09-01", Time: "10:00", Timezone: "UTC"}
	when, err := slot.When()
	require.NoError(t, err)
	assert.Equal(t, 2026, when.Year())
	assert.Equal(t, 10, when.Hour())

	_, err = TimeSlot{Date: "bad", Time: "10:00"}.When()
	assert.Error(t, err)
}

func TestActiveAlternative(t *testing.T) {
	alt := &TimeSlot{Date: "2026-09-05", Time: "14:00", Timezone: "UTC"}

	r := &InterviewRequest{Status: InterviewAlternativeSuggested, AlternativeSlot: alt}
	assert.Equal(t, alt, r.ActiveAlternative())

	// A leftover counter-proposal carries no weight once the request is
	// back to pending.
	r.Status = InterviewPending
	assert.Nil(t, r.ActiveAlternative())

	r.Status = InterviewAccepted
	assert.Nil(t, r.ActiveAlternative())
}
