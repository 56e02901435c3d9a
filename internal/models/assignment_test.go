package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEffectiveStatus(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	past := now.Add(-24 * time.Hour)
	future := now.Add(24 * time.Hour)

	tests := []struct {
		name    string
		status  string
		dueDate *time.Time
		want    string
	}{
		{"pending before due date", StatusPending, &future, StatusPending},
		{"pending past due date", StatusPending, &past, StatusNotCompleted},
		{"in-progress past due date", StatusInProgress, &past, StatusNotCompleted},
		{"in-progress before due date", StatusInProgress, &future, StatusInProgress},
		{"completed past due date stays completed", StatusCompleted, &past, StatusCompleted},
		{"already not-completed stays not-completed", StatusNotCompleted, &past, StatusNotCompleted},
		{"pending without due date", StatusPending, nil, StatusPending},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := ActivityAssignment{CompletionStatus: tt.status, DueDate: tt.dueDate}
			assert.Equal(t, tt.want, a.EffectiveStatus(now))
		})
	}
}

func TestEffectiveStatusExactBoundary(t *testing.T) {
	due := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	a := ActivityAssignment{CompletionStatus: StatusPending, DueDate: &due}

	// at the due instant the assignment is still on time, one nanosecond later it is not
	assert.Equal(t, StatusPending, a.EffectiveStatus(due))
	assert.Equal(t, StatusNotCompleted, a.EffectiveStatus(due.Add(time.Nanosecond)))
}

func TestIsOverdueDerivationIsStable(t *testing.T) {
	now := time.Now().UTC()
	past := now.Add(-time.Hour)
	a := ActivityAssignment{CompletionStatus: StatusPending, DueDate: &past}

	// deriving twice must give the same answer and never mutate the struct
	assert.Equal(t, StatusNotCompleted, a.EffectiveStatus(now))
	assert.Equal(t, StatusNotCompleted, a.EffectiveStatus(now))
	assert.Equal(t, StatusPending, a.CompletionStatus)
}
