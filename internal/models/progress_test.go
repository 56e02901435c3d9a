package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNextProgressStatus(t *testing.T) {
	tests := []struct {
		current string
		want    string
		ok      bool
	}{
		{ProgressSubmitted, ProgressReviewed, true},
		{ProgressReviewed, ProgressApproved, true},
		{ProgressDraft, "", false},
		{ProgressApproved, "", false},
		{"garbage", "", false},
	}

	for _, tt := range tests {
		next, ok := NextProgressStatus(tt.current)
		assert.Equal(t, tt.ok, ok, "from %q", tt.current)
		assert.Equal(t, tt.want, next, "from %q", tt.current)
	}
}

func TestRoleHelpers(t *testing.T) {
	assert.True(t, IsValidRole(RoleSuperuser))
	assert.True(t, IsValidRole(RoleChild))
	assert.False(t, IsValidRole("admin"))
	assert.False(t, IsValidRole(""))

	assert.True(t, IsPublicRole(RoleTherapist))
	assert.True(t, IsPublicRole(RoleChild))
	assert.False(t, IsPublicRole(RoleSuperuser))
	assert.False(t, IsPublicRole(RoleHospital))
}

func TestMoodAndMilestoneValidators(t *testing.T) {
	assert.True(t, IsValidMood(""))
	assert.True(t, IsValidMood("happy"))
	assert.False(t, IsValidMood("ecstatic"))

	assert.True(t, IsValidMilestone(""))
	assert.True(t, IsValidMilestone(MilestoneGoalMet))
	assert.False(t, IsValidMilestone("finished"))
}
