package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Progress entry statuses: draft → submitted → reviewed → approved.
const (
	ProgressDraft     = "draft"
	ProgressSubmitted = "submitted"
	ProgressReviewed  = "reviewed"
	ProgressApproved  = "approved"
)

// Milestones a progress entry can mark.
const (
	MilestoneFirstSession = "first-session"
	MilestoneHalfway      = "halfway"
	MilestoneGoalMet      = "goal-met"
	MilestoneRegression   = "regression"
	MilestoneOther        = "other"
)

var validMoods = map[string]bool{
	"happy": true, "calm": true, "neutral": true, "frustrated": true, "upset": true,
}

func IsValidMood(mood string) bool { return mood == "" || validMoods[mood] }

func IsValidMilestone(m string) bool {
	switch m {
	case "", MilestoneFirstSession, MilestoneHalfway, MilestoneGoalMet,
		MilestoneRegression, MilestoneOther:
		return true
	}
	return false
}

// NextProgressStatus returns the status a review transition moves an entry to,
// and whether the transition is legal.
func NextProgressStatus(current string) (string, bool) {
	switch current {
	case ProgressSubmitted:
		return ProgressReviewed, true
	case ProgressReviewed:
		return ProgressApproved, true
	}
	return "", false
}

// Progress is a free-form therapy log entry for a child, reviewed by a therapist.
type Progress struct {
	ID          primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	UserID      primitive.ObjectID  `bson:"userId" json:"userId"`
	ProgramID   *primitive.ObjectID `bson:"programId,omitempty" json:"programId,omitempty"`
	TherapistID *primitive.ObjectID `bson:"therapistId,omitempty" json:"therapistId,omitempty"`
	Percentage  int                 `bson:"percentage" json:"percentage"`
	Milestone   string              `bson:"milestone,omitempty" json:"milestone,omitempty"`
	Score       *int                `bson:"score,omitempty" json:"score,omitempty"`
	Mood        string              `bson:"mood,omitempty" json:"mood,omitempty"`
	Tags        []string            `bson:"tags,omitempty" json:"tags,omitempty"`
	Note        string              `bson:"note,omitempty" json:"note,omitempty"`
	Status      string              `bson:"status" json:"status"`
	ReviewedBy  *primitive.ObjectID `bson:"reviewedBy,omitempty" json:"reviewedBy,omitempty"`
	ReviewNote  string              `bson:"reviewNote,omitempty" json:"reviewNote,omitempty"`
	CreatedAt   time.Time           `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time           `bson:"updatedAt" json:"updatedAt"`
}
