package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Assignment completion statuses.
const (
	StatusPending      = "pending"
	StatusInProgress   = "in-progress"
	StatusCompleted    = "completed"
	StatusNotCompleted = "not-completed" // due date passed without completion
)

// ActivityAssignment links a child to an activity. The assigning therapist/admin
// owns it; the child moves it through pending → in-progress → completed.
type ActivityAssignment struct {
	ID                 primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ChildID            primitive.ObjectID `bson:"childId" json:"childId"`
	ActivityID         primitive.ObjectID `bson:"activityId" json:"activityId"`
	AssignedBy         primitive.ObjectID `bson:"assignedBy" json:"assignedBy"`
	AssignedAt         time.Time          `bson:"assignedAt" json:"assignedAt"`
	DueDate            *time.Time         `bson:"dueDate,omitempty" json:"dueDate,omitempty"`
	CompletionStatus   string             `bson:"completionStatus" json:"completionStatus"`
	StartedDate        *time.Time         `bson:"startedDate,omitempty" json:"startedDate,omitempty"`
	CompletedDate      *time.Time         `bson:"completedDate,omitempty" json:"completedDate,omitempty"`
	Score              *int               `bson:"score,omitempty" json:"score,omitempty"`
	CompletionVideoURL string             `bson:"completionVideoUrl,omitempty" json:"completionVideoUrl,omitempty"`
	IsActive           bool               `bson:"isActive" json:"isActive"`
	CreatedAt          time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt          time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// EffectiveStatus derives what the assignment's status is at the given instant
// without mutating storage: a pending or in-progress assignment whose due date has
// passed reports not-completed. The stored field is only brought in line by the
// idempotent overdue sweep the report endpoints run.
func (a *ActivityAssignment) EffectiveStatus(now time.Time) string {
	if a.IsOverdue(now) {
		return StatusNotCompleted
	}
	return a.CompletionStatus
}

// IsOverdue reports whether the assignment is past due and still open.
func (a *ActivityAssignment) IsOverdue(now time.Time) bool {
	if a.DueDate == nil {
		return false
	}
	if a.CompletionStatus != StatusPending && a.CompletionStatus != StatusInProgress {
		return false
	}
	return now.After(*a.DueDate)
}
