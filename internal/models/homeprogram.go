package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ItemCompletion is one practice record on a home-program item. The list is
// append-only; records are never edited or removed.
type ItemCompletion struct {
	CompletedAt time.Time `bson:"completedAt" json:"completedAt"`
	Note        string    `bson:"note,omitempty" json:"note,omitempty"`
}

type ProgramItem struct {
	ItemID           primitive.ObjectID  `bson:"itemId" json:"itemId"`
	ActivityID       *primitive.ObjectID `bson:"activityId,omitempty" json:"activityId,omitempty"`
	Title            string              `bson:"title" json:"title"`
	FrequencyPerWeek int                 `bson:"frequencyPerWeek" json:"frequencyPerWeek"`
	DueDate          *time.Time          `bson:"dueDate,omitempty" json:"dueDate,omitempty"`
	Completions      []ItemCompletion    `bson:"completions" json:"completions"`
}

// HomeProgram is a therapist-owned bundle of practice items for one child.
type HomeProgram struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	TherapistID primitive.ObjectID `bson:"therapistId" json:"therapistId"`
	ChildID     primitive.ObjectID `bson:"childId" json:"childId"`
	Title       string             `bson:"title" json:"title"`
	Notes       string             `bson:"notes,omitempty" json:"notes,omitempty"`
	Items       []ProgramItem      `bson:"items" json:"items"`
	IsActive    bool               `bson:"isActive" json:"isActive"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// Item returns the program item with the given id, or nil.
func (p *HomeProgram) Item(id primitive.ObjectID) *ProgramItem {
	for i := range p.Items {
		if p.Items[i].ItemID == id {
			return &p.Items[i]
		}
	}
	return nil
}
