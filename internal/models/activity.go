package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Activity is an exercise definition authored by staff. Assignments reference it;
// it carries no per-child state.
type Activity struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name        string             `bson:"name" json:"name"`
	Description string             `bson:"description" json:"description"`
	Steps       []string           `bson:"steps,omitempty" json:"steps,omitempty"`
	Assistance  string             `bson:"assistance,omitempty" json:"assistance,omitempty"` // independent, verbal-cues, hand-over-hand
	MediaURLs   []string           `bson:"mediaUrls,omitempty" json:"mediaUrls,omitempty"`
	Category    string             `bson:"category,omitempty" json:"category,omitempty"`
	Difficulty  string             `bson:"difficulty,omitempty" json:"difficulty,omitempty"`
	CreatedBy   primitive.ObjectID `bson:"createdBy" json:"createdBy"`
	IsActive    bool               `bson:"isActive" json:"isActive"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt" json:"updatedAt"`
}
