package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AttachedDocument is metadata about an externally stored document. Uploads
// themselves are handled outside this API.
type AttachedDocument struct {
	DocID      string             `bson:"docId" json:"docId"` // uuid
	Name       string             `bson:"name" json:"name"`
	URL        string             `bson:"url" json:"url"`
	MimeType   string             `bson:"mimeType" json:"mimeType"`
	UploadedBy primitive.ObjectID `bson:"uploadedBy" json:"uploadedBy"`
	UploadedAt time.Time          `bson:"uploadedAt" json:"uploadedAt"`
}

// PatientDetail is the medical record attached to a child user. One per user.
type PatientDetail struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID      primitive.ObjectID `bson:"userId" json:"userId"`
	Diagnosis   string             `bson:"diagnosis,omitempty" json:"diagnosis,omitempty"`
	Allergies   []string           `bson:"allergies,omitempty" json:"allergies,omitempty"`
	Medications []string           `bson:"medications,omitempty" json:"medications,omitempty"`
	Notes       string             `bson:"notes,omitempty" json:"notes,omitempty"`
	Documents   []AttachedDocument `bson:"documents" json:"documents"`
	UpdatedBy   primitive.ObjectID `bson:"updatedBy" json:"updatedBy"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt" json:"updatedAt"`
}
