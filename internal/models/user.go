package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Roles. A single users collection holds all four; the role field decides what a
// document means (a "hospital" user is the hospital's admin account).
const (
	RoleSuperuser = "superuser"
	RoleHospital  = "hospital"
	RoleTherapist = "therapist"
	RoleChild     = "child"
)

// PublicRoles may be self-registered; the rest require a superuser requester.
var PublicRoles = []string{RoleTherapist, RoleChild}

func IsValidRole(role string) bool {
	switch role {
	case RoleSuperuser, RoleHospital, RoleTherapist, RoleChild:
		return true
	}
	return false
}

func IsPublicRole(role string) bool {
	for _, r := range PublicRoles {
		if r == role {
			return true
		}
	}
	return false
}

type Address struct {
	Street  string `bson:"street,omitempty" json:"street,omitempty"`
	City    string `bson:"city,omitempty" json:"city,omitempty"`
	State   string `bson:"state,omitempty" json:"state,omitempty"`
	Country string `bson:"country,omitempty" json:"country,omitempty"`
	ZipCode string `bson:"zipCode,omitempty" json:"zipCode,omitempty"`
}

type UserStats struct {
	TotalActivitiesCompleted int     `bson:"totalActivitiesCompleted" json:"totalActivitiesCompleted"`
	TotalTimeSpent           int     `bson:"totalTimeSpent" json:"totalTimeSpent"` // minutes
	AverageScore             float64 `bson:"averageScore" json:"averageScore"`
	CurrentStreak            int     `bson:"currentStreak" json:"currentStreak"`
	LongestStreak            int     `bson:"longestStreak" json:"longestStreak"`
}

type User struct {
	ID       primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name     string             `bson:"name" json:"name"`
	Email    string             `bson:"email" json:"email"`
	Password string             `bson:"password" json:"-"` // bcrypt hash, never serialized
	Role     string             `bson:"role" json:"role"`
	Phone    string             `bson:"phone,omitempty" json:"phone,omitempty"`

	DateOfBirth *time.Time `bson:"dateOfBirth,omitempty" json:"dateOfBirth,omitempty"`
	Gender      string     `bson:"gender,omitempty" json:"gender,omitempty"`
	Bio         string     `bson:"bio,omitempty" json:"bio,omitempty"`
	Address     *Address   `bson:"address,omitempty" json:"address,omitempty"`

	// Relations (reference-based, no embedding)
	HospitalID        *primitive.ObjectID  `bson:"hospitalId,omitempty" json:"hospitalId,omitempty"`
	ParentID          *primitive.ObjectID  `bson:"parentId,omitempty" json:"parentId,omitempty"`
	ChildrenIDs       []primitive.ObjectID `bson:"childrenIds,omitempty" json:"childrenIds,omitempty"`
	AssignedPatients  []primitive.ObjectID `bson:"assignedPatients,omitempty" json:"assignedPatients,omitempty"`
	AssignedTherapist *primitive.ObjectID  `bson:"assignedTherapist,omitempty" json:"assignedTherapist,omitempty"`

	IsActive        bool `bson:"isActive" json:"isActive"`
	IsEmailVerified bool `bson:"isEmailVerified" json:"isEmailVerified"`

	LastLogin        *time.Time `bson:"lastLogin,omitempty" json:"lastLogin,omitempty"`
	LastLogout       *time.Time `bson:"lastLogout,omitempty" json:"-"`
	TherapyStartDate *time.Time `bson:"therapyStartDate,omitempty" json:"therapyStartDate,omitempty"`

	Stats UserStats `bson:"stats" json:"stats"`

	// Password reset / email verification: sha256 hex of the raw token plus expiry.
	PasswordResetToken       string     `bson:"passwordResetToken,omitempty" json:"-"`
	PasswordResetExpires     *time.Time `bson:"passwordResetExpires,omitempty" json:"-"`
	EmailVerificationToken   string     `bson:"emailVerificationToken,omitempty" json:"-"`
	EmailVerificationExpires *time.Time `bson:"emailVerificationExpires,omitempty" json:"-"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

// HasAssignedPatient reports whether a therapist has the given child in their set.
func (u *User) HasAssignedPatient(id primitive.ObjectID) bool {
	for _, p := range u.AssignedPatients {
		if p == id {
			return true
		}
	}
	return false
}

// Age derives the user's age from dateOfBirth; -1 when unknown.
func (u *User) Age(now time.Time) int {
	if u.DateOfBirth == nil {
		return -1
	}
	age := now.Year() - u.DateOfBirth.Year()
	if now.YearDay() < u.DateOfBirth.YearDay() {
		age--
	}
	return age
}
