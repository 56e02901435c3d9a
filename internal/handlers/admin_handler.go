package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/mirantsoa/therapy-api/internal/middleware"
	"github.com/mirantsoa/therapy-api/internal/models"
)

// GetUsers lists users, optionally filtered by role: GET /api/admin/users?role=therapist
func (h *Handler) GetUsers(c *gin.Context) {
	filter := bson.M{}
	if role := c.Query("role"); role != "" {
		if !models.IsValidRole(role) {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid role filter"})
			return
		}
		filter["role"] = role
	}
	if active := c.Query("isActive"); active != "" {
		filter["isActive"] = active == "true"
	}

	cursor, err := h.users().Find(c.Request.Context(), filter)
	if err != nil {
		h.Log.Errorw("admin: listing users", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Error fetching users"})
		return
	}
	users := []models.User{}
	if err := cursor.All(c.Request.Context(), &users); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Error fetching users"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "total": len(users), "data": users})
}

// GetUnassignedChildren lists active children without an assigned therapist.
func (h *Handler) GetUnassignedChildren(c *gin.Context) {
	filter := bson.M{
		"role":     models.RoleChild,
		"isActive": true,
		"$or": []bson.M{
			{"assignedTherapist": bson.M{"$exists": false}},
			{"assignedTherapist": nil},
		},
	}

	cursor, err := h.users().Find(c.Request.Context(), filter)
	if err != nil {
		h.Log.Errorw("admin: listing unassigned children", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Error fetching children"})
		return
	}
	children := []models.User{}
	if err := cursor.All(c.Request.Context(), &children); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Error fetching children"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "total": len(children), "data": children})
}

// AssignTherapist links a child to a therapist: PUT /api/admin/children/:id/assign-therapist
// Updates both sides of the relation; each write is atomic on its own document.
func (h *Handler) AssignTherapist(c *gin.Context) {
	childID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid user ID"})
		return
	}

	var req struct {
		TherapistID string `json:"therapistId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "therapistId is required"})
		return
	}
	therapistID, err := primitive.ObjectIDFromHex(req.TherapistID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid therapist ID"})
		return
	}

	ctx := c.Request.Context()

	var therapist models.User
	err = h.users().FindOne(ctx, bson.M{"_id": therapistID, "role": models.RoleTherapist, "isActive": true}).Decode(&therapist)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Therapist not found"})
		return
	}

	now := time.Now().UTC()
	result, err := h.users().UpdateOne(ctx,
		bson.M{"_id": childID, "role": models.RoleChild},
		bson.M{"$set": bson.M{"assignedTherapist": therapistID, "updatedAt": now}},
	)
	if err != nil {
		h.Log.Errorw("admin: assigning therapist", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Error assigning therapist"})
		return
	}
	if result.MatchedCount == 0 {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Child not found"})
		return
	}

	_, err = h.users().UpdateOne(ctx,
		bson.M{"_id": therapistID},
		bson.M{"$addToSet": bson.M{"assignedPatients": childID}, "$set": bson.M{"updatedAt": now}},
	)
	if err != nil {
		h.Log.Errorw("admin: updating therapist patient set", "error", err)
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Therapist assigned successfully"})
}

type ActivityRequest struct {
	Name        string   `json:"name" binding:"required,max=100"`
	Description string   `json:"description" binding:"required"`
	Steps       []string `json:"steps"`
	Assistance  string   `json:"assistance"`
	MediaURLs   []string `json:"mediaUrls" binding:"omitempty,dive,url"`
	Category    string   `json:"category"`
	Difficulty  string   `json:"difficulty"`
}

// CreateActivity adds an exercise definition to the catalog.
func (h *Handler) CreateActivity(c *gin.Context) {
	var req ActivityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}

	user, _ := middleware.CurrentUser(c)
	now := time.Now().UTC()
	activity := models.Activity{
		ID:          primitive.NewObjectID(),
		Name:        req.Name,
		Description: req.Description,
		Steps:       req.Steps,
		Assistance:  req.Assistance,
		MediaURLs:   req.MediaURLs,
		Category:    req.Category,
		Difficulty:  req.Difficulty,
		CreatedBy:   user.ID,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if _, err := h.activities().InsertOne(c.Request.Context(), activity); err != nil {
		h.Log.Errorw("admin: creating activity", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Error creating activity"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"success": true, "data": activity})
}

// GetActivities lists the active activity catalog.
func (h *Handler) GetActivities(c *gin.Context) {
	filter := bson.M{"isActive": true}
	if category := c.Query("category"); category != "" {
		filter["category"] = category
	}

	cursor, err := h.activities().Find(c.Request.Context(), filter)
	if err != nil {
		h.Log.Errorw("admin: listing activities", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Error fetching activities"})
		return
	}
	activities := []models.Activity{}
	if err := cursor.All(c.Request.Context(), &activities); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Error fetching activities"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "total": len(activities), "data": activities})
}

// UpdateActivity modifies an activity definition.
func (h *Handler) UpdateActivity(c *gin.Context) {
	activityID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid activity ID"})
		return
	}

	var req ActivityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}

	set := bson.M{
		"name":        req.Name,
		"description": req.Description,
		"updatedAt":   time.Now().UTC(),
	}
	if req.Steps != nil {
		set["steps"] = req.Steps
	}
	if req.Assistance != "" {
		set["assistance"] = req.Assistance
	}
	if req.MediaURLs != nil {
		set["mediaUrls"] = req.MediaURLs
	}
	if req.Category != "" {
		set["category"] = req.Category
	}
	if req.Difficulty != "" {
		set["difficulty"] = req.Difficulty
	}

	result, err := h.activities().UpdateOne(c.Request.Context(), bson.M{"_id": activityID}, bson.M{"$set": set})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Error updating activity"})
		return
	}
	if result.MatchedCount == 0 {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Activity not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Activity updated successfully"})
}

// DeleteActivity soft-disables an activity; assignments referencing it survive.
func (h *Handler) DeleteActivity(c *gin.Context) {
	activityID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid activity ID"})
		return
	}

	result, err := h.activities().UpdateOne(c.Request.Context(),
		bson.M{"_id": activityID},
		bson.M{"$set": bson.M{"isActive": false, "updatedAt": time.Now().UTC()}},
	)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Error deleting activity"})
		return
	}
	if result.MatchedCount == 0 {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Activity not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Activity deleted successfully"})
}

type CreateAssignmentRequest struct {
	ChildID    string     `json:"childId" binding:"required"`
	ActivityID string     `json:"activityId" binding:"required"`
	DueDate    *time.Time `json:"dueDate"`
}

// CreateAssignment assigns an activity to a child with an optional due date.
func (h *Handler) CreateAssignment(c *gin.Context) {
	var req CreateAssignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}

	childID, err := primitive.ObjectIDFromHex(req.ChildID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid child ID"})
		return
	}
	activityID, err := primitive.ObjectIDFromHex(req.ActivityID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid activity ID"})
		return
	}

	ctx := c.Request.Context()
	if err := h.users().FindOne(ctx, bson.M{"_id": childID, "role": models.RoleChild, "isActive": true}).Err(); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Child not found"})
		return
	}
	if err := h.activities().FindOne(ctx, bson.M{"_id": activityID, "isActive": true}).Err(); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Activity not found"})
		return
	}

	user, _ := middleware.CurrentUser(c)
	now := time.Now().UTC()
	assignment := models.ActivityAssignment{
		ID:               primitive.NewObjectID(),
		ChildID:          childID,
		ActivityID:       activityID,
		AssignedBy:       user.ID,
		AssignedAt:       now,
		DueDate:          req.DueDate,
		CompletionStatus: models.StatusPending,
		IsActive:         true,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if _, err := h.assignments().InsertOne(ctx, assignment); err != nil {
		h.Log.Errorw("admin: creating assignment", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Error creating assignment"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"success": true, "data": assignment})
}
