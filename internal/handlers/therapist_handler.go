package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mirantsoa/therapy-api/internal/middleware"
	"github.com/mirantsoa/therapy-api/internal/models"
)

// GetPatients lists the children assigned to the calling therapist. A hospital or
// superuser caller sees all active children.
func (h *Handler) GetPatients(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)

	filter := bson.M{"role": models.RoleChild, "isActive": true}
	if user.Role == models.RoleTherapist {
		filter["assignedTherapist"] = user.ID
	} else if user.Role == models.RoleHospital {
		filter["hospitalId"] = user.ID
	}

	cursor, err := h.users().Find(c.Request.Context(), filter)
	if err != nil {
		h.Log.Errorw("therapist: listing patients", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Error fetching patients"})
		return
	}
	patients := []models.User{}
	if err := cursor.All(c.Request.Context(), &patients); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Error fetching patients"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "total": len(patients), "data": patients})
}

// GetPatientReport returns one patient's assignment report. Runs behind
// RequireTargetUser + AuthorizeOwnerOrRole, so the target is loaded and access
// already checked.
func (h *Handler) GetPatientReport(c *gin.Context) {
	target, ok := middleware.TargetUser(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid user ID"})
		return
	}

	report, err := h.buildChildReport(c.Request.Context(), target.ID)
	if err != nil {
		h.Log.Errorw("therapist: building patient report", "patientId", target.ID.Hex(), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Error building report"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": report})
}

// GetPatientDetails returns the medical record for a patient.
func (h *Handler) GetPatientDetails(c *gin.Context) {
	target, ok := middleware.TargetUser(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid user ID"})
		return
	}

	var detail models.PatientDetail
	err := h.patientDetails().FindOne(c.Request.Context(), bson.M{"userId": target.ID}).Decode(&detail)
	if err == mongo.ErrNoDocuments {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "No medical record for this patient"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Error fetching medical record"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": detail})
}

type PatientDetailRequest struct {
	Diagnosis   string   `json:"diagnosis" binding:"max=500"`
	Allergies   []string `json:"allergies"`
	Medications []string `json:"medications"`
	Notes       string   `json:"notes" binding:"max=5000"`
}

// UpsertPatientDetails creates or replaces the editable part of a patient's
// medical record. The attached-documents list is managed separately and survives
// this write.
func (h *Handler) UpsertPatientDetails(c *gin.Context) {
	target, ok := middleware.TargetUser(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid user ID"})
		return
	}

	var req PatientDetailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}

	user, _ := middleware.CurrentUser(c)
	now := time.Now().UTC()

	_, err := h.patientDetails().UpdateOne(c.Request.Context(),
		bson.M{"userId": target.ID},
		bson.M{
			"$set": bson.M{
				"diagnosis":   req.Diagnosis,
				"allergies":   req.Allergies,
				"medications": req.Medications,
				"notes":       req.Notes,
				"updatedBy":   user.ID,
				"updatedAt":   now,
			},
			"$setOnInsert": bson.M{
				"userId":    target.ID,
				"documents": []models.AttachedDocument{},
				"createdAt": now,
			},
		},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		h.Log.Errorw("therapist: upserting patient details", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Error saving medical record"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Medical record saved"})
}

type AttachDocumentRequest struct {
	Name     string `json:"name" binding:"required,max=200"`
	URL      string `json:"url" binding:"required,url"`
	MimeType string `json:"mimeType" binding:"required"`
}

// AttachPatientDocument appends document metadata to a patient's record. Only
// metadata lives here; the file itself is stored elsewhere.
func (h *Handler) AttachPatientDocument(c *gin.Context) {
	target, ok := middleware.TargetUser(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid user ID"})
		return
	}

	var req AttachDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}

	user, _ := middleware.CurrentUser(c)
	now := time.Now().UTC()
	doc := models.AttachedDocument{
		DocID:      uuid.NewString(),
		Name:       req.Name,
		URL:        req.URL,
		MimeType:   req.MimeType,
		UploadedBy: user.ID,
		UploadedAt: now,
	}

	_, err := h.patientDetails().UpdateOne(c.Request.Context(),
		bson.M{"userId": target.ID},
		bson.M{
			"$push": bson.M{"documents": doc},
			"$set":  bson.M{"updatedBy": user.ID, "updatedAt": now},
			"$setOnInsert": bson.M{
				"userId":    target.ID,
				"createdAt": now,
			},
		},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		h.Log.Errorw("therapist: attaching document", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Error attaching document"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"success": true, "data": doc})
}

type HomeProgramRequest struct {
	ChildID string               `json:"childId" binding:"required"`
	Title   string               `json:"title" binding:"required,max=100"`
	Notes   string               `json:"notes" binding:"max=2000"`
	Items   []HomeProgramItemReq `json:"items" binding:"required,min=1,dive"`
}

type HomeProgramItemReq struct {
	ActivityID       string     `json:"activityId"`
	Title            string     `json:"title" binding:"required,max=100"`
	FrequencyPerWeek int        `json:"frequencyPerWeek" binding:"required,min=1,max=21"`
	DueDate          *time.Time `json:"dueDate"`
}

// CreateHomeProgram creates a program bundle for one of the therapist's patients.
func (h *Handler) CreateHomeProgram(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)

	var req HomeProgramRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}

	childID, err := primitive.ObjectIDFromHex(req.ChildID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid child ID"})
		return
	}
	if user.Role == models.RoleTherapist && !user.HasAssignedPatient(childID) {
		c.JSON(http.StatusForbidden, gin.H{"success": false, "message": "Child is not in your assigned patients"})
		return
	}

	items := make([]models.ProgramItem, 0, len(req.Items))
	for _, it := range req.Items {
		item := models.ProgramItem{
			ItemID:           primitive.NewObjectID(),
			Title:            it.Title,
			FrequencyPerWeek: it.FrequencyPerWeek,
			DueDate:          it.DueDate,
			Completions:      []models.ItemCompletion{},
		}
		if it.ActivityID != "" {
			activityID, err := primitive.ObjectIDFromHex(it.ActivityID)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid activity ID in items"})
				return
			}
			item.ActivityID = &activityID
		}
		items = append(items, item)
	}

	now := time.Now().UTC()
	program := models.HomeProgram{
		ID:          primitive.NewObjectID(),
		TherapistID: user.ID,
		ChildID:     childID,
		Title:       req.Title,
		Notes:       req.Notes,
		Items:       items,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if _, err := h.homePrograms().InsertOne(c.Request.Context(), program); err != nil {
		h.Log.Errorw("therapist: creating home program", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Error creating home program"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"success": true, "data": program})
}

// hospitalPatientIDs returns the ids of the children affiliated with a hospital
// account. Hospital callers on the therapist surface are scoped to this set, the
// same boundary GetPatients applies via hospitalId.
func (h *Handler) hospitalPatientIDs(ctx context.Context, hospitalID primitive.ObjectID) ([]primitive.ObjectID, error) {
	cursor, err := h.users().Find(ctx,
		bson.M{"role": models.RoleChild, "hospitalId": hospitalID},
		options.Find().SetProjection(bson.M{"_id": 1}),
	)
	if err != nil {
		return nil, err
	}
	var docs []struct {
		ID primitive.ObjectID `bson:"_id"`
	}
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	ids := make([]primitive.ObjectID, 0, len(docs))
	for _, d := range docs {
		ids = append(ids, d.ID)
	}
	return ids, nil
}

func containsID(ids []primitive.ObjectID, id primitive.ObjectID) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}

// GetHomePrograms lists programs owned by the calling therapist. Hospital
// callers see programs for their affiliated children only.
func (h *Handler) GetHomePrograms(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)

	filter := bson.M{"isActive": true}
	if user.Role == models.RoleTherapist {
		filter["therapistId"] = user.ID
	} else if user.Role == models.RoleHospital {
		ids, err := h.hospitalPatientIDs(c.Request.Context(), user.ID)
		if err != nil {
			h.Log.Errorw("therapist: scoping home programs to hospital", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Error fetching home programs"})
			return
		}
		filter["childId"] = bson.M{"$in": ids}
	}
	if childID := c.Query("childId"); childID != "" {
		id, err := primitive.ObjectIDFromHex(childID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid child ID"})
			return
		}
		if in, ok := filter["childId"].(bson.M); ok && !containsID(in["$in"].([]primitive.ObjectID), id) {
			c.JSON(http.StatusForbidden, gin.H{"success": false, "message": "Child is not affiliated with your hospital"})
			return
		}
		filter["childId"] = id
	}

	cursor, err := h.homePrograms().Find(c.Request.Context(), filter)
	if err != nil {
		h.Log.Errorw("therapist: listing home programs", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Error fetching home programs"})
		return
	}
	programs := []models.HomeProgram{}
	if err := cursor.All(c.Request.Context(), &programs); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Error fetching home programs"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "total": len(programs), "data": programs})
}

type UpdateHomeProgramRequest struct {
	Title    string `json:"title" binding:"omitempty,max=100"`
	Notes    string `json:"notes" binding:"max=2000"`
	IsActive *bool  `json:"isActive"`
}

// UpdateHomeProgram edits a program's header fields. Items and their completions
// are immutable once created; deactivate the program instead.
func (h *Handler) UpdateHomeProgram(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)

	programID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid program ID"})
		return
	}

	var req UpdateHomeProgramRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}

	set := bson.M{"updatedAt": time.Now().UTC()}
	if req.Title != "" {
		set["title"] = req.Title
	}
	if req.Notes != "" {
		set["notes"] = req.Notes
	}
	if req.IsActive != nil {
		set["isActive"] = *req.IsActive
	}

	filter := bson.M{"_id": programID}
	if user.Role == models.RoleTherapist {
		filter["therapistId"] = user.ID
	}

	result, err := h.homePrograms().UpdateOne(c.Request.Context(), filter, bson.M{"$set": set})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Error updating home program"})
		return
	}
	if result.MatchedCount == 0 {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Home program not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Home program updated"})
}

// GetPendingProgress lists submitted entries awaiting the therapist's review.
// Hospital callers see entries from their affiliated children only.
func (h *Handler) GetPendingProgress(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)

	filter := bson.M{"status": models.ProgressSubmitted}
	if user.Role == models.RoleTherapist {
		filter["$or"] = []bson.M{
			{"therapistId": user.ID},
			{"userId": bson.M{"$in": user.AssignedPatients}},
		}
	} else if user.Role == models.RoleHospital {
		ids, err := h.hospitalPatientIDs(c.Request.Context(), user.ID)
		if err != nil {
			h.Log.Errorw("therapist: scoping pending progress to hospital", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Error fetching progress"})
			return
		}
		filter["userId"] = bson.M{"$in": ids}
	}

	cursor, err := h.progress().Find(c.Request.Context(), filter)
	if err != nil {
		h.Log.Errorw("therapist: listing pending progress", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Error fetching progress"})
		return
	}
	entries := []models.Progress{}
	if err := cursor.All(c.Request.Context(), &entries); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Error fetching progress"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "total": len(entries), "data": entries})
}

// ReviewProgress advances an entry through submitted → reviewed → approved.
func (h *Handler) ReviewProgress(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)

	progressID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid progress ID"})
		return
	}

	var req struct {
		Note string `json:"note" binding:"max=2000"`
	}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
			return
		}
	}

	ctx := c.Request.Context()
	var entry models.Progress
	if err := h.progress().FindOne(ctx, bson.M{"_id": progressID}).Decode(&entry); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Progress entry not found"})
		return
	}

	if user.Role == models.RoleTherapist {
		ownsEntry := (entry.TherapistID != nil && *entry.TherapistID == user.ID) ||
			user.HasAssignedPatient(entry.UserID)
		if !ownsEntry {
			c.JSON(http.StatusForbidden, gin.H{"success": false, "message": "This patient is not in your assigned set"})
			return
		}
	}

	next, ok := models.NextProgressStatus(entry.Status)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Entry cannot be reviewed from status " + entry.Status})
		return
	}

	set := bson.M{
		"status":     next,
		"reviewedBy": user.ID,
		"updatedAt":  time.Now().UTC(),
	}
	if req.Note != "" {
		set["reviewNote"] = req.Note
	}

	// status appears in the filter so concurrent reviews advance at most one step
	result, err := h.progress().UpdateOne(ctx,
		bson.M{"_id": progressID, "status": entry.Status},
		bson.M{"$set": set},
	)
	if err != nil {
		h.Log.Errorw("therapist: reviewing progress", "progressId", progressID.Hex(), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Error reviewing progress"})
		return
	}
	if result.ModifiedCount == 0 {
		c.JSON(http.StatusConflict, gin.H{"success": false, "message": "Progress entry was modified concurrently"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Progress " + next})
}
