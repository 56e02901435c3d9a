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

// GetMyActivities lists the caller's active assignments with the activity details
// joined in and the status derived at read time.
func (h *Handler) GetMyActivities(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)
	ctx := c.Request.Context()

	cursor, err := h.assignments().Find(ctx, bson.M{"childId": user.ID, "isActive": true})
	if err != nil {
		h.Log.Errorw("child: listing assignments", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Error fetching activities"})
		return
	}
	assignments := []models.ActivityAssignment{}
	if err := cursor.All(ctx, &assignments); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Error fetching activities"})
		return
	}

	// join the referenced activities in one query
	activityIDs := make([]primitive.ObjectID, 0, len(assignments))
	for i := range assignments {
		activityIDs = append(activityIDs, assignments[i].ActivityID)
	}
	activitiesByID := map[primitive.ObjectID]models.Activity{}
	if len(activityIDs) > 0 {
		actCursor, err := h.activities().Find(ctx, bson.M{"_id": bson.M{"$in": activityIDs}})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Error fetching activities"})
			return
		}
		activities := []models.Activity{}
		if err := actCursor.All(ctx, &activities); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Error fetching activities"})
			return
		}
		for i := range activities {
			activitiesByID[activities[i].ID] = activities[i]
		}
	}

	now := time.Now().UTC()
	data := make([]gin.H, 0, len(assignments))
	for i := range assignments {
		a := &assignments[i]
		activity := activitiesByID[a.ActivityID]
		data = append(data, gin.H{
			"assignmentId":       a.ID,
			"activityId":         a.ActivityID,
			"name":               activity.Name,
			"description":        activity.Description,
			"steps":              activity.Steps,
			"assistance":         activity.Assistance,
			"mediaUrls":          activity.MediaURLs,
			"dueDate":            a.DueDate,
			"completionStatus":   a.EffectiveStatus(now),
			"score":              a.Score,
			"completionVideoUrl": a.CompletionVideoURL,
			"startedDate":        a.StartedDate,
			"completedDate":      a.CompletedDate,
			"isOverdue":          a.IsOverdue(now),
		})
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "total": len(data), "data": data})
}

// StartActivity moves one of the caller's assignments from pending to
// in-progress. The status predicate lives in the update filter, so a double
// start cannot transition twice.
func (h *Handler) StartActivity(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)

	assignmentID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid assignment ID"})
		return
	}

	now := time.Now().UTC()
	result, err := h.assignments().UpdateOne(c.Request.Context(),
		bson.M{
			"_id":              assignmentID,
			"childId":          user.ID,
			"isActive":         true,
			"completionStatus": models.StatusPending,
		},
		bson.M{"$set": bson.M{
			"completionStatus": models.StatusInProgress,
			"startedDate":      now,
			"updatedAt":        now,
		}},
	)
	if err != nil {
		h.Log.Errorw("child: starting activity", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Error starting activity"})
		return
	}
	if result.MatchedCount == 0 {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Pending assignment not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Activity started"})
}

type SubmitActivityRequest struct {
	CompletionVideoURL string `json:"completionVideoUrl" binding:"required,url"`
	Score              *int   `json:"score" binding:"omitempty,min=0,max=100"`
}

// SubmitActivity completes an assignment with video proof and an optional score,
// then folds the result into the child's aggregate stats.
func (h *Handler) SubmitActivity(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)

	assignmentID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid assignment ID"})
		return
	}

	var req SubmitActivityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	now := time.Now().UTC()
	set := bson.M{
		"completionStatus":   models.StatusCompleted,
		"completedDate":      now,
		"completionVideoUrl": req.CompletionVideoURL,
		"updatedAt":          now,
	}
	if req.Score != nil {
		set["score"] = *req.Score
	}

	result, err := h.assignments().UpdateOne(ctx,
		bson.M{
			"_id":              assignmentID,
			"childId":          user.ID,
			"isActive":         true,
			"completionStatus": bson.M{"$in": []string{models.StatusPending, models.StatusInProgress}},
		},
		bson.M{"$set": set},
	)
	if err != nil {
		h.Log.Errorw("child: submitting activity", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Error submitting activity"})
		return
	}
	if result.MatchedCount == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Assignment not found or already completed"})
		return
	}

	h.updateChildStats(c, user.ID, req.Score)

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Activity submitted successfully"})
}

// updateChildStats recomputes the aggregate counters after a completion. The
// average is rebuilt from the scored assignments rather than incrementally.
func (h *Handler) updateChildStats(c *gin.Context, childID primitive.ObjectID, score *int) {
	ctx := c.Request.Context()

	set := bson.M{"updatedAt": time.Now().UTC()}
	if score != nil {
		cursor, err := h.assignments().Find(ctx, bson.M{
			"childId":          childID,
			"completionStatus": models.StatusCompleted,
			"score":            bson.M{"$ne": nil},
		})
		if err == nil {
			scored := []models.ActivityAssignment{}
			if err := cursor.All(ctx, &scored); err == nil && len(scored) > 0 {
				sum := 0
				for i := range scored {
					sum += *scored[i].Score
				}
				set["stats.averageScore"] = float64(sum) / float64(len(scored))
			}
		}
	}

	_, err := h.users().UpdateOne(ctx,
		bson.M{"_id": childID},
		bson.M{
			"$inc": bson.M{"stats.totalActivitiesCompleted": 1},
			"$set": set,
		},
	)
	if err != nil {
		h.Log.Warnw("child: updating stats", "childId", childID.Hex(), "error", err)
	}
}

// GetMyReport sweeps overdue assignments and returns the caller's aggregate report.
func (h *Handler) GetMyReport(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)

	report, err := h.buildChildReport(c.Request.Context(), user.ID)
	if err != nil {
		h.Log.Errorw("child: building report", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Error building report"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": report})
}

// GetMyHomePrograms lists the caller's active home programs.
func (h *Handler) GetMyHomePrograms(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)

	cursor, err := h.homePrograms().Find(c.Request.Context(), bson.M{"childId": user.ID, "isActive": true})
	if err != nil {
		h.Log.Errorw("child: listing home programs", "error", err)
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

// CompleteProgramItem appends a completion record to one item of the caller's
// home program. The completions list is append-only.
func (h *Handler) CompleteProgramItem(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)

	programID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid program ID"})
		return
	}
	itemID, err := primitive.ObjectIDFromHex(c.Param("itemId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid item ID"})
		return
	}

	var req struct {
		Note string `json:"note" binding:"max=500"`
	}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
			return
		}
	}

	completion := models.ItemCompletion{CompletedAt: time.Now().UTC(), Note: req.Note}
	result, err := h.homePrograms().UpdateOne(c.Request.Context(),
		bson.M{
			"_id":          programID,
			"childId":      user.ID,
			"isActive":     true,
			"items.itemId": itemID,
		},
		bson.M{
			"$push": bson.M{"items.$.completions": completion},
			"$set":  bson.M{"updatedAt": completion.CompletedAt},
		},
	)
	if err != nil {
		h.Log.Errorw("child: completing program item", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Error recording completion"})
		return
	}
	if result.MatchedCount == 0 {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Program item not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Completion recorded", "data": completion})
}

type CreateProgressRequest struct {
	ProgramID  string   `json:"programId"`
	Percentage int      `json:"percentage" binding:"min=0,max=100"`
	Milestone  string   `json:"milestone"`
	Score      *int     `json:"score" binding:"omitempty,min=0,max=100"`
	Mood       string   `json:"mood"`
	Tags       []string `json:"tags"`
	Note       string   `json:"note" binding:"max=2000"`
}

// CreateProgress records a draft progress entry for the caller.
func (h *Handler) CreateProgress(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)

	var req CreateProgressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}
	if !models.IsValidMilestone(req.Milestone) {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid milestone"})
		return
	}
	if !models.IsValidMood(req.Mood) {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid mood"})
		return
	}

	entry := models.Progress{
		ID:         primitive.NewObjectID(),
		UserID:     user.ID,
		Percentage: req.Percentage,
		Milestone:  req.Milestone,
		Score:      req.Score,
		Mood:       req.Mood,
		Tags:       req.Tags,
		Note:       req.Note,
		Status:     models.ProgressDraft,
		CreatedAt:  time.Now().UTC(),
		UpdatedAt:  time.Now().UTC(),
	}
	if user.AssignedTherapist != nil {
		entry.TherapistID = user.AssignedTherapist
	}
	if req.ProgramID != "" {
		programID, err := primitive.ObjectIDFromHex(req.ProgramID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid program ID"})
			return
		}
		if err := h.homePrograms().FindOne(c.Request.Context(), bson.M{"_id": programID, "childId": user.ID}).Err(); err != nil {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Home program not found"})
			return
		}
		entry.ProgramID = &programID
	}

	if _, err := h.progress().InsertOne(c.Request.Context(), entry); err != nil {
		h.Log.Errorw("child: creating progress entry", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Error recording progress"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"success": true, "data": entry})
}

// SubmitProgress moves one of the caller's draft entries to submitted.
func (h *Handler) SubmitProgress(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)

	progressID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid progress ID"})
		return
	}

	result, err := h.progress().UpdateOne(c.Request.Context(),
		bson.M{"_id": progressID, "userId": user.ID, "status": models.ProgressDraft},
		bson.M{"$set": bson.M{"status": models.ProgressSubmitted, "updatedAt": time.Now().UTC()}},
	)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Error submitting progress"})
		return
	}
	if result.MatchedCount == 0 {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Draft progress entry not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Progress submitted for review"})
}

// GetMyProgress lists the caller's progress entries.
func (h *Handler) GetMyProgress(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)

	cursor, err := h.progress().Find(c.Request.Context(), bson.M{"userId": user.ID})
	if err != nil {
		h.Log.Errorw("child: listing progress", "error", err)
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
