package handlers

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/mirantsoa/therapy-api/internal/models"
)

// markOverduePending persists the not-completed transition for open assignments
// whose due date has passed. The filter excludes records already marked, so the
// sweep is idempotent: running it twice transitions nothing twice. Called at
// read time by the report endpoints instead of a background scheduler.
func (h *Handler) markOverduePending(ctx context.Context, extra bson.M) (int64, error) {
	now := time.Now().UTC()
	filter := bson.M{
		"completionStatus": bson.M{"$in": []string{models.StatusPending, models.StatusInProgress}},
		"dueDate":          bson.M{"$ne": nil, "$lt": now},
	}
	for k, v := range extra {
		filter[k] = v
	}

	result, err := h.assignments().UpdateMany(ctx, filter, bson.M{
		"$set": bson.M{"completionStatus": models.StatusNotCompleted, "updatedAt": now},
	})
	if err != nil {
		return 0, err
	}
	return result.ModifiedCount, nil
}

// buildChildReport sweeps overdue assignments for one child and aggregates their
// effective statuses.
func (h *Handler) buildChildReport(ctx context.Context, childID primitive.ObjectID) (gin.H, error) {
	if _, err := h.markOverduePending(ctx, bson.M{"childId": childID}); err != nil {
		return nil, err
	}

	cursor, err := h.assignments().Find(ctx, bson.M{"childId": childID, "isActive": true})
	if err != nil {
		return nil, err
	}
	assignments := []models.ActivityAssignment{}
	if err := cursor.All(ctx, &assignments); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	counts := map[string]int{
		models.StatusPending:      0,
		models.StatusInProgress:   0,
		models.StatusCompleted:    0,
		models.StatusNotCompleted: 0,
	}
	var scoreSum, scored int
	for i := range assignments {
		counts[assignments[i].EffectiveStatus(now)]++
		if assignments[i].Score != nil {
			scoreSum += *assignments[i].Score
			scored++
		}
	}

	total := len(assignments)
	completionRate := 0.0
	if total > 0 {
		completionRate = float64(counts[models.StatusCompleted]) / float64(total) * 100
	}
	averageScore := 0.0
	if scored > 0 {
		averageScore = float64(scoreSum) / float64(scored)
	}

	return gin.H{
		"total":          total,
		"byStatus":       counts,
		"completionRate": completionRate,
		"averageScore":   averageScore,
		"assignments":    assignments,
	}, nil
}
