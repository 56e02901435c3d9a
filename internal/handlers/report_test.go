package handlers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"github.com/mirantsoa/therapy-api/internal/models"
)

func TestMarkOverduePendingIdempotent(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("second sweep transitions nothing", func(mt *mtest.T) {
		h := newMockHandler(mt)
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 2}, bson.E{Key: "nModified", Value: 2}),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}, bson.E{Key: "nModified", Value: 0}),
		)

		first, err := h.markOverduePending(context.Background(), nil)
		require.NoError(mt, err)
		assert.Equal(mt, int64(2), first)

		second, err := h.markOverduePending(context.Background(), nil)
		require.NoError(mt, err)
		assert.Zero(mt, second)

		// both sweeps filter on the open statuses only, so records already marked
		// not-completed can never match again
		updates := commandsNamed(mt.GetAllStartedEvents(), "update")
		require.Len(mt, updates, 2)
		for _, ev := range updates {
			statuses := ev.Command.Lookup("updates", "0", "q", "completionStatus", "$in")
			require.NotZero(mt, statuses.Type)
			arr := statuses.Array().String()
			assert.Contains(mt, arr, models.StatusPending)
			assert.Contains(mt, arr, models.StatusInProgress)
			assert.NotContains(mt, arr, models.StatusNotCompleted)
		}
	})
}
