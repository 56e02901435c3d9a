package handlers

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"github.com/mirantsoa/therapy-api/internal/models"
)

func pendingUserDoc(expires time.Time) bson.D {
	return bson.D{
		{Key: "_id", Value: primitive.NewObjectID()},
		{Key: "name", Value: "Kid"},
		{Key: "email", Value: "kid@example.com"},
		{Key: "role", Value: models.RoleChild},
		{Key: "isActive", Value: true},
		{Key: "passwordResetExpires", Value: primitive.NewDateTimeFromTime(expires)},
	}
}

func TestForgotPasswordPendingToken(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("unexpired token is not overwritten", func(mt *mtest.T) {
		h := newMockHandler(mt)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns(mt, "users"), mtest.FirstBatch,
			pendingUserDoc(time.Now().UTC().Add(5*time.Minute))))

		w := serve(nil, http.MethodPost, "/forgot-password", h.ForgotPassword,
			"/forgot-password", `{"email":"kid@example.com"}`)
		assert.Equal(mt, http.StatusTooManyRequests, w.Code)

		// the pending token must survive: no write of any kind was issued
		assert.Empty(mt, commandsNamed(mt.GetAllStartedEvents(), "update"))
	})

	mt.Run("lost issuance race returns 429", func(mt *mtest.T) {
		h := newMockHandler(mt)
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, ns(mt, "users"), mtest.FirstBatch,
				pendingUserDoc(time.Now().UTC().Add(-time.Minute))),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}, bson.E{Key: "nModified", Value: 0}),
		)

		w := serve(nil, http.MethodPost, "/forgot-password", h.ForgotPassword,
			"/forgot-password", `{"email":"kid@example.com"}`)
		assert.Equal(mt, http.StatusTooManyRequests, w.Code)

		// issuance is a single conditional write guarded by the expiry predicate
		updates := commandsNamed(mt.GetAllStartedEvents(), "update")
		require.Len(mt, updates, 1)
		guard := updates[0].Command.Lookup("updates", "0", "q", "$or")
		assert.NotZero(mt, guard.Type)
	})
}

func TestResetPasswordTokenSingleUse(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	body := `{"token":"raw-reset-token","password":"newpass123"}`

	mt.Run("consumed or expired token rejected", func(mt *mtest.T) {
		h := newMockHandler(mt)
		// a consumed token no longer matches the lookup filter
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns(mt, "users"), mtest.FirstBatch))

		w := serve(nil, http.MethodPost, "/reset-password", h.ResetPassword, "/reset-password", body)
		assert.Equal(mt, http.StatusBadRequest, w.Code)
		assert.Contains(mt, w.Body.String(), "Invalid or expired reset token")

		// expiry is a strict $gt: a token at its exact expiry instant is rejected
		finds := commandsNamed(mt.GetAllStartedEvents(), "find")
		require.Len(mt, finds, 1)
		cutoff := finds[0].Command.Lookup("filter", "passwordResetExpires", "$gt")
		assert.NotZero(mt, cutoff.Type)
	})

	mt.Run("lost consume race rejected", func(mt *mtest.T) {
		h := newMockHandler(mt)
		doc := pendingUserDoc(time.Now().UTC().Add(5 * time.Minute))
		doc = append(doc, bson.E{Key: "passwordResetToken", Value: "stored-digest"})
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, ns(mt, "users"), mtest.FirstBatch, doc),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}, bson.E{Key: "nModified", Value: 0}),
		)

		w := serve(nil, http.MethodPost, "/reset-password", h.ResetPassword, "/reset-password", body)
		assert.Equal(mt, http.StatusBadRequest, w.Code)
		assert.Contains(mt, w.Body.String(), "Invalid or expired reset token")

		// the consuming write repeats the token predicate
		updates := commandsNamed(mt.GetAllStartedEvents(), "update")
		require.Len(mt, updates, 1)
		token := updates[0].Command.Lookup("updates", "0", "q", "passwordResetToken")
		assert.NotZero(mt, token.Type)
	})
}

func TestRegisterDuplicateEmail(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("unique index violation maps to 400", func(mt *mtest.T) {
		h := newMockHandler(mt)
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index: 0, Code: 11000, Message: "E11000 duplicate key error collection: users index: email_1",
		}))

		w := serve(nil, http.MethodPost, "/register", h.Register, "/register",
			`{"name":"Kid","email":"kid@example.com","password":"secret123","role":"child"}`)
		assert.Equal(mt, http.StatusBadRequest, w.Code)
		assert.Contains(mt, w.Body.String(), "Email already in use")
	})
}
