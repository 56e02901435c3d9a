package handlers

import (
	"net/http/httptest"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/event"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/mirantsoa/therapy-api/internal/config"
	"github.com/mirantsoa/therapy-api/internal/middleware"
	"github.com/mirantsoa/therapy-api/internal/models"
	"github.com/mirantsoa/therapy-api/internal/services"
	"github.com/mirantsoa/therapy-api/internal/utils"
)

func init() {
	utils.ConfigureBcrypt(bcrypt.MinCost)
	utils.ConfigureJWT("test-secret", time.Hour)
}

// newMockHandler builds a Handler backed by mtest's mocked deployment so tests
// can script the exact server responses and inspect the commands issued.
func newMockHandler(mt *mtest.T) *Handler {
	logger := zap.NewNop().Sugar()
	return &Handler{
		DB:   mt.DB,
		Cfg:  &config.Config{Env: "development", ResetTokenTTL: 10 * time.Minute},
		Log:  logger,
		Mail: services.NewConsoleEmailService("http://localhost:3000", logger),
	}
}

func ns(mt *mtest.T, coll string) string {
	return mt.DB.Name() + "." + coll
}

// serve runs one request against a single handler, with an optional
// authenticated user pre-attached the way Protect would.
func serve(user *models.User, method, pattern string, handler gin.HandlerFunc, target, body string) *httptest.ResponseRecorder {
	r := gin.New()
	chain := []gin.HandlerFunc{}
	if user != nil {
		chain = append(chain, func(c *gin.Context) { c.Set(middleware.CtxUser, user) })
	}
	chain = append(chain, handler)
	r.Handle(method, pattern, chain...)

	req := httptest.NewRequest(method, target, nil)
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func commandsNamed(events []*event.CommandStartedEvent, name string) []*event.CommandStartedEvent {
	matched := []*event.CommandStartedEvent{}
	for _, ev := range events {
		if ev.CommandName == name {
			matched = append(matched, ev)
		}
	}
	return matched
}
