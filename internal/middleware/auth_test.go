package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/mirantsoa/therapy-api/internal/models"
	"github.com/mirantsoa/therapy-api/internal/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// perform runs a request through the given middleware chain with an optional
// authenticated user and target user pre-attached.
func perform(t *testing.T, user, target *models.User, mw ...gin.HandlerFunc) *httptest.ResponseRecorder {
	t.Helper()
	r := gin.New()
	chain := []gin.HandlerFunc{func(c *gin.Context) {
		if user != nil {
			c.Set(CtxUser, user)
		}
		if target != nil {
			c.Set(CtxTargetUser, target)
		}
	}}
	chain = append(chain, mw...)
	chain = append(chain, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	r.GET("/t", chain...)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/t", nil)
	r.ServeHTTP(w, req)
	return w
}

func userWithRole(role string) *models.User {
	return &models.User{ID: primitive.NewObjectID(), Role: role, IsActive: true}
}

func TestAuthorizeAllowsMatchingRole(t *testing.T) {
	w := perform(t, userWithRole(models.RoleTherapist), nil, Authorize(models.RoleTherapist))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuthorizeRejectsMismatchedRole(t *testing.T) {
	w := perform(t, userWithRole(models.RoleChild), nil, Authorize(models.RoleTherapist))
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestAuthorizeChildCannotReachAdminRoutes(t *testing.T) {
	w := perform(t, userWithRole(models.RoleChild), nil, Authorize(models.RoleSuperuser, models.RoleHospital))
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestAuthorizeSuperuserBypassesEverything(t *testing.T) {
	w := perform(t, userWithRole(models.RoleSuperuser), nil, Authorize(models.RoleChild))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuthorizeHospitalSupersetForStaffRoutes(t *testing.T) {
	// hospital admin is admitted wherever therapist or child access is allowed
	w := perform(t, userWithRole(models.RoleHospital), nil, Authorize(models.RoleTherapist))
	assert.Equal(t, http.StatusOK, w.Code)

	w = perform(t, userWithRole(models.RoleHospital), nil, Authorize(models.RoleChild))
	assert.Equal(t, http.StatusOK, w.Code)

	// but not into superuser-only routes
	w = perform(t, userWithRole(models.RoleHospital), nil, Authorize(models.RoleSuperuser))
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestAuthorizeUnauthenticated(t *testing.T) {
	w := perform(t, nil, nil, Authorize(models.RoleChild))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthorizeOwnerAllowed(t *testing.T) {
	owner := userWithRole(models.RoleChild)
	w := perform(t, owner, owner, AuthorizeOwnerOrRole())
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuthorizeOwnerOrRoleRejectsOtherChild(t *testing.T) {
	caller := userWithRole(models.RoleChild)
	target := userWithRole(models.RoleChild)
	w := perform(t, caller, target, AuthorizeOwnerOrRole())
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestAuthorizeOwnerOrRoleTherapistAssignedPatient(t *testing.T) {
	target := userWithRole(models.RoleChild)
	therapist := userWithRole(models.RoleTherapist)
	therapist.AssignedPatients = []primitive.ObjectID{target.ID}

	w := perform(t, therapist, target, AuthorizeOwnerOrRole())
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuthorizeOwnerOrRoleTherapistUnassignedPatient(t *testing.T) {
	target := userWithRole(models.RoleChild)
	therapist := userWithRole(models.RoleTherapist)
	therapist.AssignedPatients = []primitive.ObjectID{primitive.NewObjectID()}

	w := perform(t, therapist, target, AuthorizeOwnerOrRole())
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestAuthorizeOwnerOrRoleHospitalAffiliation(t *testing.T) {
	hospital := userWithRole(models.RoleHospital)
	target := userWithRole(models.RoleChild)
	target.HospitalID = &hospital.ID

	w := perform(t, hospital, target, AuthorizeOwnerOrRole())
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuthorizeOwnerOrRoleHospitalWrongAffiliation(t *testing.T) {
	hospital := userWithRole(models.RoleHospital)
	otherHospital := primitive.NewObjectID()
	target := userWithRole(models.RoleChild)
	target.HospitalID = &otherHospital

	w := perform(t, hospital, target, AuthorizeOwnerOrRole())
	assert.Equal(t, http.StatusForbidden, w.Code)
}

// Replays the chain guarding /api/therapist/patients/:id. The role gate admits
// hospital as a staff superset, so the ownership guard must carry no explicit
// roles: a hospital caller falls through to the affiliation check and only
// reaches its own children.
func TestPatientRouteChainHospitalScopedByAffiliation(t *testing.T) {
	hospital := userWithRole(models.RoleHospital)
	foreign := primitive.NewObjectID()

	other := userWithRole(models.RoleChild)
	other.HospitalID = &foreign
	w := perform(t, hospital, other, Authorize(models.RoleTherapist), AuthorizeOwnerOrRole())
	assert.Equal(t, http.StatusForbidden, w.Code)

	own := userWithRole(models.RoleChild)
	own.HospitalID = &hospital.ID
	w = perform(t, hospital, own, Authorize(models.RoleTherapist), AuthorizeOwnerOrRole())
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuthorizeOwnerOrRoleSuperuser(t *testing.T) {
	w := perform(t, userWithRole(models.RoleSuperuser), userWithRole(models.RoleChild), AuthorizeOwnerOrRole())
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuthorizeOwnerOrRoleExplicitRole(t *testing.T) {
	w := perform(t, userWithRole(models.RoleHospital), userWithRole(models.RoleChild), AuthorizeOwnerOrRole(models.RoleHospital))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuthorizeOwnerOrRoleMissingTarget(t *testing.T) {
	w := perform(t, userWithRole(models.RoleChild), nil, AuthorizeOwnerOrRole())
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestProtectMissingToken(t *testing.T) {
	// no cookie, no header: Protect aborts before touching the database
	w := perform(t, nil, nil, Protect(nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestProtectMalformedToken(t *testing.T) {
	utils.ConfigureJWT("test-secret", time.Hour)

	r := gin.New()
	r.GET("/t", Protect(nil), func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/t", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestTokenFromRequestPrefersCookie(t *testing.T) {
	r := gin.New()
	var got string
	r.GET("/t", func(c *gin.Context) {
		got = TokenFromRequest(c)
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/t", nil)
	req.AddCookie(&http.Cookie{Name: AuthCookieName, Value: "cookie-token"})
	req.Header.Set("Authorization", "Bearer header-token")
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "cookie-token", got)
}

func TestTokenFromRequestBearerFallback(t *testing.T) {
	r := gin.New()
	var got string
	r.GET("/t", func(c *gin.Context) {
		got = TokenFromRequest(c)
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/t", nil)
	req.Header.Set("Authorization", "Bearer header-token")
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "header-token", got)
}
