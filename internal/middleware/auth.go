package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/mirantsoa/therapy-api/internal/models"
	"github.com/mirantsoa/therapy-api/internal/utils"
)

// Gin context keys set by the guards below.
const (
	CtxUser       = "user"
	CtxTargetUser = "targetUser"
)

// AuthCookieName is the httpOnly cookie carrying the session token.
const AuthCookieName = "authToken"

// TokenFromRequest extracts the session token from the authToken cookie or, for
// non-browser clients, from the Authorization: Bearer header.
func TokenFromRequest(c *gin.Context) string {
	if cookie, err := c.Cookie(AuthCookieName); err == nil && cookie != "" {
		return cookie
	}
	authHeader := c.GetHeader("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}
	return ""
}

// Protect resolves the caller from a verified session token and loads the user
// document. Rejects missing/invalid/expired tokens and deactivated accounts.
func Protect(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := TokenFromRequest(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false, "message": "Access denied. No token provided.",
			})
			return
		}

		claims, err := utils.ValidateJWT(token)
		if err != nil {
			msg := "Invalid token"
			if errors.Is(err, jwt.ErrTokenExpired) {
				msg = "Token expired"
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "message": msg})
			return
		}

		userID, err := primitive.ObjectIDFromHex(claims.UserID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Invalid token"})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		var user models.User
		err = db.Collection("users").FindOne(ctx, bson.M{"_id": userID}).Decode(&user)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false, "message": "Token is valid but user does not exist anymore.",
			})
			return
		}
		if !user.IsActive {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false, "message": "User account is deactivated.",
			})
			return
		}

		c.Set(CtxUser, &user)
		c.Next()
	}
}

// CurrentUser returns the authenticated user attached by Protect.
func CurrentUser(c *gin.Context) (*models.User, bool) {
	v, ok := c.Get(CtxUser)
	if !ok {
		return nil, false
	}
	user, ok := v.(*models.User)
	return user, ok
}

// Authorize restricts a route to the given roles. Superuser bypasses all checks;
// a hospital account is treated as an admin superset for any route that admits
// hospital, therapist or child.
func Authorize(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := CurrentUser(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false, "message": "Access denied. Please login first.",
			})
			return
		}

		if user.Role == models.RoleSuperuser {
			c.Next()
			return
		}

		if user.Role == models.RoleHospital {
			if containsAny(roles, models.RoleHospital, models.RoleTherapist, models.RoleChild) {
				c.Next()
				return
			}
		}

		for _, role := range roles {
			if user.Role == role {
				c.Next()
				return
			}
		}

		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
			"success": false,
			"message": fmt.Sprintf("Access denied. Requires role: %s", strings.Join(roles, " or ")),
		})
	}
}

// RequireTargetUser resolves the named path param to a user document and attaches
// it for AuthorizeOwnerOrRole's ownership checks. 400 on a malformed id, 404 when
// no such user exists.
func RequireTargetUser(db *mongo.Database, param string) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.Param(param)
		targetID, err := primitive.ObjectIDFromHex(raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid user ID"})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		var target models.User
		err = db.Collection("users").FindOne(ctx, bson.M{"_id": targetID}).Decode(&target)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"success": false, "message": "User not found"})
			return
		}

		c.Set(CtxTargetUser, &target)
		c.Next()
	}
}

// TargetUser returns the resource user attached by RequireTargetUser.
func TargetUser(c *gin.Context) (*models.User, bool) {
	v, ok := c.Get(CtxTargetUser)
	if !ok {
		return nil, false
	}
	user, ok := v.(*models.User)
	return user, ok
}

// AuthorizeOwnerOrRole grants access when the caller owns the target resource,
// is a superuser, holds one of the explicitly allowed roles, is a therapist with
// the target in their assigned-patients set, or is the hospital account the
// target is affiliated with. Must run after RequireTargetUser.
func AuthorizeOwnerOrRole(allowedRoles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := CurrentUser(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false, "message": "Access denied. Please login first.",
			})
			return
		}

		target, ok := TargetUser(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid user ID"})
			return
		}

		if user.ID == target.ID {
			c.Next()
			return
		}
		if user.Role == models.RoleSuperuser {
			c.Next()
			return
		}
		for _, role := range allowedRoles {
			if user.Role == role {
				c.Next()
				return
			}
		}
		if user.Role == models.RoleTherapist && user.HasAssignedPatient(target.ID) {
			c.Next()
			return
		}
		if user.Role == models.RoleHospital && target.HospitalID != nil && *target.HospitalID == user.ID {
			c.Next()
			return
		}

		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
			"success": false, "message": "Access denied. You can only access your own resources.",
		})
	}
}

func containsAny(haystack []string, needles ...string) bool {
	for _, h := range haystack {
		for _, n := range needles {
			if h == n {
				return true
			}
		}
	}
	return false
}
