package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/mirantsoa/therapy-api/internal/middleware"
	"github.com/mirantsoa/therapy-api/internal/models"
	"github.com/mirantsoa/therapy-api/internal/utils"
)

const genericResetMessage = "If an account exists with this email, a reset link has been sent to your email address."

type RegisterRequest struct {
	Name     string `json:"name" binding:"required,max=50"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
	Role     string `json:"role" binding:"required"`
	Phone    string `json:"phone"`
}

// setAuthCookie delivers the session token as an httpOnly, SameSite=Strict cookie.
// Secure is only set in production so local development works over plain HTTP.
func (h *Handler) setAuthCookie(c *gin.Context, token string) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(middleware.AuthCookieName, token, int(7*24*time.Hour/time.Second), "/", "", h.Cfg.IsProduction(), true)
}

func (h *Handler) clearAuthCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(middleware.AuthCookieName, "", -1, "/", "", h.Cfg.IsProduction(), true)
}

// requester resolves the optional caller on unauthenticated routes. Register is
// public, but restricted roles need to know who is asking.
func (h *Handler) requester(c *gin.Context) *models.User {
	token := middleware.TokenFromRequest(c)
	if token == "" {
		return nil
	}
	claims, err := utils.ValidateJWT(token)
	if err != nil {
		return nil
	}
	id, err := primitive.ObjectIDFromHex(claims.UserID)
	if err != nil {
		return nil
	}
	var user models.User
	if err := h.users().FindOne(c.Request.Context(), bson.M{"_id": id}).Decode(&user); err != nil {
		return nil
	}
	if !user.IsActive {
		return nil
	}
	return &user
}

func sanitizedUser(u *models.User) gin.H {
	return gin.H{
		"id":    u.ID,
		"name":  u.Name,
		"email": u.Email,
		"role":  u.Role,
	}
}

// Register creates a user account. Therapist and child roles are open for
// self-registration; superuser and hospital accounts can only be created by a
// superuser.
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}

	if !models.IsValidRole(req.Role) {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "Invalid role specified",
			"errors":  []gin.H{{"field": "role", "message": "Role must be one of: therapist, child"}},
		})
		return
	}

	if !models.IsPublicRole(req.Role) {
		requester := h.requester(c)
		if requester == nil {
			c.JSON(http.StatusForbidden, gin.H{
				"success": false,
				"message": "Authentication required for this role",
				"errors":  []gin.H{{"field": "role", "message": "This role requires administrator approval."}},
			})
			return
		}
		if requester.Role != models.RoleSuperuser {
			c.JSON(http.StatusForbidden, gin.H{
				"success": false,
				"message": "Only superuser can create " + req.Role + " accounts",
			})
			return
		}
	}

	hashedPassword, err := utils.HashPassword(req.Password)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to hash password"})
		return
	}

	now := time.Now().UTC()
	user := models.User{
		ID:        primitive.NewObjectID(),
		Name:      strings.TrimSpace(req.Name),
		Email:     normalizeEmail(req.Email),
		Password:  hashedPassword,
		Role:      req.Role,
		Phone:     req.Phone,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if _, err := h.users().InsertOne(c.Request.Context(), user); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Email already in use"})
			return
		}
		h.Log.Errorw("register: inserting user", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to create user"})
		return
	}

	token, err := utils.GenerateJWT(user.ID.Hex(), user.Role)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Could not generate token"})
		return
	}
	h.setAuthCookie(c, token)

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "Registration successful",
		"user":    sanitizedUser(&user),
	})
}

// Login verifies credentials and issues a session. Unknown email and wrong
// password are indistinguishable to the caller.
func (h *Handler) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid request"})
		return
	}

	var user models.User
	err := h.users().FindOne(c.Request.Context(), bson.M{"email": normalizeEmail(req.Email)}).Decode(&user)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "Invalid credentials"})
		return
	}
	if !utils.CheckPasswordHash(req.Password, user.Password) {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "Invalid credentials"})
		return
	}
	if !user.IsActive {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "Invalid credentials"})
		return
	}

	now := time.Now().UTC()
	_, err = h.users().UpdateOne(c.Request.Context(),
		bson.M{"_id": user.ID},
		bson.M{"$set": bson.M{"lastLogin": now}},
	)
	if err != nil {
		h.Log.Warnw("login: recording lastLogin", "error", err)
	}

	token, err := utils.GenerateJWT(user.ID.Hex(), user.Role)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Could not generate token"})
		return
	}
	h.setAuthCookie(c, token)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Login successful",
		"user":    sanitizedUser(&user),
	})
}

// GetProfile returns the authenticated user's own document.
func (h *Handler) GetProfile(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "User not authenticated"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": user})
}

type UpdateProfileRequest struct {
	Name        string          `json:"name"`
	Phone       string          `json:"phone"`
	Bio         string          `json:"bio"`
	Gender      string          `json:"gender"`
	DateOfBirth *time.Time      `json:"dateOfBirth"`
	Address     *models.Address `json:"address"`
}

// UpdateProfile lets a user change their own non-privileged fields. Role, email
// and relations are deliberately not updatable here.
func (h *Handler) UpdateProfile(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)

	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid request body"})
		return
	}

	set := bson.M{}
	if req.Name != "" {
		set["name"] = strings.TrimSpace(req.Name)
	}
	if req.Phone != "" {
		set["phone"] = req.Phone
	}
	if req.Bio != "" {
		set["bio"] = req.Bio
	}
	if req.Gender != "" {
		set["gender"] = req.Gender
	}
	if req.DateOfBirth != nil {
		if req.DateOfBirth.After(time.Now()) {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Date of birth cannot be in the future"})
			return
		}
		set["dateOfBirth"] = req.DateOfBirth
	}
	if req.Address != nil {
		set["address"] = req.Address
	}
	if len(set) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "No update fields provided"})
		return
	}
	set["updatedAt"] = time.Now().UTC()

	result, err := h.users().UpdateOne(c.Request.Context(), bson.M{"_id": user.ID}, bson.M{"$set": set})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to update profile"})
		return
	}
	if result.MatchedCount == 0 {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "User not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Profile updated successfully"})
}

// Logout records the logout timestamp and clears the session cookie.
func (h *Handler) Logout(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)

	_, err := h.users().UpdateOne(c.Request.Context(),
		bson.M{"_id": user.ID},
		bson.M{"$set": bson.M{"lastLogout": time.Now().UTC()}},
	)
	if err != nil {
		h.Log.Warnw("logout: recording lastLogout", "error", err)
	}

	h.clearAuthCookie(c)
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Logged out successfully"})
}

// ForgotPassword starts a password reset. The response never reveals whether the
// account exists; an unexpired pending token is rejected with 429 instead of
// issuing a second one.
func (h *Handler) ForgotPassword(c *gin.Context) {
	var req struct {
		Email string `json:"email" binding:"required,email"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Email is required"})
		return
	}

	ctx := c.Request.Context()
	email := normalizeEmail(req.Email)

	var user models.User
	err := h.users().FindOne(ctx, bson.M{"email": email}).Decode(&user)
	if err != nil {
		// mask the nonexistent-account path's faster response
		time.Sleep(100 * time.Millisecond)
		c.JSON(http.StatusOK, gin.H{"success": true, "message": genericResetMessage})
		return
	}
	if !user.IsActive {
		c.JSON(http.StatusOK, gin.H{"success": true, "message": genericResetMessage})
		return
	}

	now := time.Now().UTC()
	if user.PasswordResetExpires != nil && user.PasswordResetExpires.After(now) {
		c.JSON(http.StatusTooManyRequests, gin.H{
			"success": false,
			"message": "Password reset request already sent. Please check your email or wait a few minutes before requesting again.",
		})
		return
	}

	rawToken, hashedToken, err := utils.GenerateResetToken()
	if err != nil {
		h.Log.Errorw("forgot-password: generating token", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "An error occurred. Please try again later."})
		return
	}

	expires := now.Add(h.Cfg.ResetTokenTTL)
	// Single conditional update: the token is only written when no unexpired one
	// exists, so two concurrent requests cannot both issue a token.
	result, err := h.users().UpdateOne(ctx,
		bson.M{
			"_id":      user.ID,
			"isActive": true,
			"$or": []bson.M{
				{"passwordResetExpires": bson.M{"$exists": false}},
				{"passwordResetExpires": nil},
				{"passwordResetExpires": bson.M{"$lte": now}},
			},
		},
		bson.M{"$set": bson.M{
			"passwordResetToken":   hashedToken,
			"passwordResetExpires": expires,
		}},
	)
	if err != nil {
		h.Log.Errorw("forgot-password: storing token", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "An error occurred. Please try again later."})
		return
	}
	if result.ModifiedCount == 0 {
		// a concurrent request won the race
		c.JSON(http.StatusTooManyRequests, gin.H{
			"success": false,
			"message": "Password reset request already sent. Please check your email or wait a few minutes before requesting again.",
		})
		return
	}

	if err := h.Mail.SendPasswordResetEmail(ctx, &user, rawToken); err != nil {
		h.Log.Errorw("forgot-password: sending email", "to", user.Email, "error", err)
		// roll the token back so the user can retry immediately
		_, _ = h.users().UpdateOne(ctx,
			bson.M{"_id": user.ID, "passwordResetToken": hashedToken},
			bson.M{"$unset": bson.M{"passwordResetToken": "", "passwordResetExpires": ""}},
		)
		if h.Cfg.IsProduction() {
			c.JSON(http.StatusOK, gin.H{"success": true, "message": genericResetMessage})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to send reset email. Please try again later."})
		return
	}

	resp := gin.H{"success": true, "message": genericResetMessage}
	if !h.Cfg.IsProduction() && !h.Mail.IsConfigured() {
		// local testing convenience when no mail provider is wired up
		resp["resetToken"] = rawToken
		resp["note"] = "Email service not configured. Use this token for testing."
	}
	c.JSON(http.StatusOK, resp)
}

// ResetPassword consumes a reset token. Tokens are single-use: the fields are
// cleared in the same write that sets the new password.
func (h *Handler) ResetPassword(c *gin.Context) {
	var req struct {
		Token    string `json:"token" binding:"required"`
		Password string `json:"password" binding:"required,min=6"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Token and new password are required"})
		return
	}

	ctx := c.Request.Context()
	hashedToken := utils.HashToken(req.Token)
	now := time.Now().UTC()

	var user models.User
	err := h.users().FindOne(ctx, bson.M{
		"passwordResetToken":   hashedToken,
		"passwordResetExpires": bson.M{"$gt": now},
	}).Decode(&user)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "Invalid or expired reset token. Please request a new password reset.",
		})
		return
	}
	if !user.IsActive {
		c.JSON(http.StatusForbidden, gin.H{
			"success": false,
			"message": "Account is deactivated. Please contact support.",
		})
		return
	}

	hashedPassword, err := utils.HashPassword(req.Password)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "An error occurred while resetting password. Please try again."})
		return
	}

	// The filter repeats the token predicate so a concurrent consume of the same
	// token can only succeed once.
	result, err := h.users().UpdateOne(ctx,
		bson.M{
			"_id":                  user.ID,
			"passwordResetToken":   hashedToken,
			"passwordResetExpires": bson.M{"$gt": now},
		},
		bson.M{
			"$set":   bson.M{"password": hashedPassword, "updatedAt": now},
			"$unset": bson.M{"passwordResetToken": "", "passwordResetExpires": ""},
		},
	)
	if err != nil || result.ModifiedCount == 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "Invalid or expired reset token. Please request a new password reset.",
		})
		return
	}

	h.Log.Infow("password reset", "userId", user.ID.Hex(), "email", user.Email)
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Password has been reset successfully. You can now login with your new password.",
	})
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
