package main

import (
	"context"
	"log"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/mirantsoa/therapy-api/internal/config"
	"github.com/mirantsoa/therapy-api/internal/handlers"
	"github.com/mirantsoa/therapy-api/internal/middleware"
	"github.com/mirantsoa/therapy-api/internal/models"
	"github.com/mirantsoa/therapy-api/internal/services"
	"github.com/mirantsoa/therapy-api/internal/utils"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables.")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET is not set.")
	}

	var zl *zap.Logger
	if cfg.IsProduction() {
		zl, err = zap.NewProduction()
	} else {
		zl, err = zap.NewDevelopment()
	}
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer zl.Sync()
	logger := zl.Sugar()

	utils.ConfigureJWT(cfg.JWTSecret, cfg.JWTExpiry)
	utils.ConfigureBcrypt(cfg.BcryptCost)

	// --- Database connection ---
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		logger.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer client.Disconnect(context.Background())
	if err := client.Ping(ctx, nil); err != nil {
		logger.Fatalf("Failed to ping MongoDB: %v", err)
	}
	db := client.Database(cfg.MongoDatabase)
	logger.Infow("connected to MongoDB", "database", cfg.MongoDatabase)

	if err := ensureIndexes(ctx, db); err != nil {
		logger.Fatalf("Failed to create indexes: %v", err)
	}
	if err := seedSuperuser(ctx, db, cfg, logger); err != nil {
		logger.Fatalf("Failed to seed superuser: %v", err)
	}

	// --- Email service ---
	var mail services.EmailService
	if cfg.SendgridAPIKey != "" {
		mail = services.NewSendgridEmailService(cfg.SendgridAPIKey, cfg.EmailFromName, cfg.EmailFromAddr, cfg.FrontendURL, logger)
	} else {
		logger.Warn("SENDGRID_API_KEY not set, password reset emails go to the log")
		mail = services.NewConsoleEmailService(cfg.FrontendURL, logger)
	}

	h := handlers.NewHandler(db, cfg, logger, mail)

	// --- Gin router ---
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
	}))

	registerRoutes(r, h, db)

	logger.Infow("starting server", "port", cfg.Port)
	if err := r.Run(":" + cfg.Port); err != nil {
		logger.Fatalf("Server stopped: %v", err)
	}
}

func registerRoutes(r *gin.Engine, h *handlers.Handler, db *mongo.Database) {
	auth := r.Group("/api/auth")
	{
		auth.POST("/register", h.Register)
		auth.POST("/login", h.Login)
		auth.POST("/forgot-password", h.ForgotPassword)
		auth.POST("/reset-password", h.ResetPassword)

		authed := auth.Group("", middleware.Protect(db))
		authed.GET("/profile", h.GetProfile)
		authed.PUT("/profile", h.UpdateProfile)
		authed.POST("/logout", h.Logout)
	}

	admin := r.Group("/api/admin", middleware.Protect(db), middleware.Authorize(models.RoleSuperuser, models.RoleHospital))
	{
		admin.GET("/users", h.GetUsers)
		admin.GET("/children/unassigned", h.GetUnassignedChildren)
		admin.PUT("/children/:id/assign-therapist", h.AssignTherapist)
		admin.POST("/activities", h.CreateActivity)
		admin.GET("/activities", h.GetActivities)
		admin.PUT("/activities/:id", h.UpdateActivity)
		admin.DELETE("/activities/:id", h.DeleteActivity)
		admin.POST("/assignments", h.CreateAssignment)
	}

	therapist := r.Group("/api/therapist", middleware.Protect(db), middleware.Authorize(models.RoleTherapist))
	{
		therapist.GET("/patients", h.GetPatients)
		therapist.GET("/activities", h.GetActivities)
		therapist.POST("/assignments", h.CreateAssignment)
		therapist.POST("/home-programs", h.CreateHomeProgram)
		therapist.GET("/home-programs", h.GetHomePrograms)
		therapist.PUT("/home-programs/:id", h.UpdateHomeProgram)
		therapist.GET("/progress/pending", h.GetPendingProgress)
		therapist.PUT("/progress/:id/review", h.ReviewProgress)

		// patient-scoped routes need the target user loaded for ownership checks.
		// No explicit roles here: a hospital caller must fall through to the
		// affiliation check (target.hospitalId == caller id) instead of being
		// admitted to every patient.
		patient := therapist.Group("/patients/:id",
			middleware.RequireTargetUser(db, "id"),
			middleware.AuthorizeOwnerOrRole(),
		)
		patient.GET("/report", h.GetPatientReport)
		patient.GET("/details", h.GetPatientDetails)
		patient.PUT("/details", h.UpsertPatientDetails)
		patient.POST("/details/documents", h.AttachPatientDocument)
	}

	child := r.Group("/api/child", middleware.Protect(db), middleware.Authorize(models.RoleChild))
	{
		child.GET("/activities", h.GetMyActivities)
		child.PUT("/activities/:id/start", h.StartActivity)
		child.PUT("/activities/:id/submit", h.SubmitActivity)
		child.GET("/report", h.GetMyReport)
		child.GET("/home-programs", h.GetMyHomePrograms)
		child.POST("/home-programs/:id/items/:itemId/complete", h.CompleteProgramItem)
		child.POST("/progress", h.CreateProgress)
		child.PUT("/progress/:id/submit", h.SubmitProgress)
		child.GET("/progress", h.GetMyProgress)
	}
}

func ensureIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection("users").Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "role", Value: 1}}},
		{Keys: bson.D{{Key: "isActive", Value: 1}}},
		{Keys: bson.D{{Key: "assignedTherapist", Value: 1}}},
		{Keys: bson.D{{Key: "parentId", Value: 1}}},
	})
	if err != nil {
		return err
	}

	_, err = db.Collection("activity_assignments").Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "childId", Value: 1}}},
		{Keys: bson.D{{Key: "completionStatus", Value: 1}, {Key: "dueDate", Value: 1}}},
	})
	if err != nil {
		return err
	}

	_, err = db.Collection("home_programs").Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "therapistId", Value: 1}}},
		{Keys: bson.D{{Key: "childId", Value: 1}}},
	})
	if err != nil {
		return err
	}

	_, err = db.Collection("progress").Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "userId", Value: 1}}},
		{Keys: bson.D{{Key: "status", Value: 1}}},
	})
	if err != nil {
		return err
	}

	_, err = db.Collection("patient_details").Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "userId", Value: 1}}, Options: options.Index().SetUnique(true),
	})
	return err
}

// seedSuperuser creates the default superuser account on first boot when one is
// configured and none exists yet.
func seedSuperuser(ctx context.Context, db *mongo.Database, cfg *config.Config, logger *zap.SugaredLogger) error {
	if cfg.SuperuserEmail == "" || cfg.SuperuserPassword == "" {
		return nil
	}

	count, err := db.Collection("users").CountDocuments(ctx, bson.M{"role": models.RoleSuperuser})
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	hashed, err := utils.HashPassword(cfg.SuperuserPassword)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	_, err = db.Collection("users").InsertOne(ctx, models.User{
		Name:            "Superuser",
		Email:           cfg.SuperuserEmail,
		Password:        hashed,
		Role:            models.RoleSuperuser,
		IsActive:        true,
		IsEmailVerified: true,
		CreatedAt:       now,
		UpdatedAt:       now,
	})
	if err != nil && !mongo.IsDuplicateKeyError(err) {
		return err
	}
	logger.Infow("seeded default superuser", "email", cfg.SuperuserEmail)
	return nil
}
