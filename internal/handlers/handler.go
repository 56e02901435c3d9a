package handlers

import (
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/mirantsoa/therapy-api/internal/config"
	"github.com/mirantsoa/therapy-api/internal/services"
)

// Handler carries the collaborators every route needs: database handle, config,
// logger and the email service. Built once in main and shared by all routes.
type Handler struct {
	DB   *mongo.Database
	Cfg  *config.Config
	Log  *zap.SugaredLogger
	Mail services.EmailService
}

func NewHandler(db *mongo.Database, cfg *config.Config, log *zap.SugaredLogger, mail services.EmailService) *Handler {
	return &Handler{
		DB:   db,
		Cfg:  cfg,
		Log:  log,
		Mail: mail,
	}
}

// Collection shorthands.
func (h *Handler) users() *mongo.Collection          { return h.DB.Collection("users") }
func (h *Handler) activities() *mongo.Collection     { return h.DB.Collection("activities") }
func (h *Handler) assignments() *mongo.Collection    { return h.DB.Collection("activity_assignments") }
func (h *Handler) homePrograms() *mongo.Collection   { return h.DB.Collection("home_programs") }
func (h *Handler) progress() *mongo.Collection       { return h.DB.Collection("progress") }
func (h *Handler) patientDetails() *mongo.Collection { return h.DB.Collection("patient_details") }
