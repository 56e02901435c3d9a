package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/mirantsoa/therapy-api/internal/models"
)

// EmailService sends transactional mail. The reset flow needs to know whether
// dispatch failed so it can roll the token back, so sends are synchronous.
type EmailService interface {
	SendPasswordResetEmail(ctx context.Context, user *models.User, resetToken string) error
	IsConfigured() bool
}

// resetLinks builds the deep link (mobile) and web link carried in the reset mail.
func resetLinks(frontendURL, resetToken string) (deepLink, webLink string) {
	deepLink = fmt.Sprintf("dottherapy://reset-password?token=%s", resetToken)
	webLink = fmt.Sprintf("%s/reset-password?token=%s", frontendURL, resetToken)
	return deepLink, webLink
}

func resetBody(user *models.User, deepLink, webLink string) string {
	return fmt.Sprintf(
		"Hi %s,\n\n"+
			"We received a request to reset the password for your account.\n"+
			"This link expires in 10 minutes and can be used once.\n\n"+
			"Open in the app: %s\n"+
			"Or reset on the web: %s\n\n"+
			"If you did not request this, you can safely ignore this email.\n",
		user.Name, deepLink, webLink,
	)
}

// ConsoleEmailService logs mail instead of sending it. Used in development when
// no SendGrid key is configured.
type ConsoleEmailService struct {
	FrontendURL string
	Log         *zap.SugaredLogger
}

func NewConsoleEmailService(frontendURL string, log *zap.SugaredLogger) *ConsoleEmailService {
	return &ConsoleEmailService{FrontendURL: frontendURL, Log: log}
}

func (s *ConsoleEmailService) IsConfigured() bool { return false }

func (s *ConsoleEmailService) SendPasswordResetEmail(_ context.Context, user *models.User, resetToken string) error {
	deepLink, webLink := resetLinks(s.FrontendURL, resetToken)
	s.Log.Infow("password reset email (console)",
		"to", user.Email,
		"deepLink", deepLink,
		"webLink", webLink,
	)
	return nil
}
