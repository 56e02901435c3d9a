package services

import (
	"context"
	"fmt"
	"net/http"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"

	"github.com/mirantsoa/therapy-api/internal/models"
)

// SendgridEmailService sends mail through the SendGrid v3 API.
type SendgridEmailService struct {
	client      *sendgrid.Client
	from        *sgmail.Email
	frontendURL string
	log         *zap.SugaredLogger
}

func NewSendgridEmailService(apiKey, fromName, fromAddr, frontendURL string, log *zap.SugaredLogger) *SendgridEmailService {
	return &SendgridEmailService{
		client:      sendgrid.NewSendClient(apiKey),
		from:        sgmail.NewEmail(fromName, fromAddr),
		frontendURL: frontendURL,
		log:         log,
	}
}

func (s *SendgridEmailService) IsConfigured() bool { return true }

func (s *SendgridEmailService) SendPasswordResetEmail(ctx context.Context, user *models.User, resetToken string) error {
	deepLink, webLink := resetLinks(s.frontendURL, resetToken)
	body := resetBody(user, deepLink, webLink)

	msg := sgmail.NewSingleEmail(
		s.from,
		"Reset your password",
		sgmail.NewEmail(user.Name, user.Email),
		body,
		"", // plain text only, no HTML templates
	)

	resp, err := s.client.SendWithContext(ctx, msg)
	if err != nil {
		return err
	}
	if resp.StatusCode >= http.StatusBadRequest {
		s.log.Errorw("sendgrid rejected password reset email",
			"to", user.Email, "status", resp.StatusCode, "body", resp.Body)
		return fmt.Errorf("sendgrid: status %d", resp.StatusCode)
	}
	return nil
}
