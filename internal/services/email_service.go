package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"

	"github.com/BradenHooton/gatehouse/internal/models"
	"github.com/BradenHooton/gatehouse/pkg/logger"
)

// AWSSESEmailService sends one-time codes using AWS SES
type AWSSESEmailService struct {
	sesClient   *ses.Client
	fromAddress string
	logger      *slog.Logger
}

// NewAWSSESEmailService creates a new AWS SES email service
func NewAWSSESEmailService(region, fromAddress string, log *slog.Logger) (*AWSSESEmailService, error) {
	cfg, err := config.LoadDefaultConfig(context.Background(), config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &AWSSESEmailService{
		sesClient:   ses.NewFromConfig(cfg),
		fromAddress: fromAddress,
		logger:      log,
	}, nil
}

// SendOTP sends a one-time code email. The subject and body depend on the
// purpose the code was issued for.
func (s *AWSSESEmailService) SendOTP(ctx context.Context, to, purpose, code string, expiresAt time.Time) error {
	minutes := int(time.Until(expiresAt).Round(time.Minute).Minutes())
	if minutes < 1 {
		minutes = 1
	}

	var subject, heading, intro string
	switch purpose {
	case models.OTPPurposePasswordReset:
		subject = "Your password reset code"
		heading = "Reset Your Password"
		intro = "We received a request to reset the password for your account. Enter the code below to continue:"
	default:
		subject = "Your verification code"
		heading = "Verify Your Email Address"
		intro = "Thank you for creating an account. Enter the code below to verify your email address:"
	}

	htmlBody := fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
        .container { max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { background-color: #f8f9fa; padding: 20px; text-align: center; border-radius: 4px; }
        .content { padding: 20px 0; }
        .code { font-size: 32px; letter-spacing: 8px; font-weight: bold; text-align: center; padding: 16px; background-color: #f8f9fa; border-radius: 4px; margin: 20px 0; }
        .footer { color: #666; font-size: 12px; margin-top: 20px; padding-top: 20px; border-top: 1px solid #eee; }
        .warning { background-color: #fff3cd; padding: 10px; border-left: 4px solid #ffc107; margin: 10px 0; }
    </style>
</head>
<body>
    <div class="container">
        <div class="header">
            <h1>%s</h1>
        </div>
        <div class="content">
            <p>%s</p>
            <div class="code">%s</div>
            <div class="warning">
                <strong>⚠️ Security Notice:</strong> This code will expire in %d minutes.
            </div>
            <p><strong>Didn't request this code?</strong><br>
            If you didn't make this request, you can ignore this email. No changes will be made to your account.</p>
        </div>
        <div class="footer">
            <p>This is an automated message. Please do not reply to this email.</p>
            <p>If you have any questions, please contact our support team.</p>
        </div>
    </div>
</body>
</html>
`, heading, intro, code, minutes)

	textBody := fmt.Sprintf(`%s

%s

%s

⚠️  Security Notice: This code will expire in %d minutes.

Didn't request this code?
If you didn't make this request, you can ignore this email. No changes will be made to your account.

This is an automated message. Please do not reply to this email.
If you have any questions, please contact our support team.
`, heading, intro, code, minutes)

	input := &ses.SendEmailInput{
		Source: aws.String(s.fromAddress),
		Destination: &types.Destination{
			ToAddresses: []string{to},
		},
		Message: &types.Message{
			Subject: &types.Content{
				Data: aws.String(subject),
			},
			Body: &types.Body{
				Html: &types.Content{
					Data: aws.String(htmlBody),
				},
				Text: &types.Content{
					Data: aws.String(textBody),
				},
			},
		},
	}

	result, err := s.sesClient.SendEmail(ctx, input)
	if err != nil {
		s.logger.Error("failed to send one-time code via SES",
			slog.String("email", logger.SanitizedEmail(to)),
			slog.String("purpose", purpose),
			slog.Any("error", err))
		return fmt.Errorf("failed to send email: %w", err)
	}

	s.logger.Info("one-time code email sent",
		slog.String("email", logger.SanitizedEmail(to)),
		slog.String("purpose", purpose),
		slog.String("message_id", *result.MessageId))

	return nil
}
