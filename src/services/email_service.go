// backend/src/services/email_service.go
package services

import (
	"fmt"
	"net/smtp"

	"github.com/thucosta0/financepro/backend/src/config"
	"github.com/thucosta0/financepro/backend/src/logger"
)

type smtpEmailService struct{}

func NewEmailService() EmailService {
	return &smtpEmailService{}
}

func (s *smtpEmailService) SendVerificationEmail(toEmail, username, token string) error {
	cfg := config.Cfg
	if cfg.SMTPServer == "" {
		// Dev convenience: without an SMTP server the link is only logged.
		logger.L.Warn("SMTP not configured; verification email not sent",
			"to", toEmail, "link", verificationLink(token))
		return nil
	}

	subject := "Confirm your FinancePRO account"
	body := fmt.Sprintf(
		"Hi %s,\r\n\r\n"+
			"Welcome to FinancePRO! Please confirm your email address by opening the link below:\r\n\r\n"+
			"%s\r\n\r\n"+
			"The link expires in %s. If you did not create this account, you can ignore this message.\r\n",
		username, verificationLink(token), cfg.VerificationTokenExpiry,
	)

	msg := []byte(fmt.Sprintf(
		"From: %s <%s>\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/plain; charset=\"utf-8\"\r\n\r\n%s",
		cfg.SenderName, cfg.SenderEmail, toEmail, subject, body,
	))

	addr := fmt.Sprintf("%s:%d", cfg.SMTPServer, cfg.SMTPPort)
	auth := smtp.PlainAuth("", cfg.SMTPUser, cfg.SMTPPassword, cfg.SMTPServer)
	if err := smtp.SendMail(addr, auth, cfg.SenderEmail, []string{toEmail}, msg); err != nil {
		return fmt.Errorf("sending verification email: %w", err)
	}

	logger.L.Info("Verification email sent", "to", toEmail)
	return nil
}

func verificationLink(token string) string {
	return fmt.Sprintf("%s?token=%s", config.Cfg.VerificationEmailBaseURL, token)
}
