package email

import (
	"fmt"
	"log"
	"net/smtp"

	"github.com/cargolink/backend/internal/config"
)

// EmailService handles sending emails
type EmailService struct {
	smtpHost    string
	smtpPort    string
	username    string
	password    string
	fromEmail   string
	frontendURL string
}

// NewEmailService creates a new email service
func NewEmailService(cfg config.SMTPConfig, frontendURL string) *EmailService {
	return &EmailService{
		smtpHost:    cfg.Host,
		smtpPort:    cfg.Port,
		username:    cfg.Username,
		password:    cfg.Password,
		fromEmail:   cfg.FromEmail,
		frontendURL: frontendURL,
	}
}

// SendAgentApprovalEmail delivers the referral code to a newly approved agent
func (s *EmailService) SendAgentApprovalEmail(toEmail, firstName, referralCode string) error {
	subject := "Your CargoLink Agent Account Is Approved"
	body := fmt.Sprintf(`
	<!DOCTYPE html>
	<html>
	<head>
		<style>
			body { font-family: Arial, sans-serif; line-height: 1.6; }
			.container { max-width: 600px; margin: 0 auto; padding: 20px; }
			.header { background-color: #0F766E; color: white; padding: 10px; text-align: center; }
			.content { padding: 20px; }
			.code { font-size: 24px; font-weight: bold; letter-spacing: 2px; }
		</style>
	</head>
	<body>
		<div class="container">
			<div class="header">
				<h1>CargoLink</h1>
			</div>
			<div class="content">
				<h2>Hello %s,</h2>
				<p>Your agent account has been approved. Your referral code is:</p>
				<p class="code">%s</p>
				<p>Share this code with customers when they register. You earn commission on every purchase they make.</p>
				<p><a href="%s/signin">Sign in to your dashboard</a></p>
				<p>Best regards,<br>The CargoLink Team</p>
			</div>
		</div>
	</body>
	</html>
	`, firstName, referralCode, s.frontendURL)

	return s.sendEmail(toEmail, subject, body)
}

// SendStatusEmail informs a user their account was approved, rejected or
// deactivated, with the recorded reason where one applies
func (s *EmailService) SendStatusEmail(toEmail, firstName, status, reason string) error {
	subject := fmt.Sprintf("Your CargoLink Account Has Been %s", status)
	reasonBlock := ""
	if reason != "" {
		reasonBlock = fmt.Sprintf("<p>Reason: %s</p>", reason)
	}
	body := fmt.Sprintf(`
	<!DOCTYPE html>
	<html>
	<body>
		<div style="max-width: 600px; margin: 0 auto; padding: 20px; font-family: Arial, sans-serif;">
			<h2>Hello %s,</h2>
			<p>The status of your CargoLink account has changed to: <strong>%s</strong>.</p>
			%s
			<p>If you have questions, reply to this email and our support team will help.</p>
			<p>Best regards,<br>The CargoLink Team</p>
		</div>
	</body>
	</html>
	`, firstName, status, reasonBlock)

	return s.sendEmail(toEmail, subject, body)
}

// SendAdminWelcomeEmail notifies the seeded platform admin account
func (s *EmailService) SendAdminWelcomeEmail(toEmail string) error {
	subject := "CargoLink Admin Account Created"
	body := fmt.Sprintf(`
	<!DOCTYPE html>
	<html>
	<body>
		<div style="max-width: 600px; margin: 0 auto; padding: 20px; font-family: Arial, sans-serif;">
			<h2>Welcome,</h2>
			<p>Your CargoLink administrator account has been provisioned.</p>
			<p><a href="%s/signin">Sign in</a> with the credentials supplied at deployment and change your password immediately.</p>
		</div>
	</body>
	</html>
	`, s.frontendURL)

	return s.sendEmail(toEmail, subject, body)
}

// sendEmail sends an email with HTML content
func (s *EmailService) sendEmail(toEmail, subject, htmlBody string) error {
	if s.smtpHost == "" || s.smtpPort == "" || s.username == "" || s.password == "" {
		log.Println("Email service not configured properly. Check environment variables.")
		return fmt.Errorf("email service not configured")
	}

	mime := "MIME-version: 1.0;\nContent-Type: text/html; charset=\"UTF-8\";\n\n"
	from := fmt.Sprintf("From: CargoLink <%s>\n", s.fromEmail)
	to := fmt.Sprintf("To: %s\n", toEmail)
	subjectHeader := fmt.Sprintf("Subject: %s\n", subject)

	message := []byte(from + to + subjectHeader + mime + htmlBody)
	auth := smtp.PlainAuth("", s.username, s.password, s.smtpHost)
	addr := fmt.Sprintf("%s:%s", s.smtpHost, s.smtpPort)

	if err := smtp.SendMail(addr, auth, s.fromEmail, []string{toEmail}, message); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}
